package models

import "time"

// SessionState is the snapshot observed by the presentation layer. It is
// replaced as a whole; consumers never see a partially merged value.
type SessionState struct {
	Account      Account         `json:"-"`
	Repositories []Repository    `json:"repositories"`
	Activity     []ActivityEvent `json:"activity"`
	Commits      []CommitSummary `json:"commits"`
	Heatmap      []HeatmapCell   `json:"heatmap"`
	HeatmapRange DateRange       `json:"heatmap_range"`

	// Error is the top-level message: a failed primary list fetch or an
	// active rate limit.
	Error             string `json:"error,omitempty"`
	RepositoriesError string `json:"repositories_error,omitempty"`
	ActivityError     string `json:"activity_error,omitempty"`
	CommitError       string `json:"commit_error,omitempty"`
	HeatmapError      string `json:"heatmap_error,omitempty"`

	IsRefreshing bool      `json:"is_refreshing"`
	UpdatedAt    time.Time `json:"updated_at"`
	// Stale is set while the repositories come from the local cache and no
	// network cycle has completed yet.
	Stale bool `json:"stale"`
}

// Clone returns a deep copy of the slices so the caller may keep it.
func (s SessionState) Clone() SessionState {
	c := s
	c.Repositories = append([]Repository(nil), s.Repositories...)
	c.Activity = append([]ActivityEvent(nil), s.Activity...)
	c.Commits = append([]CommitSummary(nil), s.Commits...)
	c.Heatmap = append([]HeatmapCell(nil), s.Heatmap...)
	return c
}

// ClearData drops all cached data and branch errors.
func (s SessionState) ClearData() SessionState {
	s.Repositories = nil
	s.Activity = nil
	s.Commits = nil
	s.Heatmap = nil
	s.HeatmapRange = DateRange{}
	s.Error = ""
	s.RepositoriesError = ""
	s.ActivityError = ""
	s.CommitError = ""
	s.HeatmapError = ""
	s.Stale = false
	return s
}
