package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/spf13/viper"

	"repodash/models"
)

// Dashboard is a point-in-time copy of the dashboard settings.
type Dashboard struct {
	Host                      string
	Scope                     models.Scope
	OnlyWith                  models.OnlyWith
	IncludeForks              bool
	IncludeArchived           bool
	SortKey                   models.SortKey
	Limit                     int
	MaxAgeDays                int
	Pinned                    []string
	Hidden                    []string
	PinPriority               bool
	ShowHeatmap               bool
	HeatmapSpanWeeks          int
	ActivityScope             models.ActivityScope
	ActivityLimit             int
	HydrationConcurrency      int
	RepositoryFetchLimit      int
	RefreshInterval           time.Duration
	CredentialRefreshInterval time.Duration
}

// Query builds the repository query for a refresh cycle started at now.
func (d Dashboard) Query(now time.Time) models.RepositoryQuery {
	hidden := make(map[string]struct{}, len(d.Hidden))
	for _, h := range d.Hidden {
		hidden[h] = struct{}{}
	}

	q := models.RepositoryQuery{
		Scope:           d.Scope,
		OnlyWith:        d.OnlyWith,
		IncludeForks:    d.IncludeForks,
		IncludeArchived: d.IncludeArchived,
		SortKey:         d.SortKey,
		Limit:           d.Limit,
		Pinned:          slices.Clone(d.Pinned),
		Hidden:          hidden,
		PinPriority:     d.PinPriority,
	}
	if d.MaxAgeDays > 0 {
		q.AgeCutoff = now.AddDate(0, 0, -d.MaxAgeDays)
	}
	return q
}

func (d Dashboard) clone() Dashboard {
	d.Pinned = slices.Clone(d.Pinned)
	d.Hidden = slices.Clone(d.Hidden)
	return d
}

// Settings is the mutable, concurrency-safe holder of the dashboard
// settings. The engine only reads it, except through the pin/hide mutators.
type Settings struct {
	mu     sync.RWMutex
	values Dashboard
	path   string

	saveMu sync.Mutex
}

func newSettings(values Dashboard, path string) *Settings {
	return &Settings{values: values.clone(), path: path}
}

// NewSettings creates settings that are never persisted.
func NewSettings(values Dashboard) *Settings {
	return newSettings(values, "")
}

// Snapshot returns a copy of the current settings.
func (s *Settings) Snapshot() Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.clone()
}

// AddPinned appends fullName to the pinned list. It reports whether the list changed.
func (s *Settings) AddPinned(fullName string) (bool, error) {
	if err := checkFullName(fullName); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.values.Pinned, fullName) {
		return false, nil
	}
	s.values.Pinned = append(s.values.Pinned, fullName)
	return true, nil
}

// RemovePinned removes fullName from the pinned list.
func (s *Settings) RemovePinned(fullName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.values.Pinned)
	s.values.Pinned = slices.DeleteFunc(s.values.Pinned, func(p string) bool { return p == fullName })
	return len(s.values.Pinned) != before
}

// Hide adds fullName to the hidden set.
func (s *Settings) Hide(fullName string) (bool, error) {
	if err := checkFullName(fullName); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.values.Hidden, fullName) {
		return false, nil
	}
	s.values.Hidden = append(s.values.Hidden, fullName)
	return true, nil
}

// Unhide removes fullName from the hidden set.
func (s *Settings) Unhide(fullName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.values.Hidden)
	s.values.Hidden = slices.DeleteFunc(s.values.Hidden, func(h string) bool { return h == fullName })
	return len(s.values.Hidden) != before
}

// Save writes the pin and hide lists back to the config file, leaving the
// other keys of the file as they are. It is a no-op when the settings were
// not loaded from a file.
func (s *Settings) Save() error {
	if s.path == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	pinned := slices.Clone(s.values.Pinned)
	hidden := slices.Clone(s.values.Hidden)
	s.mu.RUnlock()

	// A fresh instance has no env bindings, so secrets from the environment
	// are never written to disk.
	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	v.Set("dashboard.pinned", pinned)
	v.Set("dashboard.hidden", hidden)
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func checkFullName(fullName string) error {
	if _, _, ok := models.SplitFullName(fullName); !ok {
		return fmt.Errorf("%w: %q is not an owner/name pair", ErrInvalidConfig, fullName)
	}
	return nil
}
