// Package models defines the core data structures used throughout the application.
package models

import (
	"strings"
	"time"
)

// User is an account on the remote host.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Repository represents a hosted repository. A record is either shallow
// (from a list endpoint) or full (from a detail fetch, Hydrated set).
// CountsExact is set once OpenIssuesCount excludes pull requests and
// OpenPRsCount is a real total; otherwise OpenIssuesCount counts both.
type Repository struct {
	FullName        string          `json:"full_name"`
	Owner           string          `json:"owner"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	URL             string          `json:"url"`
	Language        string          `json:"language"`
	StarsCount      int             `json:"stars_count"`
	ForksCount      int             `json:"forks_count"`
	OpenIssuesCount int             `json:"open_issues_count"`
	OpenPRsCount    int             `json:"open_prs_count"`
	PushedAt        time.Time       `json:"pushed_at"`
	IsFork          bool            `json:"is_fork"`
	IsArchived      bool            `json:"is_archived"`
	IsPrivate       bool            `json:"is_private"`
	RecentEvents    []ActivityEvent `json:"recent_events,omitempty"`
	Hydrated        bool            `json:"hydrated"`
	CountsExact     bool            `json:"counts_exact"`
}

// SplitFullName splits "owner/name". ok is false if fullName is malformed.
func SplitFullName(fullName string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

// HasOpenWork reports whether the repository has open issues or pull requests.
func (r Repository) HasOpenWork() bool {
	return r.OpenIssuesCount > 0 || r.OpenPRsCount > 0
}

// ActivityKind is the type of an activity event.
type ActivityKind string

const (
	ActivityPush         ActivityKind = "push"
	ActivityPullRequest  ActivityKind = "pull_request"
	ActivityIssue        ActivityKind = "issue"
	ActivityIssueComment ActivityKind = "issue_comment"
	ActivityReview       ActivityKind = "review"
	ActivityRelease      ActivityKind = "release"
	ActivityCreate       ActivityKind = "create"
	ActivityDelete       ActivityKind = "delete"
	ActivityFork         ActivityKind = "fork"
	ActivityStar         ActivityKind = "star"
	ActivityOther        ActivityKind = "other"
)

// ActivityEvent is one entry of an activity feed.
type ActivityEvent struct {
	Actor      string       `json:"actor"`
	URL        string       `json:"url"`
	Timestamp  time.Time    `json:"timestamp"`
	Kind       ActivityKind `json:"kind"`
	Repository string       `json:"repository"`
	Title      string       `json:"title"`
}

// EventKey identifies an event independently of the source it was observed from.
type EventKey struct {
	URL       string
	Timestamp int64
	Actor     string
}

// Key returns the deduplication key of the event.
func (e ActivityEvent) Key() EventKey {
	return EventKey{URL: e.URL, Timestamp: e.Timestamp.UnixNano(), Actor: e.Actor}
}

// CommitSummary is a commit observed in a push event.
type CommitSummary struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	Author     string    `json:"author"`
	URL        string    `json:"url"`
	Repository string    `json:"repository"`
	Timestamp  time.Time `json:"timestamp"`
}

// HeatmapCell is the contribution count of one day.
type HeatmapCell struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// DateRange is an inclusive range of days.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
