package models

import (
	"fmt"
	"time"
)

// Scope selects which partition of the repository set is shown.
type Scope string

const (
	ScopeAll    Scope = "all"
	ScopePinned Scope = "pinned"
	ScopeHidden Scope = "hidden"
)

// OnlyWith restricts unpinned repositories to those with a capability.
type OnlyWith string

const (
	OnlyWithNone     OnlyWith = "none"
	OnlyWithOpenWork OnlyWith = "open_work"
	OnlyWithIssues   OnlyWith = "issues"
	OnlyWithPRs      OnlyWith = "prs"
)

// SortKey orders unpinned repositories.
type SortKey string

const (
	SortActivity SortKey = "activity"
	SortIssues   SortKey = "issues"
	SortPRs      SortKey = "prs"
	SortStars    SortKey = "stars"
	SortName     SortKey = "name"
)

// ActivityScope selects whose activity the feed shows.
type ActivityScope string

const (
	MyActivity  ActivityScope = "my_activity"
	AllActivity ActivityScope = "all_activity"
)

// ParseScope validates s.
func ParseScope(s string) (Scope, error) {
	switch v := Scope(s); v {
	case ScopeAll, ScopePinned, ScopeHidden:
		return v, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// ParseOnlyWith validates s.
func ParseOnlyWith(s string) (OnlyWith, error) {
	switch v := OnlyWith(s); v {
	case OnlyWithNone, OnlyWithOpenWork, OnlyWithIssues, OnlyWithPRs:
		return v, nil
	}
	return "", fmt.Errorf("unknown only_with filter %q", s)
}

// ParseSortKey validates s.
func ParseSortKey(s string) (SortKey, error) {
	switch v := SortKey(s); v {
	case SortActivity, SortIssues, SortPRs, SortStars, SortName:
		return v, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseActivityScope validates s.
func ParseActivityScope(s string) (ActivityScope, error) {
	switch v := ActivityScope(s); v {
	case MyActivity, AllActivity:
		return v, nil
	}
	return "", fmt.Errorf("unknown activity scope %q", s)
}

// RepositoryQuery describes what the caller wants to see. It is a value;
// build a new one instead of mutating a shared instance.
type RepositoryQuery struct {
	Scope           Scope
	OnlyWith        OnlyWith
	IncludeForks    bool
	IncludeArchived bool
	SortKey         SortKey
	// Limit is the maximum number of repositories; 0 means unbounded.
	Limit int
	// AgeCutoff excludes repositories last pushed before it. Zero disables it.
	AgeCutoff time.Time
	Pinned    []string
	Hidden    map[string]struct{}
	// PinPriority exempts pinned repositories from the limit and the age
	// cutoff and sorts them first.
	PinPriority bool
}

// IsHidden reports whether fullName is in the hidden set.
func (q RepositoryQuery) IsHidden(fullName string) bool {
	_, ok := q.Hidden[fullName]
	return ok
}
