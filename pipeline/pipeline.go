// Package pipeline turns the merged repository set into the visible list.
// Everything here is pure: no I/O, no clocks, no package state.
package pipeline

import (
	"slices"
	"strings"

	"repodash/models"
)

// Apply filters, sorts and limits repositories according to q.
//
// Hidden repositories are always removed, even when pinned. Pinned
// repositories are never removed by the fork, archived or capability
// filters. With PinPriority they also bypass the age cutoff and the limit and
// come first in pinned-list order.
func Apply(repositories []models.Repository, q models.RepositoryQuery) []models.Repository {
	byName := make(map[string]models.Repository, len(repositories))
	visible := make([]models.Repository, 0, len(repositories))
	for _, r := range repositories {
		if q.IsHidden(r.FullName) {
			continue
		}
		if _, dup := byName[r.FullName]; dup {
			continue
		}
		byName[r.FullName] = r
		visible = append(visible, r)
	}

	switch q.Scope {
	case models.ScopeHidden:
		return hiddenOnly(repositories, q)
	case models.ScopePinned:
		return truncate(pinnedInOrder(byName, q.Pinned), q.Limit)
	}

	pinnedSet := make(map[string]struct{}, len(q.Pinned))
	for _, p := range q.Pinned {
		pinnedSet[p] = struct{}{}
	}

	var unpinned []models.Repository
	for _, r := range visible {
		if _, ok := pinnedSet[r.FullName]; ok {
			continue
		}
		if !passesFilters(r, q) || !passesCutoff(r, q) {
			continue
		}
		unpinned = append(unpinned, r)
	}

	if !q.PinPriority {
		var pinned []models.Repository
		for _, r := range pinnedInOrder(byName, q.Pinned) {
			if passesCutoff(r, q) {
				pinned = append(pinned, r)
			}
		}
		all := append(pinned, unpinned...)
		sortRepositories(all, q.SortKey)
		return truncate(all, q.Limit)
	}

	pinned := pinnedInOrder(byName, q.Pinned)
	sortRepositories(unpinned, q.SortKey)

	if q.Limit > 0 {
		room := max(q.Limit-len(pinned), 0)
		unpinned = truncate(unpinned, room)
	}
	return append(pinned, unpinned...)
}

// pinnedInOrder returns the pinned repositories present in byName, in the
// order of the pinned list.
func pinnedInOrder(byName map[string]models.Repository, pinned []string) []models.Repository {
	out := make([]models.Repository, 0, len(pinned))
	seen := make(map[string]struct{}, len(pinned))
	for _, name := range pinned {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if r, ok := byName[name]; ok {
			out = append(out, r)
		}
	}
	return out
}

func hiddenOnly(repositories []models.Repository, q models.RepositoryQuery) []models.Repository {
	var out []models.Repository
	seen := make(map[string]struct{})
	for _, r := range repositories {
		if !q.IsHidden(r.FullName) {
			continue
		}
		if _, dup := seen[r.FullName]; dup {
			continue
		}
		seen[r.FullName] = struct{}{}
		out = append(out, r)
	}
	sortRepositories(out, models.SortName)
	return truncate(out, q.Limit)
}

func passesFilters(r models.Repository, q models.RepositoryQuery) bool {
	if r.IsFork && !q.IncludeForks {
		return false
	}
	if r.IsArchived && !q.IncludeArchived {
		return false
	}
	switch q.OnlyWith {
	case models.OnlyWithOpenWork:
		return r.HasOpenWork()
	case models.OnlyWithIssues:
		if !r.CountsExact {
			return r.HasOpenWork()
		}
		return r.OpenIssuesCount > 0
	case models.OnlyWithPRs:
		if !r.CountsExact {
			return r.HasOpenWork()
		}
		return r.OpenPRsCount > 0
	}
	return true
}

func passesCutoff(r models.Repository, q models.RepositoryQuery) bool {
	if q.AgeCutoff.IsZero() {
		return true
	}
	return !r.PushedAt.Before(q.AgeCutoff)
}

// sortRepositories orders in place by key, breaking ties by full name
// ascending so the result is deterministic.
func sortRepositories(repos []models.Repository, key models.SortKey) {
	slices.SortStableFunc(repos, func(a, b models.Repository) int {
		if c := compareByKey(a, b, key); c != 0 {
			return c
		}
		return strings.Compare(a.FullName, b.FullName)
	})
}

func compareByKey(a, b models.Repository, key models.SortKey) int {
	switch key {
	case models.SortActivity:
		return b.PushedAt.Compare(a.PushedAt)
	case models.SortIssues:
		return b.OpenIssuesCount - a.OpenIssuesCount
	case models.SortPRs:
		return b.OpenPRsCount - a.OpenPRsCount
	case models.SortStars:
		return b.StarsCount - a.StarsCount
	case models.SortName:
		return strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
	}
	return 0
}

func truncate(repos []models.Repository, limit int) []models.Repository {
	if limit > 0 && len(repos) > limit {
		return repos[:limit]
	}
	return repos
}
