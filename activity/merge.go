// Package activity merges activity feeds observed from several sources.
package activity

import (
	"slices"
	"strings"

	"repodash/models"
)

// Merge combines the user's feed with the events embedded in repositories.
//
// With scope MyActivity only events whose actor matches username
// (case-insensitively) are kept. The result is sorted by timestamp, newest
// first, holds at most one event per (URL, timestamp, actor) key and at most
// limit events. A non-positive limit yields an empty result.
func Merge(userEvents, repoEvents []models.ActivityEvent, username string, scope models.ActivityScope, limit int) []models.ActivityEvent {
	if limit <= 0 {
		return []models.ActivityEvent{}
	}

	all := make([]models.ActivityEvent, 0, len(userEvents)+len(repoEvents))
	all = append(all, userEvents...)
	all = append(all, repoEvents...)

	if scope == models.MyActivity {
		all = slices.DeleteFunc(all, func(e models.ActivityEvent) bool {
			return !strings.EqualFold(e.Actor, username)
		})
	}

	// stable, so equal timestamps keep source order
	slices.SortStableFunc(all, func(a, b models.ActivityEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	out := make([]models.ActivityEvent, 0, min(limit, len(all)))
	seen := make(map[models.EventKey]struct{}, len(all))
	for _, e := range all {
		if len(out) == limit {
			break
		}
		key := e.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Embedded collects the recent events carried by repositories, in
// repository order.
func Embedded(repositories []models.Repository) []models.ActivityEvent {
	var out []models.ActivityEvent
	for _, r := range repositories {
		out = append(out, r.RecentEvents...)
	}
	return out
}

// MergeCommits deduplicates commits by SHA and repository, newest first,
// keeping at most limit.
func MergeCommits(commits []models.CommitSummary, limit int) []models.CommitSummary {
	if limit <= 0 {
		return []models.CommitSummary{}
	}
	sorted := slices.Clone(commits)
	slices.SortStableFunc(sorted, func(a, b models.CommitSummary) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	type key struct{ repo, sha string }
	out := make([]models.CommitSummary, 0, min(limit, len(sorted)))
	seen := make(map[key]struct{}, len(sorted))
	for _, c := range sorted {
		if len(out) == limit {
			break
		}
		k := key{c.Repository, c.SHA}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
