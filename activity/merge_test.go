package activity

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repodash/models"
)

var t0 = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func event(actor, url string, minutesAgo int) models.ActivityEvent {
	return models.ActivityEvent{
		Actor:     actor,
		URL:       url,
		Timestamp: t0.Add(-time.Duration(minutesAgo) * time.Minute),
		Kind:      models.ActivityPush,
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		user     []models.ActivityEvent
		repo     []models.ActivityEvent
		username string
		scope    models.ActivityScope
		limit    int
		want     []models.ActivityEvent
	}{
		{
			name:     "same event from both sources collapses",
			user:     []models.ActivityEvent{event("octo", "https://x/1", 5)},
			repo:     []models.ActivityEvent{event("octo", "https://x/1", 5)},
			username: "octo",
			scope:    models.AllActivity,
			limit:    10,
			want:     []models.ActivityEvent{event("octo", "https://x/1", 5)},
		},
		{
			name:     "different actor is a different event",
			user:     []models.ActivityEvent{event("octo", "https://x/1", 5)},
			repo:     []models.ActivityEvent{event("cat", "https://x/1", 5)},
			username: "octo",
			scope:    models.AllActivity,
			limit:    10,
			want:     []models.ActivityEvent{event("octo", "https://x/1", 5), event("cat", "https://x/1", 5)},
		},
		{
			name:     "my activity is case insensitive",
			user:     []models.ActivityEvent{event("Octo", "https://x/1", 1), event("cat", "https://x/2", 2)},
			repo:     []models.ActivityEvent{event("octo", "https://x/3", 3)},
			username: "OCTO",
			scope:    models.MyActivity,
			limit:    10,
			want:     []models.ActivityEvent{event("Octo", "https://x/1", 1), event("octo", "https://x/3", 3)},
		},
		{
			name:     "sorted newest first and limited",
			user:     []models.ActivityEvent{event("a", "u1", 30), event("a", "u2", 10)},
			repo:     []models.ActivityEvent{event("a", "u3", 20), event("a", "u4", 1)},
			username: "a",
			scope:    models.AllActivity,
			limit:    3,
			want:     []models.ActivityEvent{event("a", "u4", 1), event("a", "u2", 10), event("a", "u3", 20)},
		},
		{
			name:  "zero limit",
			user:  []models.ActivityEvent{event("a", "u1", 1)},
			scope: models.AllActivity,
			limit: 0,
			want:  []models.ActivityEvent{},
		},
		{
			name:  "empty input",
			scope: models.AllActivity,
			limit: 5,
			want:  []models.ActivityEvent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.user, tt.repo, tt.username, tt.scope, tt.limit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	actors := []string{"octo", "OCTO", "cat", "dog"}

	gen := func(n int) []models.ActivityEvent {
		out := make([]models.ActivityEvent, n)
		for i := range out {
			out[i] = event(actors[rng.Intn(len(actors))], fmt.Sprintf("https://x/%d", rng.Intn(8)), rng.Intn(10))
		}
		return out
	}

	for i := 0; i < 300; i++ {
		user, repo := gen(rng.Intn(20)), gen(rng.Intn(20))
		limit := rng.Intn(15)
		scope := models.AllActivity
		if rng.Intn(2) == 0 {
			scope = models.MyActivity
		}

		out := Merge(user, repo, "octo", scope, limit)

		require.LessOrEqual(t, len(out), limit)
		seen := make(map[models.EventKey]bool)
		for j, e := range out {
			require.False(t, seen[e.Key()], "duplicate key")
			seen[e.Key()] = true
			if j > 0 {
				require.False(t, e.Timestamp.After(out[j-1].Timestamp), "not sorted")
			}
			if scope == models.MyActivity {
				require.True(t, strings.EqualFold(e.Actor, "octo"))
			}
		}
	}
}

func TestEmbedded(t *testing.T) {
	repos := []models.Repository{
		{FullName: "a/a", RecentEvents: []models.ActivityEvent{event("x", "1", 1)}},
		{FullName: "b/b"},
		{FullName: "c/c", RecentEvents: []models.ActivityEvent{event("y", "2", 2), event("z", "3", 3)}},
	}
	got := Embedded(repos)
	require.Len(t, got, 3)
	assert.Equal(t, "x", got[0].Actor)
	assert.Equal(t, "z", got[2].Actor)
}

func TestMergeCommits(t *testing.T) {
	c := func(repo, sha string, minutesAgo int) models.CommitSummary {
		return models.CommitSummary{Repository: repo, SHA: sha, Timestamp: t0.Add(-time.Duration(minutesAgo) * time.Minute)}
	}
	got := MergeCommits([]models.CommitSummary{c("a/a", "1", 5), c("a/a", "2", 1), c("a/a", "1", 5), c("b/b", "1", 3)}, 10)
	assert.Equal(t, []models.CommitSummary{c("a/a", "2", 1), c("b/b", "1", 3), c("a/a", "1", 5)}, got)

	assert.Len(t, MergeCommits(got, 1), 1)
	assert.Empty(t, MergeCommits(got, 0))
}
