package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repodash/models"
)

func TestSessionSubscribeReceivesLatest(t *testing.T) {
	s := NewSession()
	ch, unsubscribe := s.Subscribe()

	for i := 1; i <= 3; i++ {
		s.update(func(st models.SessionState) models.SessionState {
			st.Repositories = append(st.Repositories, models.Repository{FullName: "o/r"})
			return st
		})
	}

	got := <-ch
	assert.Len(t, got.Repositories, 3)

	select {
	case <-ch:
		t.Fatal("expected only the latest state to be buffered")
	default:
	}

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestSessionSnapshotIsCopy(t *testing.T) {
	s := NewSession()
	s.update(func(st models.SessionState) models.SessionState {
		st.Repositories = []models.Repository{{FullName: "a/a"}}
		return st
	})

	snap := s.Snapshot()
	snap.Repositories[0].FullName = "changed/changed"

	assert.Equal(t, "a/a", s.Snapshot().Repositories[0].FullName)
}

func TestSessionCommitAfterCancel(t *testing.T) {
	s := NewSession()
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, s.commit(ctx, func(st models.SessionState) models.SessionState {
		st.Error = "first"
		return st
	}))
	cancel()
	assert.False(t, s.commit(ctx, func(st models.SessionState) models.SessionState {
		st.Error = "late"
		return st
	}))
	assert.Equal(t, "first", s.Snapshot().Error)
}
