package service

import (
	"context"
	"sync"

	"repodash/models"
)

// Session holds the published SessionState. Writers replace the state as a
// whole under the lock; readers get copies.
type Session struct {
	mu     sync.RWMutex
	state  models.SessionState
	subs   map[int]chan models.SessionState
	nextID int
}

// NewSession creates an empty, logged-out session.
func NewSession() *Session {
	return &Session{subs: make(map[int]chan models.SessionState)}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe returns a channel that receives every published state. A slow
// reader only sees the latest value. The returned function unsubscribes and
// closes the channel.
func (s *Session) Subscribe() (<-chan models.SessionState, func()) {
	ch := make(chan models.SessionState, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// update applies fn to the state and publishes the result.
func (s *Session) update(fn func(models.SessionState) models.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(fn(s.state.Clone()))
}

// commit is update guarded by ctx: nothing is written once ctx is done.
// It reports whether the state was written.
func (s *Session) commit(ctx context.Context, fn func(models.SessionState) models.SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.publish(fn(s.state.Clone()))
	return true
}

// publish must be called with mu held.
func (s *Session) publish(state models.SessionState) {
	s.state = state
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state.Clone():
		default:
		}
	}
}
