package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"repodash/logger"
)

// Scheduler serializes refresh executions. At most one execution runs at a
// time, whatever triggered it.
type Scheduler struct {
	run func(ctx context.Context)

	mu       sync.Mutex
	base     context.Context
	stopBase context.CancelFunc
	current  *execution
	stopTick context.CancelFunc
	stopped  bool
	wg       sync.WaitGroup
}

type execution struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (e *execution) finished() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// NewScheduler creates a scheduler that calls run for every execution.
func NewScheduler(run func(ctx context.Context)) *Scheduler {
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{run: run, base: base, stopBase: cancel}
}

// RequestRefresh starts an execution. Without cancelInFlight the request is
// dropped when an execution is already pending or running. With it, the
// running execution is canceled and a new one starts once it has returned.
// It reports whether a new execution was scheduled.
func (s *Scheduler) RequestRefresh(cancelInFlight bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}

	prev := s.current
	if prev != nil && prev.finished() {
		prev = nil
	}
	if prev != nil && !cancelInFlight {
		logger.Named("scheduler").Debug("Refresh request coalesced")
		return false
	}
	if prev != nil {
		logger.Named("scheduler").Debug("Canceling in-flight refresh")
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(s.base)
	exec := &execution{cancel: cancel, done: make(chan struct{})}
	s.current = exec

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(exec.done)
		defer cancel()

		if prev != nil {
			<-prev.done
		}
		if ctx.Err() != nil {
			return
		}
		s.run(ctx)
	}()
	return true
}

// Configure calls onTick every interval until reconfigured or stopped. A nil
// onTick requests a coalescing refresh. A non-positive interval only stops
// the current ticker.
func (s *Scheduler) Configure(interval time.Duration, onTick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
	if s.stopped || interval <= 0 {
		return
	}
	if onTick == nil {
		onTick = func() { s.RequestRefresh(false) }
	}

	ctx, cancel := context.WithCancel(s.base)
	s.stopTick = cancel
	logger.Named("scheduler").Info("Starting refresh ticker", zap.Duration("interval", interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				onTick()
			}
		}
	}()
}

// Wait blocks until the latest scheduled execution has returned.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	exec := s.current
	s.mu.Unlock()
	if exec != nil {
		<-exec.done
	}
}

// CancelAndWait cancels the running execution, and with it any pending
// one, then blocks until both have returned. The scheduler stays usable.
func (s *Scheduler) CancelAndWait() {
	s.mu.Lock()
	exec := s.current
	if exec != nil {
		exec.cancel()
	}
	s.mu.Unlock()
	if exec != nil {
		<-exec.done
		logger.Named("scheduler").Debug("In-flight refresh canceled")
	}
}

// Stop cancels the ticker and any execution and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.stopBase()
	s.mu.Unlock()

	s.wg.Wait()
	logger.Named("scheduler").Info("Refresh scheduler stopped")
}
