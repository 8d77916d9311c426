// Package scheduler implements a restartable, tick-based periodic runner.
// The tick function runs on a single goroutine, so ticks never overlap: a
// slow tick delays the next one instead of running concurrently with it.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickFunc is the work performed on every tick.
type TickFunc func(ctx context.Context) error

// Scheduler runs a TickFunc immediately on Start and then once per interval
// until Stop is called or the parent context is cancelled.
type Scheduler struct {
	interval time.Duration
	fn       TickFunc
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped scheduler.
func New(interval time.Duration, fn TickFunc, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		fn:       fn,
		logger:   logger,
	}
}

// Start begins the tick loop. Calling Start while running cancels the
// pending tick and restarts the loop, so at most one loop exists.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(runCtx, done)
}

// Stop cancels the loop and waits for an in-flight tick to finish. Once Stop
// returns no further tick will run. Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// stopLocked must be called with s.mu held.
func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Both channels may be ready; cancellation wins.
			if ctx.Err() != nil {
				return
			}
			s.run(ctx)
		}
	}
}

// run executes one tick. Errors and panics are logged and never end the loop.
func (s *Scheduler) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tick panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()

	if err := s.fn(ctx); err != nil {
		s.logger.Warn("Tick failed", zap.Error(err))
	}
}
