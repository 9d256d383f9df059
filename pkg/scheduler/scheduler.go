// Package scheduler drives the periodic background rate refresh.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain/rate"
)

const (
	DefaultInterval    = time.Hour
	DefaultStopTimeout = 2 * time.Second
)

// ErrStopTimeout is returned by Stop when the loop is still busy after the
// stop timeout. The running refresh finishes on its own and nothing new is
// started.
var ErrStopTimeout = errors.New("scheduler did not stop in time")

// Refresher is the job the scheduler runs.
type Refresher interface {
	Refresh(ctx context.Context) (rate.RefreshResult, error)
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running    bool
	Interval   time.Duration
	LastRun    *time.Time
	LastResult *rate.RefreshResult
	LastError  string
}

// Scheduler runs Refresh immediately on Start and then interval after each
// completed run, until Stop.
type Scheduler struct {
	refresher   Refresher
	interval    time.Duration
	stopTimeout time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	running    bool
	stop       chan struct{}
	done       chan struct{}
	lastRun    *time.Time
	lastResult *rate.RefreshResult
	lastErr    error
}

func New(refresher Refresher, interval, stopTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		refresher:   refresher,
		interval:    interval,
		stopTimeout: stopTimeout,
		logger:      logger.With("service", "RatesScheduler"),
	}
}

// Start launches the loop. Starting a running scheduler is a no-op and
// returns false. Cancelling ctx ends the loop like Stop, but refreshes
// already running are never cancelled.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Debug("Scheduler already running")
		return false
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, s.stop, s.done)
	s.logger.Info("Scheduler started", "interval", s.interval)
	return true
}

// Stop signals the loop and waits up to the stop timeout for it to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-timer.C:
		s.logger.Warn("Scheduler stop timed out, in-flight refresh left to finish",
			"timeout", s.stopTimeout)
		return fmt.Errorf("%w after %s", ErrStopTimeout, s.stopTimeout)
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:    s.running,
		Interval:   s.interval,
		LastRun:    s.lastRun,
		LastResult: s.lastResult,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.markStopped(stop)
			return
		default:
		}

		s.runOnce(context.WithoutCancel(ctx))

		timer := time.NewTimer(s.interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			s.markStopped(stop)
			return
		case <-timer.C:
		}
	}
}

// markStopped clears the running flag when the loop exits on its own, unless
// a newer Start already replaced this loop.
func (s *Scheduler) markStopped(stop <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stop == stop {
		s.running = false
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled refresh panicked", "panic", r)
			s.record(started, nil, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Error("Scheduled refresh failed", "error", err)
		s.record(started, nil, err)
		return
	}
	s.logger.Info("Scheduled refresh done",
		"pairs_updated", res.TotalPairsUpdated,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	s.record(started, &res, nil)
}

func (s *Scheduler) record(at time.Time, res *rate.RefreshResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at = at.UTC()
	s.lastRun = &at
	s.lastResult = res
	s.lastErr = err
}
