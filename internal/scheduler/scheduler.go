// Package scheduler implements the Tick Scheduler: a fixed-interval driver
// for the Detection Orchestrator. It runs at most one cycle at a time per
// process, optionally coordinating with other replicas through an advisory
// Redis lock.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/railwatch/delay-tracker/internal/detection"
	"github.com/railwatch/delay-tracker/pkg/logger"
	"github.com/railwatch/delay-tracker/pkg/metrics"
)

const defaultTickInterval = 5 * time.Minute

const (
	outcomeOK            = "ok"
	outcomeSkippedLocked = "skipped_locked"
	outcomeSkippedBusy   = "skipped_busy"
	outcomeError         = "error"
)

// Orchestrator is the subset of the Detection Orchestrator the Scheduler
// drives each tick.
type Orchestrator interface {
	RunCycle(ctx context.Context) (detection.CycleResult, error)
}

// Params configures a Scheduler.
type Params struct {
	Logger       *logger.Logger
	Orchestrator Orchestrator
	Metrics      *metrics.TickerMetrics
	Interval     time.Duration

	// Lock is an optional additive advisory lock for coordinating multiple
	// scheduler-worker replicas. When nil, every tick proceeds unlocked; the
	// in-process in-flight flag remains the only non-reentrancy guard.
	Lock Lock
}

// Scheduler runs the Detection Orchestrator on a fixed cadence. A single
// Scheduler never runs two cycles concurrently: an atomic in-flight flag is
// the primary guard, checked before any lock is attempted.
type Scheduler struct {
	logg         *logger.Logger
	orchestrator Orchestrator
	metrics      *metrics.TickerMetrics
	interval     time.Duration
	lock         Lock

	inFlight atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New builds a Scheduler. A nil Lock is replaced with a no-op lock so
// Execute's flow is identical whether or not multi-replica coordination is
// configured.
func New(params Params) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	lock := params.Lock
	if lock == nil {
		lock = noopLock{}
	}
	return &Scheduler{
		logg:         params.Logger,
		orchestrator: params.Orchestrator,
		metrics:      params.Metrics,
		interval:     interval,
		lock:         lock,
	}, nil
}

// Start begins the tick loop in the background and returns immediately.
// Calling Start on an already-running Scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s.done != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.run(loopCtx)
	}()
}

// Stop cancels the tick loop and waits for the in-flight cycle, if any, to
// finish. Calling Stop before Start, or twice, is a no-op.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) run(ctx context.Context) {
	s.Execute(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "scheduler loop context canceled")
			return
		case <-ticker.C:
			s.Execute(ctx)
		}
	}
}

// Execute runs a single tick: the in-process in-flight flag rejects a
// reentrant call outright, then (if configured) the advisory lock is
// attempted before the orchestrator cycle runs. Execute never returns an
// error; failures are logged and recorded in metrics so the loop keeps
// ticking.
func (s *Scheduler) Execute(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logg.Warn(ctx, "tick already in flight, skipping")
		s.recordOutcome(outcomeSkippedBusy, 0)
		return
	}
	defer s.inFlight.Store(false)

	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "scheduler lock acquire failed", err)
		s.recordOutcome(outcomeError, 0)
		return
	}
	if !locked {
		s.logg.Info(ctx, "another scheduler replica holds the tick lock, skipping")
		s.recordOutcome(outcomeSkippedLocked, 0)
		return
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "scheduler lock release failed", relErr)
		}
	}()

	start := time.Now()
	result, err := s.orchestrator.RunCycle(ctx)
	duration := time.Since(start)

	tickCtx := s.logg.WithFields(ctx, map[string]any{
		"journeys_checked": result.JourneysChecked,
		"delays_detected":  result.DelaysDetected,
		"claims_triggered": result.ClaimsTriggered,
		"duration_ms":      duration.Milliseconds(),
	})
	if err != nil {
		s.logg.Error(tickCtx, "detection cycle failed", err)
		s.metrics.IncError("cycle")
		s.recordOutcome(outcomeError, duration)
		return
	}

	s.logg.Info(tickCtx, "detection cycle complete")
	s.metrics.AddJourneysProcessed("checked", result.JourneysChecked)
	s.metrics.AddJourneysProcessed("delayed", result.DelaysDetected)
	s.metrics.AddJourneysProcessed("claimed", result.ClaimsTriggered)
	s.recordOutcome(outcomeOK, duration)
}

func (s *Scheduler) recordOutcome(outcome string, duration time.Duration) {
	s.metrics.IncExecution(outcome)
	if duration > 0 {
		s.metrics.ObserveDuration(outcome, duration)
	}
}
