package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/railwatch/delay-tracker/internal/detection"
	"github.com/railwatch/delay-tracker/pkg/logger"
)

type fakeOrchestrator struct {
	mu      sync.Mutex
	runs    int
	result  detection.CycleResult
	err     error
	blockCh chan struct{}
}

func (f *fakeOrchestrator) RunCycle(ctx context.Context) (detection.CycleResult, error) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	if f.blockCh != nil {
		<-f.blockCh
	}
	return f.result, f.err
}

func (f *fakeOrchestrator) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeLock struct {
	acquired bool
	denyNext bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.denyNext {
		f.denyNext = false
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "scheduler-test"})
}

func TestExecuteRunsOrchestratorOnce(t *testing.T) {
	orch := &fakeOrchestrator{result: detection.CycleResult{JourneysChecked: 3}}
	sched, err := New(Params{Logger: testLogger(), Orchestrator: orch})
	if err != nil {
		t.Fatalf("construct scheduler: %v", err)
	}
	sched.Execute(context.Background())
	if orch.runCount() != 1 {
		t.Fatalf("expected orchestrator to run once, ran %d", orch.runCount())
	}
}

func TestExecuteSkipsReentrantCall(t *testing.T) {
	block := make(chan struct{})
	orch := &fakeOrchestrator{blockCh: block}
	sched, err := New(Params{Logger: testLogger(), Orchestrator: orch})
	if err != nil {
		t.Fatalf("construct scheduler: %v", err)
	}

	done := make(chan struct{})
	go func() {
		sched.Execute(context.Background())
		close(done)
	}()

	for !sched.inFlight.Load() {
		time.Sleep(time.Millisecond)
	}

	sched.Execute(context.Background())
	if orch.runCount() != 1 {
		t.Fatalf("expected reentrant Execute to be skipped, orchestrator ran %d times", orch.runCount())
	}

	close(block)
	<-done
}

func TestExecuteSkipsWhenLockDenied(t *testing.T) {
	orch := &fakeOrchestrator{}
	lock := &fakeLock{denyNext: true}
	sched, err := New(Params{Logger: testLogger(), Orchestrator: orch, Lock: lock})
	if err != nil {
		t.Fatalf("construct scheduler: %v", err)
	}
	sched.Execute(context.Background())
	if orch.runCount() != 0 {
		t.Fatalf("expected orchestrator not to run when lock is denied, ran %d", orch.runCount())
	}
}

func TestExecuteReleasesLockAfterSuccess(t *testing.T) {
	orch := &fakeOrchestrator{}
	lock := &fakeLock{}
	sched, err := New(Params{Logger: testLogger(), Orchestrator: orch, Lock: lock})
	if err != nil {
		t.Fatalf("construct scheduler: %v", err)
	}
	sched.Execute(context.Background())
	if lock.acquired {
		t.Fatalf("expected lock to be released after a successful cycle")
	}
}

func TestExecuteSurvivesOrchestratorError(t *testing.T) {
	orch := &fakeOrchestrator{err: errors.New("boom")}
	sched, err := New(Params{Logger: testLogger(), Orchestrator: orch})
	if err != nil {
		t.Fatalf("construct scheduler: %v", err)
	}
	sched.Execute(context.Background())
	if orch.runCount() != 1 {
		t.Fatalf("expected orchestrator to have run despite returning an error")
	}
}

func TestStartStopRunsExactlyOneImmediateTick(t *testing.T) {
	orch := &fakeOrchestrator{}
	sched, err := New(Params{Logger: testLogger(), Orchestrator: orch, Interval: time.Hour})
	if err != nil {
		t.Fatalf("construct scheduler: %v", err)
	}
	sched.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for orch.runCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	sched.Stop()
	if orch.runCount() != 1 {
		t.Fatalf("expected exactly one immediate tick on Start, got %d", orch.runCount())
	}
}
