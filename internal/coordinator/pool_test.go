package coordinator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kampyn-loadtest/internal/core"
)

type fakeWorkflow struct {
	delay  time.Duration
	run    func(ctx context.Context, index int, rep core.Reporter) (*core.WorkflowResult, error)
	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakeWorkflow) Run(ctx context.Context, index int, rep core.Reporter) (*core.WorkflowResult, error) {
	current := f.active.Add(1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	defer f.active.Add(-1)

	if f.run != nil {
		return f.run(ctx, index, rep)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return &core.WorkflowResult{Index: index, SignupOK: true, LoginOK: true}, nil
}

type recordingReporter struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recordingReporter) Report(e core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestPool_ResultsOrderedByIndex(t *testing.T) {
	wf := &fakeWorkflow{delay: time.Millisecond}
	pool := NewPool(core.NullReporter{})

	results := pool.Run(context.Background(), 20, 4, wf)

	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("position %d: expected index %d, got %d", i, i, r.Index)
		}
	}
	if pool.Completed() != 20 {
		t.Errorf("expected 20 completed, got %d", pool.Completed())
	}
}

func TestPool_ConcurrencyNeverExceedsWorkers(t *testing.T) {
	wf := &fakeWorkflow{delay: 5 * time.Millisecond}
	pool := NewPool(core.NullReporter{})

	pool.Run(context.Background(), 30, 3, wf)

	if peak := wf.peak.Load(); peak > 3 {
		t.Errorf("concurrency cap violated: peak %d with 3 workers", peak)
	}
}

func TestPool_WorkersCappedAtTotal(t *testing.T) {
	wf := &fakeWorkflow{}
	pool := NewPool(core.NullReporter{})

	results := pool.Run(context.Background(), 2, 100, wf)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestPool_PanicReportedAsFailedEvent(t *testing.T) {
	wf := &fakeWorkflow{
		run: func(ctx context.Context, index int, rep core.Reporter) (*core.WorkflowResult, error) {
			if index == 1 {
				panic("boom")
			}
			return &core.WorkflowResult{Index: index}, nil
		},
	}
	rep := &recordingReporter{}
	pool := NewPool(rep)

	results := pool.Run(context.Background(), 3, 1, wf)

	if len(results) != 2 {
		t.Fatalf("expected 2 results from the surviving workflows, got %d", len(results))
	}
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if len(rep.events) != 1 {
		t.Fatalf("expected 1 panic event, got %d", len(rep.events))
	}
	e := rep.events[0]
	if e.Success || e.ActorID != 1 || !strings.Contains(e.Error, "boom") {
		t.Errorf("unexpected panic event: %+v", e)
	}
}

func TestPool_CancellationStopsFeeding(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32
	wf := &fakeWorkflow{
		run: func(ctx context.Context, index int, rep core.Reporter) (*core.WorkflowResult, error) {
			started.Add(1)
			if index == 2 {
				cancel()
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &core.WorkflowResult{Index: index}, nil
		},
	}
	pool := NewPool(core.NullReporter{})

	results := pool.Run(ctx, 1000, 1, wf)

	if int(started.Load()) >= 1000 {
		t.Error("expected cancellation to stop feeding new workflows")
	}
	if len(results) >= 1000 {
		t.Errorf("expected a partial result set, got %d", len(results))
	}
}
