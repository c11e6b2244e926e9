// Package coordinator runs workflows through a bounded worker pool.
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"kampyn-loadtest/internal/core"
)

// Pool drives N workflow invocations through a fixed number of workers.
// The worker loop is the concurrency cap: a slot is released on every exit
// path (success, failure or panic) simply by the worker taking the next
// index.
type Pool struct {
	reporter  core.Reporter
	wg        sync.WaitGroup
	active    atomic.Int32
	completed atomic.Int64
}

// NewPool creates a pool that reports step events to the given reporter.
func NewPool(reporter core.Reporter) *Pool {
	return &Pool{reporter: reporter}
}

// Active returns the number of workflows currently in flight.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Completed returns the number of workflows that ran to completion.
func (p *Pool) Completed() int {
	return int(p.completed.Load())
}

// Run executes the workflow for user indices 0..total-1 with at most
// workers invocations in flight at once. Feeding stops when the context is
// canceled; in-flight workflows that return a canceled error are discarded.
// Results come back ordered by user index.
func (p *Pool) Run(ctx context.Context, total, workers int, workflow core.Workflow) []core.WorkflowResult {
	if workers > total {
		workers = total
	}

	jobs := make(chan int)
	results := make(chan core.WorkflowResult, total)

	for w := 0; w < workers; w++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for index := range jobs {
				p.runOne(ctx, index, workflow, results)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < total; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	p.wg.Wait()
	close(results)

	collected := make([]core.WorkflowResult, 0, total)
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Index < collected[j].Index
	})
	return collected
}

func (p *Pool) runOne(ctx context.Context, index int, workflow core.Workflow, results chan<- core.WorkflowResult) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer p.recoverPanic(index)

	result, err := workflow.Run(ctx, index, p.reporter)
	if err != nil || result == nil {
		return
	}
	p.completed.Add(1)
	results <- *result
}

// recoverPanic reports a panicking workflow as a failed event so a bug in a
// step cannot take down the whole run.
func (p *Pool) recoverPanic(index int) {
	if r := recover(); r != nil {
		p.reporter.Report(core.Event{
			ActorID: index,
			Step:    "panic",
			Success: false,
			Error:   fmt.Sprintf("panic: %v", r),
		})
	}
}
