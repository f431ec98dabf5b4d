package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/littlemud/littlemud/pkg/logger"
)

// ErrExecutorStopped is returned when a job is submitted after Stop.
var ErrExecutorStopped = errors.New("server: world executor stopped")

// Executor owns the world. Every job that reads or changes the object
// graph runs on its single goroutine, one at a time, in submission order.
type Executor struct {
	jobs chan func()

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

// NewExecutor creates an executor with room for backlog pending jobs.
// Call Run to start processing.
func NewExecutor(backlog int) *Executor {
	return &Executor{
		jobs: make(chan func(), backlog),
		done: make(chan struct{}),
	}
}

// Run processes jobs until Stop is called or ctx is cancelled. Jobs
// still queued at that point are run before Run returns.
func (e *Executor) Run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case job, ok := <-e.jobs:
			if !ok {
				return
			}
			e.run(job)
		case <-ctx.Done():
			// Stop waits for blocked senders, so keep draining meanwhile.
			go e.Stop()
			for job := range e.jobs {
				e.run(job)
			}
			return
		}
	}
}

func (e *Executor) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithField("stack", string(debug.Stack())).
				Errorf("world job panicked: %v", r)
		}
	}()
	job()
}

// Go queues fn without waiting for it.
func (e *Executor) Go(fn func()) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return ErrExecutorStopped
	}
	e.jobs <- fn
	return nil
}

// Do queues fn and waits until it has run. It must not be called from
// inside a job.
func (e *Executor) Do(fn func()) error {
	finished := make(chan struct{})
	var panicked any
	err := e.Go(func() {
		defer close(finished)
		defer func() { panicked = recover() }()
		fn()
	})
	if err != nil {
		return err
	}
	select {
	case <-finished:
	case <-e.done:
		return ErrExecutorStopped
	}
	if panicked != nil {
		return fmt.Errorf("server: world job panicked: %v", panicked)
	}
	return nil
}

// Stop refuses further jobs. Jobs already queued still run.
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.stopped {
		e.stopped = true
		close(e.jobs)
	}
}

// Done is closed once Run has returned.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}
