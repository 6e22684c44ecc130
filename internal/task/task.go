// Package task runs background jobs and hands their results to a single
// consumer.
//
// Each submitted job runs on its own goroutine and is represented by a
// Future. Completed results are also published, in completion order, on the
// runner's Results channel, which one owner loop is expected to drain; that
// loop is the only place that should act on results (update output, state,
// and so on).
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var ErrClosed = errors.New("runner is closed")

// Func is the body of a job.
type Func func(ctx context.Context) (any, error)

// Result is the outcome of one job.
type Result struct {
	ID       uint64
	Name     string
	Value    any
	Err      error
	Duration time.Duration
}

// Future tracks a submitted job.
type Future struct {
	id   uint64
	name string
	done chan struct{}
	res  Result
}

func (f *Future) ID() uint64   { return f.id }
func (f *Future) Name() string { return f.name }

// Done is closed once the job has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Await waits for f and asserts its value to T.
func Await[T any](ctx context.Context, f *Future) (T, error) {
	var zero T
	v, err := f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("task %s returned %T, want %T", f.name, v, zero)
	}
	return t, nil
}

// Runner owns background jobs.
type Runner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	results chan Result
	nextID  atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// NewRunner creates a runner whose Results channel buffers up to buffer
// results before finished jobs wait for the consumer.
func NewRunner(parent context.Context, buffer int) *Runner {
	ctx, cancel := context.WithCancel(parent)
	return &Runner{
		ctx:     ctx,
		cancel:  cancel,
		results: make(chan Result, buffer),
	}
}

// Results delivers every finished job's result. It is closed by Close.
func (r *Runner) Results() <-chan Result {
	return r.results
}

// Submit starts fn on its own goroutine.
func (r *Runner) Submit(name string, fn Func) (*Future, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	f := &Future{
		id:   r.nextID.Add(1),
		name: name,
		done: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run(f, fn)
	return f, nil
}

func (r *Runner) run(f *Future, fn Func) {
	defer r.wg.Done()

	start := time.Now()
	value, err := r.call(fn)
	f.res = Result{
		ID:       f.id,
		Name:     f.name,
		Value:    value,
		Err:      err,
		Duration: time.Since(start),
	}
	close(f.done)

	select {
	case r.results <- f.res:
	case <-r.ctx.Done():
		slog.Debug("Dropping task result after shutdown", "task", f.name, "id", f.id)
	}
}

func (r *Runner) call(fn Func) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return fn(r.ctx)
}

// Close cancels running jobs, waits for them and closes Results. Results
// not yet consumed when Close is called may be dropped.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	close(r.results)
}
