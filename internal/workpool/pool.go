// Package workpool runs blocking backend calls on a fixed set of goroutines
// and hands results back through futures.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when submitting to a closed pool
var ErrClosed = errors.New("worker pool is closed")

// Job is a unit of blocking work
type Job func(ctx context.Context) (any, error)

// Config sizes the pool
type Config struct {
	Workers   int
	QueueSize int
}

// DefaultConfig returns the default pool sizing
func DefaultConfig() Config {
	return Config{Workers: 8, QueueSize: 64}
}

type task struct {
	name   string
	ctx    context.Context
	job    Job
	future *Future
	queued time.Time
}

// Pool is a bounded worker pool
type Pool struct {
	tasks  chan task
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	wg      sync.WaitGroup
	running atomic.Int64
}

// New starts a pool with cfg.Workers goroutines
func New(cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		tasks:  make(chan task, cfg.QueueSize),
		logger: logger,
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
	return p
}

// Submit queues job and returns its future. It blocks while the queue is
// full, until ctx is done. The job runs under a context detached from ctx's
// cancellation: a caller that gives up stops waiting, the job still finishes
// and its result is discarded.
func (p *Pool) Submit(ctx context.Context, name string, job Job) (*Future, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	f := newFuture()
	t := task{
		name:   name,
		ctx:    context.WithoutCancel(ctx),
		job:    job,
		future: f,
		queued: time.Now(),
	}
	select {
	case p.tasks <- t:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Queued returns the number of jobs waiting for a worker
func (p *Pool) Queued() int {
	return len(p.tasks)
}

// Running returns the number of jobs currently executing
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Close stops accepting work, lets queued jobs finish and waits for workers
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()

	for t := range p.tasks {
		p.execute(t)
	}
}

func (p *Pool) execute(t task) {
	p.running.Add(1)
	defer p.running.Add(-1)

	start := time.Now()
	var (
		val any
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job %s panicked: %v", t.name, r)
			}
		}()
		val, err = t.job(t.ctx)
	}()

	p.logger.Debug("job finished",
		"job", t.name,
		"wait", start.Sub(t.queued),
		"duration", time.Since(start),
		"error", err,
	)
	t.future.resolve(val, err)
}

// Future is the pending result of a submitted job
type Future struct {
	done chan struct{}
	val  any
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(val any, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Done is closed once the job has finished
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await waits for the job or for ctx, whichever ends first
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run submits fn and waits for its typed result
func Run[T any](ctx context.Context, p *Pool, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	f, err := p.Submit(ctx, name, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	v, err := f.Await(ctx)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok && v != nil {
		return zero, fmt.Errorf("job %s returned %T", name, v)
	}
	return out, nil
}
