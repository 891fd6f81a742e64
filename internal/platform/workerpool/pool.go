// Package workerpool runs background tasks with a fixed concurrency cap and a
// shutdown-scoped context.
package workerpool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// Task receives the pool context, which is cancelled when the pool shuts down.
type Task func(ctx context.Context)

type Pool struct {
	name     string
	sem      *semaphore.Weighted
	ctx      context.Context
	cancel   context.CancelFunc
	closing  context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	inFlight atomic.Int64
}

func New(name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	closing, stop := context.WithCancel(context.Background())
	return &Pool{
		name:    name,
		sem:     semaphore.NewWeighted(int64(size)),
		ctx:     ctx,
		cancel:  cancel,
		closing: closing,
		stop:    stop,
	}
}

// Submit waits for a free slot and runs task in its own goroutine.
// It returns ctx.Err() if ctx ends first and ErrPoolClosed after Close.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if p.closing.Err() != nil {
		return oops.With("pool", p.name).Wrap(errors.ErrPoolClosed)
	}

	acquireCtx, stop := context.WithCancel(ctx)
	defer stop()
	unwatch := context.AfterFunc(p.closing, stop)
	defer unwatch()

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if p.closing.Err() != nil {
			return oops.With("pool", p.name).Wrap(errors.ErrPoolClosed)
		}
		return err
	}

	return p.run(task)
}

// TrySubmit runs task only if a slot is free right now. It never waits:
// a saturated pool returns ErrPoolFull and the task is dropped.
func (p *Pool) TrySubmit(task Task) error {
	if p.closing.Err() != nil {
		return oops.With("pool", p.name).Wrap(errors.ErrPoolClosed)
	}
	if !p.sem.TryAcquire(1) {
		return oops.With("pool", p.name, "in_flight", p.InFlight()).Wrap(errors.ErrPoolFull)
	}
	return p.run(task)
}

// run starts task on a slot the caller already holds.
func (p *Pool) run(task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return oops.With("pool", p.name).Wrap(errors.ErrPoolClosed)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.inFlight.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Worker task panicked", "pool", p.name, "panic", r)
			}
			p.inFlight.Add(-1)
			p.sem.Release(1)
			p.wg.Done()
		}()
		task(p.ctx)
	}()

	return nil
}

// InFlight reports how many tasks are currently running.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Close stops accepting tasks and waits for running ones until ctx ends,
// then cancels the task context.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	defer p.cancel()

	select {
	case <-done:
		slog.Info("Worker pool drained", "pool", p.name)
		return nil
	case <-ctx.Done():
		slog.Warn("Worker pool shutdown timed out", "pool", p.name, "in_flight", p.InFlight())
		return oops.With("pool", p.name).Wrap(ctx.Err())
	}
}
