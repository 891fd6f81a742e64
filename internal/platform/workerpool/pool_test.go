package workerpool

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

func TestPool_LimitsConcurrency(t *testing.T) {
	pool := New("test", 2)

	var running, peak atomic.Int64
	release := make(chan struct{})

	for i := 0; i < 5; i++ {
		go func() {
			_ = pool.Submit(context.Background(), func(ctx context.Context) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				<-release
				running.Add(-1)
			})
		}()
	}

	time.Sleep(50 * time.Millisecond)
	if got := pool.InFlight(); got != 2 {
		t.Errorf("Expected 2 tasks in flight, got %d", got)
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	time.Sleep(50 * time.Millisecond)

	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent tasks, got %d", peak.Load())
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	pool := New("test", 1)
	if err := pool.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := pool.Submit(context.Background(), func(ctx context.Context) {})
	if !stderrors.Is(err, errors.ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	pool := New("test", 1)
	block := make(chan struct{})
	defer close(block)

	if err := pool.Submit(context.Background(), func(ctx context.Context) { <-block }); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Submit(ctx, func(ctx context.Context) {})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestPool_CloseCancelsStuckTasks(t *testing.T) {
	pool := New("test", 1)
	cancelled := make(chan struct{})

	if err := pool.Submit(context.Background(), func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := pool.Close(ctx); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected drain timeout, got %v", err)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Expected task context to be cancelled after Close")
	}
}

func TestPool_RecoversPanics(t *testing.T) {
	pool := New("test", 1)

	if err := pool.Submit(context.Background(), func(ctx context.Context) { panic("boom") }); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pool.Close(ctx); err != nil {
		t.Errorf("Expected clean drain after panic, got %v", err)
	}
}

func TestPool_TrySubmitDropsWhenSaturated(t *testing.T) {
	pool := New("test", 1)
	block := make(chan struct{})

	if err := pool.TrySubmit(func(ctx context.Context) { <-block }); err != nil {
		t.Fatalf("TrySubmit failed: %v", err)
	}

	start := time.Now()
	err := pool.TrySubmit(func(ctx context.Context) {
		t.Error("Expected dropped task not to run")
	})
	if !stderrors.Is(err, errors.ErrPoolFull) {
		t.Errorf("Expected ErrPoolFull, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Expected TrySubmit to return immediately, took %s", elapsed)
	}

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := pool.TrySubmit(func(ctx context.Context) {}); !stderrors.Is(err, errors.ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed after Close, got %v", err)
	}
}
