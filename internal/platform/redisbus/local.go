package redisbus

import (
	"context"
	"sync"
)

// LocalBus fans signals out to subscribers in the same process.
type LocalBus struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[chan struct{}]struct{})}
}

// Publish never blocks; a subscriber with a pending signal absorbs the new one.
func (b *LocalBus) Publish(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, fn func()) error {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			fn()
		}
	}
}
