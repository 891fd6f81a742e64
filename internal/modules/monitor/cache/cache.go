// Package cache keeps the keyword subscription snapshot used by the matching pipeline.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	subscriberDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/domain"
	"github.com/samber/oops"
)

// Source reads the rows a snapshot is built from.
type Source interface {
	ListKeywordSubscriptions(ctx context.Context, now time.Time) ([]subscriberDomain.KeywordSubscription, error)
	ListAllFilterWords(ctx context.Context) ([]subscriberDomain.SubscriberFilterWord, error)
	ListAllBlocks(ctx context.Context) ([]subscriberDomain.SubscriberBlock, error)
	ListAdSettings(ctx context.Context) ([]subscriberDomain.AdSetting, error)
}

// Cache owns the current Snapshot. Refresh builds a complete replacement and
// publishes it with a single atomic store, so readers see either the old or the
// new snapshot and never a mix.
type Cache struct {
	source   Source
	interval time.Duration
	current  atomic.Pointer[Snapshot]
	trigger  chan struct{}
	now      func() time.Time

	loaded     chan struct{}
	loadedOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(source Source, interval time.Duration) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		source:   source,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
		loaded:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Snapshot returns the current snapshot, or nil before the first successful refresh.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

func (c *Cache) Loaded() bool {
	return c.current.Load() != nil
}

// WaitLoaded blocks until the first snapshot is published or ctx ends.
func (c *Cache) WaitLoaded(ctx context.Context) error {
	select {
	case <-c.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh rebuilds the snapshot. On error the previous snapshot stays in place.
func (c *Cache) Refresh(ctx context.Context) error {
	now := c.now()

	rows, err := c.source.ListKeywordSubscriptions(ctx, now)
	if err != nil {
		return oops.With("context", "failed to load keyword subscriptions").Wrap(err)
	}
	filters, err := c.source.ListAllFilterWords(ctx)
	if err != nil {
		return oops.With("context", "failed to load filter words").Wrap(err)
	}
	blocks, err := c.source.ListAllBlocks(ctx)
	if err != nil {
		return oops.With("context", "failed to load blocked senders").Wrap(err)
	}
	ads, err := c.source.ListAdSettings(ctx)
	if err != nil {
		return oops.With("context", "failed to load ad settings").Wrap(err)
	}

	snapshot := BuildSnapshot(rows, filters, blocks, ads, now)
	c.current.Store(snapshot)
	c.loadedOnce.Do(func() { close(c.loaded) })

	slog.Info("Config cache refreshed", "keywords", len(snapshot.keywords), "filter_users", len(snapshot.filterWords), "ad_rows", len(snapshot.ads))
	return nil
}

// Start runs the refresh loop: once immediately, then every interval and on Trigger.
func (c *Cache) Start() {
	c.wg.Add(1)
	go c.refreshLoop()
}

func (c *Cache) Stop() {
	c.cancel()
	c.wg.Wait()
}

// Trigger requests an out-of-band refresh. Requests made while one is pending coalesce.
func (c *Cache) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

func (c *Cache) refreshLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Initial load
	c.refresh()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.refresh()
		case <-c.trigger:
			c.refresh()
		}
	}
}

func (c *Cache) refresh() {
	if err := c.Refresh(c.ctx); err != nil {
		slog.Error("Config cache refresh failed, keeping previous snapshot", "error", err)
	}
}
