package redisbus

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	MetricHits          = "hits"
	MetricNotifications = "notifications"
	MetricSuppressed    = "suppressed"
	MetricDMScheduled   = "dm_scheduled"
	MetricDMSent        = "dm_sent"
	MetricDMFailed      = "dm_failed"

	statsTTL = 31 * 24 * time.Hour
)

// Metrics lists every counter reported by Snapshot.
var Metrics = []string{
	MetricHits,
	MetricNotifications,
	MetricSuppressed,
	MetricDMScheduled,
	MetricDMSent,
	MetricDMFailed,
}

// Stats keeps per-day counters. Counters are informational and never gate behaviour.
type Stats interface {
	Incr(ctx context.Context, metric string)
	Snapshot(ctx context.Context, day time.Time) (map[string]int64, error)
}

func statsKey(metric string, day time.Time) string {
	return fmt.Sprintf("stats:%s:%s", metric, day.UTC().Format(time.DateOnly))
}

type RedisStats struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStats(client *redis.Client) *RedisStats {
	return &RedisStats{client: client, now: time.Now}
}

func (s *RedisStats) Incr(ctx context.Context, metric string) {
	key := statsKey(metric, s.now())

	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, statsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Failed to increment counter", "metric", metric, "error", err)
	}
}

func (s *RedisStats) Snapshot(ctx context.Context, day time.Time) (map[string]int64, error) {
	keys := lo.Map(Metrics, func(metric string, _ int) string {
		return statsKey(metric, day)
	})

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, oops.With("day", day.Format(time.DateOnly)).Wrap(err)
	}

	out := make(map[string]int64, len(Metrics))
	for i, metric := range Metrics {
		out[metric] = 0
		if raw, ok := values[i].(string); ok {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				out[metric] = n
			}
		}
	}
	return out, nil
}

// MemoryStats is the in-process Stats used when Redis is not configured.
type MemoryStats struct {
	mu       sync.Mutex
	counters map[string]int64
	now      func() time.Time
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{counters: make(map[string]int64), now: time.Now}
}

func (s *MemoryStats) Incr(ctx context.Context, metric string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[statsKey(metric, s.now())]++
}

func (s *MemoryStats) Snapshot(ctx context.Context, day time.Time) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64, len(Metrics))
	for _, metric := range Metrics {
		out[metric] = s.counters[statsKey(metric, day)]
	}
	return out, nil
}
