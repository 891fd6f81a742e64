package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	feedService "github.com/reshetovitsme/keyword-monitor/internal/modules/feed/service"
	historyDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/history/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/cache"
	subscriberDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/config"
)

type mockHits struct {
	keyword string
}

func (m *mockHits) Recent(ctx context.Context, keyword string, limit int) ([]historyDomain.Record, error) {
	m.keyword = keyword
	return []historyDomain.Record{
		{ID: 1, UserID: 5, ChatID: -100, Keyword: keyword, MsgLink: "https://t.me/g/1", CreatedAt: time.Now()},
	}, nil
}

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

type staticSnapshot struct {
	snap *cache.Snapshot
}

func (s staticSnapshot) Snapshot() *cache.Snapshot { return s.snap }

func newTestServer(configs SnapshotSource, db Pinger) (*Server, *mockHits, *redisbus.MemoryStats) {
	hits := &mockHits{}
	stats := redisbus.NewMemoryStats()
	cfg := &config.Config{HTTPPort: "0"}
	return New(cfg, feedService.New(hits), stats, configs, db), hits, stats
}

func TestServer_Health(t *testing.T) {
	snap := cache.BuildSnapshot(nil, nil, nil, nil, time.Now())
	s, _, _ := newTestServer(staticSnapshot{snap}, mockPinger{})

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["database"] != "ok" || body["cache_loaded"] != true {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestServer_HealthDegraded(t *testing.T) {
	s, _, _ := newTestServer(nil, mockPinger{err: errors.New("down")})

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestServer_Stats(t *testing.T) {
	s, _, stats := newTestServer(nil, nil)
	stats.Incr(context.Background(), redisbus.MetricNotifications)
	stats.Incr(context.Background(), redisbus.MetricNotifications)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var body struct {
		Day      string           `json:"day"`
		Counters map[string]int64 `json:"counters"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Counters[redisbus.MetricNotifications] != 2 {
		t.Errorf("Expected 2 notifications, got %v", body.Counters)
	}

	rec = httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats?day=yesterday", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad day, got %d", rec.Code)
	}
}

func TestServer_Cache(t *testing.T) {
	snap := cache.BuildSnapshot([]subscriberDomain.KeywordSubscription{
		{Word: "golang", TgID: 1},
	}, nil, nil, nil, time.Now())

	s, _, _ := newTestServer(staticSnapshot{snap}, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cache", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"word":"golang"`) {
		t.Errorf("Expected keyword in cache view, got %s", rec.Body.String())
	}

	s, _, _ = newTestServer(staticSnapshot{}, nil)
	rec = httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cache", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before first load, got %d", rec.Code)
	}

	s, _, _ = newTestServer(nil, nil)
	rec = httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cache", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without cache, got %d", rec.Code)
	}
}

func TestServer_Feed(t *testing.T) {
	s, hits, _ := newTestServer(nil, nil)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed/golang", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if hits.keyword != "golang" {
		t.Errorf("Expected feed for golang, got %s", hits.keyword)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Unexpected content type: %s", ct)
	}

	rec = httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed/golang?format=atom", nil))
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/atom+xml") {
		t.Errorf("Unexpected content type: %s", ct)
	}
}
