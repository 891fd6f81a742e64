package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	feedDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/feed/domain"
	feedService "github.com/reshetovitsme/keyword-monitor/internal/modules/feed/service"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/cache"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/config"
	sloghttp "github.com/samber/slog-http"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotSource exposes the in-process config cache, when the worker runs alongside.
type SnapshotSource interface {
	Snapshot() *cache.Snapshot
}

// Server exposes health, counters, the cache view and keyword hit feeds
type Server struct {
	cfg     *config.Config
	feeds   *feedService.Service
	stats   redisbus.Stats
	configs SnapshotSource
	db      Pinger
	logger  *slog.Logger
	server  *http.Server
	now     func() time.Time
}

// New creates a new HTTP server. configs may be nil when the worker runs in another process.
func New(cfg *config.Config, feeds *feedService.Service, stats redisbus.Stats, configs SnapshotSource, db Pinger) *Server {
	s := &Server{
		cfg:     cfg,
		feeds:   feeds,
		stats:   stats,
		configs: configs,
		db:      db,
		logger:  slog.Default(),
		now:     time.Now,
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Routes builds the router with logging and recovery middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.CleanPath,
		middleware.RealIP,
		middleware.RequestID,
		middleware.RedirectSlashes,
		sloghttp.Recovery,
		sloghttp.New(s.logger),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
	)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/feed/{keyword}", s.handleFeed)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/cache", s.handleCache)
	})

	return r
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.server.Handler = s.Routes()
	s.logger.Info("HTTP server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("Health check database ping failed", "error", err)
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}
	if s.configs != nil {
		snap := s.configs.Snapshot()
		body["cache_loaded"] = snap != nil
		if snap != nil {
			body["cache_loaded_at"] = snap.LoadedAt()
		}
	}

	writeJSON(w, status, body)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	day := s.now().UTC()
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	counts, err := s.stats.Snapshot(r.Context(), day)
	if err != nil {
		s.logger.Error("Error reading stats", "error", err)
		http.Error(w, "Failed to read stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"day":      day.Format(time.DateOnly),
		"counters": counts,
	})
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if s.configs == nil {
		http.Error(w, "Cache is not served by this process", http.StatusNotFound)
		return
	}
	snap := s.configs.Snapshot()
	if snap == nil {
		http.Error(w, "Cache not loaded", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"loaded_at": snap.LoadedAt(),
		"cache":     snap.View(),
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "keyword")
	if keyword == "" {
		http.Error(w, "Keyword is required", http.StatusBadRequest)
		return
	}

	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.feeds.GenerateFeed(r.Context(), keyword, baseURL)
	if err != nil {
		s.logger.Error("Error generating feed", "keyword", keyword, "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	body, contentType, err := feedService.Render(feed, feedDomain.ParseFormat(r.URL.Query().Get("format")))
	if err != nil {
		s.logger.Error("Error rendering feed", "keyword", keyword, "error", err)
		http.Error(w, "Failed to render feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Keyword Monitor</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>Keyword Monitor</h1>
    <div class="info">
        <p>Recent hits for a keyword: <code>/feed/{keyword}</code> (add <code>?format=atom</code> or <code>?format=json</code>)</p>
        <p>Daily counters: <code>/stats?day=YYYY-MM-DD</code></p>
        <p>Loaded keyword cache: <code>/v1/cache</code></p>
    </div>
    <p><a href="/health">Health Check</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
