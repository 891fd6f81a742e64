package di

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	feedService "github.com/reshetovitsme/keyword-monitor/internal/modules/feed/service"
	historyRepo "github.com/reshetovitsme/keyword-monitor/internal/modules/history/repository"
	historyService "github.com/reshetovitsme/keyword-monitor/internal/modules/history/service"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/cache"
	monitorService "github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/service"
	outreachRepo "github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/repository"
	outreachService "github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/service"
	sessionRepo "github.com/reshetovitsme/keyword-monitor/internal/modules/session/repository"
	subscriberRepo "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/repository"
	subscriberService "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/service"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/events"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/workerpool"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/config"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	httpServer "github.com/reshetovitsme/keyword-monitor/internal/transport/http"
	telegramHandler "github.com/reshetovitsme/keyword-monitor/internal/transport/telegram"
	"github.com/reshetovitsme/keyword-monitor/internal/transport/userbot"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Named pools
const (
	PoolHistory = "history-pool"
	PoolDM      = "dm-pool"
)

// lifecycle records the components that were actually built, so shutdown
// never constructs a lazy provider just to close it.
type lifecycle struct {
	mu        sync.Mutex
	cache     *cache.Cache
	pools     map[string]*workerpool.Pool
	publisher events.Publisher
	redis     *redis.Client
	db        *database.DB
}

func (l *lifecycle) track(fn func(l *lifecycle)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}

// Setup initializes the dependency injection container
func Setup(ctx context.Context) (do.Injector, error) {
	injector := do.New()

	lc := &lifecycle{pools: make(map[string]*workerpool.Pool)}
	do.ProvideValue(injector, lc)

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Database
	do.Provide(injector, func(i do.Injector) (*database.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, oops.With("driver", cfg.DatabaseDriver, "context", "failed to open database").Wrap(err)
		}
		lc.track(func(l *lifecycle) { l.db = db })
		return db, nil
	})

	// Register Redis client; nil when Redis is not configured
	do.Provide(injector, func(i do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.RedisAddr == "" {
			return nil, nil
		}
		client, err := redisbus.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		lc.track(func(l *lifecycle) { l.redis = client })
		return client, nil
	})

	// Register refresh signal bus
	do.Provide(injector, func(i do.Injector) (redisbus.Bus, error) {
		if client := do.MustInvoke[*redis.Client](i); client != nil {
			return redisbus.NewRedisBus(client), nil
		}
		slog.Info("Redis not configured, using in-process refresh signals")
		return redisbus.NewLocalBus(), nil
	})

	// Register daily counters
	do.Provide(injector, func(i do.Injector) (redisbus.Stats, error) {
		if client := do.MustInvoke[*redis.Client](i); client != nil {
			return redisbus.NewRedisStats(client), nil
		}
		return redisbus.NewMemoryStats(), nil
	})

	// Register hit event publisher
	do.Provide(injector, func(i do.Injector) (events.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if len(cfg.KafkaBrokers) == 0 {
			return events.Nop{}, nil
		}
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		lc.track(func(l *lifecycle) { l.publisher = publisher })
		return publisher, nil
	})

	// Register worker pools
	do.ProvideNamed(injector, PoolHistory, func(i do.Injector) (*workerpool.Pool, error) {
		cfg := do.MustInvoke[*config.Config](i)
		pool := workerpool.New("history", cfg.HistoryWorkers)
		lc.track(func(l *lifecycle) { l.pools[PoolHistory] = pool })
		return pool, nil
	})
	do.ProvideNamed(injector, PoolDM, func(i do.Injector) (*workerpool.Pool, error) {
		cfg := do.MustInvoke[*config.Config](i)
		pool := workerpool.New("dm", cfg.DMWorkers)
		lc.track(func(l *lifecycle) { l.pools[PoolDM] = pool })
		return pool, nil
	})

	// Register Repositories
	do.Provide(injector, func(i do.Injector) (subscriberRepo.Repository, error) {
		return subscriberRepo.New(do.MustInvoke[*database.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (historyRepo.Repository, error) {
		return historyRepo.New(do.MustInvoke[*database.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (outreachRepo.Repository, error) {
		return outreachRepo.New(do.MustInvoke[*database.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (sessionRepo.Repository, error) {
		return sessionRepo.New(do.MustInvoke[*database.DB](i)), nil
	})

	// Register Subscriber Service
	do.Provide(injector, func(i do.Injector) (*subscriberService.Service, error) {
		repo := do.MustInvoke[subscriberRepo.Repository](i)
		bus := do.MustInvoke[redisbus.Bus](i)
		return subscriberService.New(repo, bus), nil
	})

	// Register History Service
	do.Provide(injector, func(i do.Injector) (*historyService.Service, error) {
		return historyService.New(do.MustInvoke[historyRepo.Repository](i)), nil
	})

	// Register Direct Sender
	do.Provide(injector, func(i do.Injector) (*userbot.DirectSender, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return userbot.NewDirectSender(cfg.TelegramAPIID, cfg.TelegramAPIHash), nil
	})

	// Register Outreach Service
	do.Provide(injector, func(i do.Injector) (*outreachService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[outreachRepo.Repository](i)
		sender := do.MustInvoke[*userbot.DirectSender](i)
		pool := do.MustInvokeNamed[*workerpool.Pool](i, PoolDM)
		stats := do.MustInvoke[redisbus.Stats](i)
		return outreachService.New(repo, sender, pool, stats, cfg.DMTimeout()), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		return feedService.New(do.MustInvoke[*historyService.Service](i)), nil
	})

	// Register Config Cache
	do.Provide(injector, func(i do.Injector) (*cache.Cache, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[subscriberRepo.Repository](i)
		configs := cache.New(repo, cfg.RefreshPeriod())
		lc.track(func(l *lifecycle) { l.cache = configs })
		return configs, nil
	})

	// Register Bot
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		b, err := bot.New(cfg.TelegramBotToken, bot.WithServerURL(cfg.TelegramAPIURL))
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		handler.RegisterCommands(b)
		return b, nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		subscribers := do.MustInvoke[*subscriberService.Service](i)
		outreach := do.MustInvoke[*outreachService.Service](i)
		stats := do.MustInvoke[redisbus.Stats](i)
		return telegramHandler.New(cfg, subscribers, outreach, stats), nil
	})

	// Register Notifier
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Notifier, error) {
		return telegramHandler.NewNotifier(do.MustInvoke[*bot.Bot](i)), nil
	})

	// Register Monitor Pipeline
	do.Provide(injector, func(i do.Injector) (*monitorService.Service, error) {
		return monitorService.New(
			do.MustInvoke[*cache.Cache](i),
			do.MustInvoke[*telegramHandler.Notifier](i),
			do.MustInvoke[*historyService.Service](i),
			do.MustInvoke[*outreachService.Service](i),
			do.MustInvokeNamed[*workerpool.Pool](i, PoolHistory),
			do.MustInvoke[events.Publisher](i),
			do.MustInvoke[redisbus.Stats](i),
		), nil
	})

	// Register Listener
	do.Provide(injector, func(i do.Injector) (*userbot.Listener, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.TelegramAPIID == 0 || cfg.TelegramAPIHash == "" {
			return nil, oops.With("context", "userbot listener").Wrap(errors.ErrMissingAPICreds)
		}
		sessions := do.MustInvoke[sessionRepo.Repository](i)
		pipeline := do.MustInvoke[*monitorService.Service](i)
		return userbot.NewListener(cfg.TelegramAPIID, cfg.TelegramAPIHash, sessions, pipeline), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		feeds := do.MustInvoke[*feedService.Service](i)
		stats := do.MustInvoke[redisbus.Stats](i)
		db := do.MustInvoke[*database.DB](i)

		configs := do.MustInvoke[*cache.Cache](i)

		server := httpServer.New(cfg, feeds, stats, configs, db)
		server.SetLogger(slog.Default())
		return server, nil
	})

	return injector, nil
}

// Shutdown stops the components that were built: the cache loop first, then
// the pools drain within ctx, then brokers and the database close.
func Shutdown(ctx context.Context, injector do.Injector) error {
	lc, err := do.Invoke[*lifecycle](injector)
	if err != nil {
		return err
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.cache != nil {
		lc.cache.Stop()
	}

	for _, name := range []string{PoolHistory, PoolDM} {
		if pool, ok := lc.pools[name]; ok {
			if err := pool.Close(ctx); err != nil {
				slog.Warn("Pool did not drain in time", "pool", name, "error", err)
			}
		}
	}

	if lc.publisher != nil {
		if err := lc.publisher.Close(); err != nil {
			slog.Error("Failed to close event publisher", "error", err)
		}
	}

	if lc.redis != nil {
		if err := lc.redis.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}

	if lc.db != nil {
		if err := lc.db.Close(ctx); err != nil {
			return oops.With("context", "failed to close database").Wrap(err)
		}
	}

	return nil
}
