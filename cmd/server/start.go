package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/reshetovitsme/keyword-monitor/internal/di"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/cache"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/config"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	slogmulti "github.com/samber/slog-multi"
	"github.com/urfave/cli/v3"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

const (
	ServiceWorker = "worker"
	ServiceBot    = "bot"
	ServiceHTTP   = "http"
)

type ServiceFactory func(ctx context.Context, injector do.Injector) (Service, error)

type Service interface {
	io.Closer
	Start() error
}

func buildCLI() *cli.Command {
	return &cli.Command{
		Name:  "keyword-monitor",
		Usage: "telegram keyword monitor",
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if _, err := maxprocs.Set(); err != nil {
				slog.Warn("Failed to set GOMAXPROCS", "error", err)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "start monitor services",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "services",
						Aliases: []string{"s"},
						Usage:   "comma-separated list of services (worker, bot, http)",
						Value:   strings.Join([]string{ServiceWorker, ServiceBot, ServiceHTTP}, ","),
					},
				},
				Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
					if cmd.String("services") == "" {
						return ctx, fmt.Errorf("no services provided")
					}
					return ctx, nil
				},
				Action: start,
			},
			{
				Name:   "migrate",
				Usage:  "apply the database schema",
				Action: migrate,
			},
		},
	}
}

// setupLogger sends everything at the configured level to stdout as text and
// errors to stderr as JSON.
func setupLogger(level slog.Level) {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	slog.SetDefault(slog.New(slogmulti.Fanout(textHandler, jsonHandler)))
}

func start(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	injector, err := di.Setup(ctx)
	if err != nil {
		return oops.With("context", "failed to setup dependency injection").Wrap(err)
	}

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return err
	}
	setupLogger(cfg.SlogLevel())

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
		defer cancel()
		if err := di.Shutdown(shutdownCtx, injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	db, err := do.Invoke[*database.DB](injector)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		return oops.With("context", "failed to migrate database").Wrap(err)
	}

	registry := map[string]ServiceFactory{
		ServiceWorker: newWorkerService,
		ServiceBot:    newBotService,
		ServiceHTTP:   newHTTPService,
	}

	names := make([]string, 0, len(registry))
	for serviceName := range strings.SplitSeq(cmd.String("services"), ",") {
		name := strings.TrimSpace(serviceName)
		if name == "" {
			continue
		}
		if _, ok := registry[name]; !ok {
			return fmt.Errorf("unknown service: %s", name)
		}
		names = append(names, name)
	}

	configs, err := do.Invoke[*cache.Cache](injector)
	if err != nil {
		return err
	}
	configs.Start()

	g, ctx := errgroup.WithContext(ctx)

	for _, name := range names {
		factory := registry[name]
		shutdownComplete := make(chan struct{})

		g.Go(func() error {
			svc, err := factory(ctx, injector)
			if err != nil {
				return oops.With("service", name).Wrapf(err, "failed to init service")
			}

			slog.Info("Starting service", "service", name)

			stop := context.AfterFunc(ctx, func() {
				slog.Info("Closing service", "service", name)
				if err := svc.Close(); err != nil {
					slog.Error("Failed to close service", "service", name, "error", err)
				}
				close(shutdownComplete)
			})
			defer stop()

			err = svc.Start()
			if ctx.Err() != nil {
				<-shutdownComplete
			}

			return err
		})
	}

	slog.Info("Application started", "services", names, "port", cfg.HTTPPort)

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Application stopped")
	return nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg.SlogLevel())

	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	if err := db.Migrate(ctx); err != nil {
		return oops.With("driver", cfg.DatabaseDriver).Wrap(err)
	}

	slog.Info("Database schema applied", "driver", cfg.DatabaseDriver)
	return nil
}
