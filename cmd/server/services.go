package main

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/cache"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/config"
	httpServer "github.com/reshetovitsme/keyword-monitor/internal/transport/http"
	telegramHandler "github.com/reshetovitsme/keyword-monitor/internal/transport/telegram"
	"github.com/reshetovitsme/keyword-monitor/internal/transport/userbot"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// workerService listens on every online userbot session and follows config
// change signals.
type workerService struct {
	ctx      context.Context
	cancel   context.CancelFunc
	listener *userbot.Listener
	bus      redisbus.Bus
	configs  *cache.Cache
}

func newWorkerService(ctx context.Context, injector do.Injector) (Service, error) {
	listener, err := do.Invoke[*userbot.Listener](injector)
	if err != nil {
		return nil, err
	}
	bus, err := do.Invoke[redisbus.Bus](injector)
	if err != nil {
		return nil, err
	}
	configs, err := do.Invoke[*cache.Cache](injector)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	return &workerService{
		ctx:      ctx,
		cancel:   cancel,
		listener: listener,
		bus:      bus,
		configs:  configs,
	}, nil
}

func (s *workerService) Start() error {
	go func() {
		if err := s.bus.Subscribe(s.ctx, s.configs.Trigger); err != nil && s.ctx.Err() == nil {
			slog.Error("Config change subscription stopped", "error", err)
		}
	}()

	// Messages seen before the first snapshot would be dropped
	slog.Info("Waiting for config cache before listening")
	if err := s.configs.WaitLoaded(s.ctx); err != nil {
		return nil
	}

	err := s.listener.Run(s.ctx)
	if s.ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *workerService) Close() error {
	s.cancel()
	return nil
}

type botService struct {
	ctx     context.Context
	cancel  context.CancelFunc
	bot     *bot.Bot
	handler *telegramHandler.Handler
}

func newBotService(ctx context.Context, injector do.Injector) (Service, error) {
	b, err := do.Invoke[*bot.Bot](injector)
	if err != nil {
		return nil, err
	}
	handler, err := do.Invoke[*telegramHandler.Handler](injector)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	return &botService{ctx: ctx, cancel: cancel, bot: b, handler: handler}, nil
}

func (s *botService) Start() error {
	if _, err := s.bot.SetMyCommands(s.ctx, &bot.SetMyCommandsParams{
		Commands: s.handler.BotCommands(),
	}); err != nil {
		slog.Warn("Failed to set bot commands", "error", err)
	}

	// Blocks until the context is cancelled
	s.bot.Start(s.ctx)
	return nil
}

func (s *botService) Close() error {
	s.cancel()
	return nil
}

type httpService struct {
	server *httpServer.Server
	cfg    *config.Config
}

func newHTTPService(ctx context.Context, injector do.Injector) (Service, error) {
	server, err := do.Invoke[*httpServer.Server](injector)
	if err != nil {
		return nil, err
	}
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil, err
	}
	return &httpService{server: server, cfg: cfg}, nil
}

func (s *httpService) Start() error {
	slog.Info("HTTP server listening", "port", s.cfg.HTTPPort)
	return s.server.Start()
}

func (s *httpService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace())
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil && !stderrors.Is(err, context.DeadlineExceeded) {
		return oops.With("context", "failed to shutdown http server").Wrap(err)
	}
	return nil
}
