package userbot

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
	monitorService "github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/service"
	sessionDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/session/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

const reconnectDelay = 10 * time.Second

// SessionStore is the worker session persistence the listener needs.
type SessionStore interface {
	ListOnline(ctx context.Context) ([]sessionDomain.WorkerSession, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	MarkStatus(ctx context.Context, id int64, status sessionDomain.WorkerStatus) error
}

// Pipeline handles one inbound message.
type Pipeline interface {
	Handle(ctx context.Context, msg *domain.Message) (*monitorService.Result, error)
}

// ClientRunner runs one MTProto session until ctx is done. onReady fires once updates flow.
type ClientRunner func(ctx context.Context, ws sessionDomain.WorkerSession, onMessage func(context.Context, *domain.Message), onReady func(context.Context)) error

// Listener runs one MTProto client per online worker session and feeds messages to the pipeline.
type Listener struct {
	sessions SessionStore
	pipeline Pipeline
	run      ClientRunner
	retry    time.Duration
	now      func() time.Time
}

// NewListener creates a listener backed by gotd clients
func NewListener(appID int, appHash string, sessions SessionStore, pipeline Pipeline) *Listener {
	return &Listener{
		sessions: sessions,
		pipeline: pipeline,
		run:      gotdRunner(appID, appHash),
		retry:    reconnectDelay,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled. It fails with ErrNoListeningSessions when no session
// is online, or when every session stopped without ever receiving updates.
func (l *Listener) Run(ctx context.Context) error {
	online, err := l.sessions.ListOnline(ctx)
	if err != nil {
		return oops.With("context", "failed to list worker sessions").Wrap(err)
	}
	if len(online) == 0 {
		return errors.ErrNoListeningSessions
	}

	var ready atomic.Int32
	g := new(errgroup.Group)
	for _, ws := range online {
		g.Go(func() error {
			l.runSession(ctx, ws, &ready)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if ready.Load() == 0 {
		return errors.ErrNoListeningSessions
	}
	return nil
}

func (l *Listener) runSession(ctx context.Context, ws sessionDomain.WorkerSession, ready *atomic.Int32) {
	logger := slog.With("session_id", ws.ID, "session", ws.Label())
	var becameReady atomic.Bool

	onReady := func(ctx context.Context) {
		if becameReady.CompareAndSwap(false, true) {
			ready.Add(1)
		}
		if err := l.sessions.Touch(ctx, ws.ID, l.now()); err != nil {
			logger.Warn("Failed to touch worker session", "error", err)
		}
		logger.Info("Listening session ready")
	}

	for {
		err := l.run(ctx, ws, l.dispatch, onReady)
		if ctx.Err() != nil {
			return
		}
		if stderrors.Is(err, errors.ErrSessionUnauthorized) {
			logger.Error("Worker session is not authorized, marking offline")
			if err := l.sessions.MarkStatus(context.WithoutCancel(ctx), ws.ID, sessionDomain.WorkerStatusOffline); err != nil {
				logger.Warn("Failed to mark session offline", "error", err)
			}
			return
		}
		if !becameReady.Load() {
			logger.Error("Listening session failed to start", "error", err)
			return
		}

		logger.Warn("Listening session disconnected, reconnecting", "error", err, "delay", l.retry)
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, msg *domain.Message) {
	result, err := l.pipeline.Handle(ctx, msg)
	if err != nil {
		slog.Error("Failed to process message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
		return
	}
	if result.Matched {
		slog.Info("Keyword hit",
			"keyword", result.Keyword,
			"chat_id", msg.ChatID,
			"delivered", len(result.Delivered),
			"suppressed", len(result.Suppressed),
		)
	}
}

func gotdRunner(appID int, appHash string) ClientRunner {
	return func(ctx context.Context, ws sessionDomain.WorkerSession, onMessage func(context.Context, *domain.Message), onReady func(context.Context)) error {
		storage, err := sessionStorage(ctx, ws.SessionString)
		if err != nil {
			return err
		}

		dispatcher := tg.NewUpdateDispatcher()
		gaps := updates.New(updates.Config{Handler: dispatcher})

		handle := func(ctx context.Context, e tg.Entities, m tg.MessageClass) error {
			msg, ok := m.(*tg.Message)
			if !ok {
				return nil
			}
			if converted, ok := ConvertMessage(msg, e); ok {
				onMessage(ctx, converted)
			}
			return nil
		}
		dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
			return handle(ctx, e, update.Message)
		})
		dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
			return handle(ctx, e, update.Message)
		})

		client := telegram.NewClient(appID, appHash, telegram.Options{
			SessionStorage: storage,
			UpdateHandler:  gaps,
		})

		return client.Run(ctx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return oops.With("session_id", ws.ID).Wrap(err)
			}
			if !status.Authorized {
				return errors.ErrSessionUnauthorized
			}

			self, err := client.Self(ctx)
			if err != nil {
				return oops.With("session_id", ws.ID).Wrap(err)
			}

			return gaps.Run(ctx, client.API(), self.ID, updates.AuthOptions{
				OnStart: onReady,
			})
		})
	}
}
