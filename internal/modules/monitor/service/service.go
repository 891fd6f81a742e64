package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/cache"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/spam"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/events"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/workerpool"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

// EventKeywordHit is the event type published after each matched message.
const EventKeywordHit = "keyword.hit"

// SnapshotSource exposes the current config snapshot.
type SnapshotSource interface {
	Snapshot() *cache.Snapshot
}

// Notifier delivers a rendered notification to a chat.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// History records hits and renders a sender's earlier hits.
type History interface {
	Record(ctx context.Context, senderID, chatID int64, keyword, link string) error
	Annotate(ctx context.Context, senderID int64, current string) string
}

// AutoReply schedules an automated direct message to the sender on behalf of a subscriber.
type AutoReply interface {
	Trigger(ctx context.Context, subscriberID int64, username string) (bool, error)
}

// Scheduler runs background work without blocking the caller.
type Scheduler interface {
	TrySubmit(task workerpool.Task) error
}

// Result summarizes how one inbound message was handled.
type Result struct {
	Keyword     string
	Matched     bool
	Delivered   []int64
	Suppressed  map[int64]Reason
	DMScheduled int
}

// Service matches inbound messages against the config snapshot and fans out notifications.
type Service struct {
	configs   SnapshotSource
	notifier  Notifier
	history   History
	autoReply AutoReply
	scheduler Scheduler
	events    events.Publisher
	stats     redisbus.Stats
	isSpam    func(string) bool
	now       func() time.Time
}

// New creates a new monitor service
func New(
	configs SnapshotSource,
	notifier Notifier,
	history History,
	autoReply AutoReply,
	scheduler Scheduler,
	publisher events.Publisher,
	stats redisbus.Stats,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if stats == nil {
		stats = redisbus.NewMemoryStats()
	}
	return &Service{
		configs:   configs,
		notifier:  notifier,
		history:   history,
		autoReply: autoReply,
		scheduler: scheduler,
		events:    publisher,
		stats:     stats,
		isSpam:    spam.IsSpam,
		now:       time.Now,
	}
}

// Handle runs one inbound message through matching, filtering and delivery.
func (s *Service) Handle(ctx context.Context, msg *domain.Message) (*Result, error) {
	result := &Result{Suppressed: make(map[int64]Reason)}

	text := msg.Content()
	if text == "" {
		return result, nil
	}

	snap := s.configs.Snapshot()
	if snap == nil {
		return result, errors.ErrCacheNotLoaded
	}

	keyword, subscribers, ok := snap.Match(text)
	if !ok {
		return result, nil
	}
	result.Keyword = keyword
	result.Matched = true
	s.stats.Incr(ctx, redisbus.MetricHits)

	senderID := msg.SenderID()
	link := msg.Link()
	capturedAt := s.now()

	annotation := s.history.Annotate(ctx, senderID, keyword)
	s.recordHistory(ctx, senderID, msg.ChatID, keyword, link)

	body := RenderText(keyword, msg, annotation, capturedAt)
	username := msg.SenderUsername()

	for _, cfg := range subscribers {
		if reason := Evaluate(snap, cfg, text, senderID, s.isSpam); reason != ReasonNone {
			result.Suppressed[cfg.UID] = reason
			s.stats.Incr(ctx, redisbus.MetricSuppressed)
			slog.Debug("Notification suppressed", "uid", cfg.UID, "keyword", keyword, "reason", reason)
			continue
		}

		notification := domain.Notification{
			TargetID: cfg.TargetID(),
			Text:     body,
			Keyboard: BuildKeyboard(snap.Ads(), cfg.Simple, link, senderID),
		}
		if err := s.notifier.Notify(ctx, notification); err != nil {
			if stderrors.Is(err, errors.ErrRecipientUnavailable) {
				slog.Debug("Recipient unavailable", "uid", cfg.UID, "target_id", notification.TargetID)
			} else {
				slog.Error("Failed to deliver notification", "uid", cfg.UID, "target_id", notification.TargetID, "error", err)
			}
			continue
		}
		result.Delivered = append(result.Delivered, cfg.UID)
		s.stats.Incr(ctx, redisbus.MetricNotifications)

		if username != "" && s.triggerAutoReply(ctx, cfg.UID, username) {
			result.DMScheduled++
		}
	}

	s.publishHit(ctx, domain.HitEvent{
		Keyword:     keyword,
		ChatID:      msg.ChatID,
		ChatTitle:   msg.ChatTitle,
		MessageLink: link,
		SenderID:    senderID,
		Subscribers: len(subscribers),
		Delivered:   len(result.Delivered),
		Suppressed:  len(result.Suppressed),
		CapturedAt:  capturedAt,
	})

	return result, nil
}

func (s *Service) recordHistory(ctx context.Context, senderID, chatID int64, keyword, link string) {
	if senderID == 0 {
		return
	}
	err := s.scheduler.TrySubmit(func(taskCtx context.Context) {
		if err := s.history.Record(taskCtx, senderID, chatID, keyword, link); err != nil {
			slog.Error("Failed to record history", "sender_id", senderID, "keyword", keyword, "error", err)
		}
	})
	if err != nil {
		slog.Warn("History write dropped", "sender_id", senderID, "keyword", keyword, "error", err)
	}
}

func (s *Service) triggerAutoReply(ctx context.Context, uid int64, username string) (scheduled bool) {
	if s.autoReply == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Auto reply panicked", "uid", uid, "panic", fmt.Sprint(r))
			scheduled = false
		}
	}()

	scheduled, err := s.autoReply.Trigger(ctx, uid, username)
	if err != nil {
		slog.Warn("Auto reply skipped", "uid", uid, "username", username, "error", err)
		return false
	}
	return scheduled
}

func (s *Service) publishHit(ctx context.Context, event domain.HitEvent) {
	key := strconv.FormatInt(event.ChatID, 10)
	if err := s.events.Publish(ctx, EventKeywordHit, key, event); err != nil {
		slog.Warn("Failed to publish hit event", "keyword", event.Keyword, "error", err)
	}
}
