package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/repository"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/workerpool"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
)

const accountListLimit = 10

// DirectSender opens a one-shot session from credential and sends text to username.
type DirectSender interface {
	SendDirect(ctx context.Context, credential, username, text string) error
}

// Scheduler runs tasks in the background without blocking the caller.
type Scheduler interface {
	TrySubmit(task workerpool.Task) error
}

// Service schedules automated direct messages to matched senders
type Service struct {
	repo      repository.Repository
	sender    DirectSender
	scheduler Scheduler
	stats     redisbus.Stats
	timeout   time.Duration
	now       func() time.Time
}

// New creates a new outreach service
func New(repo repository.Repository, sender DirectSender, scheduler Scheduler, stats redisbus.Stats, timeout time.Duration) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		scheduler: scheduler,
		stats:     stats,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Trigger looks up subscriberID's plan and schedules one direct message to username
// when auto reply is on, a ready account exists and a template is active.
func (s *Service) Trigger(ctx context.Context, subscriberID int64, username string) (bool, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return false, nil
	}

	plan, err := s.repo.LookupPlan(ctx, subscriberID)
	if err != nil {
		return false, oops.With("subscriber_id", subscriberID, "context", "failed to look up auto reply plan").Wrap(err)
	}
	if !plan.Ready() {
		return false, nil
	}

	task := domain.Task{
		SubscriberID:   subscriberID,
		AccountID:      plan.Account.ID,
		Session:        plan.Account.SessionString,
		TargetUsername: username,
		Text:           plan.Content,
	}

	if err := s.scheduler.TrySubmit(func(taskCtx context.Context) {
		s.Send(taskCtx, task)
	}); err != nil {
		return false, oops.With("subscriber_id", subscriberID, "target", username).Wrap(err)
	}

	s.incr(ctx, redisbus.MetricDMScheduled)
	slog.Info("Direct message scheduled", "subscriber_id", subscriberID, "target", username, "account_id", task.AccountID)
	return true, nil
}

// Send delivers task through a one-shot session and bumps the account's daily counter.
// Failures are logged and not returned.
func (s *Service) Send(ctx context.Context, task domain.Task) {
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sender.SendDirect(sendCtx, task.Session, task.TargetUsername, task.Text); err != nil {
		s.incr(ctx, redisbus.MetricDMFailed)
		slog.Warn("Direct message failed",
			"subscriber_id", task.SubscriberID,
			"account_id", task.AccountID,
			"target", task.TargetUsername,
			"error", err,
		)
		return
	}

	s.incr(ctx, redisbus.MetricDMSent)
	slog.Info("Direct message sent", "subscriber_id", task.SubscriberID, "account_id", task.AccountID, "target", task.TargetUsername)

	if err := s.repo.IncrementDailySent(ctx, task.AccountID, s.now()); err != nil {
		slog.Warn("Failed to update daily counter", "account_id", task.AccountID, "error", err)
	}
}

func (s *Service) SetAutoReply(ctx context.Context, tgID int64, enabled bool) error {
	return s.repo.SetAutoReply(ctx, tgID, enabled)
}

func (s *Service) SetTemplate(ctx context.Context, tgID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return oops.With("tg_id", tgID).Wrap(errors.ErrInvalidArgument)
	}
	return s.repo.SetTemplate(ctx, tgID, content)
}

func (s *Service) ListAccounts(ctx context.Context, tgID int64) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx, tgID, accountListLimit)
}

func (s *Service) Overview(ctx context.Context, tgID int64) (*domain.Overview, error) {
	return s.repo.Overview(ctx, tgID)
}

func (s *Service) incr(ctx context.Context, metric string) {
	if s.stats != nil {
		s.stats.Incr(ctx, metric)
	}
}
