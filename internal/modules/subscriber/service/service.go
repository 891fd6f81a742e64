package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/repository"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// ChangePublisher announces that cached subscriber state is stale.
type ChangePublisher interface {
	Publish(ctx context.Context) error
}

// Service handles subscriber settings managed from the bot UI
type Service struct {
	repo    repository.Repository
	changes ChangePublisher
}

// New creates a new subscriber service
func New(repo repository.Repository, changes ChangePublisher) *Service {
	return &Service{
		repo:    repo,
		changes: changes,
	}
}

// Register creates the subscriber on first contact and refreshes the stored username.
func (s *Service) Register(ctx context.Context, tgID int64, username string) (*domain.Subscriber, error) {
	sub, err := s.repo.Ensure(ctx, tgID, username)
	if err != nil {
		return nil, oops.With("tg_id", tgID, "context", "failed to register subscriber").Wrap(err)
	}
	return sub, nil
}

func (s *Service) Get(ctx context.Context, tgID int64) (*domain.Subscriber, error) {
	return s.repo.GetByTgID(ctx, tgID)
}

func (s *Service) TogglePause(ctx context.Context, tgID int64) (bool, error) {
	return s.toggled(ctx)(s.repo.TogglePause(ctx, tgID))
}

func (s *Service) ToggleSimpleMode(ctx context.Context, tgID int64) (bool, error) {
	return s.toggled(ctx)(s.repo.ToggleSimpleMode(ctx, tgID))
}

func (s *Service) ToggleAIFilter(ctx context.Context, tgID int64) (bool, error) {
	return s.toggled(ctx)(s.repo.ToggleAIFilter(ctx, tgID))
}

func (s *Service) SetFuzzyLimit(ctx context.Context, tgID int64, limit int) error {
	if !lo.Contains(domain.FuzzyLimitPresets, limit) {
		return oops.With("limit", limit).Wrap(errors.ErrInvalidArgument)
	}
	return s.changed(ctx, s.repo.SetFuzzyLimit(ctx, tgID, limit))
}

// SetNotifyTarget redirects notifications to targetID; nil restores delivery to the subscriber.
func (s *Service) SetNotifyTarget(ctx context.Context, tgID int64, targetID *int64, targetName string) error {
	var name *string
	if targetID != nil && targetName != "" {
		name = &targetName
	}
	return s.changed(ctx, s.repo.SetNotifyTarget(ctx, tgID, targetID, name))
}

// AddKeywords stores every new word from raw and returns how many were added.
func (s *Service) AddKeywords(ctx context.Context, tgID int64, raw string) (int, error) {
	words := SplitWords(raw)
	if len(words) == 0 {
		return 0, oops.With("input", raw).Wrap(errors.ErrInvalidArgument)
	}
	added, err := s.repo.AddKeywords(ctx, tgID, words)
	return added, s.changed(ctx, err)
}

func (s *Service) ListKeywords(ctx context.Context, tgID int64) ([]domain.Keyword, error) {
	return s.repo.ListKeywords(ctx, tgID)
}

func (s *Service) DeleteKeyword(ctx context.Context, tgID, keywordID int64) error {
	return s.changed(ctx, s.repo.DeleteKeyword(ctx, tgID, keywordID))
}

func (s *Service) AddFilterWords(ctx context.Context, tgID int64, raw string) (int, error) {
	words := SplitWords(raw)
	if len(words) == 0 {
		return 0, oops.With("input", raw).Wrap(errors.ErrInvalidArgument)
	}
	added, err := s.repo.AddFilterWords(ctx, tgID, words)
	return added, s.changed(ctx, err)
}

func (s *Service) ListFilterWords(ctx context.Context, tgID int64) ([]domain.FilterWord, error) {
	return s.repo.ListFilterWords(ctx, tgID)
}

func (s *Service) DeleteFilterWord(ctx context.Context, tgID, wordID int64) error {
	return s.changed(ctx, s.repo.DeleteFilterWord(ctx, tgID, wordID))
}

func (s *Service) BlockSender(ctx context.Context, tgID, senderID int64, senderName string) error {
	if senderID == 0 {
		return oops.With("tg_id", tgID).Wrap(errors.ErrInvalidArgument)
	}
	if senderName == "" {
		senderName = "未知用户"
	}
	return s.changed(ctx, s.repo.BlockSender(ctx, tgID, senderID, senderName))
}

func (s *Service) UnblockSender(ctx context.Context, tgID, blockID int64) error {
	return s.changed(ctx, s.repo.UnblockSender(ctx, tgID, blockID))
}

func (s *Service) ListBlocked(ctx context.Context, tgID int64) ([]domain.BlockedSender, error) {
	return s.repo.ListBlocked(ctx, tgID)
}

func (s *Service) changed(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if s.changes == nil {
		return nil
	}
	if pubErr := s.changes.Publish(ctx); pubErr != nil {
		slog.Warn("Failed to publish subscriber change", "error", pubErr)
	}
	return nil
}

func (s *Service) toggled(ctx context.Context) func(bool, error) (bool, error) {
	return func(value bool, err error) (bool, error) {
		return value, s.changed(ctx, err)
	}
}

// SplitWords splits user input on whitespace and commas, dropping blanks and duplicates.
func SplitWords(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '，' || r == '、'
	})
	return lo.Uniq(lo.Compact(fields))
}
