package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/history/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/history/repository"
	"github.com/samber/oops"
)

// Service records keyword hits and renders them back as notification annotations
type Service struct {
	repo repository.Repository
	now  func() time.Time
}

// New creates a new history service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Record appends a hit for senderID. Hits without a known sender are not stored.
func (s *Service) Record(ctx context.Context, senderID, chatID int64, keyword, link string) error {
	if senderID == 0 {
		return nil
	}

	record := &domain.Record{
		UserID:    senderID,
		ChatID:    chatID,
		Keyword:   keyword,
		MsgLink:   link,
		CreatedAt: s.now(),
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return oops.With("sender_id", senderID, "keyword", keyword).Wrap(err)
	}
	return nil
}

// Annotate renders the sender's recent distinct keywords other than current as HTML links.
func (s *Service) Annotate(ctx context.Context, senderID int64, current string) string {
	if senderID == 0 {
		return domain.Placeholder
	}

	records, err := s.repo.Recent(ctx, senderID, domain.RecentLimit)
	if err != nil {
		slog.Warn("Failed to load sender history", "sender_id", senderID, "error", err)
		return domain.Placeholder
	}

	return Render(records, current)
}

// Recent returns the latest hits for keyword, newest first.
func (s *Service) Recent(ctx context.Context, keyword string, limit int) ([]domain.Record, error) {
	return s.repo.ListByKeyword(ctx, keyword, limit)
}

// Render formats records newest first, skipping current and repeated keywords.
func Render(records []domain.Record, current string) string {
	seen := make(map[string]struct{}, len(records))
	labels := make([]string, 0, len(records))

	for _, record := range records {
		if record.Keyword == "" || record.Keyword == current {
			continue
		}
		if _, ok := seen[record.Keyword]; ok {
			continue
		}
		seen[record.Keyword] = struct{}{}

		label := html.EscapeString(record.Keyword)
		if record.HasLink() {
			label = fmt.Sprintf("<a href='%s'>%s</a>", html.EscapeString(record.MsgLink), label)
		}
		labels = append(labels, label)
	}

	if len(labels) == 0 {
		return domain.Placeholder
	}
	return strings.Join(labels, "、")
}
