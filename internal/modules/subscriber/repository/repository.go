package repository

import (
	"context"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
)

// Repository defines the interface for subscriber data persistence.
// Methods keyed by tgID resolve the subscriber through users.tg_id.
type Repository interface {
	ListKeywordSubscriptions(ctx context.Context, now time.Time) ([]domain.KeywordSubscription, error)
	ListAllFilterWords(ctx context.Context) ([]domain.SubscriberFilterWord, error)
	ListAllBlocks(ctx context.Context) ([]domain.SubscriberBlock, error)
	ListAdSettings(ctx context.Context) ([]domain.AdSetting, error)

	Ensure(ctx context.Context, tgID int64, username string) (*domain.Subscriber, error)
	GetByTgID(ctx context.Context, tgID int64) (*domain.Subscriber, error)
	TogglePause(ctx context.Context, tgID int64) (bool, error)
	ToggleSimpleMode(ctx context.Context, tgID int64) (bool, error)
	ToggleAIFilter(ctx context.Context, tgID int64) (bool, error)
	SetFuzzyLimit(ctx context.Context, tgID int64, limit int) error
	SetNotifyTarget(ctx context.Context, tgID int64, targetID *int64, targetName *string) error

	AddKeywords(ctx context.Context, tgID int64, words []string) (int, error)
	ListKeywords(ctx context.Context, tgID int64) ([]domain.Keyword, error)
	DeleteKeyword(ctx context.Context, tgID, keywordID int64) error

	AddFilterWords(ctx context.Context, tgID int64, words []string) (int, error)
	ListFilterWords(ctx context.Context, tgID int64) ([]domain.FilterWord, error)
	DeleteFilterWord(ctx context.Context, tgID, wordID int64) error

	BlockSender(ctx context.Context, tgID, blockedID int64, blockedName string) error
	UnblockSender(ctx context.Context, tgID, blockID int64) error
	ListBlocked(ctx context.Context, tgID int64) ([]domain.BlockedSender, error)
}

// New picks the implementation matching the open database handle.
func New(db *database.DB) Repository {
	if pg := db.Postgres(); pg != nil {
		return NewPostgres(pg)
	}
	return NewSQLStore(db.SQL())
}

const (
	columnPaused     = "is_paused"
	columnSimpleMode = "notify_simple_mode"
	columnAIFilter   = "ai_filter_enabled"
)
