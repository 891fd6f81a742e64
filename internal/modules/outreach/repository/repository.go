package repository

import (
	"context"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
)

// Repository defines the interface for automated reply persistence.
// Methods keyed by tgID resolve the owner through users.tg_id.
type Repository interface {
	// LookupPlan returns the auto-reply flag, one random ready account and the active template.
	LookupPlan(ctx context.Context, tgID int64) (*domain.Plan, error)
	IncrementDailySent(ctx context.Context, accountID int64, at time.Time) error
	SetAutoReply(ctx context.Context, tgID int64, enabled bool) error
	SetTemplate(ctx context.Context, tgID int64, content string) error
	ListAccounts(ctx context.Context, tgID int64, limit int) ([]domain.Account, error)
	Overview(ctx context.Context, tgID int64) (*domain.Overview, error)
}

// New picks the implementation matching the open database handle.
func New(db *database.DB) Repository {
	if pg := db.Postgres(); pg != nil {
		return NewPostgres(pg)
	}
	return NewSQLStore(db.SQL())
}
