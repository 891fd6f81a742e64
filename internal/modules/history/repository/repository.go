package repository

import (
	"context"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/history/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
)

// Repository defines the interface for hit history persistence
type Repository interface {
	Save(ctx context.Context, record *domain.Record) error
	Recent(ctx context.Context, userID int64, limit int) ([]domain.Record, error)
	ListByKeyword(ctx context.Context, keyword string, limit int) ([]domain.Record, error)
}

// New picks the implementation matching the open database handle.
func New(db *database.DB) Repository {
	if pg := db.Postgres(); pg != nil {
		return NewPostgres(pg)
	}
	return NewSQLStore(db.SQL())
}
