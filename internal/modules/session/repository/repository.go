package repository

import (
	"context"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/session/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
)

// Repository defines the interface for worker session persistence
type Repository interface {
	ListOnline(ctx context.Context) ([]domain.WorkerSession, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	MarkStatus(ctx context.Context, id int64, status domain.WorkerStatus) error
}

// New picks the implementation matching the open database handle.
func New(db *database.DB) Repository {
	if pg := db.Postgres(); pg != nil {
		return NewPostgres(pg)
	}
	return NewSQLStore(db.SQL())
}
