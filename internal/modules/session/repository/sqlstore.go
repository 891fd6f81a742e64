package repository

import (
	"context"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/session/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/samber/oops"
)

const (
	sqlListOnline = `
SELECT id, phone, COALESCE(session_string, '') AS session_string, status, last_active
FROM worker_sessions
WHERE status = ? AND session_string IS NOT NULL AND session_string <> ''
ORDER BY id`
	sqlTouch      = `UPDATE worker_sessions SET last_active = ? WHERE id = ?`
	sqlMarkStatus = `UPDATE worker_sessions SET status = ? WHERE id = ?`
)

type SQLStore struct {
	handle *database.SQLHandle
}

func NewSQLStore(handle *database.SQLHandle) *SQLStore {
	return &SQLStore{handle: handle}
}

func (r *SQLStore) ListOnline(ctx context.Context) ([]domain.WorkerSession, error) {
	db, err := r.handle.DB()
	if err != nil {
		return nil, err
	}

	var sessions []domain.WorkerSession
	if err := db.SelectContext(ctx, &sessions, db.Rebind(sqlListOnline), domain.WorkerStatusOnline.String()); err != nil {
		return nil, oops.With("context", "failed to list worker sessions").Wrap(err)
	}
	return sessions, nil
}

func (r *SQLStore) Touch(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, id, sqlTouch, at.UTC(), id)
}

func (r *SQLStore) MarkStatus(ctx context.Context, id int64, status domain.WorkerStatus) error {
	return r.exec(ctx, id, sqlMarkStatus, status.String(), id)
}

func (r *SQLStore) exec(ctx context.Context, id int64, query string, args ...any) error {
	db, err := r.handle.DB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return oops.With("session_id", id).Wrap(err)
	}
	return nil
}
