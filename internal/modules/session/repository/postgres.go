package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/session/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/samber/oops"
)

const (
	pgListOnline = `
SELECT id, phone, COALESCE(session_string, '') AS session_string, status, last_active
FROM worker_sessions
WHERE status = @status AND session_string IS NOT NULL AND session_string <> ''
ORDER BY id;`
	pgTouch      = `UPDATE worker_sessions SET last_active = @at WHERE id = @id;`
	pgMarkStatus = `UPDATE worker_sessions SET status = @status WHERE id = @id;`
)

type Postgres struct {
	handle *database.PostgresHandle
}

func NewPostgres(handle *database.PostgresHandle) *Postgres {
	return &Postgres{handle: handle}
}

func (r *Postgres) ListOnline(ctx context.Context) ([]domain.WorkerSession, error) {
	pool, err := r.handle.Pool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, pgListOnline, pgx.NamedArgs{"status": domain.WorkerStatusOnline.String()})
	if err != nil {
		return nil, oops.With("context", "failed to list worker sessions").Wrap(err)
	}

	sessions, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.WorkerSession])
	if err != nil {
		return nil, oops.With("context", "failed to collect worker sessions").Wrap(err)
	}
	return sessions, nil
}

func (r *Postgres) Touch(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, pgTouch, pgx.NamedArgs{"id": id, "at": at})
}

func (r *Postgres) MarkStatus(ctx context.Context, id int64, status domain.WorkerStatus) error {
	return r.exec(ctx, pgMarkStatus, pgx.NamedArgs{"id": id, "status": status.String()})
}

func (r *Postgres) exec(ctx context.Context, query string, args pgx.NamedArgs) error {
	pool, err := r.handle.Pool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, query, args); err != nil {
		return oops.With("session_id", args["id"]).Wrap(err)
	}
	return nil
}
