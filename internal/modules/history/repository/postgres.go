package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/history/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/samber/oops"
)

const (
	pgRecordColumns = `id, COALESCE(user_id, 0) AS user_id, COALESCE(chat_id, 0) AS chat_id,
	COALESCE(keyword, '') AS keyword, COALESCE(msg_link, '') AS msg_link, created_at`

	pgSaveRecord = `
INSERT INTO message_history (user_id, chat_id, keyword, msg_link)
VALUES (@user_id, @chat_id, @keyword, NULLIF(@msg_link, ''))
RETURNING id, created_at;`
	pgRecentRecords    = `SELECT ` + pgRecordColumns + ` FROM message_history WHERE user_id = @user_id ORDER BY id DESC LIMIT @limit;`
	pgRecordsByKeyword = `SELECT ` + pgRecordColumns + ` FROM message_history WHERE keyword = @keyword ORDER BY id DESC LIMIT @limit;`
)

type Postgres struct {
	handle *database.PostgresHandle
}

func NewPostgres(handle *database.PostgresHandle) *Postgres {
	return &Postgres{handle: handle}
}

func (r *Postgres) Save(ctx context.Context, record *domain.Record) error {
	pool, err := r.handle.Pool()
	if err != nil {
		return err
	}

	args := pgx.NamedArgs{
		"user_id":  record.UserID,
		"chat_id":  record.ChatID,
		"keyword":  record.Keyword,
		"msg_link": record.MsgLink,
	}
	if err := pool.QueryRow(ctx, pgSaveRecord, args).Scan(&record.ID, &record.CreatedAt); err != nil {
		return oops.With("user_id", record.UserID, "keyword", record.Keyword, "context", "failed to save history").Wrap(err)
	}
	return nil
}

func (r *Postgres) Recent(ctx context.Context, userID int64, limit int) ([]domain.Record, error) {
	return r.collect(ctx, pgRecentRecords, pgx.NamedArgs{"user_id": userID, "limit": limit})
}

func (r *Postgres) ListByKeyword(ctx context.Context, keyword string, limit int) ([]domain.Record, error) {
	return r.collect(ctx, pgRecordsByKeyword, pgx.NamedArgs{"keyword": keyword, "limit": limit})
}

func (r *Postgres) collect(ctx context.Context, query string, args pgx.NamedArgs) ([]domain.Record, error) {
	pool, err := r.handle.Pool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, query, args)
	if err != nil {
		return nil, oops.With("context", "history query failed").Wrap(err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Record])
	if err != nil {
		return nil, oops.With("context", "failed to collect history rows").Wrap(err)
	}
	return records, nil
}
