package repository

import (
	"context"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/history/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/samber/oops"
)

const (
	sqlRecordColumns = `id, COALESCE(user_id, 0) AS user_id, COALESCE(chat_id, 0) AS chat_id,
	COALESCE(keyword, '') AS keyword, COALESCE(msg_link, '') AS msg_link, created_at`

	sqlSaveRecord       = `INSERT INTO message_history (user_id, chat_id, keyword, msg_link, created_at) VALUES (?, ?, ?, NULLIF(?, ''), ?)`
	sqlRecentRecords    = `SELECT ` + sqlRecordColumns + ` FROM message_history WHERE user_id = ? ORDER BY id DESC LIMIT ?`
	sqlRecordsByKeyword = `SELECT ` + sqlRecordColumns + ` FROM message_history WHERE keyword = ? ORDER BY id DESC LIMIT ?`
)

type SQLStore struct {
	handle *database.SQLHandle
}

func NewSQLStore(handle *database.SQLHandle) *SQLStore {
	return &SQLStore{handle: handle}
}

func (r *SQLStore) Save(ctx context.Context, record *domain.Record) error {
	db, err := r.handle.DB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, db.Rebind(sqlSaveRecord),
		record.UserID, record.ChatID, record.Keyword, record.MsgLink, record.CreatedAt.UTC())
	if err != nil {
		return oops.With("user_id", record.UserID, "keyword", record.Keyword, "context", "failed to save history").Wrap(err)
	}
	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

func (r *SQLStore) Recent(ctx context.Context, userID int64, limit int) ([]domain.Record, error) {
	return r.selectRecords(ctx, sqlRecentRecords, userID, limit)
}

func (r *SQLStore) ListByKeyword(ctx context.Context, keyword string, limit int) ([]domain.Record, error) {
	return r.selectRecords(ctx, sqlRecordsByKeyword, keyword, limit)
}

func (r *SQLStore) selectRecords(ctx context.Context, query string, args ...any) ([]domain.Record, error) {
	db, err := r.handle.DB()
	if err != nil {
		return nil, err
	}

	var records []domain.Record
	if err := db.SelectContext(ctx, &records, db.Rebind(query), args...); err != nil {
		return nil, oops.With("context", "history query failed").Wrap(err)
	}
	return records, nil
}
