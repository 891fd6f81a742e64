package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"math/rand/v2"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
)

const (
	sqlAccountColumns = `a.id, COALESCE(a.owner_id, 0) AS owner_id, a.phone, a.session_string,
	COALESCE(a.status, 'ready') AS status, a.daily_sent, a.daily_limit, a.last_used_at`

	sqlOwnerID        = `SELECT id FROM users WHERE tg_id = ?`
	sqlAutoReply      = `SELECT is_auto_reply FROM dm_settings WHERE user_id = ?`
	sqlReadyAccounts  = `SELECT ` + sqlAccountColumns + ` FROM dm_accounts a WHERE a.owner_id = ? AND a.status = ? ORDER BY a.id`
	sqlActiveTemplate = `SELECT text_content FROM dm_content_templates WHERE user_id = ? AND is_active = ? ORDER BY id DESC LIMIT 1`
	sqlAccountCount   = `SELECT COUNT(*) FROM dm_accounts WHERE owner_id = ?`

	sqlIncrementDailySent = `UPDATE dm_accounts SET daily_sent = daily_sent + 1, last_used_at = ? WHERE id = ?`
	sqlSettingsExist      = `SELECT COUNT(*) FROM dm_settings WHERE user_id = ?`
	sqlInsertSettings     = `INSERT INTO dm_settings (user_id, is_auto_reply) VALUES (?, ?)`
	sqlUpdateSettings     = `UPDATE dm_settings SET is_auto_reply = ? WHERE user_id = ?`
	sqlDeactivateTemplate = `UPDATE dm_content_templates SET is_active = ? WHERE user_id = ?`
	sqlInsertTemplate     = `INSERT INTO dm_content_templates (user_id, text_content, is_active) VALUES (?, ?, ?)`
	sqlListAccounts       = `SELECT ` + sqlAccountColumns + ` FROM dm_accounts a WHERE a.owner_id = ? ORDER BY a.id LIMIT ?`
)

type SQLStore struct {
	handle *database.SQLHandle
}

func NewSQLStore(handle *database.SQLHandle) *SQLStore {
	return &SQLStore{handle: handle}
}

func (r *SQLStore) LookupPlan(ctx context.Context, tgID int64) (*domain.Plan, error) {
	db, ownerID, err := r.owner(ctx, tgID)
	if err != nil {
		return nil, err
	}

	plan := &domain.Plan{}
	if err := optional(db.GetContext(ctx, &plan.AutoReply, db.Rebind(sqlAutoReply), ownerID)); err != nil {
		return nil, oops.With("tg_id", tgID, "context", "failed to read auto reply flag").Wrap(err)
	}

	var accounts []domain.Account
	if err := db.SelectContext(ctx, &accounts, db.Rebind(sqlReadyAccounts), ownerID, domain.AccountStatusReady.String()); err != nil {
		return nil, oops.With("tg_id", tgID, "context", "failed to pick account").Wrap(err)
	}
	if len(accounts) > 0 {
		plan.Account = &accounts[rand.IntN(len(accounts))]
	}

	if err := optional(db.GetContext(ctx, &plan.Content, db.Rebind(sqlActiveTemplate), ownerID, true)); err != nil {
		return nil, oops.With("tg_id", tgID, "context", "failed to read template").Wrap(err)
	}

	return plan, nil
}

func (r *SQLStore) IncrementDailySent(ctx context.Context, accountID int64, at time.Time) error {
	db, err := r.handle.DB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, db.Rebind(sqlIncrementDailySent), at.UTC(), accountID); err != nil {
		return oops.With("account_id", accountID).Wrap(err)
	}
	return nil
}

func (r *SQLStore) SetAutoReply(ctx context.Context, tgID int64, enabled bool) error {
	db, ownerID, err := r.owner(ctx, tgID)
	if err != nil {
		return err
	}

	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, tx.Rebind(sqlSettingsExist), ownerID); err != nil {
			return oops.With("tg_id", tgID).Wrap(err)
		}

		query, args := sqlUpdateSettings, []any{enabled, ownerID}
		if count == 0 {
			query, args = sqlInsertSettings, []any{ownerID, enabled}
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return oops.With("tg_id", tgID, "context", "failed to save auto reply flag").Wrap(err)
		}
		return nil
	})
}

func (r *SQLStore) SetTemplate(ctx context.Context, tgID int64, content string) error {
	db, ownerID, err := r.owner(ctx, tgID)
	if err != nil {
		return err
	}

	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(sqlDeactivateTemplate), false, ownerID); err != nil {
			return oops.With("tg_id", tgID).Wrap(err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(sqlInsertTemplate), ownerID, content, true); err != nil {
			return oops.With("tg_id", tgID, "context", "failed to save template").Wrap(err)
		}
		return nil
	})
}

func (r *SQLStore) ListAccounts(ctx context.Context, tgID int64, limit int) ([]domain.Account, error) {
	db, ownerID, err := r.owner(ctx, tgID)
	if err != nil {
		return nil, err
	}

	var accounts []domain.Account
	if err := db.SelectContext(ctx, &accounts, db.Rebind(sqlListAccounts), ownerID, limit); err != nil {
		return nil, oops.With("tg_id", tgID).Wrap(err)
	}
	return accounts, nil
}

func (r *SQLStore) Overview(ctx context.Context, tgID int64) (*domain.Overview, error) {
	db, ownerID, err := r.owner(ctx, tgID)
	if err != nil {
		return nil, err
	}

	overview := &domain.Overview{}
	if err := db.GetContext(ctx, &overview.AccountCount, db.Rebind(sqlAccountCount), ownerID); err != nil {
		return nil, oops.With("tg_id", tgID).Wrap(err)
	}
	if err := optional(db.GetContext(ctx, &overview.AutoReply, db.Rebind(sqlAutoReply), ownerID)); err != nil {
		return nil, oops.With("tg_id", tgID).Wrap(err)
	}
	if err := optional(db.GetContext(ctx, &overview.Content, db.Rebind(sqlActiveTemplate), ownerID, true)); err != nil {
		return nil, oops.With("tg_id", tgID).Wrap(err)
	}
	return overview, nil
}

func (r *SQLStore) owner(ctx context.Context, tgID int64) (*sqlx.DB, int64, error) {
	db, err := r.handle.DB()
	if err != nil {
		return nil, 0, err
	}

	var ownerID int64
	if err := db.GetContext(ctx, &ownerID, db.Rebind(sqlOwnerID), tgID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, 0, oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
		}
		return nil, 0, oops.With("tg_id", tgID).Wrap(err)
	}
	return db, ownerID, nil
}

// optional treats a missing row as the zero value.
func optional(err error) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
