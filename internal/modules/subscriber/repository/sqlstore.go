package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	sqlListKeywordSubscriptions = `
SELECT
	k.word AS word,
	u.tg_id AS tg_id,
	u.is_paused AS is_paused,
	u.notify_simple_mode AS notify_simple_mode,
	u.notify_target_id AS notify_target_id,
	u.fuzzy_limit AS fuzzy_limit,
	u.ai_filter_enabled AS ai_filter_enabled,
	u.is_banned AS is_banned,
	u.expire_at AS expire_at
FROM keywords k
JOIN users u ON k.user_id = u.id
WHERE u.is_banned = ?
ORDER BY k.id, u.id
`
	sqlListAllFilterWords = `SELECT u.tg_id AS tg_id, f.word AS word FROM filter_words f JOIN users u ON f.user_id = u.id ORDER BY f.id`
	sqlListAllBlocks      = `SELECT u.tg_id AS tg_id, b.blocked_id AS blocked_id FROM user_blacklist b JOIN users u ON b.user_id = u.id ORDER BY b.id`
	sqlListAdSettings     = "SELECT `key`, COALESCE(`value`, '') AS `value`, description FROM system_settings WHERE `key` LIKE 'btn_ad_%' ORDER BY `key`"

	sqlSubscriberColumns = `id, tg_id, username, role, expire_at, is_banned, is_paused, notify_simple_mode,
	notify_target_id, notify_target_name, fuzzy_limit, ai_filter_enabled`

	sqlGetSubscriber    = `SELECT ` + sqlSubscriberColumns + ` FROM users WHERE tg_id = ?`
	sqlInsertSubscriber = `INSERT INTO users (tg_id, username) VALUES (?, ?)`
	sqlUpdateUsername   = `UPDATE users SET username = ? WHERE tg_id = ?`
	sqlSetFuzzyLimit    = `UPDATE users SET fuzzy_limit = ? WHERE tg_id = ?`
	sqlSetNotifyTarget  = `UPDATE users SET notify_target_id = ?, notify_target_name = ? WHERE tg_id = ?`

	sqlKeywordExists = `SELECT COUNT(*) FROM keywords WHERE user_id = ? AND word = ?`
	sqlInsertKeyword = `INSERT INTO keywords (user_id, word) VALUES (?, ?)`
	sqlListKeywords  = `SELECT k.id, k.user_id, k.word FROM keywords k JOIN users u ON k.user_id = u.id WHERE u.tg_id = ? ORDER BY k.id DESC`
	sqlDeleteKeyword = `DELETE FROM keywords WHERE id = ? AND user_id = (SELECT id FROM users WHERE tg_id = ?)`
	sqlFilterExists  = `SELECT COUNT(*) FROM filter_words WHERE user_id = ? AND word = ?`
	sqlInsertFilter  = `INSERT INTO filter_words (user_id, word) VALUES (?, ?)`
	sqlListFilters   = `SELECT f.id, f.user_id, f.word FROM filter_words f JOIN users u ON f.user_id = u.id WHERE u.tg_id = ? ORDER BY f.id DESC`
	sqlDeleteFilter  = `DELETE FROM filter_words WHERE id = ? AND user_id = (SELECT id FROM users WHERE tg_id = ?)`
	sqlBlockExists   = `SELECT COUNT(*) FROM user_blacklist WHERE user_id = ? AND blocked_id = ?`
	sqlBlockSender   = `INSERT INTO user_blacklist (user_id, blocked_id, blocked_name) VALUES (?, ?, ?)`
	sqlUnblockSender = `DELETE FROM user_blacklist WHERE id = ? AND user_id = (SELECT id FROM users WHERE tg_id = ?)`
	sqlListBlocked   = `SELECT b.id, b.user_id, b.blocked_id, b.blocked_name FROM user_blacklist b JOIN users u ON b.user_id = u.id WHERE u.tg_id = ? ORDER BY b.id DESC`
)

// SQLStore implements Repository through sqlx for sqlite, libsql and mysql.
type SQLStore struct {
	handle *database.SQLHandle
}

func NewSQLStore(handle *database.SQLHandle) *SQLStore {
	return &SQLStore{handle: handle}
}

func (r *SQLStore) ListKeywordSubscriptions(ctx context.Context, now time.Time) ([]domain.KeywordSubscription, error) {
	var rows []domain.KeywordSubscription
	if err := r.selectAll(ctx, &rows, sqlListKeywordSubscriptions, false); err != nil {
		return nil, err
	}

	// expiry is compared in Go because sqlite stores timestamps as text
	return lo.Filter(rows, func(row domain.KeywordSubscription, _ int) bool {
		return row.ExpireAt == nil || row.ExpireAt.After(now)
	}), nil
}

func (r *SQLStore) ListAllFilterWords(ctx context.Context) ([]domain.SubscriberFilterWord, error) {
	var rows []domain.SubscriberFilterWord
	if err := r.selectAll(ctx, &rows, sqlListAllFilterWords); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLStore) ListAllBlocks(ctx context.Context) ([]domain.SubscriberBlock, error) {
	var rows []domain.SubscriberBlock
	if err := r.selectAll(ctx, &rows, sqlListAllBlocks); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLStore) ListAdSettings(ctx context.Context) ([]domain.AdSetting, error) {
	var rows []domain.AdSetting
	if err := r.selectAll(ctx, &rows, sqlListAdSettings); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLStore) Ensure(ctx context.Context, tgID int64, username string) (*domain.Subscriber, error) {
	sub, err := r.GetByTgID(ctx, tgID)
	switch {
	case err == nil:
		if username != "" && (sub.Username == nil || *sub.Username != username) {
			if err := r.exec(ctx, sqlUpdateUsername, username, tgID); err != nil {
				return nil, err
			}
			sub.Username = &username
		}
		return sub, nil
	case stderrors.Is(err, errors.ErrSubscriberNotFound):
		if err := r.exec(ctx, sqlInsertSubscriber, tgID, nullableString(username)); err != nil {
			return nil, err
		}
		return r.GetByTgID(ctx, tgID)
	default:
		return nil, err
	}
}

func (r *SQLStore) GetByTgID(ctx context.Context, tgID int64) (*domain.Subscriber, error) {
	db, err := r.handle.DB()
	if err != nil {
		return nil, err
	}

	var sub domain.Subscriber
	if err := db.GetContext(ctx, &sub, db.Rebind(sqlGetSubscriber), tgID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
		}
		return nil, oops.With("tg_id", tgID, "context", "failed to load subscriber").Wrap(err)
	}
	return &sub, nil
}

func (r *SQLStore) TogglePause(ctx context.Context, tgID int64) (bool, error) {
	return r.toggle(ctx, tgID, columnPaused)
}

func (r *SQLStore) ToggleSimpleMode(ctx context.Context, tgID int64) (bool, error) {
	return r.toggle(ctx, tgID, columnSimpleMode)
}

func (r *SQLStore) ToggleAIFilter(ctx context.Context, tgID int64) (bool, error) {
	return r.toggle(ctx, tgID, columnAIFilter)
}

func (r *SQLStore) toggle(ctx context.Context, tgID int64, column string) (bool, error) {
	db, err := r.handle.DB()
	if err != nil {
		return false, err
	}

	var value bool
	err = withTx(ctx, db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET `+column+` = NOT `+column+` WHERE tg_id = ?`), tgID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.ErrSubscriberNotFound
		}
		return tx.GetContext(ctx, &value, tx.Rebind(`SELECT `+column+` FROM users WHERE tg_id = ?`), tgID)
	})
	if err != nil {
		return false, oops.With("tg_id", tgID, "column", column).Wrap(err)
	}
	return value, nil
}

func (r *SQLStore) SetFuzzyLimit(ctx context.Context, tgID int64, limit int) error {
	return r.execOne(ctx, tgID, sqlSetFuzzyLimit, limit, tgID)
}

func (r *SQLStore) SetNotifyTarget(ctx context.Context, tgID int64, targetID *int64, targetName *string) error {
	return r.execOne(ctx, tgID, sqlSetNotifyTarget, targetID, targetName, tgID)
}

func (r *SQLStore) AddKeywords(ctx context.Context, tgID int64, words []string) (int, error) {
	return r.insertWords(ctx, tgID, words, sqlKeywordExists, sqlInsertKeyword)
}

func (r *SQLStore) ListKeywords(ctx context.Context, tgID int64) ([]domain.Keyword, error) {
	var rows []domain.Keyword
	if err := r.selectAll(ctx, &rows, sqlListKeywords, tgID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLStore) DeleteKeyword(ctx context.Context, tgID, keywordID int64) error {
	return r.execOne(ctx, tgID, sqlDeleteKeyword, keywordID, tgID)
}

func (r *SQLStore) AddFilterWords(ctx context.Context, tgID int64, words []string) (int, error) {
	return r.insertWords(ctx, tgID, words, sqlFilterExists, sqlInsertFilter)
}

func (r *SQLStore) ListFilterWords(ctx context.Context, tgID int64) ([]domain.FilterWord, error) {
	var rows []domain.FilterWord
	if err := r.selectAll(ctx, &rows, sqlListFilters, tgID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLStore) DeleteFilterWord(ctx context.Context, tgID, wordID int64) error {
	return r.execOne(ctx, tgID, sqlDeleteFilter, wordID, tgID)
}

func (r *SQLStore) BlockSender(ctx context.Context, tgID, blockedID int64, blockedName string) error {
	sub, err := r.GetByTgID(ctx, tgID)
	if err != nil {
		return err
	}

	db, err := r.handle.DB()
	if err != nil {
		return err
	}

	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, tx.Rebind(sqlBlockExists), sub.ID, blockedID); err != nil {
			return oops.With("tg_id", tgID).Wrap(err)
		}
		if count > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(sqlBlockSender), sub.ID, blockedID, blockedName); err != nil {
			return oops.With("tg_id", tgID, "blocked_id", blockedID, "context", "failed to block sender").Wrap(err)
		}
		return nil
	})
}

func (r *SQLStore) UnblockSender(ctx context.Context, tgID, blockID int64) error {
	return r.execOne(ctx, tgID, sqlUnblockSender, blockID, tgID)
}

func (r *SQLStore) ListBlocked(ctx context.Context, tgID int64) ([]domain.BlockedSender, error) {
	var rows []domain.BlockedSender
	if err := r.selectAll(ctx, &rows, sqlListBlocked, tgID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLStore) insertWords(ctx context.Context, tgID int64, words []string, existsQuery, insertQuery string) (int, error) {
	sub, err := r.GetByTgID(ctx, tgID)
	if err != nil {
		return 0, err
	}

	db, err := r.handle.DB()
	if err != nil {
		return 0, err
	}

	added := 0
	err = withTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, word := range words {
			var count int
			if err := tx.GetContext(ctx, &count, tx.Rebind(existsQuery), sub.ID, word); err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(insertQuery), sub.ID, word); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, oops.With("tg_id", tgID, "context", "failed to insert words").Wrap(err)
	}
	return added, nil
}

func (r *SQLStore) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	db, err := r.handle.DB()
	if err != nil {
		return err
	}
	if err := db.SelectContext(ctx, dest, db.Rebind(query), args...); err != nil {
		return oops.With("context", "query failed").Wrap(err)
	}
	return nil
}

func (r *SQLStore) exec(ctx context.Context, query string, args ...any) error {
	db, err := r.handle.DB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return oops.With("context", "exec failed").Wrap(err)
	}
	return nil
}

func (r *SQLStore) execOne(ctx context.Context, tgID int64, query string, args ...any) error {
	db, err := r.handle.DB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return oops.With("tg_id", tgID).Wrap(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
	}
	return nil
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
