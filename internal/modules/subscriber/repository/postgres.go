package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
)

const (
	pgListKeywordSubscriptions = `
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
WHERE u.is_banned = FALSE
	AND (u.expire_at IS NULL OR u.expire_at > @now)
ORDER BY k.id, u.id;
`
	pgListAllFilterWords = `SELECT u.tg_id AS tg_id, f.word AS word FROM filter_words f JOIN users u ON f.user_id = u.id ORDER BY f.id;`
	pgListAllBlocks      = `SELECT u.tg_id AS tg_id, b.blocked_id AS blocked_id FROM user_blacklist b JOIN users u ON b.user_id = u.id ORDER BY b.id;`
	pgListAdSettings     = `SELECT key, COALESCE(value, '') AS value, description FROM system_settings WHERE key LIKE 'btn_ad_%' ORDER BY key;`

	pgSubscriberColumns = `id, tg_id, username, role, expire_at, is_banned, is_paused, notify_simple_mode,
	notify_target_id, notify_target_name, fuzzy_limit, ai_filter_enabled`

	pgEnsureSubscriber = `
INSERT INTO users (tg_id, username) VALUES (@tg_id, @username)
ON CONFLICT (tg_id) DO UPDATE SET username = EXCLUDED.username
RETURNING ` + pgSubscriberColumns + `;`
	pgGetSubscriber = `SELECT ` + pgSubscriberColumns + ` FROM users WHERE tg_id = @tg_id;`

	pgSetFuzzyLimit   = `UPDATE users SET fuzzy_limit = @limit WHERE tg_id = @tg_id;`
	pgSetNotifyTarget = `UPDATE users SET notify_target_id = @target_id, notify_target_name = @target_name WHERE tg_id = @tg_id;`

	pgInsertKeyword = `INSERT INTO keywords (user_id, word) SELECT @user_id::int, @word::varchar WHERE NOT EXISTS (SELECT 1 FROM keywords WHERE user_id = @user_id AND word = @word);`
	pgListKeywords  = `SELECT k.id, k.user_id, k.word FROM keywords k JOIN users u ON k.user_id = u.id WHERE u.tg_id = @tg_id ORDER BY k.id DESC;`
	pgDeleteKeyword = `DELETE FROM keywords WHERE id = @id AND user_id = (SELECT id FROM users WHERE tg_id = @tg_id);`
	pgInsertFilter  = `INSERT INTO filter_words (user_id, word) SELECT @user_id::int, @word::varchar WHERE NOT EXISTS (SELECT 1 FROM filter_words WHERE user_id = @user_id AND word = @word);`
	pgListFilters   = `SELECT f.id, f.user_id, f.word FROM filter_words f JOIN users u ON f.user_id = u.id WHERE u.tg_id = @tg_id ORDER BY f.id DESC;`
	pgDeleteFilter  = `DELETE FROM filter_words WHERE id = @id AND user_id = (SELECT id FROM users WHERE tg_id = @tg_id);`
	pgBlockSender   = `INSERT INTO user_blacklist (user_id, blocked_id, blocked_name) SELECT id, @blocked_id::bigint, @blocked_name::varchar FROM users WHERE tg_id = @tg_id ON CONFLICT DO NOTHING;`
	pgUnblockSender = `DELETE FROM user_blacklist WHERE id = @id AND user_id = (SELECT id FROM users WHERE tg_id = @tg_id);`
	pgListBlocked   = `SELECT b.id, b.user_id, b.blocked_id, b.blocked_name FROM user_blacklist b JOIN users u ON b.user_id = u.id WHERE u.tg_id = @tg_id ORDER BY b.id DESC;`
)

// Postgres implements Repository on a pgx pool.
type Postgres struct {
	handle *database.PostgresHandle
}

func NewPostgres(handle *database.PostgresHandle) *Postgres {
	return &Postgres{handle: handle}
}

func (r *Postgres) ListKeywordSubscriptions(ctx context.Context, now time.Time) ([]domain.KeywordSubscription, error) {
	return pgCollect[domain.KeywordSubscription](ctx, r, pgListKeywordSubscriptions, pgx.NamedArgs{"now": now})
}

func (r *Postgres) ListAllFilterWords(ctx context.Context) ([]domain.SubscriberFilterWord, error) {
	return pgCollect[domain.SubscriberFilterWord](ctx, r, pgListAllFilterWords, pgx.NamedArgs{})
}

func (r *Postgres) ListAllBlocks(ctx context.Context) ([]domain.SubscriberBlock, error) {
	return pgCollect[domain.SubscriberBlock](ctx, r, pgListAllBlocks, pgx.NamedArgs{})
}

func (r *Postgres) ListAdSettings(ctx context.Context) ([]domain.AdSetting, error) {
	return pgCollect[domain.AdSetting](ctx, r, pgListAdSettings, pgx.NamedArgs{})
}

func (r *Postgres) Ensure(ctx context.Context, tgID int64, username string) (*domain.Subscriber, error) {
	subs, err := pgCollect[domain.Subscriber](ctx, r, pgEnsureSubscriber, pgx.NamedArgs{
		"tg_id":    tgID,
		"username": nullableString(username),
	})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
	}
	return &subs[0], nil
}

func (r *Postgres) GetByTgID(ctx context.Context, tgID int64) (*domain.Subscriber, error) {
	subs, err := pgCollect[domain.Subscriber](ctx, r, pgGetSubscriber, pgx.NamedArgs{"tg_id": tgID})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
	}
	return &subs[0], nil
}

func (r *Postgres) TogglePause(ctx context.Context, tgID int64) (bool, error) {
	return r.toggle(ctx, tgID, columnPaused)
}

func (r *Postgres) ToggleSimpleMode(ctx context.Context, tgID int64) (bool, error) {
	return r.toggle(ctx, tgID, columnSimpleMode)
}

func (r *Postgres) ToggleAIFilter(ctx context.Context, tgID int64) (bool, error) {
	return r.toggle(ctx, tgID, columnAIFilter)
}

// toggle flips a boolean column; column is always one of the package constants.
func (r *Postgres) toggle(ctx context.Context, tgID int64, column string) (bool, error) {
	pool, err := r.handle.Pool()
	if err != nil {
		return false, err
	}

	query := `UPDATE users SET ` + column + ` = NOT ` + column + ` WHERE tg_id = @tg_id RETURNING ` + column + `;`

	var value bool
	if err := pool.QueryRow(ctx, query, pgx.NamedArgs{"tg_id": tgID}).Scan(&value); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return false, oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
		}
		return false, oops.With("tg_id", tgID, "column", column, "context", "failed to toggle setting").Wrap(err)
	}
	return value, nil
}

func (r *Postgres) SetFuzzyLimit(ctx context.Context, tgID int64, limit int) error {
	return r.execOne(ctx, pgSetFuzzyLimit, pgx.NamedArgs{"tg_id": tgID, "limit": limit}, tgID)
}

func (r *Postgres) SetNotifyTarget(ctx context.Context, tgID int64, targetID *int64, targetName *string) error {
	return r.execOne(ctx, pgSetNotifyTarget, pgx.NamedArgs{
		"tg_id":       tgID,
		"target_id":   targetID,
		"target_name": targetName,
	}, tgID)
}

func (r *Postgres) AddKeywords(ctx context.Context, tgID int64, words []string) (int, error) {
	return r.insertWords(ctx, tgID, words, pgInsertKeyword)
}

func (r *Postgres) ListKeywords(ctx context.Context, tgID int64) ([]domain.Keyword, error) {
	return pgCollect[domain.Keyword](ctx, r, pgListKeywords, pgx.NamedArgs{"tg_id": tgID})
}

func (r *Postgres) DeleteKeyword(ctx context.Context, tgID, keywordID int64) error {
	return r.execOne(ctx, pgDeleteKeyword, pgx.NamedArgs{"tg_id": tgID, "id": keywordID}, tgID)
}

func (r *Postgres) AddFilterWords(ctx context.Context, tgID int64, words []string) (int, error) {
	return r.insertWords(ctx, tgID, words, pgInsertFilter)
}

func (r *Postgres) ListFilterWords(ctx context.Context, tgID int64) ([]domain.FilterWord, error) {
	return pgCollect[domain.FilterWord](ctx, r, pgListFilters, pgx.NamedArgs{"tg_id": tgID})
}

func (r *Postgres) DeleteFilterWord(ctx context.Context, tgID, wordID int64) error {
	return r.execOne(ctx, pgDeleteFilter, pgx.NamedArgs{"tg_id": tgID, "id": wordID}, tgID)
}

func (r *Postgres) BlockSender(ctx context.Context, tgID, blockedID int64, blockedName string) error {
	pool, err := r.handle.Pool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, pgBlockSender, pgx.NamedArgs{
		"tg_id":        tgID,
		"blocked_id":   blockedID,
		"blocked_name": blockedName,
	})
	if err != nil {
		return oops.With("tg_id", tgID, "blocked_id", blockedID, "context", "failed to block sender").Wrap(err)
	}
	return nil
}

func (r *Postgres) UnblockSender(ctx context.Context, tgID, blockID int64) error {
	return r.execOne(ctx, pgUnblockSender, pgx.NamedArgs{"tg_id": tgID, "id": blockID}, tgID)
}

func (r *Postgres) ListBlocked(ctx context.Context, tgID int64) ([]domain.BlockedSender, error) {
	return pgCollect[domain.BlockedSender](ctx, r, pgListBlocked, pgx.NamedArgs{"tg_id": tgID})
}

func (r *Postgres) insertWords(ctx context.Context, tgID int64, words []string, query string) (int, error) {
	sub, err := r.GetByTgID(ctx, tgID)
	if err != nil {
		return 0, err
	}

	pool, err := r.handle.Pool()
	if err != nil {
		return 0, err
	}

	batch := &pgx.Batch{}
	for _, word := range words {
		batch.Queue(query, pgx.NamedArgs{"user_id": sub.ID, "word": word})
	}

	br := pool.SendBatch(ctx, batch)
	defer br.Close()

	added := 0
	for range words {
		tag, err := br.Exec()
		if err != nil {
			return added, oops.With("tg_id", tgID, "context", "failed to insert words").Wrap(err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func (r *Postgres) execOne(ctx context.Context, query string, args pgx.NamedArgs, tgID int64) error {
	pool, err := r.handle.Pool()
	if err != nil {
		return err
	}

	tag, err := pool.Exec(ctx, query, args)
	if err != nil {
		return oops.With("tg_id", tgID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
	}
	return nil
}

func pgCollect[T any](ctx context.Context, r *Postgres, query string, args pgx.NamedArgs) ([]T, error) {
	pool, err := r.handle.Pool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, query, args)
	if err != nil {
		return nil, oops.With("context", "query failed").Wrap(err)
	}
	defer rows.Close()

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, oops.With("context", "failed to scan rows").Wrap(err)
	}
	return items, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
