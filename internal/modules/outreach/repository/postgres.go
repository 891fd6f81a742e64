package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
)

const (
	pgAccountColumns = `a.id, COALESCE(a.owner_id, 0) AS owner_id, a.phone, a.session_string,
	COALESCE(a.status, 'ready') AS status, a.daily_sent, a.daily_limit, a.last_used_at`

	pgAutoReply      = `SELECT s.is_auto_reply FROM dm_settings s JOIN users u ON s.user_id = u.id WHERE u.tg_id = @tg_id;`
	pgRandomAccount  = `SELECT ` + pgAccountColumns + ` FROM dm_accounts a JOIN users u ON a.owner_id = u.id WHERE u.tg_id = @tg_id AND a.status = @status ORDER BY RANDOM() LIMIT 1;`
	pgActiveTemplate = `SELECT t.text_content FROM dm_content_templates t JOIN users u ON t.user_id = u.id WHERE u.tg_id = @tg_id AND t.is_active = TRUE ORDER BY t.id DESC LIMIT 1;`
	pgAccountCount   = `SELECT COUNT(*) FROM dm_accounts a JOIN users u ON a.owner_id = u.id WHERE u.tg_id = @tg_id;`

	pgIncrementDailySent = `UPDATE dm_accounts SET daily_sent = daily_sent + 1, last_used_at = @at WHERE id = @id;`
	pgSetAutoReply       = `
INSERT INTO dm_settings (user_id, is_auto_reply)
SELECT id, @enabled::boolean FROM users WHERE tg_id = @tg_id
ON CONFLICT (user_id) DO UPDATE SET is_auto_reply = EXCLUDED.is_auto_reply;`
	pgDeactivateTemplates = `UPDATE dm_content_templates SET is_active = FALSE WHERE user_id = (SELECT id FROM users WHERE tg_id = @tg_id);`
	pgInsertTemplate      = `INSERT INTO dm_content_templates (user_id, text_content, is_active) SELECT id, @content::text, TRUE FROM users WHERE tg_id = @tg_id;`
	pgListAccounts        = `SELECT ` + pgAccountColumns + ` FROM dm_accounts a JOIN users u ON a.owner_id = u.id WHERE u.tg_id = @tg_id ORDER BY a.id LIMIT @limit;`
)

type Postgres struct {
	handle *database.PostgresHandle
}

func NewPostgres(handle *database.PostgresHandle) *Postgres {
	return &Postgres{handle: handle}
}

func (r *Postgres) LookupPlan(ctx context.Context, tgID int64) (*domain.Plan, error) {
	pool, err := r.handle.Pool()
	if err != nil {
		return nil, err
	}

	args := pgx.NamedArgs{"tg_id": tgID, "status": domain.AccountStatusReady.String()}

	batch := &pgx.Batch{}
	batch.Queue(pgAutoReply, args)
	batch.Queue(pgRandomAccount, args)
	batch.Queue(pgActiveTemplate, args)

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	plan := &domain.Plan{}

	if err := results.QueryRow().Scan(&plan.AutoReply); err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("tg_id", tgID, "context", "failed to read auto reply flag").Wrap(err)
	}

	rows, err := results.Query()
	if err != nil {
		return nil, oops.With("tg_id", tgID, "context", "failed to pick account").Wrap(err)
	}
	account, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[domain.Account])
	switch {
	case err == nil:
		plan.Account = account
	case !stderrors.Is(err, pgx.ErrNoRows):
		return nil, oops.With("tg_id", tgID, "context", "failed to pick account").Wrap(err)
	}

	if err := results.QueryRow().Scan(&plan.Content); err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("tg_id", tgID, "context", "failed to read template").Wrap(err)
	}

	return plan, nil
}

func (r *Postgres) IncrementDailySent(ctx context.Context, accountID int64, at time.Time) error {
	pool, err := r.handle.Pool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, pgIncrementDailySent, pgx.NamedArgs{"id": accountID, "at": at}); err != nil {
		return oops.With("account_id", accountID).Wrap(err)
	}
	return nil
}

func (r *Postgres) SetAutoReply(ctx context.Context, tgID int64, enabled bool) error {
	pool, err := r.handle.Pool()
	if err != nil {
		return err
	}

	tag, err := pool.Exec(ctx, pgSetAutoReply, pgx.NamedArgs{"tg_id": tgID, "enabled": enabled})
	if err != nil {
		return oops.With("tg_id", tgID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
	}
	return nil
}

func (r *Postgres) SetTemplate(ctx context.Context, tgID int64, content string) error {
	pool, err := r.handle.Pool()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		args := pgx.NamedArgs{"tg_id": tgID, "content": content}
		if _, err := tx.Exec(ctx, pgDeactivateTemplates, args); err != nil {
			return oops.With("tg_id", tgID).Wrap(err)
		}
		tag, err := tx.Exec(ctx, pgInsertTemplate, args)
		if err != nil {
			return oops.With("tg_id", tgID, "context", "failed to save template").Wrap(err)
		}
		if tag.RowsAffected() == 0 {
			return oops.With("tg_id", tgID).Wrap(errors.ErrSubscriberNotFound)
		}
		return nil
	})
}

func (r *Postgres) ListAccounts(ctx context.Context, tgID int64, limit int) ([]domain.Account, error) {
	pool, err := r.handle.Pool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, pgListAccounts, pgx.NamedArgs{"tg_id": tgID, "limit": limit})
	if err != nil {
		return nil, oops.With("tg_id", tgID).Wrap(err)
	}
	accounts, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Account])
	if err != nil {
		return nil, oops.With("tg_id", tgID, "context", "failed to collect accounts").Wrap(err)
	}
	return accounts, nil
}

func (r *Postgres) Overview(ctx context.Context, tgID int64) (*domain.Overview, error) {
	pool, err := r.handle.Pool()
	if err != nil {
		return nil, err
	}

	args := pgx.NamedArgs{"tg_id": tgID}

	batch := &pgx.Batch{}
	batch.Queue(pgAccountCount, args)
	batch.Queue(pgAutoReply, args)
	batch.Queue(pgActiveTemplate, args)

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	overview := &domain.Overview{}
	if err := results.QueryRow().Scan(&overview.AccountCount); err != nil {
		return nil, oops.With("tg_id", tgID).Wrap(err)
	}
	if err := results.QueryRow().Scan(&overview.AutoReply); err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("tg_id", tgID).Wrap(err)
	}
	if err := results.QueryRow().Scan(&overview.Content); err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("tg_id", tgID).Wrap(err)
	}
	return overview, nil
}
