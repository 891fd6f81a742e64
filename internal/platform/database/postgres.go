package database

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

type PostgresHandle struct {
	db      atomic.Pointer[pgxpool.Pool]
	running atomic.Bool
	mu      sync.Mutex
}

func NewPostgresHandle(ctx context.Context, dsn string) (*PostgresHandle, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	handle := &PostgresHandle{}
	handle.db.Store(pool)
	handle.running.Store(true)

	return handle, nil
}

func (h *PostgresHandle) Pool() (*pgxpool.Pool, error) {
	if pool := h.db.Load(); pool != nil {
		return pool, nil
	}
	return nil, errors.ErrNoDatabase
}

func (h *PostgresHandle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running.Load() {
		h.running.Swap(false)
		pool := h.db.Swap(nil)
		if pool != nil {
			pool.Close()
		}
	}
	return nil
}
