package database

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
	_ "modernc.org/sqlite"
)

var sqlDriverNames = map[domain.DatabaseDriver]string{
	domain.DatabaseDriverSqlite: "sqlite",
	domain.DatabaseDriverLibsql: "libsql",
	domain.DatabaseDriverMysql:  "mysql",
}

// SQLHandle serves sqlite, libsql and mysql through sqlx. Queries are written with
// `?` placeholders and rebound per driver.
type SQLHandle struct {
	dbPtr   atomic.Pointer[sqlx.DB]
	running atomic.Bool
	mu      sync.Mutex
	driver  domain.DatabaseDriver
}

func NewSQLHandle(ctx context.Context, driver domain.DatabaseDriver, dsn string) (*SQLHandle, error) {
	name, ok := sqlDriverNames[driver]
	if !ok {
		return nil, oops.With("driver", driver).Wrap(errors.ErrUnsupportedDriver)
	}

	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, err
	}

	// every connection to :memory: is a separate database
	if driver == domain.DatabaseDriverSqlite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	handle := &SQLHandle{driver: driver}
	handle.dbPtr.Store(db)
	handle.running.Store(true)

	return handle, nil
}

func (h *SQLHandle) Driver() domain.DatabaseDriver {
	return h.driver
}

func (h *SQLHandle) DB() (*sqlx.DB, error) {
	if db := h.dbPtr.Load(); db != nil {
		return db, nil
	}
	return nil, errors.ErrNoDatabase
}

func (h *SQLHandle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running.Load() {
		h.running.Swap(false)
		db := h.dbPtr.Swap(nil)
		if db != nil {
			return db.Close()
		}
	}
	return nil
}
