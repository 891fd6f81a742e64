package database

import (
	"context"
	"embed"
	"strings"

	"github.com/reshetovitsme/keyword-monitor/internal/shared/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// DB holds exactly one live handle: pgx for postgres, sqlx for everything else.
type DB struct {
	driver domain.DatabaseDriver
	pg     *PostgresHandle
	sql    *SQLHandle
}

func Open(ctx context.Context, driver domain.DatabaseDriver, dsn string) (*DB, error) {
	switch driver {
	case domain.DatabaseDriverPostgres:
		handle, err := NewPostgresHandle(ctx, dsn)
		if err != nil {
			return nil, oops.With("driver", driver, "context", "failed to open postgres pool").Wrap(err)
		}
		return &DB{driver: driver, pg: handle}, nil
	case domain.DatabaseDriverSqlite, domain.DatabaseDriverLibsql, domain.DatabaseDriverMysql:
		handle, err := NewSQLHandle(ctx, driver, dsn)
		if err != nil {
			return nil, oops.With("driver", driver, "context", "failed to open sql database").Wrap(err)
		}
		return &DB{driver: driver, sql: handle}, nil
	default:
		return nil, oops.With("driver", driver).Wrap(errors.ErrUnsupportedDriver)
	}
}

func (d *DB) Driver() domain.DatabaseDriver {
	return d.driver
}

// Postgres returns nil unless the driver is postgres.
func (d *DB) Postgres() *PostgresHandle {
	return d.pg
}

// SQL returns nil when the driver is postgres.
func (d *DB) SQL() *SQLHandle {
	return d.sql
}

func (d *DB) Ping(ctx context.Context) error {
	if d.pg != nil {
		pool, err := d.pg.Pool()
		if err != nil {
			return err
		}
		return pool.Ping(ctx)
	}
	db, err := d.sql.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (d *DB) Close(ctx context.Context) error {
	if d.pg != nil {
		return d.pg.Close(ctx)
	}
	if d.sql != nil {
		return d.sql.Close(ctx)
	}
	return nil
}

// Migrate applies the embedded schema for the active driver. Every statement is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	name := "schema/" + d.driver.String() + ".sql"
	if d.driver == domain.DatabaseDriverLibsql {
		name = "schema/sqlite.sql"
	}

	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return oops.With("schema", name).Wrap(err)
	}

	for _, stmt := range splitStatements(string(raw)) {
		if d.pg != nil {
			pool, err := d.pg.Pool()
			if err != nil {
				return err
			}
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return oops.With("statement", stmt, "context", "migration failed").Wrap(err)
			}
			continue
		}

		db, err := d.sql.DB()
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return oops.With("statement", stmt, "context", "migration failed").Wrap(err)
		}
	}

	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
