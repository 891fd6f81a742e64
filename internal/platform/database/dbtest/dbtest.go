// Package dbtest opens migrated in-memory databases for repository tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/reshetovitsme/keyword-monitor/internal/platform/database"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/domain"
)

func SQLite(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, domain.DatabaseDriverSqlite, "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close(ctx)
	})

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return db
}

// Exec runs fixture statements against the sql handle.
func Exec(t *testing.T, db *database.DB, stmts ...string) {
	t.Helper()

	conn, err := db.SQL().DB()
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("fixture %q: %v", stmt, err)
		}
	}
}
