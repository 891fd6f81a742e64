package database

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/reshetovitsme/keyword-monitor/internal/shared/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, domain.DatabaseDriverSqlite, "file::memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close(ctx)

	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("Migrate run %d failed: %v", i+1, err)
		}
	}

	conn, err := db.SQL().DB()
	if err != nil {
		t.Fatal(err)
	}
	var count int
	if err := conn.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'keywords', 'message_history', 'dm_accounts')"); err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Errorf("Expected 4 core tables, got %d", count)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), domain.DatabaseDriver("oracle"), "x")
	if !stderrors.Is(err, errors.ErrUnsupportedDriver) {
		t.Fatalf("Expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestClose_ReleasesHandle(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, domain.DatabaseDriverSqlite, "file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SQL().DB(); !stderrors.Is(err, errors.ErrNoDatabase) {
		t.Errorf("Expected ErrNoDatabase after close, got %v", err)
	}
	if err := db.Close(ctx); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n  ;CREATE TABLE b (y INT);\n")
	if len(got) != 2 {
		t.Fatalf("Expected 2 statements, got %d: %v", len(got), got)
	}
}
