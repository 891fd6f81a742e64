package repository

import (
	"context"
	"testing"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/history/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database/dbtest"
)

func TestSQLStore_SaveAndRecent(t *testing.T) {
	db := dbtest.SQLite(t)
	store := NewSQLStore(db.SQL())
	ctx := context.Background()
	now := time.Now()

	for i, kw := range []string{"a", "b", "c", "d", "e", "f"} {
		record := &domain.Record{UserID: 7, ChatID: -100, Keyword: kw, CreatedAt: now.Add(time.Duration(i) * time.Second)}
		if kw == "f" {
			record.MsgLink = "https://t.me/chat/9"
		}
		if err := store.Save(ctx, record); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if record.ID == 0 {
			t.Errorf("Expected id to be set for %s", kw)
		}
	}
	if err := store.Save(ctx, &domain.Record{UserID: 8, Keyword: "a", CreatedAt: now}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := store.Recent(ctx, 7, domain.RecentLimit)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != domain.RecentLimit {
		t.Fatalf("Expected %d records, got %d", domain.RecentLimit, len(records))
	}
	if records[0].Keyword != "f" || records[0].MsgLink != "https://t.me/chat/9" {
		t.Errorf("Expected newest record first, got %+v", records[0])
	}
	if records[1].MsgLink != "" {
		t.Errorf("Expected empty link, got %q", records[1].MsgLink)
	}

	byKeyword, err := store.ListByKeyword(ctx, "a", 10)
	if err != nil {
		t.Fatalf("ListByKeyword failed: %v", err)
	}
	if len(byKeyword) != 2 || byKeyword[0].UserID != 8 {
		t.Errorf("Unexpected keyword records: %+v", byKeyword)
	}
}
