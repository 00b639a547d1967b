package gormrepo

import (
	"context"
	"os"
	"testing"
	"time"

	"chatcraft/internal/app/ports"
)

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("CHATCRAFT_DB_DSN")
	if dsn == "" {
		t.Skip("CHATCRAFT_DB_DSN is required for integration test")
	}
	return dsn
}

func TestJournalRepo_AppendAndListRecent(t *testing.T) {
	dsn := requireDSN(t)
	db, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	ctx := context.Background()
	if err := ApplyMigrations(ctx, db, "../../../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	_ = db.Exec("DELETE FROM dispatch_journal WHERE user_id = ?", "it-journal").Error

	repo := NewJournalRepo(db)
	base := time.Now().UTC().Truncate(time.Second)
	for i, outcome := range []string{"ok", "denied", "failed"} {
		err := repo.Append(ctx, ports.JournalEntry{
			TriggerKind: "command",
			Trigger:     "!fireworks",
			UserID:      "it-journal",
			UserName:    "ITJournal",
			Outcome:     outcome,
			OccurredAt:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d rows, want 2", len(got))
	}
	if got[0].Outcome != "failed" || got[1].Outcome != "denied" {
		t.Errorf("rows not newest-first: %+v", got)
	}
}
