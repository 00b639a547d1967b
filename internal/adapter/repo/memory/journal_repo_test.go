package memory

import (
	"context"
	"strconv"
	"testing"

	"chatcraft/internal/app/ports"
)

func TestJournalNewestFirstAndBounded(t *testing.T) {
	repo := NewJournalRepo(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := repo.Append(ctx, ports.JournalEntry{Trigger: "!cmd" + strconv.Itoa(i)})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := repo.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("kept %d entries, want 3", len(got))
	}
	if got[0].Trigger != "!cmd4" || got[2].Trigger != "!cmd2" {
		t.Errorf("order = %v", got)
	}

	two, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(two) != 2 || two[0].Trigger != "!cmd4" {
		t.Errorf("limited list = %v", two)
	}
}
