package ports

import (
	"context"
	"time"
)

// LinkRecord is one persisted external-identity to agent association. The
// agent reference is weak: the agent may be gone or unloaded, and the record
// must be re-validated against the agent's own link tag before use.
type LinkRecord struct {
	UserID    string
	UserName  string
	AgentUUID string
	WorldID   string
	X, Y, Z   float64
	UpdatedAt time.Time
}

// LinkRepository loads and stores the whole link document at once; callers
// do read-modify-write per operation. Stored order is preserved.
type LinkRepository interface {
	Load(ctx context.Context) ([]LinkRecord, error)
	Save(ctx context.Context, records []LinkRecord) error
}

// AnchorRepository persists the spawn-anchor key set.
type AnchorRepository interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, keys []string) error
}

// JournalEntry records one dispatched event and its outcome.
type JournalEntry struct {
	TriggerKind string // "command" or "redeem"
	Trigger     string // command name or reward id/title
	UserID      string
	UserName    string
	Outcome     string // "ok", "denied", "failed", "unmatched"
	Detail      string
	OccurredAt  time.Time
}

type JournalRepository interface {
	Append(ctx context.Context, entry JournalEntry) error
	ListRecent(ctx context.Context, limit int) ([]JournalEntry, error)
}
