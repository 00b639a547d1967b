// Package memory holds the in-process journal used when no database is
// configured, and by tests.
package memory

import (
	"context"
	"sync"

	"chatcraft/internal/app/ports"
)

// JournalRepo keeps a bounded tail of dispatch journal entries in memory.
type JournalRepo struct {
	mu      sync.Mutex
	entries []ports.JournalEntry
	cap     int
}

// NewJournalRepo bounds the kept tail at capacity entries; 0 means 1000.
func NewJournalRepo(capacity int) *JournalRepo {
	if capacity <= 0 {
		capacity = 1000
	}
	return &JournalRepo{cap: capacity}
}

func (r *JournalRepo) Append(_ context.Context, entry ports.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *JournalRepo) ListRecent(_ context.Context, limit int) ([]ports.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]ports.JournalEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}
