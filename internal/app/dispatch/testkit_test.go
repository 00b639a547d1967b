package dispatch

import (
	"context"
	"testing"
	"time"

	"chatcraft/internal/app/action"
	"chatcraft/internal/app/binding"
	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/stream"
)

// syncSched runs everything inline so tests observe effects immediately.
type syncSched struct {
	asyncCalls int
}

func (s *syncSched) Run(fn func())      { fn() }
func (s *syncSched) RunAsync(fn func()) { s.asyncCalls++; fn() }
func (s *syncSched) RunLater(delayTicks int64, fn func()) ports.TaskHandle {
	return noopHandle{}
}
func (s *syncSched) RunEvery(periodTicks int64, fn func()) ports.TaskHandle {
	return noopHandle{}
}
func (s *syncSched) OnMainThread() bool { return true }

type noopHandle struct{}

func (noopHandle) Cancel()         {}
func (noopHandle) Cancelled() bool { return false }

type memReplier struct {
	messages []string
}

func (r *memReplier) Reply(channel, message string) {
	r.messages = append(r.messages, message)
}

type memJournal struct {
	entries []ports.JournalEntry
	err     error
}

func (j *memJournal) Append(ctx context.Context, entry ports.JournalEntry) error {
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal) ListRecent(ctx context.Context, limit int) ([]ports.JournalEntry, error) {
	return j.entries, nil
}

type countMetrics struct {
	matched   map[string]int
	denied    map[string]int
	failed    map[string]int
	unmatched map[string]int
}

func newCountMetrics() *countMetrics {
	return &countMetrics{
		matched:   map[string]int{},
		denied:    map[string]int{},
		failed:    map[string]int{},
		unmatched: map[string]int{},
	}
}

func (m *countMetrics) RecordMatched(kind string)   { m.matched[kind]++ }
func (m *countMetrics) RecordDenied(kind string)    { m.denied[kind]++ }
func (m *countMetrics) RecordFailed(kind string)    { m.failed[kind]++ }
func (m *countMetrics) RecordUnmatched(kind string) { m.unmatched[kind]++ }

func (m *countMetrics) total() int {
	n := 0
	for _, bucket := range []map[string]int{m.matched, m.denied, m.failed, m.unmatched} {
		for _, v := range bucket {
			n += v
		}
	}
	return n
}

// recordedCall captures one handler invocation.
type recordedCall struct {
	inv    action.Invocation
	params map[string]any
}

// recordingHandler builds a handler that appends every call to dst.
func recordingHandler(key string, dst *[]recordedCall, err error) *action.Handler {
	return &action.Handler{
		Key: key,
		Run: func(ctx context.Context, inv action.Invocation, params map[string]any) error {
			*dst = append(*dst, recordedCall{inv: inv, params: params})
			return err
		},
	}
}

type fixture struct {
	sched    *syncSched
	replier  *memReplier
	journal  *memJournal
	metrics  *countMetrics
	registry *action.Registry
	store    *binding.Store
}

func newFixture(t *testing.T, yaml string, handlers ...*action.Handler) *fixture {
	t.Helper()
	f := &fixture{
		sched:    &syncSched{},
		replier:  &memReplier{},
		journal:  &memJournal{},
		metrics:  newCountMetrics(),
		registry: action.NewRegistry(handlers...),
		store:    binding.NewStore(),
	}
	if yaml != "" {
		if err := f.store.LoadYAML([]byte(yaml)); err != nil {
			t.Fatalf("load bindings: %v", err)
		}
	}
	return f
}

func (f *fixture) executor() Executor {
	return Executor{
		Registry: f.registry,
		Sched:    f.sched,
		Replier:  f.replier,
		Journal:  f.journal,
		Metrics:  f.metrics,
		Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func viewer(role stream.Role) stream.Identity {
	return stream.Identity{UserID: "u100", DisplayName: "Casey", Role: role}
}
