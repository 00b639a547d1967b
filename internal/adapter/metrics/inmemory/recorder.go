package inmemory

import "sync"

type KindCounts struct {
	Matched   uint64 `json:"matched"`
	Denied    uint64 `json:"denied"`
	Failed    uint64 `json:"failed"`
	Unmatched uint64 `json:"unmatched"`
}

type Snapshot struct {
	Total  uint64                `json:"total"`
	ByKind map[string]KindCounts `json:"by_kind"`
}

// Recorder counts dispatch outcomes per trigger kind ("command", "redeem").
type Recorder struct {
	mu     sync.Mutex
	byKind map[string]*KindCounts
}

func NewRecorder() *Recorder {
	return &Recorder{byKind: map[string]*KindCounts{}}
}

func (r *Recorder) kind(kind string) *KindCounts {
	c, ok := r.byKind[kind]
	if !ok {
		c = &KindCounts{}
		r.byKind[kind] = c
	}
	return c
}

func (r *Recorder) RecordMatched(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kind(kind).Matched++
}

func (r *Recorder) RecordDenied(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kind(kind).Denied++
}

func (r *Recorder) RecordFailed(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kind(kind).Failed++
}

func (r *Recorder) RecordUnmatched(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kind(kind).Unmatched++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{ByKind: make(map[string]KindCounts, len(r.byKind))}
	for k, c := range r.byKind {
		out.ByKind[k] = *c
		out.Total += c.Matched + c.Denied + c.Failed + c.Unmatched
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
