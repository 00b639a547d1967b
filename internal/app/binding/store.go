package binding

import (
	"fmt"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"chatcraft/internal/domain/stream"
)

// Snapshot is one immutable generation of loaded bindings. Dispatchers hold a
// snapshot pointer and compare Version against the store to detect staleness
// without locking.
type Snapshot struct {
	Commands       []Binding
	Redeems        []Binding
	RedeemsEnabled bool
	LogUnmatched   bool
	Version        uint64
}

// Store owns the current binding generation. Reloads swap the snapshot
// atomically; readers never see a half-applied generation.
type Store struct {
	cur     atomic.Pointer[Snapshot]
	version atomic.Uint64
}

func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&Snapshot{})
	return s
}

// Snapshot returns the current generation.
func (s *Store) Snapshot() *Snapshot { return s.cur.Load() }

// Version returns the generation counter. It increments on every successful
// load, even when the resulting binding set is identical.
func (s *Store) Version() uint64 { return s.version.Load() }

type rawFile struct {
	Commands rawSection `yaml:"commands"`
	Redeems  rawSection `yaml:"redeems"`
}

type rawSection struct {
	Enabled      *bool        `yaml:"enabled"`
	LogUnmatched bool         `yaml:"log_unmatched"`
	Bindings     []rawBinding `yaml:"bindings"`
}

type rawBinding struct {
	Name        string         `yaml:"name"`
	RewardID    string         `yaml:"reward_id"`
	RewardTitle string         `yaml:"reward_title"`
	Permission  string         `yaml:"permission"`
	Thread      string         `yaml:"thread"`
	Handler     string         `yaml:"handler"`
	Actions     []rawAction    `yaml:"actions"`
	Params      map[string]any `yaml:"params"`
}

type rawAction struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// LoadYAML parses raw config and swaps in a new generation. Structurally
// invalid bindings (no matcher, or neither handler nor actions) are filtered
// out, not errors. A parse failure leaves the current generation in place.
func (s *Store) LoadYAML(raw []byte) error {
	var f rawFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse bindings: %w", err)
	}

	next := &Snapshot{
		RedeemsEnabled: f.Redeems.Enabled == nil || *f.Redeems.Enabled,
		LogUnmatched:   f.Redeems.LogUnmatched,
	}
	for _, rb := range f.Commands.Bindings {
		b := rb.toBinding()
		if strings.TrimSpace(b.Name) == "" || !b.hasWork() {
			continue
		}
		b.Name = strings.TrimSpace(b.Name)
		next.Commands = append(next.Commands, b)
	}
	for _, rb := range f.Redeems.Bindings {
		b := rb.toBinding()
		b.Name = ""
		if (strings.TrimSpace(b.RewardID) == "" && strings.TrimSpace(b.RewardTitle) == "") || !b.hasWork() {
			continue
		}
		b.RewardID = strings.TrimSpace(b.RewardID)
		b.RewardTitle = strings.TrimSpace(b.RewardTitle)
		next.Redeems = append(next.Redeems, b)
	}

	next.Version = s.version.Add(1)
	s.cur.Store(next)
	return nil
}

func (rb rawBinding) toBinding() Binding {
	b := Binding{
		Name:        rb.Name,
		RewardID:    rb.RewardID,
		RewardTitle: rb.RewardTitle,
		Permission:  stream.ParseRole(rb.Permission),
		HandlerKey:  strings.ToLower(strings.TrimSpace(rb.Handler)),
		Params:      rb.Params,
	}
	switch strings.ToLower(strings.TrimSpace(rb.Thread)) {
	case "main":
		b.Affinity = AffinityMain
	case "background", "async":
		b.Affinity = AffinityBackground
	default:
		b.Affinity = AffinityInherit
	}
	for _, ra := range rb.Actions {
		if strings.TrimSpace(ra.Type) == "" {
			continue
		}
		b.Actions = append(b.Actions, ActionSpec{Type: ra.Type, Params: ra.Params})
	}
	if b.Params == nil {
		b.Params = map[string]any{}
	}
	return b
}
