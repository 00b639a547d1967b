package binding

import (
	"testing"

	"chatcraft/internal/domain/stream"
)

const sampleConfig = `
commands:
  bindings:
    - name: fireworks
      permission: everyone
      actions:
        - type: player.fireworks
          params: {count: 3}
    - name: spawn
      permission: sub
      handler: npc.spawn
    - name: ""
      handler: npc.spawn
    - name: orphan
redeems:
  enabled: true
  log_unmatched: true
  bindings:
    - reward_id: abc-123
      handler: npc.spawn
    - reward_title: Spawn Buddy
      actions:
        - type: npc.spawn
    - reward_title: Nothing To Do
`

func TestLoadYAML_FiltersStructurallyInvalidBindings(t *testing.T) {
	s := NewStore()
	if err := s.LoadYAML([]byte(sampleConfig)); err != nil {
		t.Fatalf("load: %v", err)
	}

	snap := s.Snapshot()
	if got := len(snap.Commands); got != 2 {
		t.Fatalf("expected 2 command bindings, got %d: %+v", got, snap.Commands)
	}
	if got := len(snap.Redeems); got != 2 {
		t.Fatalf("expected 2 redeem bindings, got %d: %+v", got, snap.Redeems)
	}
	if !snap.RedeemsEnabled || !snap.LogUnmatched {
		t.Fatalf("expected redeems enabled + log_unmatched, got %+v", snap)
	}
}

func TestLoadYAML_ParsesPermissionAliases(t *testing.T) {
	s := NewStore()
	if err := s.LoadYAML([]byte(sampleConfig)); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := s.Snapshot()
	if snap.Commands[0].Permission != stream.RoleEveryone {
		t.Fatalf("fireworks permission = %v", snap.Commands[0].Permission)
	}
	if snap.Commands[1].Permission != stream.RoleSubscriber {
		t.Fatalf("sub alias not recognized: %v", snap.Commands[1].Permission)
	}
}

func TestLoadYAML_VersionIncrementsOnIdenticalReload(t *testing.T) {
	s := NewStore()
	for i := 1; i <= 3; i++ {
		if err := s.LoadYAML([]byte(sampleConfig)); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if got := s.Version(); got != uint64(i) {
			t.Fatalf("after load %d version = %d", i, got)
		}
	}
}

func TestLoadYAML_ParseFailureKeepsCurrentGeneration(t *testing.T) {
	s := NewStore()
	if err := s.LoadYAML([]byte(sampleConfig)); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := s.Snapshot()

	if err := s.LoadYAML([]byte("commands: [broken")); err == nil {
		t.Fatal("expected parse error")
	}
	if s.Snapshot() != before {
		t.Fatal("failed load must not swap the snapshot")
	}
	if s.Version() != 1 {
		t.Fatalf("failed load must not bump version, got %d", s.Version())
	}
}

func TestMatchesRedemption_ChecksIDBeforeTitle(t *testing.T) {
	b := Binding{RewardID: "id-1", RewardTitle: "Title"}
	if !b.MatchesRedemption("id-1", "something else") {
		t.Fatal("id match should win regardless of title")
	}
	if !b.MatchesRedemption("other", "title") {
		t.Fatal("title match should be case-insensitive")
	}
	if b.MatchesRedemption("other", "nope") {
		t.Fatal("unexpected match")
	}
}
