package action

import (
	"context"
	"testing"

	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/world"
)

// stubWorld implements just the participant and cosmetic surface.
type stubWorld struct {
	ports.WorldProvider

	participants []ports.Participant
	fireworks    []world.Location
	gives        map[string]int
}

func (w *stubWorld) PresentParticipant(userID string) (ports.Participant, bool) {
	for _, p := range w.participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return ports.Participant{}, false
}

func (w *stubWorld) Participants() []ports.Participant { return w.participants }

func (w *stubWorld) Fireworks(loc world.Location, count int) error {
	for i := 0; i < count; i++ {
		w.fireworks = append(w.fireworks, loc)
	}
	return nil
}

func (w *stubWorld) GiveItem(userID, itemID string, qty int) error {
	if w.gives == nil {
		w.gives = map[string]int{}
	}
	w.gives[userID+"/"+itemID] += qty
	return nil
}

func TestResolveTarget_ExplicitNameAndSelfSentinel(t *testing.T) {
	w := &stubWorld{participants: []ports.Participant{
		{UserID: "u1", DisplayName: "Alice"},
		{UserID: "u2", DisplayName: "Bob"},
	}}
	inv := Invocation{UserID: "u1", DisplayName: "Alice"}

	p, ok := ResolveTarget(w, inv, map[string]any{"target": "bob"})
	if !ok || p.UserID != "u2" {
		t.Fatalf("explicit target: ok=%v p=%+v", ok, p)
	}
	p, ok = ResolveTarget(w, inv, map[string]any{"target": "@self"})
	if !ok || p.UserID != "u1" {
		t.Fatalf("self sentinel: ok=%v p=%+v", ok, p)
	}
}

func TestResolveTarget_FallsBackToInvokerThenRandom(t *testing.T) {
	w := &stubWorld{participants: []ports.Participant{{UserID: "u2", DisplayName: "Bob"}}}
	inv := Invocation{UserID: "u1", DisplayName: "Alice"} // not present

	if _, ok := ResolveTarget(w, inv, nil); ok {
		t.Fatal("absent invoker with randomness disallowed must not resolve")
	}
	p, ok := ResolveTarget(w, inv, map[string]any{"random": true})
	if !ok || p.UserID != "u2" {
		t.Fatalf("random fallback: ok=%v p=%+v", ok, p)
	}
}

func TestChooseLoot_WeightsPartitionTheRoll(t *testing.T) {
	entries := []LootEntry{
		{ItemID: "common", Weight: 3, Count: 1},
		{ItemID: "rare", Weight: 1, Count: 1},
	}
	if e, _ := ChooseLoot(entries, 0.0); e.ItemID != "common" {
		t.Fatalf("roll 0.0 -> %s", e.ItemID)
	}
	if e, _ := ChooseLoot(entries, 0.74); e.ItemID != "common" {
		t.Fatalf("roll 0.74 -> %s", e.ItemID)
	}
	if e, _ := ChooseLoot(entries, 0.76); e.ItemID != "rare" {
		t.Fatalf("roll 0.76 -> %s", e.ItemID)
	}
	if _, ok := ChooseLoot(nil, 0.5); ok {
		t.Fatal("empty loot must not pick")
	}
}

func TestFireworksHandler_UsesCountParam(t *testing.T) {
	w := &stubWorld{participants: []ports.Participant{
		{UserID: "u1", DisplayName: "Alice", Location: world.Location{WorldID: "overworld", X: 1}},
	}}
	r := NewRegistry(Builtins(Env{World: w})...)

	inv := Invocation{UserID: "u1", DisplayName: "Alice", Command: "fireworks"}
	err := r.ExecuteAction(context.Background(), inv, "player.fireworks", map[string]any{"count": 3})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(w.fireworks) != 3 {
		t.Fatalf("launched %d fireworks", len(w.fireworks))
	}
}

func TestGiveHandler_GrantsWeightedLoot(t *testing.T) {
	w := &stubWorld{participants: []ports.Participant{{UserID: "u1", DisplayName: "Alice"}}}
	env := Env{World: w, RandFloat: func() float64 { return 0.9 }}
	r := NewRegistry(Builtins(env)...)

	params := map[string]any{"items": []any{
		map[string]any{"item": "bread", "weight": 3},
		map[string]any{"item": "emerald", "weight": 1, "count": 2},
	}}
	inv := Invocation{UserID: "u1", DisplayName: "Alice"}
	if err := r.ExecuteAction(context.Background(), inv, "player.give", params); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := w.gives["u1/emerald"]; got != 2 {
		t.Fatalf("gives = %v", w.gives)
	}
}
