package action

import (
	"math/rand"
	"strings"

	"chatcraft/internal/app/binding"
	"chatcraft/internal/app/ports"
)

// Sentinel target values that mean "the invoking identity".
func isSelfTarget(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self", "@self", "@invoker", "@s":
		return true
	}
	return false
}

// ResolveTarget implements the shared target policy: an explicit `target`
// param (sentinels meaning the invoker, otherwise a display name), else the
// invoker if present in the world, else (only when the `random` param
// allows it) a uniformly random present participant. Nothing resolving is
// a no-op for the caller, not an error.
func ResolveTarget(w ports.WorldProvider, inv Invocation, params map[string]any) (ports.Participant, bool) {
	if t := binding.StringParam(params, "target", ""); t != "" && !isSelfTarget(t) {
		for _, p := range w.Participants() {
			if strings.EqualFold(p.DisplayName, t) {
				return p, true
			}
		}
		return ports.Participant{}, false
	}
	if p, ok := w.PresentParticipant(inv.UserID); ok {
		return p, true
	}
	if binding.BoolParam(params, "random", false) {
		all := w.Participants()
		if len(all) > 0 {
			return all[rand.Intn(len(all))], true
		}
	}
	return ports.Participant{}, false
}

// LootEntry is one weighted loot option.
type LootEntry struct {
	ItemID string
	Weight float64
	Count  int
}

// ParseLoot reads an `items` param of the form
// [{item: minecraft:emerald, weight: 3, count: 1}, ...]. Malformed entries
// are dropped; weights default to 1 and counts to 1.
func ParseLoot(params map[string]any) []LootEntry {
	raw, ok := params["items"].([]any)
	if !ok {
		return nil
	}
	var out []LootEntry
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		item := binding.StringParam(m, "item", "")
		if item == "" {
			continue
		}
		entry := LootEntry{
			ItemID: item,
			Weight: binding.FloatParam(m, "weight", 1),
			Count:  binding.IntParam(m, "count", 1),
		}
		if entry.Weight <= 0 || entry.Count <= 0 {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// ChooseLoot picks one entry by weight using roll in [0,1).
func ChooseLoot(entries []LootEntry, roll float64) (LootEntry, bool) {
	if len(entries) == 0 {
		return LootEntry{}, false
	}
	var total float64
	for _, e := range entries {
		total += e.Weight
	}
	at := roll * total
	for _, e := range entries {
		at -= e.Weight
		if at < 0 {
			return e, true
		}
	}
	return entries[len(entries)-1], true
}
