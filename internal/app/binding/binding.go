package binding

import (
	"strings"

	"chatcraft/internal/domain/stream"
)

// ThreadAffinity says where a binding's work must run. AffinityInherit defers
// to the handler's own preference, then to the main thread.
type ThreadAffinity int

const (
	AffinityInherit ThreadAffinity = iota
	AffinityMain
	AffinityBackground
)

// ActionSpec is one generic action invocation: a registry type plus params.
type ActionSpec struct {
	Type   string
	Params map[string]any
}

// Binding maps a trigger (command name, or reward id/title) to either a named
// handler, an ordered action list, or both. When both are present the action
// list wins and the handler is not invoked. Bindings are immutable after
// load.
type Binding struct {
	Name        string // command-name matcher, "" for redeem bindings
	RewardID    string
	RewardTitle string
	Permission  stream.Role
	Affinity    ThreadAffinity
	HandlerKey  string
	Actions     []ActionSpec
	Params      map[string]any
}

// MatchesCommand reports an exact case-insensitive command-name match.
func (b Binding) MatchesCommand(name string) bool {
	return b.Name != "" && strings.EqualFold(b.Name, name)
}

// MatchesRedemption checks reward id before reward title.
func (b Binding) MatchesRedemption(rewardID, rewardTitle string) bool {
	if b.RewardID != "" && b.RewardID == rewardID {
		return true
	}
	return b.RewardTitle != "" && strings.EqualFold(b.RewardTitle, rewardTitle)
}

func (b Binding) hasWork() bool {
	return strings.TrimSpace(b.HandlerKey) != "" || len(b.Actions) > 0
}
