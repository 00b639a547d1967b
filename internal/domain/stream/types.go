package stream

import "strings"

// Role is the privilege level of a chat identity. Roles form a strict total
// order; a higher role satisfies every lower requirement.
type Role int

const (
	RoleEveryone Role = iota
	RoleSubscriber
	RoleVIP
	RoleModerator
	RoleBroadcaster
)

func (r Role) String() string {
	switch r {
	case RoleSubscriber:
		return "subscriber"
	case RoleVIP:
		return "vip"
	case RoleModerator:
		return "moderator"
	case RoleBroadcaster:
		return "broadcaster"
	default:
		return "everyone"
	}
}

// Satisfies reports whether an identity holding role r meets requirement req.
func (r Role) Satisfies(req Role) bool { return r >= req }

// ParseRole maps a config permission string to a Role. "mod" and "sub" are
// accepted aliases; anything unrecognized falls back to RoleEveryone.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "subscriber", "sub":
		return RoleSubscriber
	case "vip":
		return RoleVIP
	case "moderator", "mod":
		return RoleModerator
	case "broadcaster":
		return RoleBroadcaster
	default:
		return RoleEveryone
	}
}

// Identity is the originating chat user of an event.
type Identity struct {
	UserID      string
	DisplayName string
	Role        Role
}

// CommandEvent is a parsed "!command arg arg" chat line.
type CommandEvent struct {
	Identity Identity
	Channel  string
	Command  string   // first token, without the leading trigger character
	Args     []string // remaining tokens, verbatim
	Raw      string   // original message text
}

// RedemptionEvent is a reward redemption already normalized by an ingress
// adapter (see dispatch.RedemptionPayload for the tolerant extraction side).
type RedemptionEvent struct {
	Identity    Identity
	Channel     string
	RewardID    string
	RewardTitle string
	UserInput   string
}
