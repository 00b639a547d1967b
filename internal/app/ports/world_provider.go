package ports

import "chatcraft/internal/domain/world"

// EnsureResult reports how an identity's agent was resolved: reclaimed
// (Created false) or freshly spawned (Created true).
type EnsureResult struct {
	Created   bool
	AgentID   string
	AgentName string
}

// Participant is a chat viewer currently present inside the simulated world.
type Participant struct {
	UserID      string
	DisplayName string
	Location    world.Location
}

// WorldProvider is the world runtime surface the core mutates through. Every
// method must be called on the main world thread (see Scheduler.Run); the
// runtime is free to panic otherwise.
type WorldProvider interface {
	// FindAgentByTag scans currently-active agents for one carrying the
	// given link tag.
	FindAgentByTag(tag string) (world.AgentInfo, bool)
	// AgentByID resolves a currently-active agent by its stable id.
	AgentByID(id string) (world.AgentInfo, bool)
	// LoadRegionAt force-loads the region containing loc so its contents
	// become active. Loading an already-loaded region is a no-op.
	LoadRegionAt(loc world.Location) error

	// SpawnAgent creates a fresh agent tagged with linkTag at loc.
	SpawnAgent(name, linkTag string, loc world.Location) (world.AgentInfo, error)
	// RefreshAgent re-applies runtime settings on a reclaimed agent:
	// autonomy back on, despawn flag cleared, optional profession.
	RefreshAgent(id string, prof world.Profession) error
	MoveAgent(id string, loc world.Location) error
	// OrderMove issues a pathing order toward target; it does not teleport.
	OrderMove(id string, target world.Location) error
	RemoveAgent(id string) error
	SetInvulnerable(id string, invulnerable bool) error
	RestoreHealth(id string) error
	// ApplyDamage hurts an agent or participant, attributed to attackerID.
	ApplyDamage(id string, amount float64, attackerID string) error

	// PresentParticipant reports whether the chat user is in the world.
	PresentParticipant(userID string) (Participant, bool)
	Participants() []Participant

	// Cosmetic / world-state effects.
	Fireworks(loc world.Location, count int) error
	GiveItem(userID, itemID string, qty int) error
	SetWeather(worldID string, w world.Weather) error
	SetWorldTime(worldID string, t int64) error
}
