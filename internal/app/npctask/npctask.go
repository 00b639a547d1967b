// Package npctask holds the tick-scheduled behaviors that drive linked
// agents: chase (aggro/swarm), timed melee attack, and two-agent duels. Each
// service owns at most one live task; everything here runs on the main world
// thread, so task state needs no locking.
package npctask

import (
	"context"
	"errors"
	"math/rand"

	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/world"
)

// Default tick cadences, in scheduler ticks (20/s).
const (
	chasePeriodTicks  = 10
	attackPeriodTicks = 2
	duelPeriodTicks   = 10
)

// AgentLister yields the currently-active agents of every valid identity
// link. Satisfied by link.Service.
type AgentLister interface {
	LinkedAgents(ctx context.Context) ([]world.AgentInfo, error)
}

// AgentEnsurer places (or recreates) the agent linked to an identity at a
// location. Satisfied by link.Service.
type AgentEnsurer interface {
	EnsureAgentAt(ctx context.Context, userID, displayName string, loc world.Location) (ports.EnsureResult, error)
}

// AnchorSource picks a configured spawn anchor, reporting absence via ok.
type AnchorSource interface {
	PickAnchor(ctx context.Context) (world.Anchor, bool, error)
}

var (
	ErrInvalidDuration = errors.New("durationTicks must be greater than zero")
	ErrInvalidDamage   = errors.New("damagePerHit must be greater than zero")
	ErrInvalidCooldown = errors.New("hitCooldownTicks must be greater than zero")

	// ErrAttackInProgress is the reject-on-active refusal: the running
	// attack task is left untouched.
	ErrAttackInProgress = errors.New("attack task already in progress")

	ErrSameIdentity = errors.New("duel needs two distinct identities")
	ErrNoAnchor     = errors.New("no spawn anchor configured")
)

func randIntn(n int) int   { return rand.Intn(n) }
func randFloat64() float64 { return rand.Float64() }
