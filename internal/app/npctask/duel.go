package npctask

import (
	"context"
	"fmt"
	"log"

	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/world"
)

// Duel tuning. Hit points are tracked by the service, not the agents' own
// health pool: linked agents are invulnerable except while duelling.
const (
	duelHitPoints     = 20
	duelHitChance     = 0.3
	duelDamagePerHit  = 2
	duelRangeSq       = 3.0 * 3.0
	duelRespawnTicks  = 100
	duelAnchorLeashSq = 32.0 * 32.0
)

type duelCombatant struct {
	userID  string
	name    string
	agentID string
	hp      int
}

type duelState struct {
	a, b   duelCombatant
	anchor world.Anchor
}

// DuelOutcome is the recorded terminal state of the last finished duel.
type DuelOutcome struct {
	WinnerUserID string
	LoserUserID  string
	WinnerHP     int
	LoserHP      int
}

// DuelService simulates a duel between the agents of two identities next to
// a spawn anchor. A new Start cancels any prior duel unconditionally.
type DuelService struct {
	World   ports.WorldProvider
	Sched   ports.Scheduler
	Links   AgentEnsurer
	Anchors AnchorSource

	// RandInt/RandFloat are injectable for deterministic tests; nil means
	// math/rand.
	RandInt   func(n int) int
	RandFloat func() float64

	PeriodTicks       int64
	RespawnDelayTicks int64

	current ports.TaskHandle
	state   *duelState
	last    *DuelOutcome
}

// Start sets up and runs a duel between the agents of idA and idB. announce
// receives every user-visible duel message; nothing is announced on a
// failed start.
func (s *DuelService) Start(ctx context.Context, idA, nameA, idB, nameB string, announce func(string)) error {
	if idA == idB {
		return fmt.Errorf("duel: %w", ErrSameIdentity)
	}
	anchor, ok, err := s.Anchors.PickAnchor(ctx)
	if err != nil {
		return fmt.Errorf("duel: pick anchor: %w", err)
	}
	if !ok {
		return fmt.Errorf("duel: %w", ErrNoAnchor)
	}

	s.Stop()

	base := anchor.Location()
	resA, err := s.Links.EnsureAgentAt(ctx, idA, nameA, base.Offset(-1.5, 0, 0))
	if err != nil {
		return fmt.Errorf("duel: place %s: %w", nameA, err)
	}
	resB, err := s.Links.EnsureAgentAt(ctx, idB, nameB, base.Offset(1.5, 0, 0))
	if err != nil {
		return fmt.Errorf("duel: place %s: %w", nameB, err)
	}

	for _, id := range []string{resA.AgentID, resB.AgentID} {
		if err := s.World.SetInvulnerable(id, false); err != nil {
			return fmt.Errorf("duel: arm %s: %w", id, err)
		}
		if err := s.World.RestoreHealth(id); err != nil {
			return fmt.Errorf("duel: heal %s: %w", id, err)
		}
	}

	s.state = &duelState{
		a:      duelCombatant{userID: idA, name: nameA, agentID: resA.AgentID, hp: duelHitPoints},
		b:      duelCombatant{userID: idB, name: nameB, agentID: resB.AgentID, hp: duelHitPoints},
		anchor: anchor,
	}
	announce(fmt.Sprintf("%s and %s square off at the duelling grounds!", nameA, nameB))

	period := s.PeriodTicks
	if period <= 0 {
		period = duelPeriodTicks
	}
	s.current = s.Sched.RunEvery(period, func() { s.tick(ctx, announce) })
	return nil
}

func (s *DuelService) tick(ctx context.Context, announce func(string)) {
	st := s.state
	if st == nil {
		s.cancelCurrent()
		return
	}
	agA, okA := s.World.AgentByID(st.a.agentID)
	agB, okB := s.World.AgentByID(st.b.agentID)
	if !okA || !okB {
		// One side vanished mid-duel; abandon without a winner.
		s.cancelCurrent()
		s.disarm()
		return
	}

	s.keepNearAnchor(st, agA)
	s.keepNearAnchor(st, agB)
	_ = s.World.OrderMove(st.a.agentID, agB.Location)
	_ = s.World.OrderMove(st.b.agentID, agA.Location)

	attacker, defender := &st.a, &st.b
	attackerAg, defenderAg := agA, agB
	if s.randInt(2) == 1 {
		attacker, defender = &st.b, &st.a
		attackerAg, defenderAg = agB, agA
	}
	if s.randFloat() < duelHitChance &&
		attackerAg.Location.WorldID == defenderAg.Location.WorldID &&
		attackerAg.Location.DistanceSq(defenderAg.Location) <= duelRangeSq {
		defender.hp -= duelDamagePerHit
		if defender.hp < 0 {
			defender.hp = 0
		}
		_ = s.World.ApplyDamage(defender.agentID, duelDamagePerHit, attacker.agentID)
	}

	// Terminal check in fixed order: A's death is decided before B's, so a
	// double knockout resolves to exactly one winner.
	if st.a.hp <= 0 {
		s.finish(ctx, st.b, st.a, announce)
	} else if st.b.hp <= 0 {
		s.finish(ctx, st.a, st.b, announce)
	}
}

func (s *DuelService) keepNearAnchor(st *duelState, ag world.AgentInfo) {
	base := st.anchor.Location()
	if ag.Location.WorldID != base.WorldID || ag.Location.DistanceSq(base) > duelAnchorLeashSq {
		_ = s.World.MoveAgent(ag.ID, base)
	}
}

func (s *DuelService) finish(ctx context.Context, winner, loser duelCombatant, announce func(string)) {
	s.cancelCurrent()
	s.state = nil
	s.last = &DuelOutcome{
		WinnerUserID: winner.userID,
		LoserUserID:  loser.userID,
		WinnerHP:     winner.hp,
		LoserHP:      loser.hp,
	}

	announce(fmt.Sprintf("%s wins the duel against %s!", winner.name, loser.name))
	_ = s.World.SetInvulnerable(winner.agentID, true)
	_ = s.World.RemoveAgent(loser.agentID)

	delay := s.RespawnDelayTicks
	if delay <= 0 {
		delay = duelRespawnTicks
	}
	s.Sched.RunLater(delay, func() {
		anchor, ok, err := s.Anchors.PickAnchor(ctx)
		if err != nil || !ok {
			log.Printf("duel: respawn of %s skipped: no anchor (err=%v)", loser.name, err)
			return
		}
		loc := anchor.Location()
		if _, err := s.Links.EnsureAgentAt(ctx, loser.userID, loser.name, loc); err != nil {
			log.Printf("duel: respawn %s: %v", loser.name, err)
			return
		}
		announce(fmt.Sprintf("%s is back on their feet.", loser.name))
		if winnerAg, ok := s.World.AgentByID(winner.agentID); ok && winnerAg.LinkTag == winner.userID {
			_ = s.World.OrderMove(winner.agentID, loc)
		}
	})
}

// LastOutcome returns the recorded terminal state of the most recent duel.
func (s *DuelService) LastOutcome() *DuelOutcome { return s.last }

// Active reports whether a duel is currently running.
func (s *DuelService) Active() bool {
	return s.current != nil && !s.current.Cancelled()
}

// Stop cancels the running duel, if any, without declaring a winner. Both
// combatants get their invulnerability back.
func (s *DuelService) Stop() {
	s.cancelCurrent()
	s.disarm()
}

func (s *DuelService) cancelCurrent() {
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
}

// disarm restores invulnerability for any combatants of the abandoned duel.
// Errors for agents already gone from the world are discarded.
func (s *DuelService) disarm() {
	st := s.state
	s.state = nil
	if st == nil {
		return
	}
	_ = s.World.SetInvulnerable(st.a.agentID, true)
	_ = s.World.SetInvulnerable(st.b.agentID, true)
}

func (s *DuelService) randInt(n int) int {
	if s.RandInt != nil {
		return s.RandInt(n)
	}
	return randIntn(n)
}

func (s *DuelService) randFloat() float64 {
	if s.RandFloat != nil {
		return s.RandFloat()
	}
	return randFloat64()
}
