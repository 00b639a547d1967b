package npctask

import (
	"context"
	"fmt"

	"chatcraft/internal/app/ports"
)

// Attack reach, squared. Matches the melee reach the chase services never
// need.
const attackRangeSq = 2.5 * 2.5

// AttackService chases the target and applies periodic damage. Unlike the
// chase services it has a reject-on-active policy: a new Start is refused
// while a task runs, and the running task is left untouched.
type AttackService struct {
	World ports.WorldProvider
	Sched ports.Scheduler
	Links AgentLister

	PeriodTicks int64

	current ports.TaskHandle
}

type attackRun struct {
	targetUserID string
	damage       float64
	cooldown     int64
	elapsed      int64
	lastHit      map[string]int64 // agent id -> elapsed ticks at last hit
	chasing      []string
}

// Start attacks targetUserID with all linked agents for durationTicks,
// hitting for damagePerHit at most once per hitCooldownTicks per agent.
func (s *AttackService) Start(ctx context.Context, targetUserID string, durationTicks int64, damagePerHit float64, hitCooldownTicks int64) (int, error) {
	if durationTicks <= 0 {
		return 0, fmt.Errorf("attack: %w", ErrInvalidDuration)
	}
	if damagePerHit <= 0 {
		return 0, fmt.Errorf("attack: %w", ErrInvalidDamage)
	}
	if hitCooldownTicks <= 0 {
		return 0, fmt.Errorf("attack: %w", ErrInvalidCooldown)
	}
	if s.current != nil && !s.current.Cancelled() {
		return 0, ErrAttackInProgress
	}
	if _, ok := s.World.PresentParticipant(targetUserID); !ok {
		return 0, fmt.Errorf("attack: target %s: %w", targetUserID, ports.ErrNotFound)
	}

	agents, err := s.Links.LinkedAgents(ctx)
	if err != nil {
		return 0, fmt.Errorf("attack: gather agents: %w", err)
	}
	if len(agents) == 0 {
		return 0, nil
	}

	run := &attackRun{
		targetUserID: targetUserID,
		damage:       damagePerHit,
		cooldown:     hitCooldownTicks,
		lastHit:      make(map[string]int64, len(agents)),
	}
	for _, a := range agents {
		run.chasing = append(run.chasing, a.ID)
	}

	period := s.PeriodTicks
	if period <= 0 {
		period = attackPeriodTicks
	}

	handle := s.Sched.RunEvery(period, func() {
		run.elapsed += period
		target, ok := s.World.PresentParticipant(run.targetUserID)
		if !ok {
			s.cancelCurrent()
			return
		}
		s.tick(run, target)
	})
	s.current = handle

	s.Sched.RunLater(durationTicks, func() {
		if s.current == handle {
			s.cancelCurrent()
		}
	})

	return len(run.chasing), nil
}

func (s *AttackService) tick(run *attackRun, target ports.Participant) {
	alive := run.chasing[:0]
	for _, id := range run.chasing {
		agent, ok := s.World.AgentByID(id)
		if !ok {
			delete(run.lastHit, id)
			continue
		}
		if err := s.World.OrderMove(id, target.Location); err != nil {
			continue
		}
		alive = append(alive, id)

		if agent.Location.WorldID != target.Location.WorldID {
			continue
		}
		if agent.Location.DistanceSq(target.Location) > attackRangeSq {
			continue
		}
		if last, hit := run.lastHit[id]; hit && run.elapsed-last < run.cooldown {
			continue
		}
		if err := s.World.ApplyDamage(target.UserID, run.damage, id); err != nil {
			continue
		}
		run.lastHit[id] = run.elapsed
	}
	run.chasing = alive
	if len(run.chasing) == 0 {
		s.cancelCurrent()
	}
}

// Stop cancels the running attack, if any.
func (s *AttackService) Stop() { s.cancelCurrent() }

// Active reports whether an attack task is currently registered.
func (s *AttackService) Active() bool {
	return s.current != nil && !s.current.Cancelled()
}

func (s *AttackService) cancelCurrent() {
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
}
