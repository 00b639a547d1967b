package npctask

import (
	"context"
	"fmt"

	"chatcraft/internal/app/ports"
)

// ChaseService drives every linked agent toward a target participant without
// dealing damage. It backs both the aggro and swarm behaviors (one instance
// each). Policy: last request wins; a new Start cancels the running task.
type ChaseService struct {
	World ports.WorldProvider
	Sched ports.Scheduler
	Links AgentLister

	// PeriodTicks overrides the movement-order cadence; 0 means default.
	PeriodTicks int64

	current ports.TaskHandle
}

// Start chases targetUserID with all linked agents for durationTicks.
// Returns the number of agents engaged; zero agents is a success.
func (s *ChaseService) Start(ctx context.Context, targetUserID string, durationTicks int64) (int, error) {
	if durationTicks <= 0 {
		return 0, fmt.Errorf("chase: %w", ErrInvalidDuration)
	}
	if _, ok := s.World.PresentParticipant(targetUserID); !ok {
		return 0, fmt.Errorf("chase: target %s: %w", targetUserID, ports.ErrNotFound)
	}

	agents, err := s.Links.LinkedAgents(ctx)
	if err != nil {
		return 0, fmt.Errorf("chase: gather agents: %w", err)
	}

	// Last request wins: drop any running task and its transient state.
	s.cancelCurrent()
	if len(agents) == 0 {
		return 0, nil
	}

	chasing := make([]string, 0, len(agents))
	for _, a := range agents {
		chasing = append(chasing, a.ID)
	}

	period := s.PeriodTicks
	if period <= 0 {
		period = chasePeriodTicks
	}

	handle := s.Sched.RunEvery(period, func() {
		target, ok := s.World.PresentParticipant(targetUserID)
		if !ok {
			s.cancelCurrent()
			return
		}
		chasing = s.orderAll(chasing, target)
	})
	s.current = handle

	s.Sched.RunLater(durationTicks, func() {
		// Only the still-registered task may be stopped here; a later
		// Start must not be cancelled by this run's delayed stop.
		if s.current == handle {
			s.cancelCurrent()
		}
	})

	return len(chasing), nil
}

// orderAll re-issues move orders, dropping agents that vanished mid-run.
func (s *ChaseService) orderAll(ids []string, target ports.Participant) []string {
	alive := ids[:0]
	for _, id := range ids {
		if _, ok := s.World.AgentByID(id); !ok {
			continue
		}
		if err := s.World.OrderMove(id, target.Location); err != nil {
			continue
		}
		alive = append(alive, id)
	}
	return alive
}

// Stop cancels the running chase, if any.
func (s *ChaseService) Stop() { s.cancelCurrent() }

// Active reports whether a chase task is currently registered.
func (s *ChaseService) Active() bool {
	return s.current != nil && !s.current.Cancelled()
}

func (s *ChaseService) cancelCurrent() {
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
}
