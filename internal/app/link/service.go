// Package link owns the persistent association between chat identities and
// world agents, and the resolution algorithm that finds or recreates an
// identity's agent even when its region is unloaded.
package link

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/world"
)

// Service resolves chat identities to world agents. All methods that touch
// the world must run on the main thread; the backing file is
// read-modify-written without locking, so Service panics off-thread.
type Service struct {
	Repo       ports.LinkRepository
	World      ports.WorldProvider
	Sched      ports.Scheduler
	Profession world.Profession
	Now        func() time.Time
}

// EnsureAgentAt finds the agent linked to userID, repairing the stored
// mapping as needed, and leaves it standing at loc. Resolution order: active
// agent by link tag, stored agent id, force-loaded last known region, else a
// brand-new agent. First success wins.
func (s *Service) EnsureAgentAt(ctx context.Context, userID, displayName string, loc world.Location) (ports.EnsureResult, error) {
	s.assertMainThread()

	records, err := s.Repo.Load(ctx)
	if err != nil {
		return ports.EnsureResult{}, fmt.Errorf("load links: %w", err)
	}
	idx := indexOf(records, userID)

	// An active agent already carrying our tag wins outright.
	if agent, ok := s.World.FindAgentByTag(userID); ok {
		return s.reclaim(ctx, records, idx, userID, displayName, agent, loc)
	}

	if idx >= 0 && records[idx].AgentUUID != "" {
		rec := records[idx]
		if agent, ok := s.World.AgentByID(rec.AgentUUID); ok && agent.LinkTag == userID {
			return s.reclaim(ctx, records, idx, userID, displayName, agent, loc)
		}

		// The agent may simply live in an unloaded region. Force-load the
		// last known spot and look again.
		if rec.WorldID != "" {
			stored := world.Location{WorldID: rec.WorldID, X: rec.X, Y: rec.Y, Z: rec.Z}
			if err := s.World.LoadRegionAt(stored); err == nil {
				if agent, ok := s.World.AgentByID(rec.AgentUUID); ok && agent.LinkTag == userID {
					return s.reclaim(ctx, records, idx, userID, displayName, agent, loc)
				}
			}
		}

		// Proven stale: drop the agent reference but keep the link row.
		records[idx].AgentUUID = ""
		records[idx].UpdatedAt = s.now()
		if err := s.Repo.Save(ctx, records); err != nil {
			return ports.EnsureResult{}, fmt.Errorf("clear stale link: %w", err)
		}
	}

	agent, err := s.World.SpawnAgent(displayName, userID, loc)
	if err != nil {
		return ports.EnsureResult{}, fmt.Errorf("spawn agent for %s: %w", userID, err)
	}
	if err := s.applyRuntimeSettings(agent.ID); err != nil {
		return ports.EnsureResult{}, err
	}
	records = upsert(records, idx, ports.LinkRecord{
		UserID:    userID,
		UserName:  displayName,
		AgentUUID: agent.ID,
		WorldID:   loc.WorldID,
		X:         loc.X,
		Y:         loc.Y,
		Z:         loc.Z,
		UpdatedAt: s.now(),
	})
	if err := s.Repo.Save(ctx, records); err != nil {
		return ports.EnsureResult{}, fmt.Errorf("save links: %w", err)
	}
	return ports.EnsureResult{Created: true, AgentID: agent.ID, AgentName: agent.Name}, nil
}

// reclaim re-applies runtime settings on a found agent, moves it to loc and
// persists the refreshed mapping.
func (s *Service) reclaim(ctx context.Context, records []ports.LinkRecord, idx int, userID, displayName string, agent world.AgentInfo, loc world.Location) (ports.EnsureResult, error) {
	if err := s.applyRuntimeSettings(agent.ID); err != nil {
		return ports.EnsureResult{}, err
	}
	if err := s.World.MoveAgent(agent.ID, loc); err != nil {
		return ports.EnsureResult{}, fmt.Errorf("move agent %s: %w", agent.ID, err)
	}
	records = upsert(records, idx, ports.LinkRecord{
		UserID:    userID,
		UserName:  displayName,
		AgentUUID: agent.ID,
		WorldID:   loc.WorldID,
		X:         loc.X,
		Y:         loc.Y,
		Z:         loc.Z,
		UpdatedAt: s.now(),
	})
	if err := s.Repo.Save(ctx, records); err != nil {
		return ports.EnsureResult{}, fmt.Errorf("save links: %w", err)
	}
	return ports.EnsureResult{Created: false, AgentID: agent.ID, AgentName: agent.Name}, nil
}

func (s *Service) applyRuntimeSettings(agentID string) error {
	if err := s.World.RefreshAgent(agentID, s.Profession); err != nil {
		return fmt.Errorf("refresh agent %s: %w", agentID, err)
	}
	return nil
}

// ResolveByDisplayName finds the link row whose stored display name equals
// name case-insensitively. The first match in stored order wins. Absence is
// reported through ok, not an error.
func (s *Service) ResolveByDisplayName(ctx context.Context, name string) (ports.LinkRecord, bool, error) {
	records, err := s.Repo.Load(ctx)
	if err != nil {
		return ports.LinkRecord{}, false, fmt.Errorf("load links: %w", err)
	}
	for _, rec := range records {
		if strings.EqualFold(rec.UserName, name) {
			return rec, true, nil
		}
	}
	return ports.LinkRecord{}, false, nil
}

// LinkedAgents returns the currently-active agents of every stored link
// whose tag still matches. Stale rows are skipped, not repaired.
func (s *Service) LinkedAgents(ctx context.Context) ([]world.AgentInfo, error) {
	s.assertMainThread()
	records, err := s.Repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	var out []world.AgentInfo
	for _, rec := range records {
		if rec.AgentUUID == "" {
			continue
		}
		if agent, ok := s.World.AgentByID(rec.AgentUUID); ok && agent.LinkTag == rec.UserID {
			out = append(out, agent)
		}
	}
	return out, nil
}

func (s *Service) assertMainThread() {
	if s.Sched != nil && !s.Sched.OnMainThread() {
		panic("link: world access off the main thread")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func indexOf(records []ports.LinkRecord, userID string) int {
	for i, rec := range records {
		if rec.UserID == userID {
			return i
		}
	}
	return -1
}

func upsert(records []ports.LinkRecord, idx int, rec ports.LinkRecord) []ports.LinkRecord {
	if idx >= 0 {
		records[idx] = rec
		return records
	}
	return append(records, rec)
}
