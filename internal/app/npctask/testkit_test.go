package npctask

import (
	"context"
	"errors"

	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/world"
)

// fakeSched is a manually-advanced scheduler. Everything runs inline on the
// test goroutine, which stands in for the main thread.
type fakeSched struct {
	now   int64
	tasks []*fakeTask
}

type fakeTask struct {
	fn        func()
	nextAt    int64
	period    int64
	once      bool
	cancelled bool
}

func (t *fakeTask) Cancel()         { t.cancelled = true }
func (t *fakeTask) Cancelled() bool { return t.cancelled }

func (s *fakeSched) Run(fn func())      { fn() }
func (s *fakeSched) RunAsync(fn func()) { fn() }
func (s *fakeSched) OnMainThread() bool { return true }

func (s *fakeSched) RunLater(delayTicks int64, fn func()) ports.TaskHandle {
	t := &fakeTask{fn: fn, nextAt: s.now + delayTicks, once: true}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *fakeSched) RunEvery(periodTicks int64, fn func()) ports.TaskHandle {
	t := &fakeTask{fn: fn, nextAt: s.now + periodTicks, period: periodTicks}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward one tick at a time, firing due tasks in
// registration order. Tasks registered while advancing are eligible too.
func (s *fakeSched) Advance(ticks int64) {
	for i := int64(0); i < ticks; i++ {
		s.now++
		for j := 0; j < len(s.tasks); j++ {
			t := s.tasks[j]
			if t.cancelled || t.nextAt != s.now {
				continue
			}
			t.fn()
			if t.once {
				t.cancelled = true
			} else {
				t.nextAt += t.period
			}
		}
	}
}

// fakeWorld tracks agents and participants with just enough behavior for the
// task services.
type fakeWorld struct {
	ports.WorldProvider

	agents       map[string]world.AgentInfo
	participants map[string]ports.Participant
	orders       map[string][]world.Location
	damage       map[string]float64 // damaged id -> total
	removed      []string
	invuln       map[string]bool
	healed       []string
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		agents:       map[string]world.AgentInfo{},
		participants: map[string]ports.Participant{},
		orders:       map[string][]world.Location{},
		damage:       map[string]float64{},
		invuln:       map[string]bool{},
	}
}

func (w *fakeWorld) addAgent(id string, tag string, loc world.Location) {
	w.agents[id] = world.AgentInfo{ID: id, Name: id, LinkTag: tag, Location: loc, Invulnerable: true}
}

func (w *fakeWorld) addParticipant(userID string, loc world.Location) {
	w.participants[userID] = ports.Participant{UserID: userID, DisplayName: userID, Location: loc}
}

func (w *fakeWorld) AgentByID(id string) (world.AgentInfo, bool) {
	a, ok := w.agents[id]
	return a, ok
}

func (w *fakeWorld) FindAgentByTag(tag string) (world.AgentInfo, bool) {
	for _, a := range w.agents {
		if a.LinkTag == tag {
			return a, true
		}
	}
	return world.AgentInfo{}, false
}

func (w *fakeWorld) PresentParticipant(userID string) (ports.Participant, bool) {
	p, ok := w.participants[userID]
	return p, ok
}

func (w *fakeWorld) Participants() []ports.Participant {
	out := make([]ports.Participant, 0, len(w.participants))
	for _, p := range w.participants {
		out = append(out, p)
	}
	return out
}

func (w *fakeWorld) OrderMove(id string, target world.Location) error {
	if _, ok := w.agents[id]; !ok {
		return errors.New("no such agent")
	}
	w.orders[id] = append(w.orders[id], target)
	return nil
}

func (w *fakeWorld) MoveAgent(id string, loc world.Location) error {
	a, ok := w.agents[id]
	if !ok {
		return errors.New("no such agent")
	}
	a.Location = loc
	w.agents[id] = a
	return nil
}

func (w *fakeWorld) ApplyDamage(id string, amount float64, _ string) error {
	w.damage[id] += amount
	return nil
}

func (w *fakeWorld) RemoveAgent(id string) error {
	delete(w.agents, id)
	w.removed = append(w.removed, id)
	return nil
}

func (w *fakeWorld) SetInvulnerable(id string, v bool) error {
	w.invuln[id] = v
	return nil
}

func (w *fakeWorld) RestoreHealth(id string) error {
	w.healed = append(w.healed, id)
	return nil
}

// fakeLinks serves a fixed agent list.
type fakeLinks struct {
	world *fakeWorld
	err   error
}

func (l fakeLinks) LinkedAgents(context.Context) ([]world.AgentInfo, error) {
	if l.err != nil {
		return nil, l.err
	}
	var out []world.AgentInfo
	for _, a := range l.world.agents {
		if a.LinkTag != "" {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeEnsurer spawns agents straight into the fake world.
type fakeEnsurer struct {
	world   *fakeWorld
	ensures int
	err     error
}

func (e *fakeEnsurer) EnsureAgentAt(_ context.Context, userID, displayName string, loc world.Location) (ports.EnsureResult, error) {
	if e.err != nil {
		return ports.EnsureResult{}, e.err
	}
	e.ensures++
	id := "agent-" + userID
	created := false
	if _, ok := e.world.agents[id]; !ok {
		created = true
	}
	e.world.agents[id] = world.AgentInfo{ID: id, Name: displayName, LinkTag: userID, Location: loc, Invulnerable: true}
	return ports.EnsureResult{Created: created, AgentID: id, AgentName: displayName}, nil
}

// fakeAnchors serves anchors in order, or reports none.
type fakeAnchors struct {
	anchors []world.Anchor
	err     error
}

func (a fakeAnchors) PickAnchor(context.Context) (world.Anchor, bool, error) {
	if a.err != nil {
		return world.Anchor{}, false, a.err
	}
	if len(a.anchors) == 0 {
		return world.Anchor{}, false, nil
	}
	return a.anchors[0], true, nil
}
