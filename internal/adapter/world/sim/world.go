package sim

import (
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/world"
)

const (
	regionSize    = 32.0
	defaultHealth = 20.0
	// blocks per tick while following a movement order
	moveStep = 0.3
)

// Config tunes the simulated world. Zero values fall back to defaults.
type Config struct {
	DefaultWorldID string
	AgentHealth    float64
	MoveStep       float64
}

func DefaultConfig() Config {
	return Config{
		DefaultWorldID: "overworld",
		AgentHealth:    defaultHealth,
		MoveStep:       moveStep,
	}
}

// World is an in-memory world runtime. All state is owned by the scheduler
// goroutine; methods assert they are called there.
type World struct {
	cfg   Config
	sched *Scheduler

	regions      map[string]bool // region key -> loaded
	agents       map[string]*agentState
	unloaded     map[string]*agentState // agents parked in unloaded regions
	participants map[string]ports.Participant

	weather   map[string]world.Weather
	worldTime map[string]int64
	givenOut  map[string]map[string]int // userID -> itemID -> qty
}

type agentState struct {
	info  world.AgentInfo
	order *world.Location // active movement target, nil when idle
}

// NewWorld builds the runtime on top of sched and registers its movement
// tick. The scheduler does not need to be started yet.
func NewWorld(sched *Scheduler, cfg Config) *World {
	def := DefaultConfig()
	if cfg.DefaultWorldID == "" {
		cfg.DefaultWorldID = def.DefaultWorldID
	}
	if cfg.AgentHealth <= 0 {
		cfg.AgentHealth = def.AgentHealth
	}
	if cfg.MoveStep <= 0 {
		cfg.MoveStep = def.MoveStep
	}
	w := &World{
		cfg:          cfg,
		sched:        sched,
		regions:      map[string]bool{},
		agents:       map[string]*agentState{},
		unloaded:     map[string]*agentState{},
		participants: map[string]ports.Participant{},
		weather:      map[string]world.Weather{},
		worldTime:    map[string]int64{},
		givenOut:     map[string]map[string]int{},
	}
	sched.RunEvery(1, w.stepMovement)
	return w
}

// regionKey addresses the region containing loc.
func regionKey(loc world.Location) string {
	rx := int(math.Floor(loc.X / regionSize))
	rz := int(math.Floor(loc.Z / regionSize))
	return fmt.Sprintf("%s:%d:%d", loc.WorldID, rx, rz)
}

func (w *World) mustMain() {
	if !w.sched.OnMainThread() {
		panic("world access off the main thread")
	}
}

// stepMovement advances every ordered agent one step toward its target and
// clears orders on arrival.
func (w *World) stepMovement() {
	for _, a := range w.agents {
		if a.order == nil {
			continue
		}
		cur, dst := a.info.Location, *a.order
		if cur.WorldID != dst.WorldID {
			a.order = nil
			continue
		}
		dx, dy, dz := dst.X-cur.X, dst.Y-cur.Y, dst.Z-cur.Z
		dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
		if dist <= w.cfg.MoveStep {
			a.info.Location = dst
			a.order = nil
			continue
		}
		scale := w.cfg.MoveStep / dist
		a.info.Location = cur.Offset(dx*scale, dy*scale, dz*scale)
	}
}

func (w *World) FindAgentByTag(tag string) (world.AgentInfo, bool) {
	w.mustMain()
	if tag == "" {
		return world.AgentInfo{}, false
	}
	for _, a := range w.agents {
		if a.info.LinkTag == tag {
			return a.info, true
		}
	}
	return world.AgentInfo{}, false
}

func (w *World) AgentByID(id string) (world.AgentInfo, bool) {
	w.mustMain()
	a, ok := w.agents[id]
	if !ok {
		return world.AgentInfo{}, false
	}
	return a.info, true
}

// LoadRegionAt marks the region loaded and promotes any agents parked there.
func (w *World) LoadRegionAt(loc world.Location) error {
	w.mustMain()
	key := regionKey(loc)
	if w.regions[key] {
		return nil
	}
	w.regions[key] = true
	for id, a := range w.unloaded {
		if regionKey(a.info.Location) == key {
			w.agents[id] = a
			delete(w.unloaded, id)
		}
	}
	return nil
}

// UnloadRegionAt parks every agent in the region; they stop being active
// until the region loads again.
func (w *World) UnloadRegionAt(loc world.Location) {
	w.mustMain()
	key := regionKey(loc)
	delete(w.regions, key)
	for id, a := range w.agents {
		if regionKey(a.info.Location) == key {
			a.order = nil
			w.unloaded[id] = a
			delete(w.agents, id)
		}
	}
}

func (w *World) SpawnAgent(name, linkTag string, loc world.Location) (world.AgentInfo, error) {
	w.mustMain()
	if err := w.LoadRegionAt(loc); err != nil {
		return world.AgentInfo{}, err
	}
	a := &agentState{info: world.AgentInfo{
		ID:       uuid.NewString(),
		Name:     name,
		LinkTag:  linkTag,
		Location: loc,
		Health:   w.cfg.AgentHealth,
	}}
	w.agents[a.info.ID] = a
	log.Printf("world: spawned agent %s (%s) at %s", a.info.ID, name, loc)
	return a.info, nil
}

func (w *World) RefreshAgent(id string, prof world.Profession) error {
	a, err := w.agent(id)
	if err != nil {
		return err
	}
	a.order = nil
	if a.info.Health <= 0 {
		a.info.Health = w.cfg.AgentHealth
	}
	_ = prof // professions are cosmetic in the simulated runtime
	return nil
}

func (w *World) MoveAgent(id string, loc world.Location) error {
	a, err := w.agent(id)
	if err != nil {
		return err
	}
	a.order = nil
	a.info.Location = loc
	return nil
}

func (w *World) OrderMove(id string, target world.Location) error {
	a, err := w.agent(id)
	if err != nil {
		return err
	}
	t := target
	a.order = &t
	return nil
}

func (w *World) RemoveAgent(id string) error {
	w.mustMain()
	if _, ok := w.agents[id]; !ok {
		if _, parked := w.unloaded[id]; !parked {
			return fmt.Errorf("remove agent %s: %w", id, ports.ErrNotFound)
		}
		delete(w.unloaded, id)
		return nil
	}
	delete(w.agents, id)
	return nil
}

func (w *World) SetInvulnerable(id string, invulnerable bool) error {
	a, err := w.agent(id)
	if err != nil {
		return err
	}
	a.info.Invulnerable = invulnerable
	return nil
}

func (w *World) RestoreHealth(id string) error {
	a, err := w.agent(id)
	if err != nil {
		return err
	}
	a.info.Health = w.cfg.AgentHealth
	return nil
}

// ApplyDamage hurts an active agent or a participant. Damage to an
// invulnerable agent is silently absorbed; an agent at zero health despawns.
func (w *World) ApplyDamage(id string, amount float64, attackerID string) error {
	w.mustMain()
	if a, ok := w.agents[id]; ok {
		if a.info.Invulnerable {
			return nil
		}
		a.info.Health -= amount
		if a.info.Health <= 0 {
			log.Printf("world: agent %s felled by %s", id, attackerID)
			delete(w.agents, id)
		}
		return nil
	}
	if _, ok := w.participants[id]; ok {
		// Participants shrug damage off; presence is what matters here.
		return nil
	}
	return fmt.Errorf("damage %s: %w", id, ports.ErrNotFound)
}

func (w *World) PresentParticipant(userID string) (ports.Participant, bool) {
	w.mustMain()
	p, ok := w.participants[userID]
	return p, ok
}

func (w *World) Participants() []ports.Participant {
	w.mustMain()
	out := make([]ports.Participant, 0, len(w.participants))
	for _, p := range w.participants {
		out = append(out, p)
	}
	return out
}

// Join registers a chat participant as present in the world.
func (w *World) Join(p ports.Participant) {
	w.mustMain()
	if p.Location.WorldID == "" {
		p.Location.WorldID = w.cfg.DefaultWorldID
	}
	_ = w.LoadRegionAt(p.Location)
	w.participants[p.UserID] = p
}

// Leave removes a participant's presence.
func (w *World) Leave(userID string) {
	w.mustMain()
	delete(w.participants, userID)
}

func (w *World) Fireworks(loc world.Location, count int) error {
	w.mustMain()
	log.Printf("world: %d fireworks at %s", count, loc)
	return nil
}

func (w *World) GiveItem(userID, itemID string, qty int) error {
	w.mustMain()
	if _, ok := w.participants[userID]; !ok {
		return fmt.Errorf("give to %s: %w", userID, ports.ErrNotFound)
	}
	if w.givenOut[userID] == nil {
		w.givenOut[userID] = map[string]int{}
	}
	w.givenOut[userID][itemID] += qty
	return nil
}

func (w *World) SetWeather(worldID string, weather world.Weather) error {
	w.mustMain()
	if worldID == "" {
		worldID = w.cfg.DefaultWorldID
	}
	w.weather[worldID] = weather
	return nil
}

func (w *World) SetWorldTime(worldID string, t int64) error {
	w.mustMain()
	if worldID == "" {
		worldID = w.cfg.DefaultWorldID
	}
	w.worldTime[worldID] = t
	return nil
}

// Weather reports a world's current weather, defaulting to clear.
func (w *World) Weather(worldID string) world.Weather {
	w.mustMain()
	if wt, ok := w.weather[worldID]; ok {
		return wt
	}
	return world.WeatherClear
}

func (w *World) agent(id string) (*agentState, error) {
	w.mustMain()
	a, ok := w.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, ports.ErrNotFound)
	}
	return a, nil
}
