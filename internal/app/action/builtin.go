package action

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"chatcraft/internal/app/binding"
	"chatcraft/internal/app/npctask"
	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/world"
)

// LinkService is the slice of the identity-link store the handlers need.
type LinkService interface {
	EnsureAgentAt(ctx context.Context, userID, displayName string, loc world.Location) (ports.EnsureResult, error)
	ResolveByDisplayName(ctx context.Context, name string) (ports.LinkRecord, bool, error)
}

// Env carries the collaborators the built-in handlers close over. Handlers
// share nothing else; cross-handler state is deliberately impossible.
type Env struct {
	World   ports.WorldProvider
	Links   LinkService
	Aggro   *npctask.ChaseService
	Swarm   *npctask.ChaseService
	Attack  *npctask.AttackService
	Duel    *npctask.DuelService
	Anchors npctask.AnchorSource
	Replier ports.Replier

	// DefaultWorldID is used by world-state actions when no target pins a
	// world.
	DefaultWorldID string
	// RandFloat is injectable for deterministic loot tests; nil means
	// math/rand.
	RandFloat func() float64
}

func (e Env) randFloat() float64 {
	if e.RandFloat != nil {
		return e.RandFloat()
	}
	return rand.Float64()
}

func (e Env) reply(inv Invocation, msg string) {
	if e.Replier != nil {
		e.Replier.Reply(inv.Channel, msg)
	}
}

func (e Env) worldIDFor(inv Invocation, params map[string]any) string {
	if w := binding.StringParam(params, "world", ""); w != "" {
		return w
	}
	if p, ok := e.World.PresentParticipant(inv.UserID); ok {
		return p.Location.WorldID
	}
	return e.DefaultWorldID
}

// Builtins returns the full built-in action vocabulary bound to env.
func Builtins(env Env) []*Handler {
	return []*Handler{
		sayHandler(env),
		fireworksHandler(env),
		giveHandler(env),
		weatherHandler(env),
		timeHandler(env),
		spawnHandler(env),
		chaseHandler(env, "npc.aggro", func() *npctask.ChaseService { return env.Aggro }),
		chaseHandler(env, "npc.swarm", func() *npctask.ChaseService { return env.Swarm }),
		attackHandler(env),
		duelHandler(env),
	}
}

// sayHandler replies into chat with a templated message. {user} expands to
// the invoker's display name, {input} to the message/user input.
func sayHandler(env Env) *Handler {
	return &Handler{
		Key:      "chat.say",
		Affinity: binding.AffinityBackground,
		Run: func(_ context.Context, inv Invocation, params map[string]any) error {
			msg := binding.StringParam(params, "message", "")
			if msg == "" {
				return nil
			}
			msg = strings.ReplaceAll(msg, "{user}", inv.DisplayName)
			msg = strings.ReplaceAll(msg, "{input}", inv.Message)
			env.reply(inv, msg)
			return nil
		},
	}
}

func fireworksHandler(env Env) *Handler {
	return &Handler{
		Key:      "player.fireworks",
		Affinity: binding.AffinityMain,
		Run: func(_ context.Context, inv Invocation, params map[string]any) error {
			target, ok := ResolveTarget(env.World, inv, params)
			if !ok {
				return nil
			}
			count := binding.IntParam(params, "count", 1)
			if count <= 0 {
				return nil
			}
			return env.World.Fireworks(target.Location, count)
		},
	}
}

func giveHandler(env Env) *Handler {
	return &Handler{
		Key:      "player.give",
		Affinity: binding.AffinityMain,
		Run: func(_ context.Context, inv Invocation, params map[string]any) error {
			target, ok := ResolveTarget(env.World, inv, params)
			if !ok {
				return nil
			}
			entry, ok := ChooseLoot(ParseLoot(params), env.randFloat())
			if !ok {
				return nil
			}
			return env.World.GiveItem(target.UserID, entry.ItemID, entry.Count)
		},
	}
}

func weatherHandler(env Env) *Handler {
	return &Handler{
		Key:      "world.weather",
		Affinity: binding.AffinityMain,
		Run: func(_ context.Context, inv Invocation, params map[string]any) error {
			var w world.Weather
			switch strings.ToLower(binding.StringParam(params, "state", "clear")) {
			case "rain":
				w = world.WeatherRain
			case "thunder", "storm":
				w = world.WeatherThunder
			default:
				w = world.WeatherClear
			}
			return env.World.SetWeather(env.worldIDFor(inv, params), w)
		},
	}
}

func timeHandler(env Env) *Handler {
	return &Handler{
		Key:      "world.time",
		Affinity: binding.AffinityMain,
		Run: func(_ context.Context, inv Invocation, params map[string]any) error {
			var t int64
			switch strings.ToLower(binding.StringParam(params, "time", "day")) {
			case "night":
				t = 13000
			case "noon":
				t = 6000
			case "day":
				t = 1000
			default:
				t = int64(binding.IntParam(params, "time", 1000))
			}
			return env.World.SetWorldTime(env.worldIDFor(inv, params), t)
		},
	}
}

// spawnHandler ensures the invoker's linked agent near the invoker, or at a
// spawn anchor when the invoker is not in the world.
func spawnHandler(env Env) *Handler {
	return &Handler{
		Key:      "npc.spawn",
		Affinity: binding.AffinityMain,
		Run: func(ctx context.Context, inv Invocation, params map[string]any) error {
			loc, ok := env.spawnLocation(ctx, inv)
			if !ok {
				return fmt.Errorf("spawn for %s: %w", inv.DisplayName, npctask.ErrNoAnchor)
			}
			res, err := env.Links.EnsureAgentAt(ctx, inv.UserID, inv.DisplayName, loc)
			if err != nil {
				return err
			}
			if res.Created {
				env.reply(inv, fmt.Sprintf("%s joined the world!", res.AgentName))
			} else {
				env.reply(inv, fmt.Sprintf("%s is already wandering around.", res.AgentName))
			}
			return nil
		},
	}
}

func (e Env) spawnLocation(ctx context.Context, inv Invocation) (world.Location, bool) {
	if p, ok := e.World.PresentParticipant(inv.UserID); ok {
		return p.Location, true
	}
	if e.Anchors != nil {
		if anchor, ok, err := e.Anchors.PickAnchor(ctx); err == nil && ok {
			return anchor.Location(), true
		}
	}
	return world.Location{}, false
}

func chaseHandler(env Env, key string, svc func() *npctask.ChaseService) *Handler {
	return &Handler{
		Key:      key,
		Affinity: binding.AffinityMain,
		Run: func(ctx context.Context, inv Invocation, params map[string]any) error {
			target, ok := ResolveTarget(env.World, inv, params)
			if !ok {
				return nil
			}
			seconds := binding.IntParam(params, "seconds", 30)
			n, err := svc().Start(ctx, target.UserID, int64(seconds)*ports.TicksPerSecond)
			if err != nil {
				return err
			}
			if n > 0 {
				env.reply(inv, fmt.Sprintf("%d agents set their eyes on %s!", n, target.DisplayName))
			}
			return nil
		},
	}
}

func attackHandler(env Env) *Handler {
	return &Handler{
		Key:      "npc.attack",
		Affinity: binding.AffinityMain,
		Run: func(ctx context.Context, inv Invocation, params map[string]any) error {
			target, ok := ResolveTarget(env.World, inv, params)
			if !ok {
				return nil
			}
			seconds := binding.IntParam(params, "seconds", 30)
			hearts := binding.FloatParam(params, "hearts", 1)
			cooldown := binding.IntParam(params, "cooldown_seconds", 2)
			n, err := env.Attack.Start(ctx, target.UserID,
				int64(seconds)*ports.TicksPerSecond,
				hearts*2,
				int64(cooldown)*ports.TicksPerSecond)
			if err != nil {
				return err
			}
			if n > 0 {
				env.reply(inv, fmt.Sprintf("%d agents are after %s!", n, target.DisplayName))
			}
			return nil
		},
	}
}

// duelHandler pits the invoker's agent against the agent of the identity
// named by the `opponent` param (falling back to the redemption input).
func duelHandler(env Env) *Handler {
	return &Handler{
		Key:      "npc.duel",
		Affinity: binding.AffinityMain,
		Run: func(ctx context.Context, inv Invocation, params map[string]any) error {
			name := binding.StringParam(params, "opponent", "")
			if name == "" {
				name = strings.TrimSpace(inv.Message)
			}
			if name == "" {
				env.reply(inv, "Who do you want to duel? Name an opponent.")
				return nil
			}
			rec, ok, err := env.Links.ResolveByDisplayName(ctx, name)
			if err != nil {
				return err
			}
			if !ok {
				env.reply(inv, fmt.Sprintf("No agent belongs to %q yet.", name))
				return nil
			}
			announce := func(msg string) { env.reply(inv, msg) }
			if err := env.Duel.Start(ctx, inv.UserID, inv.DisplayName, rec.UserID, rec.UserName, announce); err != nil {
				return err
			}
			return nil
		},
	}
}
