package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"chatcraft/internal/app/action"
	"chatcraft/internal/app/binding"
	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/stream"
)

// ControlDeps are the core operations the control command surfaces.
type ControlDeps struct {
	Registry *action.Registry
	Replier  ports.Replier
	// Reload re-reads the binding config from disk.
	Reload func(ctx context.Context) error
}

// ControlCommand builds the namespaced built-in command (default "cc") with
// the help/spawn/duel/aggro/attack/reload subcommands. The whole command is
// open; the destructive subcommands gate on moderator themselves.
func ControlCommand(name string, deps ControlDeps) *Builtin {
	if name == "" {
		name = "cc"
	}
	return &Builtin{
		Name:       name,
		Permission: stream.RoleEveryone,
		Affinity:   binding.AffinityMain,
		Run: func(ctx context.Context, ev stream.CommandEvent) error {
			return runControl(ctx, name, deps, ev)
		},
	}
}

func runControl(ctx context.Context, name string, deps ControlDeps, ev stream.CommandEvent) error {
	sub := "help"
	if len(ev.Args) > 0 {
		sub = strings.ToLower(ev.Args[0])
	}
	var rest []string
	if len(ev.Args) > 1 {
		rest = ev.Args[1:]
	}
	inv := invocationFromCommand(ev)

	switch sub {
	case "help":
		deps.Replier.Reply(ev.Channel, fmt.Sprintf(
			"!%s spawn | duel <name> | aggro <name> [seconds] | attack <name> [seconds] [hearts] | reload", name))
		return nil

	case "spawn":
		return deps.Registry.ExecuteAction(ctx, inv, "npc.spawn", nil)

	case "duel":
		if len(rest) < 1 {
			deps.Replier.Reply(ev.Channel, "Usage: !"+name+" duel <name>")
			return nil
		}
		return deps.Registry.ExecuteAction(ctx, inv, "npc.duel", map[string]any{"opponent": rest[0]})

	case "aggro", "attack":
		if !ev.Identity.Role.Satisfies(stream.RoleModerator) {
			deps.Replier.Reply(ev.Channel, "@"+ev.Identity.DisplayName+" you need moderator rank for that.")
			return nil
		}
		if len(rest) < 1 {
			deps.Replier.Reply(ev.Channel, "Usage: !"+name+" "+sub+" <name> [seconds]")
			return nil
		}
		params := map[string]any{"target": rest[0]}
		if len(rest) > 1 {
			if _, err := strconv.Atoi(rest[1]); err != nil {
				deps.Replier.Reply(ev.Channel, "Seconds must be a number.")
				return nil
			}
			params["seconds"] = rest[1]
		}
		if sub == "attack" && len(rest) > 2 {
			params["hearts"] = rest[2]
		}
		return deps.Registry.ExecuteAction(ctx, inv, "npc."+sub, params)

	case "reload", "reloadtwitch":
		if !ev.Identity.Role.Satisfies(stream.RoleModerator) {
			deps.Replier.Reply(ev.Channel, "@"+ev.Identity.DisplayName+" you need moderator rank for that.")
			return nil
		}
		if err := deps.Reload(ctx); err != nil {
			deps.Replier.Reply(ev.Channel, "Reload failed: "+err.Error())
			return err
		}
		deps.Replier.Reply(ev.Channel, "Bindings reloaded.")
		return nil

	default:
		deps.Replier.Reply(ev.Channel, "Unknown subcommand; try !"+name+" help")
		return nil
	}
}
