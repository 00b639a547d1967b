package dispatch

import (
	"context"
	"log"
	"strings"
	"sync"

	"chatcraft/internal/app/action"
	"chatcraft/internal/app/binding"
	"chatcraft/internal/domain/stream"
)

// TriggerPrefix is the character that marks a chat line as a command.
const TriggerPrefix = "!"

// Builtin is an explicitly registered command outside the binding config,
// such as the namespaced control command. Init runs lazily before the first
// dispatch; its failure is logged and never blocks.
type Builtin struct {
	Name       string
	Permission stream.Role
	Affinity   binding.ThreadAffinity
	Init       func(ctx context.Context) error
	Run        func(ctx context.Context, ev stream.CommandEvent) error

	initOnce sync.Once
}

// CommandDispatcher matches chat lines against command bindings and built-in
// registrations. It is single-consumer: Dispatch is called from one reader
// goroutine, so the derived index needs no lock.
type CommandDispatcher struct {
	Executor

	Bindings *binding.Store
	// NonCommand, when set, sees every non-command chat line. It must be
	// cheap and must not fail the fast path.
	NonCommand func(ev stream.CommandEvent)

	builtins    map[string]*Builtin
	index       map[string]binding.Binding
	lastVersion uint64
}

// NewCommandDispatcher builds a dispatcher over explicitly injected
// collaborators.
func NewCommandDispatcher(ex Executor, store *binding.Store, builtins ...*Builtin) *CommandDispatcher {
	d := &CommandDispatcher{
		Executor: ex,
		Bindings: store,
		builtins: map[string]*Builtin{},
	}
	for _, b := range builtins {
		d.builtins[strings.ToLower(b.Name)] = b
	}
	return d
}

// Dispatch handles one inbound chat line.
func (d *CommandDispatcher) Dispatch(ctx context.Context, id stream.Identity, channel, text string) {
	if !strings.HasPrefix(text, TriggerPrefix) {
		d.sideChannel(id, channel, text)
		return
	}

	tokens := strings.Fields(strings.TrimPrefix(text, TriggerPrefix))
	if len(tokens) == 0 {
		return
	}
	name := strings.ToLower(tokens[0])
	ev := stream.CommandEvent{
		Identity: id,
		Channel:  channel,
		Command:  name,
		Args:     tokens[1:],
		Raw:      text,
	}

	d.refreshIndex()

	if b, ok := d.index[name]; ok {
		d.dispatchBinding(ctx, b, ev)
		return
	}
	if bi, ok := d.builtins[name]; ok {
		d.dispatchBuiltin(ctx, bi, ev)
		return
	}
	// Unbound commands are silently ignored.
}

// refreshIndex rebuilds the name lookup only when the config generation
// advanced, never per event.
func (d *CommandDispatcher) refreshIndex() {
	v := d.Bindings.Version()
	if v == d.lastVersion && d.index != nil {
		return
	}
	snap := d.Bindings.Snapshot()
	idx := make(map[string]binding.Binding, len(snap.Commands))
	for _, b := range snap.Commands {
		key := strings.ToLower(b.Name)
		if _, dup := idx[key]; !dup {
			idx[key] = b
		}
	}
	d.index = idx
	d.lastVersion = v
}

func (d *CommandDispatcher) dispatchBinding(ctx context.Context, b binding.Binding, ev stream.CommandEvent) {
	inv := invocationFromCommand(ev)
	if !ev.Identity.Role.Satisfies(b.Permission) {
		d.deny(kindCommand, inv, ev.Channel, b.Permission)
		return
	}
	d.runBinding(ctx, kindCommand, b, inv)
}

func (d *CommandDispatcher) dispatchBuiltin(ctx context.Context, bi *Builtin, ev stream.CommandEvent) {
	inv := invocationFromCommand(ev)
	if !ev.Identity.Role.Satisfies(bi.Permission) {
		d.deny(kindCommand, inv, ev.Channel, bi.Permission)
		return
	}
	bi.initOnce.Do(func() {
		if bi.Init == nil {
			return
		}
		if err := bi.Init(ctx); err != nil {
			log.Printf("command %s: init: %v", bi.Name, err)
		}
	})
	aff := bi.Affinity
	if aff == binding.AffinityInherit {
		aff = binding.AffinityMain
	}
	d.invoke(ctx, kindCommand, aff, inv, func(ctx context.Context) error {
		return bi.Run(ctx, ev)
	})
}

func (d *CommandDispatcher) deny(kind string, inv action.Invocation, channel string, required stream.Role) {
	d.reply(channel, "@"+inv.DisplayName+" you need "+required.String()+" rank for that.")
	d.record(kind, inv, outcomeDenied, "requires "+required.String())
}

// sideChannel forwards plain chat to the cosmetic hook, isolated so it can
// never break or stall dispatch.
func (d *CommandDispatcher) sideChannel(id stream.Identity, channel, text string) {
	if d.NonCommand == nil {
		return
	}
	ev := stream.CommandEvent{Identity: id, Channel: channel, Raw: text}
	d.Sched.RunAsync(func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("chat side-channel: %v", rec)
			}
		}()
		d.NonCommand(ev)
	})
}

func invocationFromCommand(ev stream.CommandEvent) action.Invocation {
	return action.Invocation{
		UserID:      ev.Identity.UserID,
		DisplayName: ev.Identity.DisplayName,
		Channel:     ev.Channel,
		Message:     strings.Join(ev.Args, " "),
		Command:     ev.Command,
		Args:        ev.Args,
	}
}
