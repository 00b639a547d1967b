// Package dispatch routes inbound chat commands and reward redemptions to
// bound actions or built-in handlers: permission gate, binding lookup against
// the current config generation, thread-affinity choice, and isolated
// execution. Nothing in here may let a handler failure reach the event
// source.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"chatcraft/internal/app/action"
	"chatcraft/internal/app/binding"
	"chatcraft/internal/app/ports"
)

const (
	kindCommand = "command"
	kindRedeem  = "redeem"

	outcomeOK        = "ok"
	outcomeDenied    = "denied"
	outcomeFailed    = "failed"
	outcomeUnmatched = "unmatched"
)

// Executor is the half both dispatchers share: binding execution with thread
// affinity, journaling and metrics.
type Executor struct {
	Registry *action.Registry
	Sched    ports.Scheduler
	Replier  ports.Replier
	Journal  ports.JournalRepository
	Metrics  ports.DispatchMetrics
	Now      func() time.Time
}

// runBinding executes b's work item for inv on the chosen thread. The action
// list takes precedence over the handler key when both are present.
func (e *Executor) runBinding(ctx context.Context, kind string, b binding.Binding, inv action.Invocation) {
	if len(b.Actions) > 0 {
		e.invoke(ctx, kind, e.affinity(b, nil), inv, func(ctx context.Context) error {
			e.Registry.ExecuteActions(ctx, inv, b.Actions)
			return nil
		})
		return
	}

	h, ok := e.Registry.Lookup(b.HandlerKey)
	if !ok {
		log.Printf("dispatch %s %s: handler %q not registered", kind, inv.Trigger(), b.HandlerKey)
		e.record(kind, inv, outcomeFailed, "handler not registered: "+b.HandlerKey)
		return
	}
	e.Registry.EnsureInit(ctx, h)
	e.invoke(ctx, kind, e.affinity(b, h), inv, func(ctx context.Context) error {
		return e.Registry.ExecuteAction(ctx, inv, b.HandlerKey, b.Params)
	})
}

// affinity picks the execution thread: explicit binding override, then the
// handler's own preference, then main.
func (e *Executor) affinity(b binding.Binding, h *action.Handler) binding.ThreadAffinity {
	if b.Affinity != binding.AffinityInherit {
		return b.Affinity
	}
	if h != nil && h.Affinity != binding.AffinityInherit {
		return h.Affinity
	}
	return binding.AffinityMain
}

// invoke runs fn on the chosen thread with panic isolation, then records the
// outcome. Failures are logged with the trigger and identity and never
// propagate to the event source.
func (e *Executor) invoke(ctx context.Context, kind string, aff binding.ThreadAffinity, inv action.Invocation, fn func(context.Context) error) {
	wrapped := func() {
		err := guarded(inv, fn, ctx)
		if err != nil {
			log.Printf("dispatch %s %s (user %s): %v", kind, inv.Trigger(), inv.DisplayName, err)
			e.record(kind, inv, outcomeFailed, err.Error())
			return
		}
		e.record(kind, inv, outcomeOK, "")
	}
	if aff == binding.AffinityBackground {
		e.Sched.RunAsync(wrapped)
	} else {
		e.Sched.Run(wrapped)
	}
}

func guarded(inv action.Invocation, fn func(context.Context) error, ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic on %s: %v", inv.Trigger(), rec)
		}
	}()
	return fn(ctx)
}

// record journals and counts one dispatch outcome. Journal writes are I/O
// and always leave the main thread.
func (e *Executor) record(kind string, inv action.Invocation, outcome, detail string) {
	switch outcome {
	case outcomeOK:
		e.Metrics.RecordMatched(kind)
	case outcomeDenied:
		e.Metrics.RecordDenied(kind)
	case outcomeFailed:
		e.Metrics.RecordFailed(kind)
	case outcomeUnmatched:
		e.Metrics.RecordUnmatched(kind)
	}
	if e.Journal == nil {
		return
	}
	entry := ports.JournalEntry{
		TriggerKind: kind,
		Trigger:     inv.Trigger(),
		UserID:      inv.UserID,
		UserName:    inv.DisplayName,
		Outcome:     outcome,
		Detail:      detail,
		OccurredAt:  e.now(),
	}
	e.Sched.RunAsync(func() {
		if err := e.Journal.Append(context.Background(), entry); err != nil {
			log.Printf("journal %s %s: %v", kind, entry.Trigger, err)
		}
	})
}

func (e *Executor) reply(channel, msg string) {
	if e.Replier != nil {
		e.Replier.Reply(channel, msg)
	}
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
