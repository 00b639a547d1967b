// Package action is the registry and executor for the generic, parameterized
// world actions that bindings can list. Handlers are registered under
// lowercase type keys and looked up case-insensitively; each action in a
// list executes in isolation so one failure never aborts its siblings.
package action

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"chatcraft/internal/app/binding"
)

// ErrHandlerNotFound marks an unknown action type. It fails that single
// action, not the whole list.
var ErrHandlerNotFound = errors.New("action handler not found")

// Invocation is the read-only context every handler receives, normalized
// from either a command event or a redemption event.
type Invocation struct {
	UserID      string
	DisplayName string
	Channel     string
	Message     string // chat message, or the redemption's user input
	RewardID    string
	RewardTitle string
	Command     string
	Args        []string
}

// Trigger names the invocation for log lines.
func (inv Invocation) Trigger() string {
	if inv.Command != "" {
		return "!" + inv.Command
	}
	if inv.RewardTitle != "" {
		return "redeem:" + inv.RewardTitle
	}
	return "redeem:" + inv.RewardID
}

// Handler is one registered action. Run must be safe to call repeatedly;
// Init, when set, is executed lazily once before the first dispatch and its
// failure is logged but never blocks execution.
type Handler struct {
	Key      string
	Affinity binding.ThreadAffinity // the handler's own thread preference
	Init     func(ctx context.Context) error
	Run      func(ctx context.Context, inv Invocation, params map[string]any) error

	initOnce sync.Once
}

// Registry maps lowercase action types to handlers. It is constructed
// explicitly and injected into the dispatchers; there is no package-level
// instance.
type Registry struct {
	handlers map[string]*Handler
}

func NewRegistry(handlers ...*Handler) *Registry {
	r := &Registry{handlers: map[string]*Handler{}}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// Register adds or replaces a handler under its lowercased key.
func (r *Registry) Register(h *Handler) {
	r.handlers[strings.ToLower(h.Key)] = h
}

// Lookup finds a handler by case-insensitive type key.
func (r *Registry) Lookup(key string) (*Handler, bool) {
	h, ok := r.handlers[strings.ToLower(key)]
	return h, ok
}

// EnsureInit lazily runs the handler's one-time init hook. Failure is logged
// and swallowed; dispatch proceeds regardless. Handlers may execute on main
// and worker goroutines at once, so the once guards the flag.
func (r *Registry) EnsureInit(ctx context.Context, h *Handler) {
	h.initOnce.Do(func() {
		if h.Init == nil {
			return
		}
		if err := h.Init(ctx); err != nil {
			log.Printf("action %s: init: %v", h.Key, err)
		}
	})
}

// ExecuteAction runs a single action by type. Unknown types are an error for
// this action only.
func (r *Registry) ExecuteAction(ctx context.Context, inv Invocation, typ string, params map[string]any) error {
	h, ok := r.Lookup(typ)
	if !ok {
		return fmt.Errorf("action %q: %w", typ, ErrHandlerNotFound)
	}
	r.EnsureInit(ctx, h)
	return runIsolated(h.Key, inv, func() error { return h.Run(ctx, inv, params) })
}

// ExecuteActions runs an ordered action list. Failures are logged per action
// with trigger and identity context; later actions still run.
func (r *Registry) ExecuteActions(ctx context.Context, inv Invocation, actions []binding.ActionSpec) {
	for _, a := range actions {
		if err := r.ExecuteAction(ctx, inv, a.Type, a.Params); err != nil {
			log.Printf("action %s (trigger %s, user %s): %v", a.Type, inv.Trigger(), inv.DisplayName, err)
		}
	}
}

// runIsolated converts a handler panic into an error so one misbehaving
// action cannot take down the dispatch loop.
func runIsolated(key string, inv Invocation, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("action %s panicked handling %s: %v", key, inv.Trigger(), rec)
		}
	}()
	return fn()
}
