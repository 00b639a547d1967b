package action

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"chatcraft/internal/app/binding"
)

func TestRegistry_LookupIsCaseInsensitive(t *testing.T) {
	called := 0
	r := NewRegistry(&Handler{
		Key: "Player.Fireworks",
		Run: func(context.Context, Invocation, map[string]any) error { called++; return nil },
	})

	if err := r.ExecuteAction(context.Background(), Invocation{}, "PLAYER.fireworks", nil); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if called != 1 {
		t.Fatalf("handler ran %d times", called)
	}
}

func TestRegistry_UnknownTypeFailsSingleAction(t *testing.T) {
	r := NewRegistry()
	err := r.ExecuteAction(context.Background(), Invocation{}, "no.such", nil)
	if !errors.Is(err, ErrHandlerNotFound) {
		t.Fatalf("want ErrHandlerNotFound, got %v", err)
	}
}

func TestExecuteActions_LaterActionsRunAfterFailure(t *testing.T) {
	var order []string
	r := NewRegistry(
		&Handler{Key: "a.fail", Run: func(context.Context, Invocation, map[string]any) error {
			order = append(order, "fail")
			return errors.New("boom")
		}},
		&Handler{Key: "a.panic", Run: func(context.Context, Invocation, map[string]any) error {
			order = append(order, "panic")
			panic("kaboom")
		}},
		&Handler{Key: "a.ok", Run: func(context.Context, Invocation, map[string]any) error {
			order = append(order, "ok")
			return nil
		}},
	)

	r.ExecuteActions(context.Background(), Invocation{Command: "x"}, []binding.ActionSpec{
		{Type: "a.fail"},
		{Type: "a.panic"},
		{Type: "missing.type"},
		{Type: "a.ok"},
	})

	want := []string{"fail", "panic", "ok"}
	if len(order) != len(want) {
		t.Fatalf("ran %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ran %v, want %v", order, want)
		}
	}
}

func TestEnsureInit_RunsOnceAndSwallowsFailure(t *testing.T) {
	inits := 0
	h := &Handler{
		Key:  "x.y",
		Init: func(context.Context) error { inits++; return errors.New("init broken") },
		Run:  func(context.Context, Invocation, map[string]any) error { return nil },
	}
	r := NewRegistry(h)

	for i := 0; i < 3; i++ {
		if err := r.ExecuteAction(context.Background(), Invocation{}, "x.y", nil); err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
	}
	if inits != 1 {
		t.Fatalf("init ran %d times", inits)
	}
}

// A main-thread dispatch and a background-affinity execution can hit the
// same handler at once; init must still run exactly once.
func TestEnsureInit_ConcurrentFirstDispatch(t *testing.T) {
	var inits atomic.Int32
	h := &Handler{
		Key:  "x.y",
		Init: func(context.Context) error { inits.Add(1); return nil },
		Run:  func(context.Context, Invocation, map[string]any) error { return nil },
	}
	r := NewRegistry(h)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.ExecuteAction(context.Background(), Invocation{}, "x.y", nil); err != nil {
				t.Errorf("execute: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inits.Load(); got != 1 {
		t.Fatalf("init ran %d times", got)
	}
}
