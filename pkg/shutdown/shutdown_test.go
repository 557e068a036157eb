package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShutdown_RunsHooksInPriorityOrder(t *testing.T) {
	h := NewHandler(nil)

	var order []string
	h.RegisterFunc("store", PriorityStore, func(ctx context.Context) error {
		order = append(order, "store")
		return nil
	})
	h.Register(HTTPServerHook("http", func(ctx context.Context) error {
		order = append(order, "http")
		return nil
	}))
	h.RegisterFunc("sessions", PrioritySessions, func(ctx context.Context) error {
		order = append(order, "sessions")
		return nil
	})

	if err := h.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	want := []string{"http", "sessions", "store"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected %v, got %v", want, order)
			break
		}
	}

	if err := h.Shutdown(); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestShutdown_CollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	var reported []string

	h := NewHandler(&Config{
		Timeout: time.Second,
		OnHookComplete: func(name string, err error, d time.Duration) {
			reported = append(reported, name)
		},
	})
	h.RegisterFunc("a", PriorityFirst, func(ctx context.Context) error { return boom })
	h.RegisterFunc("b", PriorityLast, func(ctx context.Context) error { return nil })

	err := h.Shutdown()
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if len(reported) != 2 {
		t.Errorf("expected every hook to run, got %v", reported)
	}
}

func TestShutdown_Timeout(t *testing.T) {
	h := NewHandler(&Config{Timeout: 20 * time.Millisecond})
	ran := false
	h.RegisterFunc("slow", PriorityFirst, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.RegisterFunc("after", PriorityLast, func(ctx context.Context) error {
		ran = true
		return nil
	})

	if err := h.Shutdown(); !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("expected ErrShutdownTimeout, got %v", err)
	}
	if ran {
		t.Error("hooks after a timeout should not run")
	}
}

func TestWait_ContextCancel(t *testing.T) {
	h := NewHandler(nil)
	closed := false
	h.Register(CloseableHook("closer", PriorityStore, closerFunc(func() error {
		closed = true
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !closed || !h.IsClosed() {
		t.Error("expected hooks to run after cancellation")
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
