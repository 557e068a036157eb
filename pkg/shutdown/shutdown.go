// Package shutdown runs ordered cleanup hooks when the process is asked to
// stop.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Common shutdown errors.
var (
	ErrShutdownTimeout = errors.New("shutdown timed out")
	ErrAlreadyClosed   = errors.New("shutdown handler already closed")
)

// Hook priorities. Lower runs earlier.
const (
	PriorityFirst    = 0
	PriorityHTTP     = 100
	PrioritySessions = 200
	PriorityStore    = 300
	PriorityLast     = 1000
)

// Hook represents a shutdown hook.
type Hook struct {
	// Name identifies the hook for logging.
	Name string

	// Priority determines execution order (lower = earlier).
	Priority int

	// Fn is the function to execute during shutdown.
	Fn func(ctx context.Context) error
}

// Config configures the shutdown handler.
type Config struct {
	// Timeout is the maximum time to wait for graceful shutdown.
	Timeout time.Duration

	// Signals are the OS signals to listen for.
	Signals []os.Signal

	// OnHookComplete is called when a hook completes.
	OnHookComplete func(name string, err error, duration time.Duration)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Handler manages graceful shutdown.
type Handler struct {
	config *Config
	hooks  []Hook
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

// NewHandler creates a new shutdown handler.
func NewHandler(config *Config) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	return &Handler{
		config: config,
		done:   make(chan struct{}),
	}
}

// Register adds a shutdown hook.
func (h *Handler) Register(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// RegisterFunc is a convenience method to register a function as a hook.
func (h *Handler) RegisterFunc(name string, priority int, fn func(ctx context.Context) error) {
	h.Register(Hook{
		Name:     name,
		Priority: priority,
		Fn:       fn,
	})
}

// Wait blocks until a configured signal arrives or ctx is cancelled, then
// runs the hooks. It returns nil without running hooks if Shutdown was
// already called.
func (h *Handler) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, h.config.Signals...)
	defer stop()

	select {
	case <-sigCtx.Done():
	case <-h.done:
		return nil
	}

	return h.Shutdown()
}

// Shutdown runs every hook in priority order. Hooks with equal priority
// keep their registration order.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrAlreadyClosed
	}
	h.closed = true
	close(h.done)

	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Priority < hooks[j].Priority
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var errs []error
	for _, hook := range hooks {
		start := time.Now()
		err := hook.Fn(ctx)

		if h.config.OnHookComplete != nil {
			h.config.OnHookComplete(hook.Name, err, time.Since(start))
		}
		if err != nil {
			errs = append(errs, err)
		}

		if ctx.Err() != nil {
			return errors.Join(append(errs, ErrShutdownTimeout)...)
		}
	}

	return errors.Join(errs...)
}

// Done returns a channel that's closed when shutdown begins.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// IsClosed returns true if the handler has been closed.
func (h *Handler) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// HTTPServerHook creates a hook for shutting down an HTTP server.
func HTTPServerHook(name string, shutdownFn func(ctx context.Context) error) Hook {
	return Hook{
		Name:     name,
		Priority: PriorityHTTP,
		Fn:       shutdownFn,
	}
}

// CloseableHook creates a hook for anything with a Close() method.
func CloseableHook(name string, priority int, closer interface{ Close() error }) Hook {
	return Hook{
		Name:     name,
		Priority: priority,
		Fn: func(ctx context.Context) error {
			return closer.Close()
		},
	}
}
