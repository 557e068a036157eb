// Package core provides the component and socket abstractions the live
// runtime is built on.
package core

import (
	"context"
	"io"
)

// Component is a stateful server-side view. The runtime mounts it once per
// connection, feeds it client events and internal messages, and re-renders
// after each one.
type Component interface {
	// Name identifies the component type in logs.
	Name() string

	// Mount is called once, before the first render.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the current HTML representation.
	Render(ctx context.Context) Renderer

	// HandleEvent processes a client interaction.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// HandleInfo processes a message posted with Socket.SendInfo, typically
	// the result of background work.
	HandleInfo(ctx context.Context, msg any) error

	// Terminate is called when the connection goes away.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Renderer writes HTML.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc is an adapter to allow ordinary functions to be used as Renderers.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Params contains URL query parameters from the connection.
type Params map[string]string

// Get returns a parameter value or empty string if not found.
func (p Params) Get(key string) string {
	return p[key]
}

// GetDefault returns a parameter value or the default if not found.
func (p Params) GetDefault(key, defaultValue string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return defaultValue
}

// Session contains per-visitor data extracted from the HTTP request.
type Session map[string]any

// Get returns a session value.
func (s Session) Get(key string) any {
	return s[key]
}

// GetString returns a session value as string.
func (s Session) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// TerminateReason indicates why a component is being terminated.
type TerminateReason int

const (
	// TerminateNormal indicates clean disconnection.
	TerminateNormal TerminateReason = iota
	// TerminateShutdown indicates server shutdown.
	TerminateShutdown
	// TerminateError indicates termination due to an error.
	TerminateError
	// TerminateTimeout indicates termination due to inactivity.
	TerminateTimeout
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	case TerminateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// BaseComponent provides no-op implementations of the optional Component
// methods. Embed it to avoid implementing unused methods.
type BaseComponent struct {
	socket *Socket
}

// SetSocket sets the socket for the component (called by the runtime).
func (bc *BaseComponent) SetSocket(s *Socket) {
	bc.socket = s
}

// Socket returns the component's socket connection, or nil before the
// runtime attached one.
func (bc *BaseComponent) Socket() *Socket {
	return bc.socket
}

// Name returns an empty string (override in your component).
func (bc *BaseComponent) Name() string {
	return ""
}

// Mount does nothing by default.
func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

// HandleEvent does nothing by default.
func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

// HandleInfo does nothing by default.
func (bc *BaseComponent) HandleInfo(ctx context.Context, msg any) error {
	return nil
}

// Terminate does nothing by default.
func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}

// Event represents a user interaction event.
type Event struct {
	Type    string         `json:"type"`
	Target  string         `json:"target"`
	Payload map[string]any `json:"payload,omitempty"`
}
