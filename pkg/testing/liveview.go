// Package testing provides a harness for driving live components without a
// browser or WebSocket connection.
package testing

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gabrielmiguelok/intakewizard/pkg/core"
)

// LiveViewTest drives one mounted component the way the router would:
// events and info messages are handled one at a time and the component is
// re-rendered after each.
type LiveViewTest struct {
	component core.Component
	transport *MockSocket
	socket    *core.Socket
	ctx       context.Context
	rendered  string
	events    []core.Event
	t         testing.TB
}

type mountConfig struct {
	params  core.Params
	session core.Session
}

// MountOption configures the test mount.
type MountOption func(*mountConfig)

// WithParams sets mount parameters.
func WithParams(params core.Params) MountOption {
	return func(c *mountConfig) {
		c.params = params
	}
}

// WithSession sets session data.
func WithSession(session core.Session) MountOption {
	return func(c *mountConfig) {
		c.session = session
	}
}

// Mount attaches a socket to comp, mounts it and renders it once. The
// component is terminated when the test ends.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	cfg := mountConfig{params: core.Params{}, session: core.Session{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	transport := NewMockSocket()
	socket := core.NewSocket(transport.ID, transport)
	if setter, ok := comp.(interface{ SetSocket(*core.Socket) }); ok {
		setter.SetSocket(socket)
	}

	ctx, cancel := context.WithCancel(context.Background())

	lvt := &LiveViewTest{
		component: comp,
		transport: transport,
		socket:    socket,
		ctx:       ctx,
		t:         t,
	}

	t.Cleanup(func() {
		comp.Terminate(context.Background(), core.TerminateNormal)
		cancel()
		socket.Close()
	})

	if err := comp.Mount(ctx, cfg.params, cfg.session); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	lvt.render()

	return lvt
}

// EventOption configures an event payload.
type EventOption func(*core.Event)

// WithPayload replaces the event payload.
func WithPayload(payload map[string]any) EventOption {
	return func(e *core.Event) {
		e.Payload = payload
	}
}

// WithValue adds a value to the event payload, as an lv-value-* attribute
// would.
func WithValue(key string, value any) EventOption {
	return func(e *core.Event) {
		if e.Payload == nil {
			e.Payload = make(map[string]any)
		}
		e.Payload[key] = value
	}
}

// Click simulates an lv-click on an element bound to event.
func (lvt *LiveViewTest) Click(event string, opts ...EventOption) *LiveViewTest {
	lvt.t.Helper()

	e := core.Event{Type: "click", Target: event}
	for _, opt := range opts {
		opt(&e)
	}

	lvt.mustPush(e)
	return lvt
}

// Change simulates an lv-change on the input called name.
func (lvt *LiveViewTest) Change(event, name, value string) *LiveViewTest {
	lvt.t.Helper()

	lvt.mustPush(core.Event{
		Type:    "change",
		Target:  event,
		Payload: map[string]any{"name": name, "value": value},
	})
	return lvt
}

// Submit simulates an lv-submit with the given form values.
func (lvt *LiveViewTest) Submit(event string, data map[string]string) *LiveViewTest {
	lvt.t.Helper()

	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}

	lvt.mustPush(core.Event{Type: "submit", Target: event, Payload: payload})
	return lvt
}

// Push sends event to the component and returns its error, re-rendering on
// success.
func (lvt *LiveViewTest) Push(event string, payload map[string]any) error {
	lvt.t.Helper()
	return lvt.push(core.Event{Type: "push", Target: event, Payload: payload})
}

func (lvt *LiveViewTest) mustPush(e core.Event) {
	lvt.t.Helper()
	if err := lvt.push(e); err != nil {
		lvt.t.Errorf("HandleEvent(%s) failed: %v", e.Target, err)
	}
}

func (lvt *LiveViewTest) push(e core.Event) error {
	lvt.t.Helper()

	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	lvt.events = append(lvt.events, e)

	if err := lvt.component.HandleEvent(lvt.ctx, e.Target, e.Payload); err != nil {
		return err
	}
	lvt.render()
	return nil
}

// SendInfo hands msg straight to the component.
func (lvt *LiveViewTest) SendInfo(msg any) *LiveViewTest {
	lvt.t.Helper()

	if err := lvt.component.HandleInfo(lvt.ctx, msg); err != nil {
		lvt.t.Errorf("HandleInfo failed: %v", err)
		return lvt
	}

	lvt.render()
	return lvt
}

// AwaitInfo waits for the component's background work to post a message on
// its socket and handles it. It fails the test after timeout.
func (lvt *LiveViewTest) AwaitInfo(timeout time.Duration) *LiveViewTest {
	lvt.t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-lvt.socket.Info():
		return lvt.SendInfo(msg)
	case <-timer.C:
		lvt.t.Fatalf("no info message within %v", timeout)
		return lvt
	}
}

// PendingInfo reports how many posted messages have not been handled yet.
func (lvt *LiveViewTest) PendingInfo() int {
	return len(lvt.socket.Info())
}

func (lvt *LiveViewTest) render() {
	lvt.t.Helper()

	renderer := lvt.component.Render(lvt.ctx)
	if renderer == nil {
		lvt.t.Fatal("Render returned nil")
	}

	var buf bytes.Buffer
	if err := renderer.Render(lvt.ctx, &buf); err != nil {
		lvt.t.Fatalf("Render failed: %v", err)
	}

	lvt.rendered = buf.String()
}

// Rendered returns the current rendered HTML.
func (lvt *LiveViewTest) Rendered() string {
	return lvt.rendered
}

// HTML returns assertions over the current render.
func (lvt *LiveViewTest) HTML() *HTMLAssert {
	return NewHTMLAssert(lvt.t, lvt.rendered)
}

// AssertText verifies the rendered output contains text.
func (lvt *LiveViewTest) AssertText(text string) *LiveViewTest {
	lvt.t.Helper()

	if !strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("Text not found: %q\nRendered HTML:\n%s", text, lvt.rendered)
	}
	return lvt
}

// AssertNoText verifies the rendered output does not contain text.
func (lvt *LiveViewTest) AssertNoText(text string) *LiveViewTest {
	lvt.t.Helper()

	if strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("Text should not exist: %q", text)
	}
	return lvt
}

// AssertSocketSentCount verifies the number of messages pushed to the client.
func (lvt *LiveViewTest) AssertSocketSentCount(count int) *LiveViewTest {
	lvt.t.Helper()

	if actual := lvt.transport.SentCount(); actual != count {
		lvt.t.Errorf("Socket sent count mismatch: expected %d, got %d", count, actual)
	}
	return lvt
}

// Transport returns the mock transport behind the component's socket.
func (lvt *LiveViewTest) Transport() *MockSocket {
	return lvt.transport
}

// Component returns the component under test.
func (lvt *LiveViewTest) Component() core.Component {
	return lvt.component
}

// Events returns all events that were pushed.
func (lvt *LiveViewTest) Events() []core.Event {
	return lvt.events
}
