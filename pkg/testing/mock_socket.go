package testing

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/intakewizard/pkg/core"
)

// MockSocket implements core.Transport and records what was pushed.
type MockSocket struct {
	ID        string
	Connected bool
	Sent      []core.Message
	Closed    bool

	errorToSend error

	mu sync.Mutex
}

// NewMockSocket creates a new mock socket.
func NewMockSocket() *MockSocket {
	return &MockSocket{
		ID:        "test-socket-" + uuid.NewString()[:8],
		Connected: true,
	}
}

// Send records a sent message.
func (ms *MockSocket) Send(msg core.Message) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.errorToSend != nil {
		return ms.errorToSend
	}
	if ms.Closed {
		return core.ErrSocketClosed
	}

	ms.Sent = append(ms.Sent, msg)
	return nil
}

// Close marks the socket as closed.
func (ms *MockSocket) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.Closed = true
	ms.Connected = false
	return nil
}

// IsConnected returns the connection status.
func (ms *MockSocket) IsConnected() bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.Connected && !ms.Closed
}

// SentCount returns the number of sent messages.
func (ms *MockSocket) SentCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.Sent)
}

// SentMessages returns all sent messages.
func (ms *MockSocket) SentMessages() []core.Message {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	result := make([]core.Message, len(ms.Sent))
	copy(result, ms.Sent)
	return result
}

// SetError makes subsequent sends fail with err. A nil err clears it.
func (ms *MockSocket) SetError(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errorToSend = err
}

// AssertSent reports whether a message with the given event was sent.
func (ms *MockSocket) AssertSent(event string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, msg := range ms.Sent {
		if msg.Event == event {
			return true
		}
	}
	return false
}

// ManualClock is a clock that only moves when told to.
type ManualClock struct {
	now time.Time
	mu  sync.Mutex
}

// NewManualClock creates a clock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
