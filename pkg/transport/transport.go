// Package transport carries live-view messages between browser and server.
// WebSocket is the only transport; the browser client speaks the same JSON
// message shape in both directions.
package transport

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Common transport errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendTimeout      = errors.New("send timeout")
	ErrTransportFull    = errors.New("transport buffer full")
)

// Transport is a bidirectional message channel to one client.
type Transport interface {
	// Send queues a message for the client.
	Send(msg Message) error

	// Receive returns a channel for incoming messages.
	Receive() <-chan Message

	// CloseChan is closed once the connection ends.
	CloseChan() <-chan struct{}

	// Close terminates the connection.
	Close() error

	// IsConnected returns true if connected.
	IsConnected() bool
}

// Message represents a message sent over a transport.
type Message struct {
	// Ref correlates a reply with the request that caused it.
	Ref string `json:"ref,omitempty"`

	// Topic is the channel the message is for.
	Topic string `json:"topic"`

	// Event is the event type.
	Event string `json:"event"`

	// Payload contains the message data.
	Payload map[string]any `json:"payload,omitempty"`
}

// Marshal serializes the message to JSON.
func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal deserializes a message from JSON.
func Unmarshal(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}

// TransportConfig holds common transport configuration.
type TransportConfig struct {
	// ReadTimeout bounds how long a connection may stay silent. Clients
	// send heartbeats well inside it.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for a write.
	WriteTimeout time.Duration

	// PingInterval is how often the server pings the client.
	PingInterval time.Duration

	// MaxMessageSize is the maximum message size in bytes.
	MaxMessageSize int64

	// SendBufferSize is the size of the send channel buffer.
	SendBufferSize int

	// ReceiveBufferSize is the size of the receive channel buffer.
	ReceiveBufferSize int
}

// DefaultTransportConfig returns sensible defaults.
func DefaultTransportConfig() *TransportConfig {
	return &TransportConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendBufferSize:    64,
		ReceiveBufferSize: 64,
	}
}

// BaseTransport provides the channel plumbing shared by transports.
type BaseTransport struct {
	config    *TransportConfig
	connected bool
	sendCh    chan Message
	recvCh    chan Message
	closeCh   chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
}

// NewBaseTransport creates a new base transport.
func NewBaseTransport(config *TransportConfig) *BaseTransport {
	if config == nil {
		config = DefaultTransportConfig()
	}
	return &BaseTransport{
		config:  config,
		sendCh:  make(chan Message, config.SendBufferSize),
		recvCh:  make(chan Message, config.ReceiveBufferSize),
		closeCh: make(chan struct{}),
	}
}

// Config returns the transport configuration.
func (t *BaseTransport) Config() *TransportConfig {
	return t.config
}

// IsConnected returns the connection status.
func (t *BaseTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// SetConnected updates the connection status.
func (t *BaseTransport) SetConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = connected
}

// Receive returns the receive channel.
func (t *BaseTransport) Receive() <-chan Message {
	return t.recvCh
}

// CloseChan returns the close channel.
func (t *BaseTransport) CloseChan() <-chan struct{} {
	return t.closeCh
}

// Close marks the transport closed. It is safe to call more than once.
func (t *BaseTransport) Close() error {
	t.closeOnce.Do(func() {
		t.SetConnected(false)
		close(t.closeCh)
	})
	return nil
}

// PushMessage delivers msg to the receive channel without blocking.
func (t *BaseTransport) PushMessage(msg Message) error {
	select {
	case <-t.closeCh:
		return ErrConnectionClosed
	default:
	}

	select {
	case t.recvCh <- msg:
		return nil
	case <-t.closeCh:
		return ErrConnectionClosed
	default:
		return ErrTransportFull
	}
}
