package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Common socket errors.
var (
	ErrSocketClosed   = errors.New("socket is closed")
	ErrSocketNotFound = errors.New("socket not found")
	ErrSendFailed     = errors.New("failed to send message")
)

// DefaultInfoBuffer is the capacity of a socket's info queue.
const DefaultInfoBuffer = 16

// Socket represents a live connection to a client. Besides the outbound
// path it carries an inbound queue of internal messages that background
// work posts back to the component owning the socket.
type Socket struct {
	id string

	connected   bool
	connectedAt time.Time

	// Unix nanoseconds.
	lastActivity atomic.Int64

	transport Transport

	info      chan any
	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

// Transport is the interface for underlying connection transports.
type Transport interface {
	Send(msg Message) error
	Close() error
	IsConnected() bool
}

// Message represents a message sent over the socket.
type Message struct {
	Ref     string         `json:"ref,omitempty"`
	Topic   string         `json:"topic"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewSocket creates a new socket with the given ID and transport.
func NewSocket(id string, transport Transport) *Socket {
	now := time.Now()
	s := &Socket{
		id:          id,
		connected:   true,
		connectedAt: now,
		transport:   transport,
		info:        make(chan any, DefaultInfoBuffer),
		done:        make(chan struct{}),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// ID returns the socket's unique identifier.
func (s *Socket) ID() string {
	return s.id
}

// Topic returns the channel topic used for pushes to this socket.
func (s *Socket) Topic() string {
	return "lv:" + s.id
}

// IsConnected returns true if the socket is connected.
func (s *Socket) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && s.transport != nil && s.transport.IsConnected()
}

// ConnectedAt returns when the socket connected.
func (s *Socket) ConnectedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectedAt
}

// LastActivity returns the time of last activity.
func (s *Socket) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// UpdateActivity updates the last activity timestamp.
func (s *Socket) UpdateActivity() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Send sends a message to the client.
func (s *Socket) Send(msg Message) error {
	s.mu.RLock()
	connected := s.connected
	transport := s.transport
	s.mu.RUnlock()

	if !connected || transport == nil {
		return ErrSocketClosed
	}
	if !transport.IsConnected() {
		return ErrSocketClosed
	}

	s.lastActivity.Store(time.Now().UnixNano())

	if err := transport.Send(msg); err != nil {
		s.mu.RLock()
		stillConnected := s.connected
		s.mu.RUnlock()
		if !stillConnected {
			return ErrSocketClosed
		}
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return nil
}

// Push sends an event to the client.
func (s *Socket) Push(event string, payload map[string]any) error {
	return s.Send(Message{
		Topic:   s.Topic(),
		Event:   event,
		Payload: payload,
	})
}

// SendInfo queues msg for the component's HandleInfo. It blocks while the
// queue is full and fails with ErrSocketClosed once the socket is closed.
func (s *Socket) SendInfo(msg any) error {
	select {
	case <-s.done:
		return ErrSocketClosed
	default:
	}

	select {
	case s.info <- msg:
		return nil
	case <-s.done:
		return ErrSocketClosed
	}
}

// Info returns the queue of messages posted with SendInfo.
func (s *Socket) Info() <-chan any {
	return s.info
}

// Done is closed when the socket closes.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// DiffPayload is the diff format sent to clients: changed text slots (s),
// changed HTML slots (h), or a full render (f) when the view has no slots.
type DiffPayload struct {
	Version   uint64            `json:"v"`
	Slots     map[string]string `json:"s,omitempty"`
	HTMLSlots map[string]string `json:"h,omitempty"`
	Full      string            `json:"f,omitempty"`
}

// IsEmpty returns true if the payload has no changes.
func (d *DiffPayload) IsEmpty() bool {
	return len(d.Slots) == 0 && len(d.HTMLSlots) == 0 && d.Full == ""
}

// Size returns the total size of the payload in bytes.
func (d *DiffPayload) Size() int {
	size := 0
	for _, content := range d.Slots {
		size += len(content)
	}
	for _, content := range d.HTMLSlots {
		size += len(content)
	}
	size += len(d.Full)
	return size
}

// SendDiff pushes a diff to the client. Empty payloads are not sent.
func (s *Socket) SendDiff(payload *DiffPayload) error {
	if payload == nil || payload.IsEmpty() {
		return nil
	}

	return s.Push("diff", map[string]any{
		"v": payload.Version,
		"s": payload.Slots,
		"h": payload.HTMLSlots,
		"f": payload.Full,
	})
}

// Close closes the socket connection. Pending SendInfo calls return
// ErrSocketClosed.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.connected = false
	transport := s.transport
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.done) })

	if transport != nil {
		return transport.Close()
	}
	return nil
}

// SocketManager tracks active sockets.
type SocketManager struct {
	sockets map[string]*Socket
	mu      sync.RWMutex
}

// NewSocketManager creates a new socket manager.
func NewSocketManager() *SocketManager {
	return &SocketManager{
		sockets: make(map[string]*Socket),
	}
}

// Add registers a socket.
func (sm *SocketManager) Add(socket *Socket) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sockets[socket.ID()] = socket
}

// Remove unregisters a socket.
func (sm *SocketManager) Remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sockets, id)
}

// Get retrieves a socket by ID.
func (sm *SocketManager) Get(id string) (*Socket, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sockets[id]
	return s, ok
}

// Count returns the number of active sockets.
func (sm *SocketManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sockets)
}

// All returns all sockets.
func (sm *SocketManager) All() []*Socket {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]*Socket, 0, len(sm.sockets))
	for _, s := range sm.sockets {
		result = append(result, s)
	}
	return result
}

// maxCloseWorkers bounds the goroutines used by CloseAll.
const maxCloseWorkers = 100

// CloseAll closes and unregisters every socket. It returns ctx's error if
// ctx ends first.
func (sm *SocketManager) CloseAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCloseWorkers)

	for _, s := range sm.All() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.Close()
			sm.Remove(s.ID())
			return nil
		})
	}
	g.Wait()
	return ctx.Err()
}

// CleanupInactive closes sockets inactive for longer than maxInactive.
func (sm *SocketManager) CleanupInactive(maxInactive time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	removed := 0

	for id, s := range sm.sockets {
		if now.Sub(s.LastActivity()) > maxInactive {
			s.Close()
			delete(sm.sockets, id)
			removed++
		}
	}

	return removed
}
