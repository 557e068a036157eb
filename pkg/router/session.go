package router

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gabrielmiguelok/intakewizard/pkg/core"
	"github.com/gabrielmiguelok/intakewizard/pkg/transport"
)

// LiveViewSession binds one mounted component to its connection.
type LiveViewSession struct {
	// ID is the session's unique identifier.
	ID string

	// SocketID is the ID of the associated socket.
	SocketID string

	Component core.Component
	Socket    *core.Socket
	Transport transport.Transport

	Params  core.Params
	Session core.Session

	// Topic is the channel topic the client joined.
	Topic string

	CreatedAt time.Time

	// limiter throttles client events; nil means unlimited.
	limiter *rate.Limiter

	joinRef      string
	lastActivity time.Time
	mounted      bool
	version      uint64

	slotHashes map[string]uint64

	mu sync.RWMutex
}

// NewLiveViewSession creates a session for comp on socketID.
func NewLiveViewSession(socketID string, comp core.Component, params core.Params, session core.Session) *LiveViewSession {
	now := time.Now()
	return &LiveViewSession{
		ID:           uuid.NewString(),
		SocketID:     socketID,
		Component:    comp,
		Params:       params,
		Session:      session,
		Topic:        "lv:" + socketID,
		CreatedAt:    now,
		lastActivity: now,
	}
}

// UpdateActivity records client activity.
func (s *LiveViewSession) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns the time of the last client message.
func (s *LiveViewSession) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// SetMounted marks the component as mounted.
func (s *LiveViewSession) SetMounted(mounted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = mounted
}

// IsMounted reports whether the component was mounted.
func (s *LiveViewSession) IsMounted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

// SetJoinRef stores the ref of the join message.
func (s *LiveViewSession) SetJoinRef(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinRef = ref
}

// JoinRef returns the ref of the join message.
func (s *LiveViewSession) JoinRef() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joinRef
}

// Allow reports whether another client event may be processed now.
func (s *LiveViewSession) Allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

// nextVersion returns the next diff version.
func (s *LiveViewSession) nextVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	return s.version
}

// swapSlotHashes stores hashes and returns the previous set.
func (s *LiveViewSession) swapSlotHashes(hashes map[string]uint64) map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.slotHashes
	s.slotHashes = hashes
	return prev
}

// LiveViewSessionManager tracks active sessions by ID and socket.
type LiveViewSessionManager struct {
	sessions map[string]*LiveViewSession
	bySocket map[string]*LiveViewSession
	mu       sync.RWMutex
}

// NewLiveViewSessionManager creates an empty manager.
func NewLiveViewSessionManager() *LiveViewSessionManager {
	return &LiveViewSessionManager{
		sessions: make(map[string]*LiveViewSession),
		bySocket: make(map[string]*LiveViewSession),
	}
}

// Create creates and registers a session.
func (m *LiveViewSessionManager) Create(socketID string, comp core.Component, params core.Params, session core.Session) *LiveViewSession {
	lvSession := NewLiveViewSession(socketID, comp, params, session)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[lvSession.ID] = lvSession
	m.bySocket[socketID] = lvSession

	return lvSession
}

// Get returns a session by ID.
func (m *LiveViewSessionManager) Get(sessionID string) (*LiveViewSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// GetBySocket returns a session by socket ID.
func (m *LiveViewSessionManager) GetBySocket(socketID string) (*LiveViewSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.bySocket[socketID]
	return s, ok
}

// Remove unregisters a session. It reports whether the session was present.
func (m *LiveViewSessionManager) Remove(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.bySocket, s.SocketID)
		delete(m.sessions, sessionID)
	}
	return ok
}

// Count returns the number of active sessions.
func (m *LiveViewSessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
