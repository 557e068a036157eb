// Package state keeps short-lived session data so a reconnecting client can
// pick up where it left off. Data lives in a Store; the in-memory store is
// the only backend.
package state

import (
	"context"
	"errors"
	"time"
)

// Common store errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrStoreClosed = errors.New("store is closed")
	ErrInvalidData = errors.New("invalid data format")
)

// Store is the interface for state storage backends.
type Store interface {
	// Get retrieves a value by key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with optional TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns all keys matching a pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Close closes the store.
	Close() error
}

// Serializer handles serialization/deserialization.
type Serializer[T any] interface {
	Serialize(value T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

// TypedStore provides type-safe access to the store.
type TypedStore[T any] struct {
	store      Store
	serializer Serializer[T]
}

// NewTypedStore creates a new typed store wrapper.
func NewTypedStore[T any](store Store, serializer Serializer[T]) *TypedStore[T] {
	return &TypedStore[T]{
		store:      store,
		serializer: serializer,
	}
}

// Get retrieves and deserializes a value.
func (ts *TypedStore[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	data, err := ts.store.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	return ts.serializer.Deserialize(data)
}

// Set serializes and stores a value.
func (ts *TypedStore[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := ts.serializer.Serialize(value)
	if err != nil {
		return err
	}

	return ts.store.Set(ctx, key, data, ttl)
}

// Delete removes a key.
func (ts *TypedStore[T]) Delete(ctx context.Context, key string) error {
	return ts.store.Delete(ctx, key)
}

// Sessions stores one value per session id under a common key prefix.
type Sessions[T any] struct {
	typed     *TypedStore[T]
	store     Store
	keyPrefix string
	ttl       time.Duration
}

// SessionsOption configures Sessions.
type SessionsOption func(*sessionsConfig)

type sessionsConfig struct {
	keyPrefix string
	ttl       time.Duration
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) SessionsOption {
	return func(c *sessionsConfig) {
		c.keyPrefix = prefix
	}
}

// WithTTL sets how long a saved value survives without being refreshed.
func WithTTL(ttl time.Duration) SessionsOption {
	return func(c *sessionsConfig) {
		c.ttl = ttl
	}
}

// NewSessions creates a session store serialising values with MessagePack.
func NewSessions[T any](store Store, opts ...SessionsOption) *Sessions[T] {
	cfg := sessionsConfig{
		keyPrefix: "session:",
		ttl:       30 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Sessions[T]{
		typed:     NewTypedStore[T](store, NewGenericSerializer[T]()),
		store:     store,
		keyPrefix: cfg.keyPrefix,
		ttl:       cfg.ttl,
	}
}

// Save stores v for id, refreshing its TTL.
func (s *Sessions[T]) Save(ctx context.Context, id string, v T) error {
	return s.typed.Set(ctx, s.keyPrefix+id, v, s.ttl)
}

// Load returns the value for id, or ErrKeyNotFound.
func (s *Sessions[T]) Load(ctx context.Context, id string) (T, error) {
	return s.typed.Get(ctx, s.keyPrefix+id)
}

// Delete removes the value for id.
func (s *Sessions[T]) Delete(ctx context.Context, id string) error {
	return s.typed.Delete(ctx, s.keyPrefix+id)
}

// Count returns the number of live sessions.
func (s *Sessions[T]) Count(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, s.keyPrefix+"*")
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
