// Package audit records an append-only trail of security-relevant actions:
// email verification attempts and submissions of prospect data.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
)

// Event types.
const (
	EventCodeRequested   = "verification_code_requested"
	EventCodeFailed      = "verification_code_failed"
	EventEmailVerified   = "email_verified"
	EventCodeRejected    = "verification_code_rejected"
	EventVerifyFailed    = "verification_failed"
	EventSubmissionSent  = "submission_sent"
	EventSubmissionError = "submission_failed"
)

// Severity levels.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Event is one audit record. Subject identifies the prospect without
// storing their address; see Subject.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"event_type"`
	Severity  string         `json:"severity"`
	SessionID string         `json:"session_id,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Subject derives a stable pseudonymous identifier from an email address.
func Subject(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:8])
}

// Logger records audit events.
type Logger interface {
	Log(ctx context.Context, event Event)
	Close() error
}

// JSONLogger writes one JSON object per line.
type JSONLogger struct {
	mu      sync.Mutex
	encoder *json.Encoder
	writer  io.Writer
	now     func() time.Time
}

// NewJSONLogger creates a logger writing to w.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{encoder: json.NewEncoder(w), writer: w, now: time.Now}
}

// NewFileLogger appends to the file at path, creating it if needed.
func NewFileLogger(path string) (*JSONLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return NewJSONLogger(f), nil
}

// Log implements Logger.
func (l *JSONLogger) Log(ctx context.Context, event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	if err := l.encoder.Encode(event); err != nil {
		logging.L(ctx).Error("audit event not written",
			logging.String("event_type", event.Type),
			logging.Err(err),
		)
	}
}

// Close closes the underlying writer when it is closable.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
func (NopLogger) Close() error               { return nil }

// AsyncLogger hands events to a background writer so callers never block
// on disk I/O.
type AsyncLogger struct {
	logger Logger
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAsyncLogger wraps logger with a buffer of bufferSize events.
func NewAsyncLogger(logger Logger, bufferSize int) *AsyncLogger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	a := &AsyncLogger{
		logger: logger,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.worker()
	return a
}

func (a *AsyncLogger) worker() {
	defer a.wg.Done()
	ctx := context.Background()
	for {
		select {
		case event := <-a.events:
			a.logger.Log(ctx, event)
		case <-a.done:
			for {
				select {
				case event := <-a.events:
					a.logger.Log(ctx, event)
				default:
					return
				}
			}
		}
	}
}

// Log queues event. When the buffer is full the event is written inline.
func (a *AsyncLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case <-a.done:
		a.logger.Log(ctx, event)
		return
	default:
	}
	select {
	case a.events <- event:
	default:
		a.logger.Log(ctx, event)
	}
}

// Close flushes queued events and closes the wrapped logger.
func (a *AsyncLogger) Close() error {
	a.once.Do(func() { close(a.done) })
	a.wg.Wait()
	return a.logger.Close()
}
