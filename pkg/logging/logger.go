// Package logging provides structured logging over log/slog.
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is one key/value pair of a log record.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err records err under the "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// SlogLogger implements Logger on a slog handler.
type SlogLogger struct {
	logger *slog.Logger
}

type loggerConfig struct {
	level  slog.Level
	output io.Writer
	json   bool
}

// LoggerOption configures NewSlogLogger.
type LoggerOption func(*loggerConfig)

// WithLevel sets the minimum level written.
func WithLevel(level slog.Level) LoggerOption {
	return func(c *loggerConfig) { c.level = level }
}

// WithOutput sets the writer records go to. Defaults to stdout.
func WithOutput(w io.Writer) LoggerOption {
	return func(c *loggerConfig) { c.output = w }
}

// WithJSON switches from logfmt-style text to one JSON object per line.
func WithJSON() LoggerOption {
	return func(c *loggerConfig) { c.json = true }
}

// NewSlogLogger creates a logger writing at info level to stdout unless
// configured otherwise.
func NewSlogLogger(opts ...LoggerOption) *SlogLogger {
	cfg := loggerConfig{level: slog.LevelInfo, output: os.Stdout}
	for _, opt := range opts {
		opt(&cfg)
	}

	hopts := &slog.HandlerOptions{Level: cfg.level}
	var handler slog.Handler = slog.NewTextHandler(cfg.output, hopts)
	if cfg.json {
		handler = slog.NewJSONHandler(cfg.output, hopts)
	}
	return &SlogLogger{logger: slog.New(handler)}
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}

func (l *SlogLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, attrs(fields)...) }

func (l *SlogLogger) Info(msg string, fields ...Field) { l.logger.Info(msg, attrs(fields)...) }

func (l *SlogLogger) Warn(msg string, fields ...Field) { l.logger.Warn(msg, attrs(fields)...) }

func (l *SlogLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, attrs(fields)...) }

// With returns a logger that adds fields to every record.
func (l *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{logger: l.logger.With(attrs(fields)...)}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (l NopLogger) With(fields ...Field) Logger     { return l }

type loggerContextKey struct{}

var fallback Logger = NewSlogLogger()

// SetDefault replaces the logger L returns for contexts without one.
func SetDefault(logger Logger) {
	fallback = logger
}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// L returns the logger carried by ctx, or the default one.
func L(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(Logger); ok {
		return logger
	}
	return fallback
}

// RequestLogger tags every request with an id and logs its outcome. The
// request-scoped logger is available to handlers through L.
func RequestLogger(logger Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			reqLogger := logger.With(
				String("request_id", reqID),
				String("method", r.Method),
				String("path", r.URL.Path),
			)
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqLogger.Debug("request started")
			next.ServeHTTP(rw, r.WithContext(ContextWithLogger(r.Context(), reqLogger)))
			reqLogger.Info("request completed",
				Int("status", rw.status),
				Duration("duration", time.Since(start)),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("logging: %T does not support hijacking", rw.ResponseWriter)
	}
	rw.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
