package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSlogLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(WithOutput(&buf), WithJSON(), WithLevel(slog.LevelDebug))

	l.With(String("component", "otp")).Info("code sent", Int("attempt", 2))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "code sent" || rec["component"] != "otp" || rec["attempt"] != float64(2) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestSlogLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(WithOutput(&buf), WithLevel(slog.LevelWarn))

	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn should be logged")
	}
}

func TestL_FallsBackToDefault(t *testing.T) {
	prev := fallback
	t.Cleanup(func() { SetDefault(prev) })

	def := NewSlogLogger(WithOutput(io.Discard))
	SetDefault(def)
	if L(context.Background()) != Logger(def) {
		t.Error("expected default logger without a context logger")
	}

	ctx := ContextWithLogger(context.Background(), NopLogger{})
	if _, ok := L(ctx).(NopLogger); !ok {
		t.Error("expected the context logger")
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(WithOutput(&buf), WithJSON())

	var fromCtx Logger
	h := RequestLogger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = L(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
	if fromCtx == nil || fromCtx == fallback {
		t.Error("expected a request scoped logger in the context")
	}
	if !strings.Contains(buf.String(), `"status":418`) {
		t.Errorf("expected status in log, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; expected %v", in, got, err, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
