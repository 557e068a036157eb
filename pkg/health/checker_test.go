package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gabrielmiguelok/intakewizard/pkg/state"
)

func TestHealthCheck_AllPass(t *testing.T) {
	hc := NewChecker()
	hc.SetVersion("1.0.0")

	hc.AddCheck("ping", func(ctx context.Context) error {
		return nil
	}, time.Second)

	hc.AddCheck("session_store", func(ctx context.Context) error {
		return nil
	}, time.Second)

	status := hc.Check(context.Background())

	if status.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", status.Status)
	}

	if len(status.Checks) != 2 {
		t.Errorf("Expected 2 checks, got %d", len(status.Checks))
	}

	for name, result := range status.Checks {
		if result.Status != StatusHealthy {
			t.Errorf("Check %s should be healthy", name)
		}
		if result.Error != "" {
			t.Errorf("Check %s should have no error", name)
		}
	}

	if status.Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", status.Version)
	}
}

func TestHealthCheck_OneFails(t *testing.T) {
	hc := NewChecker()

	hc.AddCheck("passing", func(ctx context.Context) error {
		return nil
	}, time.Second)

	hc.AddCheck("failing", func(ctx context.Context) error {
		return errors.New("session store unavailable")
	}, time.Second)

	status := hc.Check(context.Background())

	// Non-critical failure = degraded
	if status.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", status.Status)
	}

	if status.Checks["passing"].Status != StatusHealthy {
		t.Error("Passing check should be healthy")
	}

	if status.Checks["failing"].Status != StatusUnhealthy {
		t.Error("Failing check should be unhealthy")
	}

	if status.Checks["failing"].Error == "" {
		t.Error("Failing check should have error message")
	}
}

func TestHealthCheck_CriticalFails(t *testing.T) {
	hc := NewChecker()

	hc.AddCheck("passing", func(ctx context.Context) error {
		return nil
	}, time.Second)

	hc.AddCriticalCheck("critical-fail", func(ctx context.Context) error {
		return errors.New("critical service down")
	}, time.Second)

	status := hc.Check(context.Background())

	// Critical failure = unhealthy
	if status.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", status.Status)
	}
}

func TestHealthCheck_Timeout(t *testing.T) {
	hc := NewChecker()

	hc.AddCheck("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, 50*time.Millisecond) // Short timeout

	status := hc.Check(context.Background())

	if status.Checks["slow"].Status != StatusUnhealthy {
		t.Error("Timed out check should be unhealthy")
	}
}

func TestHealthCheck_LivenessHandler(t *testing.T) {
	hc := NewChecker()
	handler := hc.LivenessHandler()

	req := httptest.NewRequest("GET", "/health/live", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if response["status"] != "alive" {
		t.Error("Expected status 'alive'")
	}
}

func TestHealthCheck_ReadinessHandler_Healthy(t *testing.T) {
	hc := NewChecker()
	hc.AddCriticalCheck("db", func(ctx context.Context) error {
		return nil
	}, time.Second)

	handler := hc.ReadinessHandler()

	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestHealthCheck_ReadinessHandler_Unhealthy(t *testing.T) {
	hc := NewChecker()
	hc.AddCriticalCheck("db", func(ctx context.Context) error {
		return errors.New("connection refused")
	}, time.Second)

	handler := hc.ReadinessHandler()

	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestHealthCheck_FullHandler(t *testing.T) {
	hc := NewChecker()
	hc.SetVersion("2.0.0")
	hc.AddCheck("analysis_api", func(ctx context.Context) error {
		return nil
	}, time.Second)

	handler := hc.HealthHandler()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	// Always returns 200
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if status.Version != "2.0.0" {
		t.Errorf("Expected version 2.0.0, got %s", status.Version)
	}

	if _, ok := status.Checks["analysis_api"]; !ok {
		t.Error("Expected analysis_api check in response")
	}
}

func TestDefaultChecker(t *testing.T) {
	hc := DefaultChecker("1.0.0")

	status := hc.Check(context.Background())

	if status.Status != StatusHealthy {
		t.Error("Default checker should be healthy")
	}

	if status.Version != "1.0.0" {
		t.Error("Version should be set")
	}
}

func TestConnectionCapacityCheck(t *testing.T) {
	current := 50

	check := ConnectionCapacityCheck(func() int { return current }, 100)

	if err := check(context.Background()); err != nil {
		t.Errorf("Should pass when under capacity: %v", err)
	}

	current = 100
	err := check(context.Background())
	var he *HealthError
	if !errors.As(err, &he) {
		t.Fatalf("Expected HealthError at capacity, got %v", err)
	}
	if he.Details["max"] != 100 {
		t.Errorf("Expected max in details, got %v", he.Details)
	}
}

func TestStoreCheck(t *testing.T) {
	store := state.NewMemoryStore()
	check := StoreCheck(store)

	if err := check(context.Background()); err != nil {
		t.Errorf("Expected open store to pass: %v", err)
	}

	store.Close()
	if err := check(context.Background()); err == nil {
		t.Error("Expected closed store to fail")
	}
}

func TestCheck_Details(t *testing.T) {
	store := state.NewMemoryStore()
	defer store.Close()

	hc := NewChecker()
	hc.AddCriticalCheck("session_store", StoreCheck(store), time.Second)
	if !hc.SetDetails("session_store", func() any { return store.Stats() }) {
		t.Fatal("Expected session_store to be registered")
	}
	if hc.SetDetails("missing", func() any { return nil }) {
		t.Error("Expected SetDetails on an unknown check to report false")
	}
	hc.AddCheck("connections", ConnectionCapacityCheck(func() int { return 100 }, 100), time.Second)

	resp := hc.Check(context.Background())

	stats, ok := resp.Checks["session_store"].Details.(state.MemoryStoreStats)
	if !ok {
		t.Fatalf("Expected store stats in details, got %#v", resp.Checks["session_store"].Details)
	}
	if stats.ItemCount != 1 {
		t.Errorf("Expected the marker key to be counted, got %+v", stats)
	}

	conn := resp.Checks["connections"]
	if conn.Status != StatusUnhealthy {
		t.Errorf("Expected connections at capacity to be unhealthy, got %s", conn.Status)
	}
	if details, ok := conn.Details.(map[string]any); !ok || details["max"] != 100 {
		t.Errorf("Expected the error details to be reported, got %#v", conn.Details)
	}
}

func TestDialCheck(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	check := DialCheck(srv.URL)

	if err := check(context.Background()); err != nil {
		t.Errorf("Expected reachable server to pass: %v", err)
	}

	srv.Close()
	if err := check(context.Background()); err == nil {
		t.Error("Expected closed server to fail")
	}
}
