// Package health serves liveness, readiness and detailed health endpoints.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gabrielmiguelok/intakewizard/pkg/state"
)

// Status represents the health status of a service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration_ms"`
	Error    string        `json:"error,omitempty"`
	Details  any           `json:"details,omitempty"`
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// Check defines a single health check.
type Check struct {
	Name     string
	Check    func(ctx context.Context) error
	Timeout  time.Duration
	Critical bool // failure makes the overall status unhealthy

	// Details, when set, is reported with every result of the check.
	Details func() any
}

// Checker manages health checks for the application.
type Checker struct {
	checks  []Check
	version string
	mu      sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{
		checks: make([]Check, 0),
	}
}

// SetVersion sets the application version shown in health responses.
func (hc *Checker) SetVersion(version string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.version = version
}

// AddCheck adds a health check.
func (hc *Checker) AddCheck(name string, check func(context.Context) error, timeout time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = append(hc.checks, Check{
		Name:     name,
		Check:    check,
		Timeout:  timeout,
		Critical: false,
	})
}

// AddCriticalCheck adds a critical health check.
// If a critical check fails, the overall status is unhealthy.
func (hc *Checker) AddCriticalCheck(name string, check func(context.Context) error, timeout time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = append(hc.checks, Check{
		Name:     name,
		Check:    check,
		Timeout:  timeout,
		Critical: true,
	})
}

// SetDetails attaches a details source to the check registered as name.
// It reports whether such a check exists.
func (hc *Checker) SetDetails(name string, details func() any) bool {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for i := range hc.checks {
		if hc.checks[i].Name == name {
			hc.checks[i].Details = details
			return true
		}
	}
	return false
}

// Check runs all health checks and returns the overall status.
func (hc *Checker) Check(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	checks := make([]Check, len(hc.checks))
	copy(checks, hc.checks)
	version := hc.version
	hc.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult),
		Timestamp: time.Now(),
		Version:   version,
	}

	// Run checks concurrently
	type checkResult struct {
		name     string
		result   CheckResult
		critical bool
	}

	results := make(chan checkResult, len(checks))
	var wg sync.WaitGroup

	for _, c := range checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()

			timeout := check.Timeout
			if timeout == 0 {
				timeout = 5 * time.Second
			}

			start := time.Now()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			err := check.Check(checkCtx)
			duration := time.Since(start)

			result := CheckResult{
				Status:   StatusHealthy,
				Duration: duration / time.Millisecond,
			}

			if err != nil {
				result.Status = StatusUnhealthy
				result.Error = err.Error()
				var he *HealthError
				if errors.As(err, &he) && he.Details != nil {
					result.Details = he.Details
				}
			}
			if check.Details != nil && result.Details == nil {
				result.Details = check.Details()
			}

			results <- checkResult{
				name:     check.Name,
				result:   result,
				critical: check.Critical,
			}
		}(c)
	}

	// Wait and close results channel
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results
	for r := range results {
		status.Checks[r.name] = r.result

		if r.result.Status != StatusHealthy {
			if r.critical {
				status.Status = StatusUnhealthy
			} else if status.Status == StatusHealthy {
				status.Status = StatusDegraded
			}
		}
	}

	return status
}

// LivenessHandler returns an HTTP handler for liveness probes.
// Returns 200 if the process is running.
func (hc *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	})
}

// ReadinessHandler returns an HTTP handler for readiness probes.
// Returns 200 if all critical checks pass, 503 otherwise.
func (hc *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := hc.Check(ctx)

		w.Header().Set("Content-Type", "application/json")

		if status.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(status)
	})
}

// HealthHandler returns an HTTP handler for full health checks.
// Always returns 200 with detailed status.
func (hc *Checker) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := hc.Check(ctx)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	})
}

// ConnectionCapacityCheck fails when the live connection count reaches max.
func ConnectionCapacityCheck(getCount func() int, max int) func(context.Context) error {
	return func(ctx context.Context) error {
		count := getCount()
		if max > 0 && count >= max {
			return &HealthError{
				Message: "live connections at capacity",
				Details: map[string]any{
					"current": count,
					"max":     max,
				},
			}
		}
		return nil
	}
}

// StoreCheck writes and reads back a marker key.
func StoreCheck(store state.Store) func(context.Context) error {
	return func(ctx context.Context) error {
		const key = "health:check"
		if err := store.Set(ctx, key, []byte("ok"), time.Minute); err != nil {
			return fmt.Errorf("session store write: %w", err)
		}
		if _, err := store.Get(ctx, key); err != nil {
			return fmt.Errorf("session store read: %w", err)
		}
		return nil
	}
}

// DialCheck opens and closes a TCP connection to the host of rawURL.
func DialCheck(rawURL string) func(context.Context) error {
	return func(ctx context.Context) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		host := u.Host
		if u.Port() == "" {
			port := "80"
			if u.Scheme == "https" {
				port = "443"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// HealthError represents a health check error with details.
type HealthError struct {
	Message string
	Details map[string]any
}

func (e *HealthError) Error() string {
	return e.Message
}

// DefaultChecker returns a checker that only reports the version.
func DefaultChecker(version string) *Checker {
	hc := NewChecker()
	hc.SetVersion(version)
	return hc
}
