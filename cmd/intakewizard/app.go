package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gabrielmiguelok/intakewizard/client"
	"github.com/gabrielmiguelok/intakewizard/internal/analysis"
	"github.com/gabrielmiguelok/intakewizard/internal/config"
	"github.com/gabrielmiguelok/intakewizard/internal/intake"
	"github.com/gabrielmiguelok/intakewizard/internal/otp"
	"github.com/gabrielmiguelok/intakewizard/internal/remote"
	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
	"github.com/gabrielmiguelok/intakewizard/pkg/audit"
	"github.com/gabrielmiguelok/intakewizard/pkg/health"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
	"github.com/gabrielmiguelok/intakewizard/pkg/metrics"
	"github.com/gabrielmiguelok/intakewizard/pkg/router"
	"github.com/gabrielmiguelok/intakewizard/pkg/security"
	"github.com/gabrielmiguelok/intakewizard/pkg/state"
)

const sessionCookie = "intake_session"

// app is the assembled server: the live router with its collaborators.
type app struct {
	router  *router.Router
	store   *state.MemoryStore
	audit   audit.Logger
	metrics *metrics.Metrics
	health  *health.Checker
}

func newApp(cfg *config.Config, logger logging.Logger) (*app, error) {
	m := metrics.NewMetrics("intake")
	store := state.NewMemoryStore()

	otpClient, err := otp.NewClient(cfg.OTP.BaseURL, cfg.OTP.APIKey, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	analysisClient, err := analysis.NewClient(cfg.Analysis.BaseURL, logger,
		remote.WithTimeout(cfg.AnalysisTimeout()))
	if err != nil {
		store.Close()
		return nil, err
	}

	var trail audit.Logger = audit.NopLogger{}
	if cfg.Audit.Path != "" {
		fl, err := audit.NewFileLogger(cfg.Audit.Path)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		trail = audit.NewAsyncLogger(fl, 0)
	}

	r := router.New(
		router.WithLogger(logger),
		router.WithMetrics(m),
		router.WithMaxConnections(cfg.Server.MaxConnections),
		router.WithEventRate(cfg.Server.EventsPerSecond, cfg.Server.EventBurst),
	)

	headers := router.DefaultSecureHeadersConfig()
	headers.FrameSources = cfg.FrameSources()

	r.Use(logging.RequestLogger(logger))
	r.Use(router.Recovery(logger))
	r.Use(router.SecureHeaders(headers))
	r.Use(router.RateLimit(cfg.Server.RequestsPerSec, cfg.Server.RequestBurst))

	hc := health.DefaultChecker(version)
	hc.AddCriticalCheck("session_store", health.StoreCheck(store), time.Second)
	hc.SetDetails("session_store", func() any { return store.Stats() })
	hc.AddCheck("connections", health.ConnectionCapacityCheck(r.ConnectionCount, cfg.Server.MaxConnections), time.Second)
	hc.AddCheck("analysis", health.DialCheck(cfg.Analysis.BaseURL), 2*time.Second)
	hc.AddCheck("otp", health.DialCheck(cfg.OTP.BaseURL), 2*time.Second)

	r.Handle("/_live/", http.StripPrefix("/_live/", client.Handler()))
	r.Handle("/healthz", hc.HealthHandler())
	r.Handle("/healthz/live", hc.LivenessHandler())
	r.Handle("/healthz/ready", hc.ReadinessHandler())
	r.Handle("/metrics", m.Handler())

	r.Live("/", intake.New(intake.Options{
		OTP:      otpClient,
		Analysis: analysisClient,
		Snapshots: state.NewSessions[wizard.Snapshot](store,
			state.WithKeyPrefix("intake:"),
			state.WithTTL(cfg.SessionTTL())),
		Sanitizer:      security.NewSanitizer(security.DefaultSanitizerConfig()),
		Metrics:        m,
		Logger:         logger,
		Audit:          trail,
		ResendCooldown: cfg.ResendCooldown(),
		RemoteTimeout:  cfg.AnalysisTimeout(),
		SupportEmail:   cfg.SupportEmail,
		SchedulingURL:  cfg.Scheduling.URL,
	}),
		router.WithLayout(intake.Layout("Automation Assessment")),
		router.WithRouteMiddleware(router.SessionCookie(sessionCookie, cfg.SessionTTL())),
	)

	return &app{router: r, store: store, audit: trail, metrics: m, health: hc}, nil
}

// close releases resources not tied to the HTTP server.
func (a *app) close(ctx context.Context) error {
	return errors.Join(
		a.router.Shutdown(ctx),
		a.audit.Close(),
		a.store.Close(),
	)
}
