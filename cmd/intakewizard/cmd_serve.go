package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gabrielmiguelok/intakewizard/internal/config"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
	"github.com/gabrielmiguelok/intakewizard/pkg/shutdown"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the intake wizard over HTTP",
		Long: `Starts the HTTP server. The wizard is served at /, its browser assets
under /_live/, health probes under /healthz and Prometheus metrics at
/metrics. The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := cfg.Logger()
			if err != nil {
				return err
			}
			logging.SetDefault(logger)
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "intake.yaml", "path to the YAML configuration file")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		a.close(context.Background())
		return err
	}
	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sd := shutdown.NewHandler(&shutdown.Config{
		Timeout: cfg.ShutdownTimeout(),
		Signals: shutdown.DefaultConfig().Signals,
		OnHookComplete: func(name string, err error, d time.Duration) {
			if err != nil {
				logger.Warn("shutdown hook failed", logging.String("hook", name), logging.Err(err))
				return
			}
			logger.Debug("shutdown hook done", logging.String("hook", name), logging.Duration("took", d))
		},
	})
	sd.Register(shutdown.HTTPServerHook("http", srv.Shutdown))
	sd.RegisterFunc("live", shutdown.PrioritySessions, a.router.Shutdown)
	sd.Register(shutdown.CloseableHook("audit", shutdown.PriorityStore, a.audit))
	sd.Register(shutdown.CloseableHook("session_store", shutdown.PriorityStore, a.store))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("intake wizard listening", logging.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.router.StartReaper(gctx, time.Minute, cfg.IdleTimeout())
		return sd.Wait(gctx)
	})

	err = g.Wait()
	logger.Info("intake wizard stopped")
	return err
}
