package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/funil/internal/config"
	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/internal/metrics"
	httpAdapter "github.com/aretw0/funil/pkg/adapters/http"
	"github.com/aretw0/funil/pkg/adapters/digisac"
)

// shutdownGrace bounds how long in-flight webhooks may take to finish.
const shutdownGrace = 30 * time.Second

// Serve runs the webhook server until ctx is cancelled.
func Serve(ctx *SignalContext, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m := metrics.New()
	sessions, err := OpenSessions(cfg, logger, m)
	if err != nil {
		return err
	}
	defer sessions.Close()

	hooks := metrics.Merge(m.Hooks(), DebugHooks(logger))
	providers := NewProviders(cfg, m)
	platform := digisac.New(cfg.Digisac.URL, cfg.Digisac.Token, cfg.Digisac.ServiceID,
		digisac.WithDepartment(cfg.Digisac.DepartmentID),
		digisac.WithTransport(transportOptions(m)...),
		digisac.WithLogger(logger),
	)

	opts, err := DialogueOptions(cfg, logger, hooks)
	if err != nil {
		return err
	}
	engine := dialogue.New(sessions.Manager, platform, platform,
		providers.Rates(logger, hooks),
		providers.Pipeline(logger, hooks),
		opts...,
	)

	handler := httpAdapter.NewHandler(engine,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithTimeout(cfg.HTTP.RequestTimeout),
		httpAdapter.WithMetrics(m.Handler(), m.ObserveWebhook),
		httpAdapter.WithHealthCheck("redis", sessions.Redis.Ping),
	)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Webhook server listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down", "signal", ctx.Signal())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown did not complete", "timeout", shutdownGrace, "err", err)
		return srv.Close()
	}
	logger.Info("Webhook server stopped")
	return nil
}
