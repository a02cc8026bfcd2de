// Package http exposes the funnel over HTTP: the messaging webhook, a
// health probe and the metrics endpoint.
package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxWebhookBody caps an inbound event.
const maxWebhookBody = 1 << 20

// Dispatcher runs one inbound event through the dialogue.
type Dispatcher interface {
	Handle(ctx context.Context, ev domain.InboundEvent) (dialogue.Result, error)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Server routes webhook calls to the dispatcher.
type Server struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	timeout    time.Duration
	checks     map[string]HealthCheck
	metrics    http.Handler
	observe    func(result string)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithTimeout bounds every request. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithHealthCheck adds a dependency probe to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithMetrics mounts h on /metrics and reports every webhook result to observe.
func WithMetrics(h http.Handler, observe func(result string)) Option {
	return func(s *Server) {
		s.metrics = h
		s.observe = observe
	}
}

// NewHandler creates the router.
func NewHandler(d Dispatcher, opts ...Option) http.Handler {
	s := &Server{
		dispatcher: d,
		logger:     logging.NewNop(),
		checks:     map[string]HealthCheck{},
		observe:    func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Post("/webhook", s.Webhook)
	r.Get("/healthz", s.Health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// Webhook handles POST /webhook. The platform only needs an acknowledgement,
// so every decodable event is answered with 200 whatever the outcome.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	var ev domain.InboundEvent
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&ev); err != nil {
		s.observe("malformed")
		s.logger.Warn("invalid webhook body", "err", err, "request_id", middleware.GetReqID(r.Context()))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	logger := s.logger.With(
		"event_id", uuid.NewString(),
		"request_id", middleware.GetReqID(r.Context()),
		"contact_id", ev.Data.ContactID,
	)

	// A started cycle runs to completion even if the platform hangs up.
	ctx := context.WithoutCancel(r.Context())
	start := time.Now()
	result, err := s.dispatcher.Handle(ctx, ev)
	s.observe(string(result))

	attrs := []any{"event", ev.Event, "result", result, "duration", time.Since(start)}
	switch {
	case err != nil:
		logger.Error("webhook event failed", append(attrs, "err", err)...)
	case result == dialogue.ResultIgnored:
		logger.Debug("webhook event ignored", attrs...)
	default:
		logger.Info("webhook event handled", attrs...)
	}

	w.WriteHeader(http.StatusOK)
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.checks))
	status, code := "ok", http.StatusOK
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("health check failed", "check", name, "err", err)
			checks[name] = "unreachable"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": checks}); err != nil {
		s.logger.Error("health response encode failed", "err", err)
	}
}
