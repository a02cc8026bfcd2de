// Package metrics exposes the funnel's Prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "funil"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	webhookEvents    *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	providerRetries  *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	providerCalls    *prometheus.CounterVec
	storeFailures    *prometheus.CounterVec
}

var _ transport.Observer = (*Metrics)(nil)

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound webhook events by result.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_transitions_total",
			Help:      "Dialogue transitions by source state, target state and handler.",
		}, []string{"from", "to", "handler"}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "HTTP attempts against external providers by outcome.",
		}, []string{"provider", "outcome"}),
		providerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Retried provider attempts by reason.",
		}, []string{"provider", "reason"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of a single provider HTTP attempt.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_operations_total",
			Help:      "Provider operations, retries included, by result.",
		}, []string{"provider", "operation", "result"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_store_fallbacks_total",
			Help:      "Session store operations served by the in-process fallback.",
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.webhookEvents,
		m.transitions,
		m.providerRequests,
		m.providerRetries,
		m.providerLatency,
		m.providerCalls,
		m.storeFailures,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveWebhook counts one webhook event.
func (m *Metrics) ObserveWebhook(result string) {
	m.webhookEvents.WithLabelValues(result).Inc()
}

// ObserveAttempt implements transport.Observer.
func (m *Metrics) ObserveAttempt(provider string, status int, err error, elapsed time.Duration) {
	outcome := "error"
	if err == nil {
		outcome = strconv.Itoa(status/100) + "xx"
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveRetry implements transport.Observer.
func (m *Metrics) ObserveRetry(provider, reason string) {
	m.providerRetries.WithLabelValues(provider, reason).Inc()
}

// StoreFallback counts a session store operation served by the fallback.
func (m *Metrics) StoreFallback(op string) {
	m.storeFailures.WithLabelValues(op).Inc()
}

// Hooks records transitions and provider operations.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(stateLabel(e.From), stateLabel(e.To), e.Handler).Inc()
		},
		OnProviderCall: func(_ context.Context, e *domain.ProviderCallEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.providerCalls.WithLabelValues(e.Provider, e.Operation, result).Inc()
		},
	}
}

// Merge returns hooks that call every non-nil callback of each argument.
func Merge(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			for _, h := range hooks {
				h.EmitTransition(ctx, e)
			}
		},
		OnProviderCall: func(ctx context.Context, e *domain.ProviderCallEvent) {
			for _, h := range hooks {
				h.EmitProviderCall(ctx, e)
			}
		},
	}
}

func stateLabel(s domain.State) string {
	if s == "" {
		return "NEW"
	}
	return string(s)
}
