// Package metrics defines the Prometheus instrumentation for the chat service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Chat metrics
	ChatRequestsTotal   *prometheus.CounterVec
	ChatDurationSeconds *prometheus.HistogramVec
	IntentTotal         *prometheus.CounterVec

	// LLM metrics
	LLMRequestsTotal *prometheus.CounterVec
	LLMRetriesTotal  *prometheus.CounterVec
	LLMDuration      *prometheus.HistogramVec

	// Policy metrics
	PolicyLinksStripped prometheus.Counter
	PolicyRefusalsTotal *prometheus.CounterVec

	// Catalog metrics
	CatalogCourses  *prometheus.GaugeVec
	CatalogIntegrity *prometheus.CounterVec

	// Session metrics
	ActiveSessions     prometheus.Gauge
	RateLimiterDropped *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ChatRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_chat_requests_total",
				Help: "Total number of chat requests by outcome",
			},
			[]string{"status"}, // status: ok, empty, rate_limited, generation_error
		),

		ChatDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cursosbot_chat_duration_seconds",
				Help:    "Chat turn duration in seconds by resolution path",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"path"}, // path: refusal, template, generated
		),

		IntentTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_intent_total",
				Help: "Total number of classified intents",
			},
			[]string{"intent"},
		),

		LLMRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_llm_requests_total",
				Help: "Total number of generation requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, timeout
		),

		LLMRetriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_llm_retries_total",
				Help: "Total number of generation retries by provider",
			},
			[]string{"provider"},
		),

		LLMDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cursosbot_llm_duration_seconds",
				Help:    "Generation call duration in seconds by provider",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),

		PolicyLinksStripped: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "cursosbot_policy_links_stripped_total",
				Help: "Enrollment anchors removed from generated output by the policy post-filter",
			},
		),

		PolicyRefusalsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_policy_refusals_total",
				Help: "Fixed refusal responses issued by course lifecycle state",
			},
			[]string{"state"}, // state: in_progress, finished
		),

		CatalogCourses: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cursosbot_catalog_courses",
				Help: "Loaded catalog size by lifecycle state",
			},
			[]string{"state"},
		),

		CatalogIntegrity: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_catalog_integrity_issues_total",
				Help: "Catalog records rejected or defaulted during validation",
			},
			[]string{"issue_type"}, // issue_type: missing_id, empty_title, unknown_state, truncated_list
		),

		ActiveSessions: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "cursosbot_active_sessions",
				Help: "Number of sessions currently held in memory",
			},
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: session
		),
	}

	return m
}

// RecordChat records the outcome and duration of one chat turn.
func (m *Metrics) RecordChat(status, path string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ChatRequestsTotal.WithLabelValues(status).Inc()
	if path != "" {
		m.ChatDurationSeconds.WithLabelValues(path).Observe(duration.Seconds())
	}
}

// RecordIntent records one classified intent.
func (m *Metrics) RecordIntent(intent string) {
	if m == nil {
		return
	}
	m.IntentTotal.WithLabelValues(intent).Inc()
}

// RecordLLM records one generation call.
func (m *Metrics) RecordLLM(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordLLMRetry records one generation retry.
func (m *Metrics) RecordLLMRetry(provider string) {
	if m == nil {
		return
	}
	m.LLMRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordLinkStripped records one anchor removed by the post-filter.
func (m *Metrics) RecordLinkStripped() {
	if m == nil {
		return
	}
	m.PolicyLinksStripped.Inc()
}

// RecordRefusal records one fixed refusal by lifecycle state.
func (m *Metrics) RecordRefusal(state string) {
	if m == nil {
		return
	}
	m.PolicyRefusalsTotal.WithLabelValues(state).Inc()
}

// RecordCatalogIntegrityIssue records a validation problem found at load time.
func (m *Metrics) RecordCatalogIntegrityIssue(issueType string) {
	if m == nil {
		return
	}
	m.CatalogIntegrity.WithLabelValues(issueType).Inc()
}

// SetCatalogSize sets the loaded course count for a lifecycle state.
func (m *Metrics) SetCatalogSize(state string, n int) {
	if m == nil {
		return
	}
	m.CatalogCourses.WithLabelValues(state).Set(float64(n))
}

// SetActiveSessions sets the in-memory session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// RecordRateLimitDrop records a dropped request.
func (m *Metrics) RecordRateLimitDrop(limiterType string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}
