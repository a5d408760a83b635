package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	require.NotNil(t, m)

	m.RecordChat("ok", "template", 25*time.Millisecond)
	m.RecordIntent("schedule")
	m.RecordLLM("gemini", "success", time.Second)
	m.RecordLLMRetry("gemini")
	m.RecordLinkStripped()
	m.RecordRefusal("finished")
	m.RecordCatalogIntegrityIssue("empty_title")
	m.SetCatalogSize("enrollment_open", 7)
	m.SetActiveSessions(3)
	m.RecordRateLimitDrop("session")

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"cursosbot_chat_requests_total",
		"cursosbot_chat_duration_seconds",
		"cursosbot_intent_total",
		"cursosbot_llm_requests_total",
		"cursosbot_policy_links_stripped_total",
		"cursosbot_policy_refusals_total",
		"cursosbot_catalog_courses",
		"cursosbot_active_sessions",
		"cursosbot_rate_limiter_dropped_total",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordChat("ok", "refusal", time.Millisecond)
		m.RecordIntent("unknown")
		m.RecordLinkStripped()
		m.SetActiveSessions(1)
	})
}
