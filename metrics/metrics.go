// Package metrics holds the prometheus collectors of the checkout service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	intentsCreated     prometheus.Counter
	transitions        *prometheus.CounterVec
	toolCalls          *prometheus.CounterVec
	facilitatorSeconds *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		intentsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "checkout_intents_created_total",
			Help: "Order intents created.",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_intent_transitions_total",
			Help: "Order intent status transitions.",
		}, []string{"from", "to"}),
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_tool_calls_total",
			Help: "Agent tool calls by outcome.",
		}, []string{"tool", "outcome"}),
		facilitatorSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkout_facilitator_seconds",
			Help:    "Latency of facilitator calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
	}
}

func (m *Metrics) IntentCreated() {
	if m == nil {
		return
	}
	m.intentsCreated.Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ObserveFacilitator(step string, start time.Time) {
	if m == nil {
		return
	}
	m.facilitatorSeconds.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
