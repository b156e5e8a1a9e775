// Package metrics exposes Prometheus collectors for the decision
// pipeline. All record helpers are nil-safe so wiring stays optional
// in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RunsTotal           *prometheus.CounterVec // label: status
	ToolDuration        *prometheus.HistogramVec
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	ProviderFailures    *prometheus.CounterVec // label: provider
	ReasoningDuration   prometheus.Histogram
	TraceWriteFailures  prometheus.Counter
	OrderTransitions    *prometheus.CounterVec // label: to_status
	BreakerTrips        *prometheus.CounterVec // label: name
	InvalidTransitions  prometheus.Counter
	SymbolExtractMisses prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradewind_agent_runs_total",
			Help: "Agent runs by terminal status",
		}, []string{"status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradewind_tool_duration_seconds",
			Help:    "Tool invocation latency by tool name",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradewind_snapshot_cache_hits_total",
			Help: "Snapshot cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradewind_snapshot_cache_misses_total",
			Help: "Snapshot cache misses (including expirations)",
		}),
		ProviderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradewind_market_provider_failures_total",
			Help: "Market data provider failures",
		}, []string{"provider"}),
		ReasoningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradewind_reasoning_duration_seconds",
			Help:    "Reasoning engine call latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		TraceWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradewind_trace_write_failures_total",
			Help: "Failed trace persistence attempts (non-fatal, alerting-relevant)",
		}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradewind_order_transitions_total",
			Help: "Order lifecycle transitions applied",
		}, []string{"to_status"}),
		BreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradewind_circuit_breaker_trips_total",
			Help: "Circuit breaker open transitions",
		}, []string{"name"}),
		InvalidTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradewind_order_invalid_transitions_total",
			Help: "Order transitions rejected by the state machine",
		}),
		SymbolExtractMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradewind_symbol_extract_misses_total",
			Help: "Intents where no ticker could be identified",
		}),
	}
	prometheus.MustRegister(
		m.RunsTotal,
		m.ToolDuration,
		m.CacheHits,
		m.CacheMisses,
		m.ProviderFailures,
		m.ReasoningDuration,
		m.TraceWriteFailures,
		m.OrderTransitions,
		m.BreakerTrips,
		m.InvalidTransitions,
		m.SymbolExtractMisses,
	)
	return m
}

func (m *Metrics) ObserveRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveTool(tool string, seconds float64) {
	if m == nil {
		return
	}
	m.ToolDuration.WithLabelValues(tool).Observe(seconds)
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) ObserveProviderFailure(provider string) {
	if m == nil {
		return
	}
	m.ProviderFailures.WithLabelValues(provider).Inc()
}

func (m *Metrics) ObserveReasoning(seconds float64) {
	if m == nil {
		return
	}
	m.ReasoningDuration.Observe(seconds)
}

func (m *Metrics) ObserveTraceFailure() {
	if m == nil {
		return
	}
	m.TraceWriteFailures.Inc()
}

func (m *Metrics) ObserveOrderTransition(to string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) ObserveBreakerTrip(name string) {
	if m == nil {
		return
	}
	m.BreakerTrips.WithLabelValues(name).Inc()
}

func (m *Metrics) ObserveInvalidTransition() {
	if m == nil {
		return
	}
	m.InvalidTransitions.Inc()
}

func (m *Metrics) ObserveSymbolMiss() {
	if m == nil {
		return
	}
	m.SymbolExtractMisses.Inc()
}
