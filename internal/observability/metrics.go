// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Inkwell Prometheus metrics.
type Metrics struct {
	AuthOutcomes  *prometheus.CounterVec
	GateDecisions *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers the Inkwell metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_auth_operations_total",
				Help: "Credential operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_gate_decisions_total",
				Help: "Auth gate decisions by mode and result",
			},
			[]string{"mode", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_http_requests_total",
				Help: "HTTP requests by method, route pattern and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inkwell_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(m.AuthOutcomes, m.GateDecisions, m.HTTPRequests, m.HTTPDuration)
	return m
}

// RecordAuthOutcome counts one finished credential operation.
func (m *Metrics) RecordAuthOutcome(operation, outcome string) {
	m.AuthOutcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordGateDecision counts one gate decision.
func (m *Metrics) RecordGateDecision(mode, result string) {
	m.GateDecisions.WithLabelValues(mode, result).Inc()
}

// ObserveHTTPRequest records one served request. route is the matched
// pattern, never the raw path.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
