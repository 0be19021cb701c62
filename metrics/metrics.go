// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics provides Prometheus metrics for the tally service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal tracks inbound requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tally",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// ResultTransitionsTotal tracks workflow operations by outcome
	ResultTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Total number of result workflow operations by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// SideEffectFailures tracks audit and provisioning failures that did not roll back
	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "side_effects",
			Name:      "failures_total",
			Help:      "Total number of failed audit or credential side effects",
		},
		[]string{"kind"},
	)

	// SeatComputations tracks seat projections
	SeatComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "seats",
			Name:      "computations_total",
			Help:      "Total number of seat allocations computed",
		},
		[]string{"status"},
	)

	// AggregationDuration tracks vote aggregation latency
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tally",
			Subsystem: "aggregate",
			Name:      "duration_seconds",
			Help:      "Duration of vote aggregation in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// KafkaMessagesPublished tracks audit messages published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of audit messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// Side effect kinds
const (
	SideEffectAudit        = "audit"
	SideEffectProvisioning = "provisioning"
)

// RecordHTTPRequest records an inbound HTTP request metric
func RecordHTTPRequest(method, route, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordTransition records a workflow operation. outcome is "ok" or an error class.
func RecordTransition(action, outcome string) {
	ResultTransitionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordSideEffectFailure counts an audit or provisioning failure.
func RecordSideEffectFailure(kind string) {
	SideEffectFailures.WithLabelValues(kind).Inc()
}
