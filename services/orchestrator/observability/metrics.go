// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the
// conversation pipeline. Metrics include:
//   - Message counters (by role and outcome)
//   - Summarization cycle counters and duration histograms
//   - Cache degradation counters
//   - Active background task gauges
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "viva"

// Subsystem for conversation pipeline metrics
const conversationSubsystem = "conversation"

// ConversationMetrics holds all Prometheus metrics for the conversation
// pipeline. Initialize once at startup via InitMetrics().
type ConversationMetrics struct {
	// MessagesRecordedTotal counts messages written through the pipeline.
	// Labels: role (user, assistant), status (success, error)
	MessagesRecordedTotal *prometheus.CounterVec

	// CacheDegradedTotal counts operations that fell back to durable-only
	// mode because the hot window store was unavailable.
	// Labels: operation (append, read, trim, clear)
	CacheDegradedTotal *prometheus.CounterVec

	// SummarizationCyclesTotal counts summarize-and-trim cycles.
	// Labels: status (success, failed, skipped)
	SummarizationCyclesTotal *prometheus.CounterVec

	// SummarizationDurationSeconds measures full cycle duration.
	SummarizationDurationSeconds prometheus.Histogram

	// ActiveBackgroundTasks tracks in-flight detached cycles.
	ActiveBackgroundTasks prometheus.Gauge

	// ColdStartsTotal counts context reads that restored a summary from
	// the durable store because the hot window was empty.
	ColdStartsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of ConversationMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ConversationMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once at
// application startup; a second call panics on duplicate registration.
func InitMetrics() *ConversationMetrics {
	DefaultMetrics = &ConversationMetrics{
		MessagesRecordedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: conversationSubsystem,
				Name:      "messages_recorded_total",
				Help:      "Total messages written through the pipeline by role and status",
			},
			[]string{"role", "status"},
		),

		CacheDegradedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: conversationSubsystem,
				Name:      "cache_degraded_total",
				Help:      "Operations that continued without the hot window store",
			},
			[]string{"operation"},
		),

		SummarizationCyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: conversationSubsystem,
				Name:      "summarization_cycles_total",
				Help:      "Summarize-and-trim cycles by outcome",
			},
			[]string{"status"},
		),

		SummarizationDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: conversationSubsystem,
				Name:      "summarization_duration_seconds",
				Help:      "Duration of a full summarize-and-trim cycle",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		ActiveBackgroundTasks: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: conversationSubsystem,
				Name:      "active_background_tasks",
				Help:      "Detached summarization cycles currently running",
			},
		),

		ColdStartsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: conversationSubsystem,
				Name:      "cold_starts_total",
				Help:      "Context reads that restored the summary from the durable store",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordMessage records one message write outcome.
func (m *ConversationMetrics) RecordMessage(role string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.MessagesRecordedTotal.WithLabelValues(role, status).Inc()
}

// RecordCacheDegraded records a hot-window fallback for the operation.
func (m *ConversationMetrics) RecordCacheDegraded(operation string) {
	m.CacheDegradedTotal.WithLabelValues(operation).Inc()
}

// RecordCycle records a summarization cycle outcome and its duration.
func (m *ConversationMetrics) RecordCycle(status string, seconds float64) {
	m.SummarizationCyclesTotal.WithLabelValues(status).Inc()
	m.SummarizationDurationSeconds.Observe(seconds)
}

// TaskStarted increments the background task gauge.
func (m *ConversationMetrics) TaskStarted() {
	m.ActiveBackgroundTasks.Inc()
}

// TaskEnded decrements the background task gauge.
func (m *ConversationMetrics) TaskEnded() {
	m.ActiveBackgroundTasks.Dec()
}

// RecordColdStart increments the cold start counter.
func (m *ConversationMetrics) RecordColdStart() {
	m.ColdStartsTotal.Inc()
}
