// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the journal service.
//
// # Description
//
// Metrics cover the three places where the service does interesting work:
//   - Oracle round-trips (by operation and outcome, latency, fallbacks)
//   - Entry saves and the memory facts they fold in
//   - Memory bucket operations and reminder passes
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. NewMetrics takes the
// registerer so tests can use an isolated registry.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// A nil *Metrics is valid and records nothing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "journai"

const (
	oracleSubsystem   = "oracle"
	journalSubsystem  = "journal"
	reminderSubsystem = "reminder"
)

// Metrics holds all Prometheus metrics for the journal service.
//
// # Fields
//
//   - OracleCallsTotal: oracle round-trips by operation and outcome
//   - OracleDurationSeconds: oracle round-trip latency by operation
//   - OracleFallbacksTotal: fixed fallbacks served by operation
//   - EntriesSavedTotal: successful entry saves
//   - MemoryFactsAddedTotal: facts appended to ai_memories by saves
//   - MemoryOperationsTotal: explicit bucket operations (forget, reinstate, ...)
//   - RemindersTotal: reminder decisions by status
type Metrics struct {
	// Labels: operation (greeting, analyze, search), outcome (success, unavailable, malformed)
	OracleCallsTotal *prometheus.CounterVec

	// Labels: operation
	OracleDurationSeconds *prometheus.HistogramVec

	// Labels: operation
	OracleFallbacksTotal *prometheus.CounterVec

	EntriesSavedTotal prometheus.Counter

	MemoryFactsAddedTotal prometheus.Counter

	// Labels: operation (save, forget, reinstate, clear)
	MemoryOperationsTotal *prometheus.CounterVec

	// Labels: status (sent, skipped, failed)
	RemindersTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on reg.
//
// # Inputs
//
//   - reg: Registerer to attach the collectors to. Pass
//     prometheus.DefaultRegisterer in production.
//
// # Limitations
//
//   - Panics if called twice with the same registerer (duplicate registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OracleCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "calls_total",
				Help:      "Total oracle round-trips by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		OracleDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "duration_seconds",
				Help:      "Oracle round-trip duration in seconds",
				Buckets:   []float64{0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"operation"},
		),

		OracleFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "fallbacks_total",
				Help:      "Total fixed fallbacks served in place of oracle output",
			},
			[]string{"operation"},
		),

		EntriesSavedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: journalSubsystem,
				Name:      "entries_saved_total",
				Help:      "Total journal entries saved",
			},
		),

		MemoryFactsAddedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: journalSubsystem,
				Name:      "memory_facts_added_total",
				Help:      "Total facts appended to AI memories from entries",
			},
		),

		MemoryOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: journalSubsystem,
				Name:      "memory_operations_total",
				Help:      "Total explicit memory bucket operations",
			},
			[]string{"operation"},
		),

		RemindersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: reminderSubsystem,
				Name:      "decisions_total",
				Help:      "Total reminder decisions by status",
			},
			[]string{"status"},
		),
	}
}

// =============================================================================
// Label Values
// =============================================================================

// Operation names an oracle round-trip.
type Operation string

const (
	OperationGreeting Operation = "greeting"
	OperationAnalyze  Operation = "analyze"
	OperationSearch   Operation = "search"
)

// Outcome classifies an oracle round-trip.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeMalformed   Outcome = "malformed"
)

// Memory operations.
const (
	MemorySave      = "save"
	MemoryForget    = "forget"
	MemoryReinstate = "reinstate"
	MemoryClear     = "clear"
)

// Reminder statuses.
const (
	ReminderSent    = "sent"
	ReminderSkipped = "skipped"
	ReminderFailed  = "failed"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordOracleCall records one oracle round-trip and its latency.
func (m *Metrics) RecordOracleCall(op Operation, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OracleCallsTotal.WithLabelValues(string(op), string(outcome)).Inc()
	m.OracleDurationSeconds.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// RecordFallback records that a fixed fallback replaced oracle output.
func (m *Metrics) RecordFallback(op Operation) {
	if m == nil {
		return
	}
	m.OracleFallbacksTotal.WithLabelValues(string(op)).Inc()
}

// RecordEntrySaved records a saved entry and how many facts it added.
func (m *Metrics) RecordEntrySaved(factsAdded int) {
	if m == nil {
		return
	}
	m.EntriesSavedTotal.Inc()
	if factsAdded > 0 {
		m.MemoryFactsAddedTotal.Add(float64(factsAdded))
	}
}

// RecordMemoryOperation records an explicit bucket operation.
func (m *Metrics) RecordMemoryOperation(op string) {
	if m == nil {
		return
	}
	m.MemoryOperationsTotal.WithLabelValues(op).Inc()
}

// RecordReminder records one reminder decision.
func (m *Metrics) RecordReminder(status string) {
	if m == nil {
		return
	}
	m.RemindersTotal.WithLabelValues(status).Inc()
}
