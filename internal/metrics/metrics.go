// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package metrics provides Prometheus instrumentation for sweep
// orchestration: run lifecycle counts, pipeline stage durations, platform
// API call latency and circuit breaker state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsSubmitted counts runs submitted to the platform.
	RunsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hypersweep_runs_submitted_total",
			Help: "Total number of sweep runs submitted",
		},
	)

	// RunsTerminal counts runs reaching a terminal state, by state.
	RunsTerminal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hypersweep_runs_terminal_total",
			Help: "Total number of sweep runs that reached a terminal state",
		},
		[]string{"state"}, // "completed", "failed", "canceled"
	)

	// RunsInFlight tracks currently executing runs.
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hypersweep_runs_in_flight",
			Help: "Current number of runs executing",
		},
	)

	// StageDuration observes wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hypersweep_stage_duration_seconds",
			Help:    "Duration of orchestration pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"stage"},
	)

	// PlatformRequests counts platform API calls by operation and outcome.
	PlatformRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hypersweep_platform_requests_total",
			Help: "Total number of platform API calls",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "error"
	)

	// PlatformRequestDuration observes platform API call latency.
	PlatformRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hypersweep_platform_request_duration_seconds",
			Help:    "Platform API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// BreakerState exposes the platform client's circuit breaker state
	// (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hypersweep_platform_breaker_state",
			Help: "Platform client circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordStage observes one pipeline stage execution.
func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPlatformCall observes one platform API call.
func RecordPlatformCall(operation string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	PlatformRequests.WithLabelValues(operation, outcome).Inc()
	PlatformRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRunTerminal counts one run reaching a terminal state.
func RecordRunTerminal(state string) {
	RunsTerminal.WithLabelValues(state).Inc()
}
