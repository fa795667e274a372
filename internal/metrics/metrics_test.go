// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPlatformCall(t *testing.T) {
	before := testutil.ToFloat64(PlatformRequests.WithLabelValues("submit_run", "ok"))
	RecordPlatformCall("submit_run", 10*time.Millisecond, nil)
	after := testutil.ToFloat64(PlatformRequests.WithLabelValues("submit_run", "ok"))
	if after != before+1 {
		t.Errorf("ok counter = %v, want %v", after, before+1)
	}

	beforeErr := testutil.ToFloat64(PlatformRequests.WithLabelValues("submit_run", "error"))
	RecordPlatformCall("submit_run", time.Millisecond, errors.New("boom"))
	afterErr := testutil.ToFloat64(PlatformRequests.WithLabelValues("submit_run", "error"))
	if afterErr != beforeErr+1 {
		t.Errorf("error counter = %v, want %v", afterErr, beforeErr+1)
	}
}

func TestRecordRunTerminal(t *testing.T) {
	before := testutil.ToFloat64(RunsTerminal.WithLabelValues("completed"))
	RecordRunTerminal("completed")
	RecordRunTerminal("completed")
	after := testutil.ToFloat64(RunsTerminal.WithLabelValues("completed"))
	if after != before+2 {
		t.Errorf("terminal counter = %v, want %v", after, before+2)
	}
}

func TestRunsInFlightGauge(t *testing.T) {
	before := testutil.ToFloat64(RunsInFlight)
	RunsInFlight.Inc()
	RunsInFlight.Inc()
	RunsInFlight.Dec()
	after := testutil.ToFloat64(RunsInFlight)
	if after != before+1 {
		t.Errorf("in-flight gauge = %v, want %v", after, before+1)
	}
}

func TestRecordStageDoesNotPanic(t *testing.T) {
	for _, stage := range []string{
		"resolve_workspace", "provision_compute", "stage_dataset",
		"configure_sweep", "submit_sweep", "select_best", "evaluate_offline",
	} {
		RecordStage(stage, 100*time.Millisecond)
	}
}
