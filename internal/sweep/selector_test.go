// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/hypersweep/internal/platform"
)

func seededSelectorPlatform() *fakePlatform {
	fake := &fakePlatform{}
	fake.setRun(&platform.RunInfo{
		ID: "r0", SweepID: "s1", Index: 0, State: platform.RunCompleted,
		Metrics: map[string]float64{"rmse": 0.95, "precision_at_k": 0.30},
	})
	fake.setRun(&platform.RunInfo{
		ID: "r1", SweepID: "s1", Index: 1, State: platform.RunCompleted,
		Metrics: map[string]float64{"rmse": 0.80, "precision_at_k": 0.42},
	})
	fake.setRun(&platform.RunInfo{
		ID: "r2", SweepID: "s1", Index: 2, State: platform.RunFailed,
		Metrics: map[string]float64{"rmse": 0.10, "precision_at_k": 0.99},
	})
	fake.setRun(&platform.RunInfo{
		ID: "r3", SweepID: "s1", Index: 3, State: platform.RunCompleted,
		Metrics: map[string]float64{"rmse": 0.80, "precision_at_k": 0.42},
	})
	return fake
}

func TestBestMaximize(t *testing.T) {
	fake := seededSelectorPlatform()

	best, err := Best(context.Background(), fake, "s1", "precision_at_k", GoalMaximize)
	if err != nil {
		t.Fatalf("Best() error = %v", err)
	}
	// r1 and r3 tie at 0.42; the lower submission index wins. r2 scored
	// higher but failed, so it never competes.
	if best.ID != "r1" {
		t.Errorf("Best() = %s, want r1", best.ID)
	}
}

func TestBestMinimize(t *testing.T) {
	fake := seededSelectorPlatform()

	best, err := Best(context.Background(), fake, "s1", "rmse", GoalMinimize)
	if err != nil {
		t.Fatalf("Best() error = %v", err)
	}
	if best.ID != "r1" {
		t.Errorf("Best() = %s, want r1", best.ID)
	}
}

func TestBestSkipsRunsMissingMetric(t *testing.T) {
	fake := &fakePlatform{}
	fake.setRun(&platform.RunInfo{
		ID: "r0", SweepID: "s1", Index: 0, State: platform.RunCompleted,
		Metrics: map[string]float64{"mae": 0.7},
	})
	fake.setRun(&platform.RunInfo{
		ID: "r1", SweepID: "s1", Index: 1, State: platform.RunCompleted,
		Metrics: map[string]float64{"rmse": 1.2},
	})

	best, err := Best(context.Background(), fake, "s1", "rmse", GoalMinimize)
	if err != nil {
		t.Fatalf("Best() error = %v", err)
	}
	if best.ID != "r1" {
		t.Errorf("Best() = %s, want r1", best.ID)
	}
}

func TestBestNoCompletedRuns(t *testing.T) {
	fake := &fakePlatform{}
	fake.setRun(&platform.RunInfo{ID: "r0", SweepID: "s1", State: platform.RunFailed})
	fake.setRun(&platform.RunInfo{ID: "r1", SweepID: "s1", State: platform.RunCanceled})

	_, err := Best(context.Background(), fake, "s1", "rmse", GoalMinimize)
	if !errors.Is(err, ErrNoCompletedRuns) {
		t.Fatalf("Best() error = %v, want ErrNoCompletedRuns", err)
	}
}

func TestBestRejectsUnknownGoal(t *testing.T) {
	_, err := Best(context.Background(), &fakePlatform{}, "s1", "rmse", "closest")
	if !errors.Is(err, ErrInvalidGoal) {
		t.Fatalf("Best() error = %v, want ErrInvalidGoal", err)
	}
}

func TestBestReturnsSnapshot(t *testing.T) {
	fake := seededSelectorPlatform()

	best, err := Best(context.Background(), fake, "s1", "rmse", GoalMinimize)
	if err != nil {
		t.Fatalf("Best() error = %v", err)
	}
	best.Metrics["rmse"] = -1

	again, err := Best(context.Background(), fake, "s1", "rmse", GoalMinimize)
	if err != nil {
		t.Fatalf("Best() error = %v", err)
	}
	if again.Metrics["rmse"] != 0.80 {
		t.Error("Best() result shares state with the platform registry")
	}
}
