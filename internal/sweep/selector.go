// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/hypersweep/internal/platform"
)

// ErrNoCompletedRuns indicates best-run selection over a sweep with no
// completed run that logged the primary metric.
var ErrNoCompletedRuns = errors.New("sweep has no completed runs with the primary metric")

// Best returns the completed run that optimizes the primary metric.
//
// Only completed runs count; failed and canceled runs are excluded even
// when they logged the metric. Ties resolve to the lowest submission index,
// so selection is deterministic. The result is recomputed from the
// platform's current state on every call, never cached.
func Best(ctx context.Context, p platform.Platform, sweepID, metric, goal string) (*platform.RunInfo, error) {
	if goal != GoalMaximize && goal != GoalMinimize {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGoal, goal)
	}

	runs, err := p.ListRuns(ctx, sweepID)
	if err != nil {
		return nil, fmt.Errorf("list runs of sweep %s: %w", sweepID, err)
	}

	var best *platform.RunInfo
	var bestValue float64
	for _, run := range runs {
		if run.State != platform.RunCompleted {
			continue
		}
		value, ok := run.Metrics[metric]
		if !ok {
			continue
		}

		if best == nil || better(goal, value, bestValue) ||
			(value == bestValue && run.Index < best.Index) {
			best = run
			bestValue = value
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: sweep %s, metric %q", ErrNoCompletedRuns, sweepID, metric)
	}
	return best.Clone(), nil
}

func better(goal string, candidate, incumbent float64) bool {
	if goal == GoalMaximize {
		return candidate > incumbent
	}
	return candidate < incumbent
}
