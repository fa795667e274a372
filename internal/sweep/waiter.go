// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/platform"
)

// ErrWaitTimeout indicates the sweep did not reach a terminal state within
// the configured timeout. Outstanding runs keep executing on the platform;
// the caller decides whether to cancel them.
var ErrWaitTimeout = errors.New("timed out waiting for sweep completion")

// Waiter blocks until every run of a sweep is terminal.
type Waiter struct {
	platform platform.Platform
	poll     time.Duration
	log      zerolog.Logger
}

// NewWaiter creates a Waiter polling at the given cadence.
func NewWaiter(p platform.Platform, pollInterval time.Duration) *Waiter {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Waiter{
		platform: p,
		poll:     pollInterval,
		log:      logging.With().Str("component", "waiter").Logger(),
	}
}

// Wait polls until all of the sweep's runs are terminal, the timeout
// elapses, or the context is canceled. A zero timeout waits forever.
//
// On timeout the runs observed so far are returned together with
// ErrWaitTimeout; the platform keeps executing them.
func (w *Waiter) Wait(ctx context.Context, sweepID string, timeout time.Duration) ([]*platform.RunInfo, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		runs, err := w.platform.ListRuns(ctx, sweepID)
		if err != nil {
			return nil, fmt.Errorf("list runs of sweep %s: %w", sweepID, err)
		}

		if allTerminal(runs) {
			w.log.Info().
				Str("sweep_id", sweepID).
				Int("runs", len(runs)).
				Msg("sweep reached terminal state")
			return runs, nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			w.log.Warn().
				Str("sweep_id", sweepID).
				Dur("timeout", timeout).
				Msg("sweep wait timed out, runs keep executing")
			return runs, ErrWaitTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.poll):
		}
	}
}

func allTerminal(runs []*platform.RunInfo) bool {
	if len(runs) == 0 {
		return false
	}
	for _, run := range runs {
		if !run.State.Terminal() {
			return false
		}
	}
	return true
}
