// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/platform"
)

// defaultPollInterval is used when the caller passes no polling cadence.
const defaultPollInterval = 2 * time.Second

// RunTarget is the execution environment shared by every run of a sweep.
type RunTarget struct {
	// WorkspaceID is the resolved workspace.
	WorkspaceID string

	// PoolName is the provisioned compute pool.
	PoolName string

	// EntryPoint names the training program.
	EntryPoint string

	// Dataset is the staged dataset name.
	Dataset string
}

// Submitter submits a sweep's runs, honoring the descriptor's total and
// concurrency bounds. Failed runs are never resubmitted.
type Submitter struct {
	platform platform.Platform
	poll     time.Duration
	log      zerolog.Logger
}

// NewSubmitter creates a Submitter polling run states at the given cadence.
func NewSubmitter(p platform.Platform, pollInterval time.Duration) *Submitter {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Submitter{
		platform: p,
		poll:     pollInterval,
		log:      logging.With().Str("component", "submitter").Logger(),
	}
}

// Submit drives the sampler until MaxTotalRuns assignments are submitted or
// the sampler exhausts, keeping at most MaxConcurrentRuns runs in flight.
// It returns the submitted run IDs in submission order. Submission order is
// the tiebreak order for best-run selection, so IDs are stable and indexed.
//
// Submit blocks while the concurrency bound is saturated; it does not wait
// for the final runs to finish. Use Waiter for that.
func (s *Submitter) Submit(ctx context.Context, desc *Descriptor, sampler Sampler, target RunTarget) ([]string, error) {
	runIDs := make([]string, 0, desc.MaxTotalRuns)

	for i := 0; i < desc.MaxTotalRuns; i++ {
		assignment, ok := sampler.Next()
		if !ok {
			s.log.Info().
				Str("sweep_id", desc.ID).
				Int("submitted", len(runIDs)).
				Msg("sampler exhausted before reaching max total runs")
			break
		}

		if err := s.waitForSlot(ctx, desc); err != nil {
			return runIDs, err
		}

		info, err := s.platform.SubmitRun(ctx, platform.RunSpec{
			SweepID:     desc.ID,
			Index:       i,
			WorkspaceID: target.WorkspaceID,
			PoolName:    target.PoolName,
			EntryPoint:  target.EntryPoint,
			Dataset:     target.Dataset,
			FixedArgs:   desc.FixedArgs,
			Params:      assignment,
		})
		if err != nil {
			return runIDs, fmt.Errorf("submit run %d of sweep %s: %w", i, desc.ID, err)
		}

		s.log.Debug().
			Str("sweep_id", desc.ID).
			Str("run_id", info.ID).
			Int("index", i).
			Msg("run submitted")
		runIDs = append(runIDs, info.ID)
	}

	s.log.Info().
		Str("sweep_id", desc.ID).
		Int("total", len(runIDs)).
		Msg("sweep submission complete")
	return runIDs, nil
}

// waitForSlot blocks until fewer than MaxConcurrentRuns of the sweep's runs
// are non-terminal.
func (s *Submitter) waitForSlot(ctx context.Context, desc *Descriptor) error {
	for {
		inFlight, err := s.inFlight(ctx, desc.ID)
		if err != nil {
			return err
		}
		if inFlight < desc.MaxConcurrentRuns {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.poll):
		}
	}
}

// inFlight counts the sweep's non-terminal runs.
func (s *Submitter) inFlight(ctx context.Context, sweepID string) (int, error) {
	runs, err := s.platform.ListRuns(ctx, sweepID)
	if err != nil {
		return 0, fmt.Errorf("list runs of sweep %s: %w", sweepID, err)
	}
	n := 0
	for _, run := range runs {
		if !run.State.Terminal() {
			n++
		}
	}
	return n, nil
}
