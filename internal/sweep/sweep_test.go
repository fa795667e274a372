// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package sweep

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/hypersweep/internal/platform"
)

// fakePlatform is an in-memory Platform for exercising submission, waiting
// and selection without the local execution engine.
type fakePlatform struct {
	mu   sync.Mutex
	runs []*platform.RunInfo

	// completeOnList marks every run completed on the next ListRuns call,
	// simulating runs that finish between polls.
	completeOnList bool

	// listErr, when set, is returned by ListRuns.
	listErr error
}

var _ platform.Platform = (*fakePlatform)(nil)

func (f *fakePlatform) ResolveWorkspace(_ context.Context, spec platform.WorkspaceSpec) (*platform.Workspace, error) {
	return &platform.Workspace{ID: "ws-1", Spec: spec}, nil
}

func (f *fakePlatform) EnsureComputePool(_ context.Context, workspaceID string, spec platform.PoolSpec) (*platform.ComputePool, error) {
	return &platform.ComputePool{ID: "pool-1", WorkspaceID: workspaceID, Spec: spec}, nil
}

func (f *fakePlatform) SubmitRun(_ context.Context, spec platform.RunSpec) (*platform.RunInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := &platform.RunInfo{
		ID:      fmt.Sprintf("run-%d", len(f.runs)),
		SweepID: spec.SweepID,
		Index:   spec.Index,
		State:   platform.RunQueued,
		Params:  spec.Params,
	}
	f.runs = append(f.runs, info)
	return info.Clone(), nil
}

func (f *fakePlatform) RunStatus(_ context.Context, runID string) (*platform.RunInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, run := range f.runs {
		if run.ID == runID {
			return run.Clone(), nil
		}
	}
	return nil, platform.ErrRunNotFound
}

func (f *fakePlatform) ListRuns(_ context.Context, sweepID string) ([]*platform.RunInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*platform.RunInfo
	for _, run := range f.runs {
		if run.SweepID == sweepID {
			out = append(out, run.Clone())
		}
	}
	if f.completeOnList {
		for _, run := range f.runs {
			run.State = platform.RunCompleted
		}
	}
	return out, nil
}

func (f *fakePlatform) RunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	info, err := f.RunStatus(ctx, runID)
	if err != nil {
		return nil, err
	}
	return info.Metrics, nil
}

func (f *fakePlatform) DownloadArtifact(_ context.Context, _ string) ([]byte, error) {
	return nil, platform.ErrNoArtifact
}

func (f *fakePlatform) CancelRun(_ context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, run := range f.runs {
		if run.ID == runID && !run.State.Terminal() {
			run.State = platform.RunCanceled
		}
	}
	return nil
}

func (f *fakePlatform) CancelSweep(_ context.Context, sweepID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, run := range f.runs {
		if run.SweepID == sweepID && !run.State.Terminal() {
			run.State = platform.RunCanceled
		}
	}
	return nil
}

// setRun seeds a run snapshot directly, for selector and waiter tests.
func (f *fakePlatform) setRun(info *platform.RunInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, info)
}
