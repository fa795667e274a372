// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package platform defines the narrow contract the orchestrator holds
// against an ML platform: workspace resolution, idempotent compute-pool
// provisioning, run submission, status/metric queries, artifact download
// and cancellation.
//
// The orchestrator never assumes anything beyond this contract. The
// reference implementation in platform/local executes runs in-process;
// platform/client speaks the same contract over HTTP. A workspace handle is
// an explicit value threaded through calls, never a package-level
// singleton, so several sweeps against different workspaces can coexist in
// one process.
package platform

import (
	"context"
	"errors"
)

var (
	// ErrWorkspaceNotFound indicates the workspace does not exist and
	// creation was not requested.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrPoolNotFound indicates a run referenced a compute pool that was
	// never provisioned.
	ErrPoolNotFound = errors.New("compute pool not found")

	// ErrRunNotFound indicates an unknown run identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrNoArtifact indicates the run persisted no artifact.
	ErrNoArtifact = errors.New("run has no artifact")
)

// Platform is the remote workspace/service API the orchestrator consumes.
// Implementations must be safe for concurrent use.
type Platform interface {
	// ResolveWorkspace obtains a handle to a named workspace, creating it
	// when the spec allows. Fails fast with ErrWorkspaceNotFound otherwise.
	ResolveWorkspace(ctx context.Context, spec WorkspaceSpec) (*Workspace, error)

	// EnsureComputePool creates the named pool if absent and returns the
	// existing pool untouched otherwise. It never resizes or deletes.
	EnsureComputePool(ctx context.Context, workspaceID string, spec PoolSpec) (*ComputePool, error)

	// SubmitRun schedules one entry-point execution. The returned RunInfo
	// carries the platform-assigned run identifier, unique and stable for
	// the lifetime of the sweep.
	SubmitRun(ctx context.Context, spec RunSpec) (*RunInfo, error)

	// RunStatus returns the current snapshot of a run.
	RunStatus(ctx context.Context, runID string) (*RunInfo, error)

	// ListRuns returns all runs belonging to a sweep, in submission order.
	ListRuns(ctx context.Context, sweepID string) ([]*RunInfo, error)

	// RunMetrics returns the scalar metrics a run has logged so far.
	// Last write wins per metric name.
	RunMetrics(ctx context.Context, runID string) (map[string]float64, error)

	// DownloadArtifact returns the artifact a run persisted, or
	// ErrNoArtifact.
	DownloadArtifact(ctx context.Context, runID string) ([]byte, error)

	// CancelRun requests cancellation of a single run. Queued runs never
	// start; running runs stop when they observe the signal.
	CancelRun(ctx context.Context, runID string) error

	// CancelSweep requests cancellation of every non-terminal run in a
	// sweep. Not guaranteed instantaneous.
	CancelSweep(ctx context.Context, sweepID string) error
}
