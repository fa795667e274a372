// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package platform

import "time"

// WorkspaceSpec identifies a workspace to resolve or create.
type WorkspaceSpec struct {
	// Subscription is the cloud subscription identifier.
	Subscription string `json:"subscription"`

	// ResourceGroup is the resource group containing the workspace.
	ResourceGroup string `json:"resource_group"`

	// Name is the workspace name.
	Name string `json:"name"`

	// CreateIfAbsent creates the workspace when it does not exist.
	CreateIfAbsent bool `json:"create_if_absent"`
}

// Workspace is a resolved workspace handle.
type Workspace struct {
	// ID is the platform-assigned workspace identifier.
	ID string `json:"id"`

	// Spec is the identity the workspace was resolved from.
	Spec WorkspaceSpec `json:"spec"`

	// CreatedAt is when the workspace was created.
	CreatedAt time.Time `json:"created_at"`
}

// PoolSpec describes the desired compute pool.
type PoolSpec struct {
	// Name is the pool name. Provisioning is idempotent by name.
	Name string `json:"name"`

	// VMSize is the VM shape of pool nodes.
	VMSize string `json:"vm_size"`

	// Priority is "dedicated" or "lowpriority".
	Priority string `json:"priority"`

	// MinNodes and MaxNodes bound the elastic pool size.
	MinNodes int `json:"min_nodes"`
	MaxNodes int `json:"max_nodes"`
}

// ComputePool is a provisioned (or reused) compute pool.
type ComputePool struct {
	// ID is the platform-assigned pool identifier.
	ID string `json:"id"`

	// WorkspaceID is the owning workspace.
	WorkspaceID string `json:"workspace_id"`

	// Spec is the pool's shape. For a reused pool this is the existing
	// pool's shape, which may differ from the requested one.
	Spec PoolSpec `json:"spec"`

	// Reused is true when an existing pool was returned untouched.
	Reused bool `json:"reused"`
}

// RunSpec describes one entry-point execution to submit.
type RunSpec struct {
	// SweepID groups runs belonging to one sweep.
	SweepID string `json:"sweep_id"`

	// Index is the zero-based submission index within the sweep. Stable;
	// used for deterministic tie-breaking in best-run selection.
	Index int `json:"index"`

	// WorkspaceID and PoolName locate the execution environment.
	WorkspaceID string `json:"workspace_id"`
	PoolName    string `json:"pool_name"`

	// EntryPoint names the training program the run executes.
	EntryPoint string `json:"entry_point"`

	// Dataset is the staged dataset name the run trains on.
	Dataset string `json:"dataset"`

	// FixedArgs are the non-swept entry-point arguments, by argument name.
	FixedArgs map[string]string `json:"fixed_args"`

	// Params is the sampled hyperparameter assignment, by parameter name.
	Params map[string]float64 `json:"params"`
}

// RunInfo is a point-in-time snapshot of a run.
type RunInfo struct {
	// ID is the platform-assigned run identifier.
	ID string `json:"id"`

	// SweepID and Index echo the submission spec.
	SweepID string `json:"sweep_id"`
	Index   int    `json:"index"`

	// State is the run's lifecycle state.
	State RunState `json:"state"`

	// Params is the hyperparameter assignment the run executes with.
	Params map[string]float64 `json:"params"`

	// Metrics are the scalars the run has logged, last write wins per name.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// ArtifactKey references the persisted model artifact, if any.
	ArtifactKey string `json:"artifact_key,omitempty"`

	// Error holds the failure diagnostic for failed runs.
	Error string `json:"error,omitempty"`

	// SubmittedAt, StartedAt and FinishedAt bound the run's lifecycle.
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a deep copy so callers can hold snapshots without racing
// the platform's own bookkeeping.
func (r *RunInfo) Clone() *RunInfo {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Params != nil {
		cp.Params = make(map[string]float64, len(r.Params))
		for k, v := range r.Params {
			cp.Params[k] = v
		}
	}
	if r.Metrics != nil {
		cp.Metrics = make(map[string]float64, len(r.Metrics))
		for k, v := range r.Metrics {
			cp.Metrics[k] = v
		}
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
