// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package platform

import "fmt"

// RunState is a run's lifecycle state. Legal transitions:
//
//	queued  -> running | canceled
//	running -> completed | failed | canceled
//
// Terminal states never transition again.
type RunState string

const (
	// RunQueued means the run is submitted but not yet started.
	RunQueued RunState = "queued"
	// RunRunning means the run is executing.
	RunRunning RunState = "running"
	// RunCompleted means the run finished successfully.
	RunCompleted RunState = "completed"
	// RunFailed means the run finished with an error. Failed runs are not
	// retried and are excluded from best-run selection.
	RunFailed RunState = "failed"
	// RunCanceled means the run was canceled before or during execution.
	RunCanceled RunState = "canceled"
)

// Terminal reports whether the state is final.
func (s RunState) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCanceled:
		return true
	default:
		return false
	}
}

// Valid reports whether the state is a known lifecycle state.
func (s RunState) Valid() bool {
	switch s {
	case RunQueued, RunRunning, RunCompleted, RunFailed, RunCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s RunState) CanTransitionTo(next RunState) bool {
	switch s {
	case RunQueued:
		return next == RunRunning || next == RunCanceled
	case RunRunning:
		return next == RunCompleted || next == RunFailed || next == RunCanceled
	default:
		return false
	}
}

// Transition validates and returns the next state.
func (s RunState) Transition(next RunState) (RunState, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("illegal run state transition %s -> %s", s, next)
	}
	return next, nil
}
