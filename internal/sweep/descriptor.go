// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package sweep

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/hypersweep/internal/config"
)

var (
	// ErrInvalidBounds indicates non-positive run bounds.
	ErrInvalidBounds = errors.New("run bounds must be positive")

	// ErrConcurrencyExceedsTotal indicates max concurrent runs above max
	// total runs.
	ErrConcurrencyExceedsTotal = errors.New("max concurrent runs exceeds max total runs")

	// ErrInvalidStrategy indicates an unknown sampling strategy.
	ErrInvalidStrategy = errors.New("unknown sampling strategy")

	// ErrInvalidGoal indicates an unknown optimization goal.
	ErrInvalidGoal = errors.New("unknown optimization goal")
)

// Descriptor is a fully validated, immutable sweep description. Build it
// with NewDescriptor; a zero Descriptor is not usable.
type Descriptor struct {
	// ID identifies the sweep across submissions and queries.
	ID string

	// Strategy is the sampling strategy.
	Strategy string

	// PrimaryMetric and Goal define how runs are ranked.
	PrimaryMetric string
	Goal          string

	// MaxTotalRuns and MaxConcurrentRuns bound submission.
	MaxTotalRuns      int
	MaxConcurrentRuns int

	// Timeout bounds the wait for completion. Zero means wait forever.
	Timeout time.Duration

	// Seed seeds the sampler.
	Seed int64

	// FixedArgs are the rendered non-swept trainer arguments.
	FixedArgs map[string]string

	// Space is the validated search space.
	Space SearchSpace
}

// NewDescriptor validates the sweep configuration and builds a descriptor
// with a fresh sweep ID. The accepted list names the hyperparameters the
// entry point declares flags for; sweeping anything else is rejected here,
// before any run is submitted. All validation is eager: a descriptor that
// constructs successfully can be submitted without further checks.
func NewDescriptor(cfg config.SweepConfig, accepted []string) (*Descriptor, error) {
	switch cfg.Strategy {
	case StrategyRandom, StrategyGrid, StrategyBayesian:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, cfg.Strategy)
	}

	switch cfg.Goal {
	case GoalMaximize, GoalMinimize:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidGoal, cfg.Goal)
	}

	if cfg.MaxTotalRuns <= 0 || cfg.MaxConcurrentRuns <= 0 {
		return nil, ErrInvalidBounds
	}
	if cfg.MaxConcurrentRuns > cfg.MaxTotalRuns {
		return nil, fmt.Errorf("%w: %d > %d", ErrConcurrencyExceedsTotal,
			cfg.MaxConcurrentRuns, cfg.MaxTotalRuns)
	}

	space := SpaceFromConfig(cfg.SearchSpace)
	if err := space.Validate(cfg.Strategy, cfg.FixedArguments.ArgumentNames(), accepted); err != nil {
		return nil, err
	}

	return &Descriptor{
		ID:                uuid.NewString(),
		Strategy:          cfg.Strategy,
		PrimaryMetric:     cfg.PrimaryMetric,
		Goal:              cfg.Goal,
		MaxTotalRuns:      cfg.MaxTotalRuns,
		MaxConcurrentRuns: cfg.MaxConcurrentRuns,
		Timeout:           cfg.Timeout,
		Seed:              cfg.Seed,
		FixedArgs:         renderFixedArgs(cfg.FixedArguments),
		Space:             space,
	}, nil
}

// renderFixedArgs converts the typed fixed arguments into the string form
// passed on the trainer command line.
func renderFixedArgs(args config.TrainerArguments) map[string]string {
	return map[string]string{
		"factors":        strconv.Itoa(args.Factors),
		"iterations":     strconv.Itoa(args.Iterations),
		"regularization": strconv.FormatFloat(args.Regularization, 'g', -1, 64),
		"top_k":          strconv.Itoa(args.TopK),
		"metrics":        strings.Join(args.Metrics, ","),
		"save_model":     strconv.FormatBool(args.SaveModel),
	}
}
