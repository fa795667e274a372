// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package sweep configures, submits, awaits and ranks hyperparameter sweep
// runs against a platform.
//
// A sweep is described by an immutable Descriptor built with NewDescriptor,
// which validates everything eagerly: distribution shapes, strategy
// restrictions, name collisions with fixed trainer arguments, membership in
// the entry point's declared hyperparameters, and run bounds. Nothing is
// submitted until the whole descriptor is known good.
package sweep

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/hypersweep/internal/config"
)

// Distribution kinds.
const (
	// DistChoice samples uniformly from an explicit candidate list.
	DistChoice = "choice"
	// DistUniform samples uniformly from [Low, High].
	DistUniform = "uniform"
	// DistQUniform samples uniformly from [Low, High] and rounds to the
	// nearest multiple of Step.
	DistQUniform = "quniform"
)

// Sampling strategies.
const (
	// StrategyRandom draws independent samples per run.
	StrategyRandom = "random"
	// StrategyGrid enumerates the cartesian product of choice lists.
	StrategyGrid = "grid"
	// StrategyBayesian marks the sweep for platform-side Bayesian
	// optimization. The local sampler seeds it with random draws; the
	// optimizer itself lives on the platform.
	StrategyBayesian = "bayesian"
)

// Optimization goals.
const (
	GoalMaximize = "maximize"
	GoalMinimize = "minimize"
)

var (
	// ErrEmptySearchSpace indicates a sweep with no swept hyperparameters.
	ErrEmptySearchSpace = errors.New("search space is empty")

	// ErrParameterCollision indicates a swept hyperparameter name that is
	// also a fixed trainer argument name.
	ErrParameterCollision = errors.New("swept parameter collides with fixed trainer argument")

	// ErrUnknownParameter indicates a swept hyperparameter name the entry
	// point declares no flag for. Such a sweep would submit fine and then
	// fail every run, so it is rejected at configuration time.
	ErrUnknownParameter = errors.New("swept parameter is not a hyperparameter of the entry point")

	// ErrUnsupportedDistribution indicates a distribution kind the chosen
	// strategy cannot sample.
	ErrUnsupportedDistribution = errors.New("distribution not supported by strategy")

	// ErrInvalidDistribution indicates a malformed distribution declaration.
	ErrInvalidDistribution = errors.New("invalid distribution")
)

// Distribution is one hyperparameter's sampling distribution.
type Distribution struct {
	Kind    string
	Choices []float64
	Low     float64
	High    float64
	Step    float64
}

// Validate checks the distribution's own shape, independent of strategy.
func (d Distribution) Validate(name string) error {
	switch d.Kind {
	case DistChoice:
		if len(d.Choices) == 0 {
			return fmt.Errorf("%w: %s: choice needs at least one candidate", ErrInvalidDistribution, name)
		}
	case DistUniform:
		if d.High <= d.Low {
			return fmt.Errorf("%w: %s: uniform needs high > low", ErrInvalidDistribution, name)
		}
	case DistQUniform:
		if d.High <= d.Low {
			return fmt.Errorf("%w: %s: quniform needs high > low", ErrInvalidDistribution, name)
		}
		if d.Step <= 0 {
			return fmt.Errorf("%w: %s: quniform needs positive step", ErrInvalidDistribution, name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidDistribution, name, d.Kind)
	}
	return nil
}

// supportedBy reports whether the strategy can sample this distribution.
// Grid search enumerates, so it only accepts explicit choice lists.
func (d Distribution) supportedBy(strategy string) bool {
	if strategy == StrategyGrid {
		return d.Kind == DistChoice
	}
	return d.Kind == DistChoice || d.Kind == DistUniform || d.Kind == DistQUniform
}

// quantize rounds v to the nearest multiple of step and clamps it into
// [low, high].
func (d Distribution) quantize(v float64) float64 {
	q := math.Round(v/d.Step) * d.Step
	if q < d.Low {
		q = d.Low
	}
	if q > d.High {
		q = d.High
	}
	return q
}

// SearchSpace maps hyperparameter name to its distribution.
type SearchSpace map[string]Distribution

// SpaceFromConfig converts the declared configuration search space.
func SpaceFromConfig(cfg map[string]config.DistributionConfig) SearchSpace {
	space := make(SearchSpace, len(cfg))
	for name, d := range cfg {
		space[name] = Distribution{
			Kind:    d.Kind,
			Choices: d.Choices,
			Low:     d.Low,
			High:    d.High,
			Step:    d.Step,
		}
	}
	return space
}

// Names returns the parameter names in sorted order. Samplers iterate in
// this order so sampling is independent of map iteration.
func (s SearchSpace) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every distribution, the strategy restrictions, name
// collisions against the reserved fixed-argument names, and that every swept
// name is one of the entry point's accepted hyperparameters.
func (s SearchSpace) Validate(strategy string, reserved, accepted []string) error {
	if len(s) == 0 {
		return ErrEmptySearchSpace
	}

	reservedSet := make(map[string]bool, len(reserved))
	for _, name := range reserved {
		reservedSet[name] = true
	}
	acceptedSet := make(map[string]bool, len(accepted))
	for _, name := range accepted {
		acceptedSet[name] = true
	}

	for _, name := range s.Names() {
		if reservedSet[name] {
			return fmt.Errorf("%w: %q", ErrParameterCollision, name)
		}
		if !acceptedSet[name] {
			return fmt.Errorf("%w: %q (entry point accepts %v)", ErrUnknownParameter, name, accepted)
		}
		d := s[name]
		if err := d.Validate(name); err != nil {
			return err
		}
		if !d.supportedBy(strategy) {
			return fmt.Errorf("%w: %s strategy cannot sample %s distribution %q",
				ErrUnsupportedDistribution, strategy, d.Kind, name)
		}
	}
	return nil
}
