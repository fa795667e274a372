// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// splitTolerance is the allowed deviation of the proportion sum from 1.0.
const splitTolerance = 1e-6

var (
	// ErrProportionsSum indicates split proportions do not sum to ~1.0.
	ErrProportionsSum = errors.New("split proportions must sum to 1.0")

	// ErrProportionNotPositive indicates a non-positive split proportion.
	ErrProportionNotPositive = errors.New("split proportions must be positive")

	// ErrConcurrencyExceedsTotal indicates max_concurrent_runs > max_total_runs.
	ErrConcurrencyExceedsTotal = errors.New("max_concurrent_runs must not exceed max_total_runs")

	// ErrPrimaryMetricNotLogged indicates the primary metric is not in the
	// trainer's metric list, so no run could ever report it.
	ErrPrimaryMetricNotLogged = errors.New("primary metric is not in the trainer metric list")
)

// validate is the shared validator instance for struct tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration. Struct tags handle per-field rules;
// cross-field rules are checked explicitly below. All checks run before any
// remote call, so a failure here has no partial side effects.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if err := validateProportions(c.Dataset); err != nil {
		return err
	}

	if c.Sweep.MaxConcurrentRuns > c.Sweep.MaxTotalRuns {
		return fmt.Errorf("%w: %d > %d", ErrConcurrencyExceedsTotal,
			c.Sweep.MaxConcurrentRuns, c.Sweep.MaxTotalRuns)
	}

	if !contains(c.Sweep.FixedArguments.Metrics, c.Sweep.PrimaryMetric) {
		return fmt.Errorf("%w: %q", ErrPrimaryMetricNotLogged, c.Sweep.PrimaryMetric)
	}

	for name, dist := range c.Sweep.SearchSpace {
		if err := validateDistribution(name, dist); err != nil {
			return err
		}
	}

	return nil
}

// validateProportions checks the three split fractions.
func validateProportions(d DatasetConfig) error {
	fractions := []float64{d.TrainFraction, d.ValidationFraction, d.TestFraction}
	sum := 0.0
	for _, f := range fractions {
		if f <= 0 {
			return fmt.Errorf("%w: got [%g, %g, %g]", ErrProportionNotPositive,
				d.TrainFraction, d.ValidationFraction, d.TestFraction)
		}
		sum += f
	}
	if math.Abs(sum-1.0) > splitTolerance {
		return fmt.Errorf("%w: got %g", ErrProportionsSum, sum)
	}
	return nil
}

// validateDistribution checks a single distribution spec for internal
// consistency. Strategy-specific restrictions are enforced by the sweep
// package when the descriptor is built.
func validateDistribution(name string, dist DistributionConfig) error {
	switch dist.Kind {
	case "choice":
		if len(dist.Choices) == 0 {
			return fmt.Errorf("search_space.%s: choice distribution needs at least one choice", name)
		}
	case "uniform":
		if dist.High <= dist.Low {
			return fmt.Errorf("search_space.%s: uniform distribution needs high > low", name)
		}
	case "quniform":
		if dist.High <= dist.Low {
			return fmt.Errorf("search_space.%s: quniform distribution needs high > low", name)
		}
		if dist.Step <= 0 {
			return fmt.Errorf("search_space.%s: quniform distribution needs step > 0", name)
		}
	default:
		return fmt.Errorf("search_space.%s: unknown distribution kind %q", name, dist.Kind)
	}
	return nil
}

// contains reports whether s is in list.
func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
