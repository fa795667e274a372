// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package sweep

import (
	"math/rand"
)

// Assignment is one sampled hyperparameter configuration.
type Assignment map[string]float64

// Sampler yields hyperparameter assignments for submission. Next returns
// false when the strategy has exhausted its space; random strategies never
// exhaust and rely on the submitter's MaxTotalRuns bound.
//
// Samplers are deterministic: the same descriptor seed yields the same
// assignment sequence. They are not safe for concurrent use; the submitter
// drives them from a single goroutine.
type Sampler interface {
	Next() (Assignment, bool)
}

// NewSampler builds the sampler for the descriptor's strategy. The
// descriptor is assumed validated (NewDescriptor).
//
// The bayesian strategy samples randomly here: the optimizer proper runs on
// the platform, and random draws are its seed points.
func NewSampler(d *Descriptor) Sampler {
	if d.Strategy == StrategyGrid {
		return newGridSampler(d.Space)
	}
	return newRandomSampler(d.Space, d.Seed)
}

// randomSampler draws independent samples per parameter, iterating
// parameters in sorted-name order so the draw sequence is stable.
type randomSampler struct {
	names []string
	space SearchSpace
	rng   *rand.Rand
}

func newRandomSampler(space SearchSpace, seed int64) *randomSampler {
	return &randomSampler{
		names: space.Names(),
		space: space,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (s *randomSampler) Next() (Assignment, bool) {
	a := make(Assignment, len(s.names))
	for _, name := range s.names {
		d := s.space[name]
		switch d.Kind {
		case DistChoice:
			a[name] = d.Choices[s.rng.Intn(len(d.Choices))]
		case DistUniform:
			a[name] = d.Low + s.rng.Float64()*(d.High-d.Low)
		case DistQUniform:
			a[name] = d.quantize(d.Low + s.rng.Float64()*(d.High-d.Low))
		}
	}
	return a, true
}

// gridSampler enumerates the cartesian product of the choice lists with an
// odometer over sorted parameter names. The last parameter varies fastest.
type gridSampler struct {
	names   []string
	space   SearchSpace
	indices []int
	done    bool
}

func newGridSampler(space SearchSpace) *gridSampler {
	return &gridSampler{
		names:   space.Names(),
		space:   space,
		indices: make([]int, len(space)),
	}
}

func (s *gridSampler) Next() (Assignment, bool) {
	if s.done {
		return nil, false
	}

	a := make(Assignment, len(s.names))
	for i, name := range s.names {
		a[name] = s.space[name].Choices[s.indices[i]]
	}

	// Advance the odometer.
	for i := len(s.indices) - 1; i >= 0; i-- {
		s.indices[i]++
		if s.indices[i] < len(s.space[s.names[i]].Choices) {
			return a, true
		}
		s.indices[i] = 0
	}
	s.done = true
	return a, true
}

var (
	_ Sampler = (*randomSampler)(nil)
	_ Sampler = (*gridSampler)(nil)
)
