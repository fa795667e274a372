// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// proportionTolerance is the allowed deviation of the proportion sum from 1.0.
const proportionTolerance = 1e-6

// ErrInvalidProportions indicates split proportions that are non-positive or
// do not sum to ~1.0.
var ErrInvalidProportions = errors.New("invalid split proportions")

// Proportions holds the three split fractions.
type Proportions struct {
	Train      float64
	Validation float64
	Test       float64
}

// Validate checks that all fractions are positive and sum to 1.0 within
// tolerance.
func (p Proportions) Validate() error {
	if p.Train <= 0 || p.Validation <= 0 || p.Test <= 0 {
		return fmt.Errorf("%w: fractions must be positive, got [%g, %g, %g]",
			ErrInvalidProportions, p.Train, p.Validation, p.Test)
	}
	sum := p.Train + p.Validation + p.Test
	if math.Abs(sum-1.0) > proportionTolerance {
		return fmt.Errorf("%w: fractions sum to %g, want 1.0", ErrInvalidProportions, sum)
	}
	return nil
}

// Split partitions ratings into train/validation/test sets.
//
// The assignment is a seeded permutation of record indices: partitions are
// pairwise disjoint, their union is exactly the input (duplicates included),
// and sizes approximate the proportions up to rounding. The same input,
// proportions and seed always produce identical partitions.
func Split(ratings []Rating, proportions Proportions, seed int64) (train, validation, test Partition, err error) {
	if err := proportions.Validate(); err != nil {
		return Partition{}, Partition{}, Partition{}, err
	}

	n := len(ratings)
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	nTrain := int(math.Round(proportions.Train * float64(n)))
	nValidation := int(math.Round(proportions.Validation * float64(n)))
	if nTrain+nValidation > n {
		nValidation = n - nTrain
	}
	nTest := n - nTrain - nValidation

	train = Partition{Label: LabelTrain, Ratings: make([]Rating, 0, nTrain)}
	validation = Partition{Label: LabelValidation, Ratings: make([]Rating, 0, nValidation)}
	test = Partition{Label: LabelTest, Ratings: make([]Rating, 0, nTest)}

	for pos, idx := range perm {
		switch {
		case pos < nTrain:
			train.Ratings = append(train.Ratings, ratings[idx])
		case pos < nTrain+nValidation:
			validation.Ratings = append(validation.Ratings, ratings[idx])
		default:
			test.Ratings = append(test.Ratings, ratings[idx])
		}
	}

	return train, validation, test, nil
}
