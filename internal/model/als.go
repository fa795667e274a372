// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package model implements the reference matrix-factorization model the
// sweep tunes: alternating least squares over explicit rating feedback,
// with user/item biases and a global mean.
//
// Training is deterministic for a fixed config and input: factor matrices
// are initialized from a seeded generator and the alternating updates are
// order-stable, so two trainings of the same data produce the same
// artifact. The offline evaluator relies on this.
package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/tomtom215/hypersweep/internal/dataset"
)

// Scorer is the prediction contract the evaluator and ranking code depend
// on. Any model artifact that predicts a rating for a (user, item) pair can
// be evaluated; ALS is the bundled implementation.
type Scorer interface {
	// Predict returns the predicted rating and whether the pair is
	// scoreable (both user and item seen during training).
	Predict(userID, itemID int) (float64, bool)

	// Items returns every item known to the model.
	Items() []int
}

// ALSConfig configures explicit-feedback ALS training.
type ALSConfig struct {
	// Rank is the latent factor dimension. Typical range: 8-200.
	Rank int

	// Iterations is the number of alternating optimization passes.
	Iterations int

	// Regularization is the L2 penalty on factors and biases.
	Regularization float64

	// Seed seeds factor initialization.
	Seed int64

	// Workers is the parallelism for factor updates. If <= 0, defaults to 4.
	Workers int
}

// DefaultALSConfig returns default training configuration.
func DefaultALSConfig() ALSConfig {
	return ALSConfig{
		Rank:           32,
		Iterations:     15,
		Regularization: 0.05,
		Seed:           42,
		Workers:        4,
	}
}

// ALS is an explicit-feedback matrix-factorization model.
//
// The objective minimizes, over observed ratings r_ui:
//
//	sum (r_ui - mu - b_u - b_i - x_u'*y_i)^2
//	  + lambda * (||x_u||^2 + ||y_i||^2)
//
// Biases are fit first as regularized residual means (the classic baseline
// predictor), then factors are fit to the remaining residual with
// alternating ridge regressions solved by Cholesky decomposition.
type ALS struct {
	config ALSConfig

	mu         float64
	userBias   map[int]float64
	itemBias   map[int]float64
	userFactor map[int][]float64
	itemFactor map[int][]float64

	minRating float64
	maxRating float64
}

// NewALS creates an untrained ALS model with the given configuration.
func NewALS(cfg ALSConfig) *ALS {
	if cfg.Rank <= 0 {
		cfg.Rank = 32
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = 15
	}
	if cfg.Regularization <= 0 {
		cfg.Regularization = 0.05
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &ALS{config: cfg}
}

// Config returns the training configuration.
func (m *ALS) Config() ALSConfig {
	return m.config
}

// Fit trains the model on the given ratings.
func (m *ALS) Fit(ctx context.Context, ratings []dataset.Rating) error {
	if len(ratings) == 0 {
		return fmt.Errorf("cannot fit model on empty rating set")
	}

	// Global mean and rating bounds.
	sum := 0.0
	m.minRating = math.Inf(1)
	m.maxRating = math.Inf(-1)
	for _, r := range ratings {
		sum += r.Rating
		if r.Rating < m.minRating {
			m.minRating = r.Rating
		}
		if r.Rating > m.maxRating {
			m.maxRating = r.Rating
		}
	}
	m.mu = sum / float64(len(ratings))

	m.fitBiases(ratings)

	if err := ctx.Err(); err != nil {
		return err
	}

	// Residuals after the baseline predictor, grouped both ways for the
	// alternating updates. Iteration order over users/items is sorted so
	// training is order-stable.
	userRes := make(map[int][]observation)
	itemRes := make(map[int][]observation)
	for _, r := range ratings {
		res := r.Rating - m.mu - m.userBias[r.UserID] - m.itemBias[r.ItemID]
		userRes[r.UserID] = append(userRes[r.UserID], observation{id: r.ItemID, value: res})
		itemRes[r.ItemID] = append(itemRes[r.ItemID], observation{id: r.UserID, value: res})
	}

	users := sortedKeys(userRes)
	items := sortedKeys(itemRes)

	m.userFactor = m.initFactors(users, m.config.Seed)
	m.itemFactor = m.initFactors(items, m.config.Seed+1)

	for iter := 0; iter < m.config.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.updateFactors(users, userRes, m.userFactor, m.itemFactor)
		if err := ctx.Err(); err != nil {
			return err
		}
		m.updateFactors(items, itemRes, m.itemFactor, m.userFactor)
	}

	return nil
}

// observation is one residual rating seen from either side of the matrix.
type observation struct {
	id    int
	value float64
}

// fitBiases computes regularized user and item biases.
func (m *ALS) fitBiases(ratings []dataset.Rating) {
	lambda := m.config.Regularization

	itemSum := make(map[int]float64)
	itemCount := make(map[int]int)
	for _, r := range ratings {
		itemSum[r.ItemID] += r.Rating - m.mu
		itemCount[r.ItemID]++
	}
	m.itemBias = make(map[int]float64, len(itemSum))
	for id, s := range itemSum {
		m.itemBias[id] = s / (lambda + float64(itemCount[id]))
	}

	userSum := make(map[int]float64)
	userCount := make(map[int]int)
	for _, r := range ratings {
		userSum[r.UserID] += r.Rating - m.mu - m.itemBias[r.ItemID]
		userCount[r.UserID]++
	}
	m.userBias = make(map[int]float64, len(userSum))
	for id, s := range userSum {
		m.userBias[id] = s / (lambda + float64(userCount[id]))
	}
}

// initFactors seeds small deterministic factor vectors for the given IDs.
func (m *ALS) initFactors(ids []int, seed int64) map[int][]float64 {
	rng := rand.New(rand.NewSource(seed))
	factors := make(map[int][]float64, len(ids))
	scale := 1.0 / math.Sqrt(float64(m.config.Rank))
	for _, id := range ids {
		vec := make([]float64, m.config.Rank)
		for f := range vec {
			vec[f] = scale * (rng.Float64() - 0.5)
		}
		factors[id] = vec
	}
	return factors
}

// updateFactors solves the ridge regression for every vector on one side of
// the matrix, holding the other side fixed. IDs are partitioned into
// contiguous chunks processed by parallel workers; each worker writes only
// its own vectors, so no locking is needed.
func (m *ALS) updateFactors(ids []int, residuals map[int][]observation, side, other map[int][]float64) {
	rank := m.config.Rank
	lambda := m.config.Regularization

	var wg sync.WaitGroup
	chunkSize := (len(ids) + m.config.Workers - 1) / m.config.Workers

	for w := 0; w < m.config.Workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(ids []int) {
			defer wg.Done()

			A := make([][]float64, rank)
			for i := range A {
				A[i] = make([]float64, rank)
			}
			b := make([]float64, rank)

			for _, id := range ids {
				for i := range A {
					for j := range A[i] {
						A[i][j] = 0
					}
					A[i][i] = lambda
					b[i] = 0
				}

				for _, obs := range residuals[id] {
					vec, ok := other[obs.id]
					if !ok {
						continue
					}
					for f1 := 0; f1 < rank; f1++ {
						for f2 := f1; f2 < rank; f2++ {
							A[f1][f2] += vec[f1] * vec[f2]
							if f1 != f2 {
								A[f2][f1] = A[f1][f2]
							}
						}
						b[f1] += obs.value * vec[f1]
					}
				}

				side[id] = solveCholesky(A, b)
			}
		}(ids[start:end])
	}

	wg.Wait()
}

// solveCholesky solves A*x = b for symmetric positive-definite A.
//
//nolint:gocritic // A, L follow standard linear algebra notation
func solveCholesky(A [][]float64, b []float64) []float64 {
	n := len(b)

	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}
			if i == j {
				if sum <= 0 {
					// Regularize away loss of positive definiteness
					sum = 1e-10
				}
				L[i][j] = math.Sqrt(sum)
			} else if L[j][j] != 0 {
				L[i][j] = sum / L[j][j]
			}
		}
	}

	// Forward substitution: L * z = b
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= L[i][j] * z[j]
		}
		if L[i][i] != 0 {
			z[i] = sum / L[i][i]
		}
	}

	// Back substitution: L' * x = z
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < n; j++ {
			sum -= L[j][i] * x[j]
		}
		if L[i][i] != 0 {
			x[i] = sum / L[i][i]
		}
	}

	return x
}

// Predict returns the clamped predicted rating for a (user, item) pair.
// The boolean is false when both the user and the item are unknown.
func (m *ALS) Predict(userID, itemID int) (float64, bool) {
	ub, userKnown := m.userBias[userID]
	ib, itemKnown := m.itemBias[itemID]
	if !userKnown && !itemKnown {
		return 0, false
	}

	score := m.mu + ub + ib
	if uf, ok := m.userFactor[userID]; ok {
		if vf, ok := m.itemFactor[itemID]; ok {
			for f := range uf {
				score += uf[f] * vf[f]
			}
		}
	}

	return m.clamp(score), true
}

// clamp bounds a prediction to the observed rating scale.
func (m *ALS) clamp(score float64) float64 {
	if score < m.minRating {
		return m.minRating
	}
	if score > m.maxRating {
		return m.maxRating
	}
	return score
}

// Items returns every item known to the model, sorted.
func (m *ALS) Items() []int {
	items := make([]int, 0, len(m.itemBias))
	for id := range m.itemBias {
		items = append(items, id)
	}
	sort.Ints(items)
	return items
}

// RankItems scores candidates for a user and returns the top k item IDs,
// ordered by score descending with item ID ascending as the tiebreak.
// Ordering is fully deterministic for a fixed model.
func RankItems(m Scorer, userID int, candidates []int, k int) []int {
	type scored struct {
		item  int
		score float64
	}

	ranked := make([]scored, 0, len(candidates))
	for _, item := range candidates {
		if score, ok := m.Predict(userID, item); ok {
			ranked = append(ranked, scored{item: item, score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].item < ranked[j].item
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	top := make([]int, k)
	for i := 0; i < k; i++ {
		top[i] = ranked[i].item
	}
	return top
}

// sortedKeys returns the map's keys in ascending order.
func sortedKeys(m map[int][]observation) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

var _ Scorer = (*ALS)(nil)
