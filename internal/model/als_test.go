// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package model

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/tomtom215/hypersweep/internal/dataset"
)

// syntheticRatings builds a rating set with planted structure: even users
// prefer even items, odd users prefer odd items.
func syntheticRatings(n int) []dataset.Rating {
	rng := rand.New(rand.NewSource(7))
	ratings := make([]dataset.Rating, 0, n)
	for i := 0; i < n; i++ {
		user := rng.Intn(50)
		item := rng.Intn(80)
		var score float64
		if user%2 == item%2 {
			score = 4.5
		} else {
			score = 1.5
		}
		score += 0.3 * (rng.Float64() - 0.5)
		ratings = append(ratings, dataset.Rating{
			UserID: user,
			ItemID: item,
			Rating: score,
		})
	}
	return ratings
}

func fitTestModel(t *testing.T, cfg ALSConfig, ratings []dataset.Rating) *ALS {
	t.Helper()
	m := NewALS(cfg)
	if err := m.Fit(context.Background(), ratings); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	return m
}

func TestFitEmptyInputFails(t *testing.T) {
	m := NewALS(DefaultALSConfig())
	if err := m.Fit(context.Background(), nil); err == nil {
		t.Fatal("Fit() on empty ratings: expected error, got nil")
	}
}

func TestFitRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewALS(DefaultALSConfig())
	err := m.Fit(ctx, syntheticRatings(200))
	if err == nil {
		t.Fatal("Fit() with canceled context: expected error, got nil")
	}
}

func TestPredictRecoversPlantedStructure(t *testing.T) {
	cfg := ALSConfig{Rank: 8, Iterations: 10, Regularization: 0.05, Seed: 1, Workers: 2}
	m := fitTestModel(t, cfg, syntheticRatings(4000))

	// Even/even pairs were planted high, even/odd low.
	high, okHigh := m.Predict(2, 4)
	low, okLow := m.Predict(2, 5)
	if !okHigh || !okLow {
		t.Fatal("Predict() reported known pairs as unscoreable")
	}
	if high <= low {
		t.Errorf("Predict() did not recover structure: aligned=%f crossed=%f", high, low)
	}
}

func TestPredictClampsToRatingScale(t *testing.T) {
	m := fitTestModel(t, DefaultALSConfig(), syntheticRatings(1000))

	for _, user := range []int{0, 1, 2, 3} {
		for _, item := range m.Items() {
			score, ok := m.Predict(user, item)
			if !ok {
				continue
			}
			if score < m.minRating || score > m.maxRating {
				t.Fatalf("Predict(%d, %d) = %f outside [%f, %f]",
					user, item, score, m.minRating, m.maxRating)
			}
		}
	}
}

func TestPredictUnknownPair(t *testing.T) {
	m := fitTestModel(t, DefaultALSConfig(), syntheticRatings(500))

	if _, ok := m.Predict(99999, 99999); ok {
		t.Error("Predict() scored a pair with unknown user and item")
	}

	// Known user, unknown item falls back to the baseline and stays scoreable.
	if _, ok := m.Predict(1, 99999); !ok {
		t.Error("Predict() rejected known user with unknown item")
	}
}

func TestFitIsDeterministic(t *testing.T) {
	cfg := ALSConfig{Rank: 4, Iterations: 5, Regularization: 0.1, Seed: 99, Workers: 3}
	ratings := syntheticRatings(800)

	a := fitTestModel(t, cfg, ratings)
	b := fitTestModel(t, cfg, ratings)

	for _, user := range []int{0, 5, 17} {
		for _, item := range []int{1, 8, 33} {
			pa, _ := a.Predict(user, item)
			pb, _ := b.Predict(user, item)
			if pa != pb {
				t.Fatalf("Predict(%d, %d) differs across identical trainings: %v vs %v",
					user, item, pa, pb)
			}
		}
	}
}

func TestRankItemsDeterministicOrder(t *testing.T) {
	m := fitTestModel(t, DefaultALSConfig(), syntheticRatings(2000))

	candidates := m.Items()
	first := RankItems(m, 4, candidates, 10)
	second := RankItems(m, 4, candidates, 10)

	if len(first) != 10 {
		t.Fatalf("RankItems() returned %d items, want 10", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("RankItems() not deterministic: %v vs %v", first, second)
	}

	// Verify descending score with item-ID tiebreak.
	for i := 1; i < len(first); i++ {
		prev, _ := m.Predict(4, first[i-1])
		cur, _ := m.Predict(4, first[i])
		if cur > prev {
			t.Errorf("RankItems() out of order at %d: %f > %f", i, cur, prev)
		}
		if cur == prev && first[i] < first[i-1] {
			t.Errorf("RankItems() tiebreak violated at %d", i)
		}
	}
}

func TestRankItemsTruncates(t *testing.T) {
	m := fitTestModel(t, DefaultALSConfig(), syntheticRatings(300))

	got := RankItems(m, 0, []int{1, 2, 3}, 50)
	if len(got) > 3 {
		t.Errorf("RankItems() returned %d items from 3 candidates", len(got))
	}
}

func TestSolveCholesky(t *testing.T) {
	// A = [[4, 2], [2, 3]], b = [10, 8] -> x = [1.75, 1.5]
	A := [][]float64{{4, 2}, {2, 3}}
	b := []float64{10, 8}

	x := solveCholesky(A, b)
	want := []float64{1.75, 1.5}
	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-9 {
			t.Errorf("solveCholesky()[%d] = %f, want %f", i, x[i], want[i])
		}
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	cfg := ALSConfig{Rank: 6, Iterations: 4, Regularization: 0.08, Seed: 3, Workers: 2}
	m := fitTestModel(t, cfg, syntheticRatings(600))

	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	restored, err := UnmarshalALS(data)
	if err != nil {
		t.Fatalf("UnmarshalALS() error = %v", err)
	}

	if restored.Config() != cfg {
		t.Errorf("restored config = %+v, want %+v", restored.Config(), cfg)
	}
	for _, user := range []int{0, 3, 9} {
		for _, item := range []int{2, 7, 21} {
			orig, okOrig := m.Predict(user, item)
			got, okGot := restored.Predict(user, item)
			if okOrig != okGot || orig != got {
				t.Fatalf("restored Predict(%d, %d) = %v/%v, want %v/%v",
					user, item, got, okGot, orig, okOrig)
			}
		}
	}
}

func TestArtifactRejectsUnknownVersion(t *testing.T) {
	if _, err := UnmarshalALS([]byte(`{"format_version": 999}`)); err == nil {
		t.Fatal("UnmarshalALS() accepted unknown format version")
	}
}
