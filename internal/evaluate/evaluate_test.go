// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package evaluate

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/tomtom215/hypersweep/internal/dataset"
)

// stubScorer is a fixed score table standing in for a trained model.
type stubScorer struct {
	scores map[int]map[int]float64
}

func (s *stubScorer) Predict(userID, itemID int) (float64, bool) {
	row, ok := s.scores[userID]
	if !ok {
		return 0, false
	}
	score, ok := row[itemID]
	return score, ok
}

func (s *stubScorer) Items() []int {
	set := make(map[int]bool)
	for _, row := range s.scores {
		for item := range row {
			set[item] = true
		}
	}
	items := make([]int, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Ints(items)
	return items
}

func partitionOf(ratings ...dataset.Rating) *dataset.Partition {
	return &dataset.Partition{Label: dataset.LabelTest, Ratings: ratings}
}

func TestEvaluateRejectsEmptyPartition(t *testing.T) {
	_, err := Evaluate(&stubScorer{}, partitionOf(), Options{Metrics: []string{MetricRMSE}})
	if !errors.Is(err, dataset.ErrEmptyPartition) {
		t.Fatalf("Evaluate() error = %v, want ErrEmptyPartition", err)
	}
}

func TestEvaluateRejectsUnknownMetric(t *testing.T) {
	part := partitionOf(dataset.Rating{UserID: 1, ItemID: 1, Rating: 3})

	_, err := Evaluate(&stubScorer{}, part, Options{Metrics: []string{"auc"}})
	if !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("Evaluate() error = %v, want ErrUnknownMetric", err)
	}

	_, err = Evaluate(&stubScorer{}, part, Options{})
	if !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("Evaluate() with no metrics: error = %v, want ErrUnknownMetric", err)
	}
}

func TestEvaluateRejectsNonPositiveK(t *testing.T) {
	part := partitionOf(dataset.Rating{UserID: 1, ItemID: 1, Rating: 3})

	_, err := Evaluate(&stubScorer{}, part, Options{Metrics: []string{MetricNDCGAtK}})
	if !errors.Is(err, ErrNonPositiveK) {
		t.Fatalf("Evaluate() error = %v, want ErrNonPositiveK", err)
	}
}

func TestPredictionMetrics(t *testing.T) {
	m := &stubScorer{scores: map[int]map[int]float64{
		1: {10: 4.0, 11: 2.0},
		2: {10: 3.0},
	}}
	part := partitionOf(
		dataset.Rating{UserID: 1, ItemID: 10, Rating: 5.0}, // err -1
		dataset.Rating{UserID: 1, ItemID: 11, Rating: 2.0}, // err 0
		dataset.Rating{UserID: 2, ItemID: 10, Rating: 1.0}, // err 2
		dataset.Rating{UserID: 9, ItemID: 99, Rating: 3.0}, // unscoreable, skipped
	)

	got, err := Evaluate(m, part, Options{Metrics: []string{MetricRMSE, MetricMAE}})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	wantRMSE := math.Sqrt((1.0 + 0.0 + 4.0) / 3.0)
	wantMAE := (1.0 + 0.0 + 2.0) / 3.0
	if math.Abs(got[MetricRMSE]-wantRMSE) > 1e-12 {
		t.Errorf("rmse = %f, want %f", got[MetricRMSE], wantRMSE)
	}
	if math.Abs(got[MetricMAE]-wantMAE) > 1e-12 {
		t.Errorf("mae = %f, want %f", got[MetricMAE], wantMAE)
	}
}

func TestPredictionMetricsNoScoreablePairs(t *testing.T) {
	part := partitionOf(dataset.Rating{UserID: 1, ItemID: 1, Rating: 3})

	_, err := Evaluate(&stubScorer{}, part, Options{Metrics: []string{MetricRMSE}})
	if !errors.Is(err, ErrNoScoreablePairs) {
		t.Fatalf("Evaluate() error = %v, want ErrNoScoreablePairs", err)
	}
}

func TestRankingMetricsSingleUser(t *testing.T) {
	// User 1 ranks items 10 > 11 > 12 > 13. Relevant held-out: 10 and 13.
	m := &stubScorer{scores: map[int]map[int]float64{
		1: {10: 4.0, 11: 3.0, 12: 2.0, 13: 1.0},
	}}
	part := partitionOf(
		dataset.Rating{UserID: 1, ItemID: 10, Rating: 5.0},
		dataset.Rating{UserID: 1, ItemID: 13, Rating: 5.0},
	)

	got, err := Evaluate(m, part, Options{
		Metrics: []string{MetricPrecisionAtK, MetricRecallAtK, MetricNDCGAtK, MetricMAPAtK},
		K:       2,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// Top-2 is [10, 11]: one hit at rank 1.
	if want := 0.5; got[MetricPrecisionAtK] != want {
		t.Errorf("precision_at_k = %f, want %f", got[MetricPrecisionAtK], want)
	}
	if want := 0.5; got[MetricRecallAtK] != want {
		t.Errorf("recall_at_k = %f, want %f", got[MetricRecallAtK], want)
	}
	// DCG = 1/log2(2) = 1; IDCG = 1/log2(2) + 1/log2(3).
	wantNDCG := 1.0 / (1.0 + 1.0/math.Log2(3))
	if math.Abs(got[MetricNDCGAtK]-wantNDCG) > 1e-12 {
		t.Errorf("ndcg_at_k = %f, want %f", got[MetricNDCGAtK], wantNDCG)
	}
	// AP = (1/1) / min(|rel|, k) = 0.5
	if want := 0.5; math.Abs(got[MetricMAPAtK]-want) > 1e-12 {
		t.Errorf("map_at_k = %f, want %f", got[MetricMAPAtK], want)
	}
}

func TestRankingPerfectModel(t *testing.T) {
	m := &stubScorer{scores: map[int]map[int]float64{
		1: {10: 5.0, 11: 4.0, 12: 1.0},
		2: {10: 1.0, 11: 4.0, 12: 5.0},
	}}
	part := partitionOf(
		dataset.Rating{UserID: 1, ItemID: 10, Rating: 5.0},
		dataset.Rating{UserID: 1, ItemID: 11, Rating: 5.0},
		dataset.Rating{UserID: 2, ItemID: 12, Rating: 5.0},
		dataset.Rating{UserID: 2, ItemID: 11, Rating: 5.0},
	)

	got, err := Evaluate(m, part, Options{
		Metrics: []string{MetricPrecisionAtK, MetricNDCGAtK, MetricMAPAtK},
		K:       2,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	for _, name := range []string{MetricPrecisionAtK, MetricNDCGAtK, MetricMAPAtK} {
		if math.Abs(got[name]-1.0) > 1e-12 {
			t.Errorf("%s = %f, want 1.0 for perfect ranking", name, got[name])
		}
	}
}

func TestRelevanceThresholdFiltersLowRatings(t *testing.T) {
	m := &stubScorer{scores: map[int]map[int]float64{
		1: {10: 5.0, 11: 4.0},
	}}
	part := partitionOf(
		dataset.Rating{UserID: 1, ItemID: 10, Rating: 2.0}, // below threshold
		dataset.Rating{UserID: 1, ItemID: 11, Rating: 4.5},
	)

	got, err := Evaluate(m, part, Options{
		Metrics:            []string{MetricRecallAtK},
		K:                  2,
		RelevanceThreshold: 4.0,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// Only item 11 is relevant; it appears in the top 2.
	if got[MetricRecallAtK] != 1.0 {
		t.Errorf("recall_at_k = %f, want 1.0", got[MetricRecallAtK])
	}
}

func TestSeenItemsExcludedFromCandidates(t *testing.T) {
	// Item 10 scores highest but was seen during training; with it excluded
	// the relevant item 11 tops the list.
	m := &stubScorer{scores: map[int]map[int]float64{
		1: {10: 5.0, 11: 4.0, 12: 3.0},
	}}
	part := partitionOf(dataset.Rating{UserID: 1, ItemID: 11, Rating: 5.0})

	got, err := Evaluate(m, part, Options{
		Metrics: []string{MetricPrecisionAtK},
		K:       1,
		Seen:    map[int]map[int]bool{1: {10: true}},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got[MetricPrecisionAtK] != 1.0 {
		t.Errorf("precision_at_k = %f, want 1.0 with seen item excluded", got[MetricPrecisionAtK])
	}
}

func TestKnownMetricsMatchesValidation(t *testing.T) {
	part := partitionOf(dataset.Rating{UserID: 1, ItemID: 10, Rating: 3.0})
	m := &stubScorer{scores: map[int]map[int]float64{1: {10: 3.0}}}

	for _, name := range KnownMetrics() {
		if _, err := Evaluate(m, part, Options{Metrics: []string{name}, K: 5}); err != nil {
			t.Errorf("Evaluate(%q) error = %v", name, err)
		}
	}
}
