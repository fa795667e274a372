// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package evaluate computes offline quality metrics for a trained model
// against a held-out rating partition.
//
// The metric set is a closed enumeration: callers request metrics by name
// and unknown names are rejected up front, before any scoring work.
// Prediction metrics (rmse, mae) are computed over every scoreable
// (user, item) pair in the partition. Ranking metrics (precision_at_k,
// recall_at_k, ndcg_at_k, map_at_k) rank the model's full known-item
// catalog per user and average over users with at least one relevant
// held-out item. All computation is deterministic for a fixed model and
// partition.
package evaluate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/hypersweep/internal/dataset"
	"github.com/tomtom215/hypersweep/internal/model"
)

// Metric names accepted by Evaluate.
const (
	MetricRMSE         = "rmse"
	MetricMAE          = "mae"
	MetricPrecisionAtK = "precision_at_k"
	MetricRecallAtK    = "recall_at_k"
	MetricNDCGAtK      = "ndcg_at_k"
	MetricMAPAtK       = "map_at_k"
)

var (
	// ErrUnknownMetric indicates a metric name outside the supported set.
	ErrUnknownMetric = errors.New("unknown evaluation metric")

	// ErrNonPositiveK indicates a ranking metric was requested with k <= 0.
	ErrNonPositiveK = errors.New("ranking cutoff k must be positive")

	// ErrNoScoreablePairs indicates the model could score nothing in the
	// partition, so prediction metrics are undefined.
	ErrNoScoreablePairs = errors.New("no scoreable pairs in partition")
)

// KnownMetrics returns the supported metric names in stable order.
func KnownMetrics() []string {
	return []string{
		MetricRMSE,
		MetricMAE,
		MetricPrecisionAtK,
		MetricRecallAtK,
		MetricNDCGAtK,
		MetricMAPAtK,
	}
}

// IsRankingMetric reports whether the metric ranks a candidate list rather
// than scoring individual pairs.
func IsRankingMetric(name string) bool {
	switch name {
	case MetricPrecisionAtK, MetricRecallAtK, MetricNDCGAtK, MetricMAPAtK:
		return true
	default:
		return false
	}
}

func validMetric(name string) bool {
	switch name {
	case MetricRMSE, MetricMAE:
		return true
	default:
		return IsRankingMetric(name)
	}
}

// Options configures an evaluation pass.
type Options struct {
	// Metrics are the metric names to compute. Must be non-empty and every
	// name must be known.
	Metrics []string

	// K is the ranking cutoff for the *_at_k metrics. Ignored when only
	// prediction metrics are requested.
	K int

	// RelevanceThreshold marks a held-out rating as relevant when
	// rating >= threshold. Zero means every held-out rating is relevant.
	RelevanceThreshold float64

	// Seen maps user ID to the items the model saw during training. Seen
	// items are excluded from that user's ranked candidates so the model is
	// not credited for recommending what it already observed.
	Seen map[int]map[int]bool
}

// Evaluate computes the requested metrics for the model on the partition.
// The result maps metric name to value, one entry per requested metric.
func Evaluate(m model.Scorer, part *dataset.Partition, opts Options) (map[string]float64, error) {
	if part == nil || part.Len() == 0 {
		return nil, dataset.ErrEmptyPartition
	}
	if len(opts.Metrics) == 0 {
		return nil, fmt.Errorf("%w: no metrics requested", ErrUnknownMetric)
	}

	needRanking := false
	for _, name := range opts.Metrics {
		if !validMetric(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		if IsRankingMetric(name) {
			needRanking = true
		}
	}
	if needRanking && opts.K <= 0 {
		return nil, ErrNonPositiveK
	}

	results := make(map[string]float64, len(opts.Metrics))

	needPrediction := false
	for _, name := range opts.Metrics {
		if !IsRankingMetric(name) {
			needPrediction = true
		}
	}

	if needPrediction {
		rmse, mae, err := predictionErrors(m, part)
		if err != nil {
			return nil, err
		}
		for _, name := range opts.Metrics {
			switch name {
			case MetricRMSE:
				results[name] = rmse
			case MetricMAE:
				results[name] = mae
			}
		}
	}

	if needRanking {
		ranking := rankingMetrics(m, part, opts)
		for _, name := range opts.Metrics {
			if IsRankingMetric(name) {
				results[name] = ranking[name]
			}
		}
	}

	return results, nil
}

// predictionErrors computes RMSE and MAE over every scoreable pair.
func predictionErrors(m model.Scorer, part *dataset.Partition) (rmse, mae float64, err error) {
	var sqSum, absSum float64
	n := 0
	for _, r := range part.Ratings {
		pred, ok := m.Predict(r.UserID, r.ItemID)
		if !ok {
			continue
		}
		diff := pred - r.Rating
		sqSum += diff * diff
		absSum += math.Abs(diff)
		n++
	}
	if n == 0 {
		return 0, 0, ErrNoScoreablePairs
	}
	return math.Sqrt(sqSum / float64(n)), absSum / float64(n), nil
}

// rankingMetrics computes every ranking metric in one pass over users.
func rankingMetrics(m model.Scorer, part *dataset.Partition, opts Options) map[string]float64 {
	relevant := make(map[int]map[int]bool)
	for _, r := range part.Ratings {
		if opts.RelevanceThreshold > 0 && r.Rating < opts.RelevanceThreshold {
			continue
		}
		if relevant[r.UserID] == nil {
			relevant[r.UserID] = make(map[int]bool)
		}
		relevant[r.UserID][r.ItemID] = true
	}

	users := make([]int, 0, len(relevant))
	for u := range relevant {
		users = append(users, u)
	}
	sort.Ints(users)

	catalog := m.Items()

	var precSum, recSum, ndcgSum, mapSum float64
	evaluated := 0

	for _, user := range users {
		rel := relevant[user]
		candidates := catalog
		if seen := opts.Seen[user]; len(seen) > 0 {
			candidates = make([]int, 0, len(catalog))
			for _, item := range catalog {
				if !seen[item] {
					candidates = append(candidates, item)
				}
			}
		}

		top := model.RankItems(m, user, candidates, opts.K)
		if len(top) == 0 {
			continue
		}

		hits := 0
		var dcg, avgPrec float64
		for i, item := range top {
			if rel[item] {
				hits++
				dcg += 1.0 / math.Log2(float64(i)+2)
				avgPrec += float64(hits) / float64(i+1)
			}
		}

		idealLen := len(rel)
		if idealLen > opts.K {
			idealLen = opts.K
		}
		var idcg float64
		for i := 0; i < idealLen; i++ {
			idcg += 1.0 / math.Log2(float64(i)+2)
		}

		precSum += float64(hits) / float64(opts.K)
		recSum += float64(hits) / float64(len(rel))
		if idcg > 0 {
			ndcgSum += dcg / idcg
		}
		mapSum += avgPrec / float64(idealLen)
		evaluated++
	}

	out := map[string]float64{
		MetricPrecisionAtK: 0,
		MetricRecallAtK:    0,
		MetricNDCGAtK:      0,
		MetricMAPAtK:       0,
	}
	if evaluated == 0 {
		return out
	}
	n := float64(evaluated)
	out[MetricPrecisionAtK] = precSum / n
	out[MetricRecallAtK] = recSum / n
	out[MetricNDCGAtK] = ndcgSum / n
	out[MetricMAPAtK] = mapSum / n
	return out
}
