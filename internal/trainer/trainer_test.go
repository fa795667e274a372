// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package trainer

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/tomtom215/hypersweep/internal/dataset"
	"github.com/tomtom215/hypersweep/internal/model"
)

func trainValidation(t *testing.T) (*dataset.Partition, *dataset.Partition) {
	t.Helper()
	rng := rand.New(rand.NewSource(5))
	var ratings []dataset.Rating
	for i := 0; i < 2000; i++ {
		user := rng.Intn(40)
		item := rng.Intn(60)
		score := 2.0
		if user%3 == item%3 {
			score = 4.5
		}
		ratings = append(ratings, dataset.Rating{UserID: user, ItemID: item, Rating: score})
	}

	train, validation, _, err := dataset.Split(ratings, dataset.Proportions{Train: 0.7, Validation: 0.15, Test: 0.15}, 1)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	return &train, &validation
}

func baseRequest(t *testing.T) Request {
	train, validation := trainValidation(t)
	return Request{
		Train:      train,
		Validation: validation,
		FixedArgs: map[string]string{
			"factors":        "8",
			"iterations":     "5",
			"regularization": "0.05",
			"top_k":          "5",
			"metrics":        "rmse,precision_at_k,ndcg_at_k",
			"save_model":     "true",
		},
		Seed: 42,
	}
}

func TestTrainLogsEachRequestedMetricOnce(t *testing.T) {
	res, err := Train(context.Background(), baseRequest(t))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	want := []string{"rmse", "precision_at_k", "ndcg_at_k"}
	if len(res.Metrics) != len(want) {
		t.Fatalf("logged %d metrics, want %d: %v", len(res.Metrics), len(want), res.Metrics)
	}
	for _, name := range want {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("metric %q not logged", name)
		}
	}
}

func TestTrainPersistsArtifactWhenInstructed(t *testing.T) {
	req := baseRequest(t)

	res, err := Train(context.Background(), req)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if len(res.Artifact) == 0 {
		t.Fatal("save_model=true produced no artifact")
	}
	if _, err := model.UnmarshalALS(res.Artifact); err != nil {
		t.Fatalf("artifact does not round-trip: %v", err)
	}

	req.FixedArgs["save_model"] = "false"
	res, err = Train(context.Background(), req)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if res.Artifact != nil {
		t.Error("save_model=false still produced an artifact")
	}
}

func TestTrainAppliesSweptHyperparameters(t *testing.T) {
	req := baseRequest(t)
	req.Params = map[string]float64{"rank": 4, "epochs": 3, "reg": 0.2}

	cfg, _, _, _, err := resolveArguments(req)
	if err != nil {
		t.Fatalf("resolveArguments() error = %v", err)
	}
	if cfg.Rank != 4 {
		t.Errorf("rank = %d, want 4", cfg.Rank)
	}
	if cfg.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", cfg.Iterations)
	}
	if cfg.Regularization != 0.2 {
		t.Errorf("regularization = %v, want 0.2", cfg.Regularization)
	}
}

func TestTrainRejectsUnknownHyperparameter(t *testing.T) {
	req := baseRequest(t)
	req.Params = map[string]float64{"learning_rate": 0.1}

	_, err := Train(context.Background(), req)
	if !errors.Is(err, ErrUnknownHyperparameter) {
		t.Fatalf("Train() error = %v, want ErrUnknownHyperparameter", err)
	}
}

func TestTrainRejectsBadFixedArguments(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"non-numeric factors", func(a map[string]string) { a["factors"] = "many" }},
		{"non-boolean save_model", func(a map[string]string) { a["save_model"] = "yep" }},
		{"unknown argument", func(a map[string]string) { a["batch_size"] = "64" }},
		{"empty metrics", func(a map[string]string) { a["metrics"] = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(t)
			tt.mutate(req.FixedArgs)

			_, err := Train(context.Background(), req)
			if !errors.Is(err, ErrBadFixedArgument) {
				t.Errorf("Train() error = %v, want ErrBadFixedArgument", err)
			}
		})
	}
}

func TestTrainRejectsMissingPartitions(t *testing.T) {
	req := baseRequest(t)
	req.Validation = nil

	_, err := Train(context.Background(), req)
	if !errors.Is(err, ErrMissingPartition) {
		t.Fatalf("Train() error = %v, want ErrMissingPartition", err)
	}
}

func TestTrainDeterministic(t *testing.T) {
	a, err := Train(context.Background(), baseRequest(t))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	b, err := Train(context.Background(), baseRequest(t))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if !reflect.DeepEqual(a.Metrics, b.Metrics) {
		t.Errorf("identical requests produced different metrics: %v vs %v", a.Metrics, b.Metrics)
	}
}
