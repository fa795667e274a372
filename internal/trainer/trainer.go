// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package trainer implements the training entry point a sweep run executes:
// fit the ALS model on the train partition, log each requested metric
// exactly once against the validation partition, and optionally persist the
// model artifact.
//
// The same code backs both the in-process local platform and the
// cmd/trainer binary, so local and remote sweeps train identically.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/hypersweep/internal/dataset"
	"github.com/tomtom215/hypersweep/internal/evaluate"
	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/model"
)

var (
	// ErrUnknownHyperparameter indicates a swept parameter the trainer has
	// no flag for.
	ErrUnknownHyperparameter = errors.New("unknown hyperparameter")

	// ErrMissingPartition indicates a nil or empty input partition.
	ErrMissingPartition = errors.New("missing input partition")

	// ErrBadFixedArgument indicates a fixed argument that failed to parse.
	ErrBadFixedArgument = errors.New("bad fixed argument")
)

// Request is one training invocation.
type Request struct {
	// Train and Validation are the input partitions. The test partition is
	// never given to the trainer; it is reserved for offline evaluation.
	Train      *dataset.Partition
	Validation *dataset.Partition

	// FixedArgs are the rendered non-swept trainer arguments, by name.
	FixedArgs map[string]string

	// Params are the sampled hyperparameters, by name. Every name must map
	// to a hyperparameter the trainer declares; see applyParam.
	Params map[string]float64

	// Seed seeds model initialization.
	Seed int64
}

// Result is a completed training run.
type Result struct {
	// Metrics holds each requested metric exactly once, keyed by name and
	// computed on the validation partition.
	Metrics map[string]float64

	// Artifact is the serialized model, nil unless save_model was set.
	Artifact []byte
}

// Train executes one run. It honors context cancellation between
// optimization passes.
func Train(ctx context.Context, req Request) (*Result, error) {
	if req.Train == nil || req.Train.Len() == 0 {
		return nil, fmt.Errorf("%w: train", ErrMissingPartition)
	}
	if req.Validation == nil || req.Validation.Len() == 0 {
		return nil, fmt.Errorf("%w: validation", ErrMissingPartition)
	}

	cfg, topK, metricNames, saveModel, err := resolveArguments(req)
	if err != nil {
		return nil, err
	}

	log := logging.With().Str("component", "trainer").Logger()
	log.Info().
		Int("rank", cfg.Rank).
		Int("iterations", cfg.Iterations).
		Float64("regularization", cfg.Regularization).
		Int("train_records", req.Train.Len()).
		Int("validation_records", req.Validation.Len()).
		Msg("training started")

	m := model.NewALS(cfg)
	if err := m.Fit(ctx, req.Train.Ratings); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	metrics, err := evaluate.Evaluate(m, req.Validation, evaluate.Options{
		Metrics: metricNames,
		K:       topK,
		Seen:    seenPairs(req.Train),
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate on validation partition: %w", err)
	}

	logMetrics(log, metrics)

	res := &Result{Metrics: metrics}
	if saveModel {
		artifact, err := m.Marshal()
		if err != nil {
			return nil, err
		}
		res.Artifact = artifact
	}
	return res, nil
}

// resolveArguments builds the model configuration from fixed arguments,
// then applies the swept hyperparameters on top.
func resolveArguments(req Request) (cfg model.ALSConfig, topK int, metricNames []string, saveModel bool, err error) {
	cfg = model.DefaultALSConfig()
	cfg.Seed = req.Seed
	topK = 10

	for name, raw := range req.FixedArgs {
		switch name {
		case "factors":
			cfg.Rank, err = parseIntArg(name, raw)
		case "iterations":
			cfg.Iterations, err = parseIntArg(name, raw)
		case "regularization":
			cfg.Regularization, err = parseFloatArg(name, raw)
		case "top_k":
			topK, err = parseIntArg(name, raw)
		case "metrics":
			metricNames = splitMetrics(raw)
		case "save_model":
			saveModel, err = strconv.ParseBool(raw)
			if err != nil {
				err = fmt.Errorf("%w: save_model=%q", ErrBadFixedArgument, raw)
			}
		default:
			err = fmt.Errorf("%w: %q", ErrBadFixedArgument, name)
		}
		if err != nil {
			return cfg, 0, nil, false, err
		}
	}

	if len(metricNames) == 0 {
		return cfg, 0, nil, false, fmt.Errorf("%w: metrics list is empty", ErrBadFixedArgument)
	}

	for name, value := range req.Params {
		if err := applyParam(&cfg, name, value); err != nil {
			return cfg, 0, nil, false, err
		}
	}

	return cfg, topK, metricNames, saveModel, nil
}

// applyParam maps a swept hyperparameter name onto the model configuration.
// These names are the trainer's declared hyperparameter flags; they are
// distinct from the fixed argument names so a parameter is never both fixed
// and swept.
func applyParam(cfg *model.ALSConfig, name string, value float64) error {
	switch name {
	case "rank":
		cfg.Rank = int(math.Round(value))
	case "epochs":
		cfg.Iterations = int(math.Round(value))
	case "reg":
		cfg.Regularization = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHyperparameter, name)
	}
	return nil
}

// HyperparameterNames returns the swept hyperparameter names the trainer
// declares flags for.
func HyperparameterNames() []string {
	return []string{"rank", "epochs", "reg"}
}

func parseIntArg(name, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrBadFixedArgument, name, raw)
	}
	return v, nil
}

func parseFloatArg(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrBadFixedArgument, name, raw)
	}
	return v, nil
}

func splitMetrics(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// seenPairs indexes the train partition's (user, item) pairs for
// exclude-seen ranking.
func seenPairs(train *dataset.Partition) map[int]map[int]bool {
	seen := make(map[int]map[int]bool)
	for _, r := range train.Ratings {
		if seen[r.UserID] == nil {
			seen[r.UserID] = make(map[int]bool)
		}
		seen[r.UserID][r.ItemID] = true
	}
	return seen
}

// logMetrics emits one log line per metric. Each requested metric is logged
// exactly once; downstream consumers treat the last value per name as
// authoritative.
func logMetrics(log zerolog.Logger, metrics map[string]float64) {
	for _, name := range evaluate.KnownMetrics() {
		if value, ok := metrics[name]; ok {
			log.Info().
				Str("metric", name).
				Float64("value", value).
				Msg("metric logged")
		}
	}
}
