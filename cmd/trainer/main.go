// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package main is the training entry point a sweep run executes.
//
// It loads the train and validation partitions from CSV, fits the ALS model
// with the given fixed arguments and swept hyperparameters, logs each
// requested metric exactly once, and writes model.json under the output
// directory when --save-model is set. The process exits non-zero on any
// failure so the platform marks the run failed.
//
// Every swept hyperparameter has a named flag (--rank, --epochs, --reg);
// only flags that were explicitly set are treated as swept values.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/tomtom215/hypersweep/internal/dataset"
	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/trainer"
)

func main() {
	if err := run(); err != nil {
		logging.Err(err).Msg("training run failed")
		os.Exit(1)
	}
}

//nolint:funlen // flat flag surface, no abstraction wanted here
func run() error {
	var (
		trainPath      = flag.String("train", "", "path to the train partition CSV")
		validationPath = flag.String("validation", "", "path to the validation partition CSV")
		outputDir      = flag.String("output-dir", "outputs", "directory for the model artifact")

		userColumn      = flag.String("user-column", "user_id", "CSV column holding the user ID")
		itemColumn      = flag.String("item-column", "item_id", "CSV column holding the item ID")
		ratingColumn    = flag.String("rating-column", "rating", "CSV column holding the rating")
		timestampColumn = flag.String("timestamp-column", "", "CSV column holding the unix timestamp (optional)")

		factors        = flag.Int("factors", 64, "latent factor dimension")
		iterations     = flag.Int("iterations", 15, "ALS iterations")
		regularization = flag.Float64("regularization", 0.05, "L2 regularization strength")
		topK           = flag.Int("top-k", 10, "ranking cutoff for *_at_k metrics")
		metrics        = flag.String("metrics", "rmse", "comma-separated metric names to log")
		saveModel      = flag.Bool("save-model", false, "persist the model artifact")
		seed           = flag.Int64("seed", 42, "model initialization seed")

		rank   = flag.Float64("rank", 0, "swept: latent factor dimension")
		epochs = flag.Float64("epochs", 0, "swept: ALS iterations")
		reg    = flag.Float64("reg", 0, "swept: L2 regularization strength")

		logLevel  = flag.String("log-level", "info", "minimum log level")
		logFormat = flag.String("log-format", "json", "log format: json or console")
	)
	flag.Parse()

	logging.Init(logging.Config{Level: *logLevel, Format: *logFormat})

	if *trainPath == "" || *validationPath == "" {
		return fmt.Errorf("--train and --validation are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cols := dataset.Columns{
		User:      *userColumn,
		Item:      *itemColumn,
		Rating:    *ratingColumn,
		Timestamp: *timestampColumn,
	}

	train, err := loadPartition(*trainPath, dataset.LabelTrain, cols)
	if err != nil {
		return err
	}
	validation, err := loadPartition(*validationPath, dataset.LabelValidation, cols)
	if err != nil {
		return err
	}

	// Only explicitly set swept flags become swept values; defaults never
	// override the fixed arguments.
	params := make(map[string]float64)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rank":
			params["rank"] = *rank
		case "epochs":
			params["epochs"] = *epochs
		case "reg":
			params["reg"] = *reg
		}
	})

	res, err := trainer.Train(ctx, trainer.Request{
		Train:      train,
		Validation: validation,
		FixedArgs: map[string]string{
			"factors":        strconv.Itoa(*factors),
			"iterations":     strconv.Itoa(*iterations),
			"regularization": strconv.FormatFloat(*regularization, 'g', -1, 64),
			"top_k":          strconv.Itoa(*topK),
			"metrics":        *metrics,
			"save_model":     strconv.FormatBool(*saveModel),
		},
		Params: params,
		Seed:   *seed,
	})
	if err != nil {
		return err
	}

	if res.Artifact != nil {
		if err := os.MkdirAll(*outputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		path := filepath.Join(*outputDir, "model.json")
		if err := os.WriteFile(path, res.Artifact, 0o644); err != nil {
			return fmt.Errorf("write model artifact: %w", err)
		}
		logging.Info().Str("path", path).Msg("model artifact written")
	}

	return nil
}

func loadPartition(path string, label dataset.PartitionLabel, cols dataset.Columns) (*dataset.Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s partition: %w", label, err)
	}
	defer f.Close()

	ratings, err := dataset.ReadCSV(f, cols)
	if err != nil {
		return nil, fmt.Errorf("read %s partition: %w", label, err)
	}
	return &dataset.Partition{Label: label, Ratings: ratings}, nil
}
