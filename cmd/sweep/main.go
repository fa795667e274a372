// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package main runs one sweep pipeline: resolve workspace, provision
// compute, stage the dataset, configure and submit the sweep, select the
// best run and evaluate it offline. The final report is printed as JSON on
// stdout.
//
// Configuration is layered: struct defaults, then the YAML file given with
// --config (or found on the default search path), then HYPERSWEEP_-prefixed
// environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hypersweep/internal/config"
	"github.com/tomtom215/hypersweep/internal/dataset"
	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/orchestrator"
	"github.com/tomtom215/hypersweep/internal/platform"
	"github.com/tomtom215/hypersweep/internal/platform/client"
	"github.com/tomtom215/hypersweep/internal/platform/local"
	"github.com/tomtom215/hypersweep/internal/store"
)

func main() {
	if err := run(); err != nil {
		logging.Err(err).Msg("sweep failed")
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer blobs.Close()

	p, cleanup, err := buildPlatform(cfg, blobs)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := orchestrator.New(cfg, p, blobs).Run(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func openStore(cfg *config.Config) (store.BlobStore, error) {
	switch cfg.Platform.StoreBackend {
	case "badger":
		return store.OpenBadger(store.BadgerOptions{Path: cfg.Platform.StoreDir})
	default:
		return store.NewFSStore(cfg.Platform.StoreDir)
	}
}

// buildPlatform selects the platform implementation per config. The
// returned cleanup is a no-op for remote mode.
func buildPlatform(cfg *config.Config, blobs store.BlobStore) (platform.Platform, func(), error) {
	if cfg.Platform.Mode == "remote" {
		c, err := client.New(client.Config{
			BaseURL:        cfg.Platform.BaseURL,
			TokenSecret:    cfg.Platform.TokenSecret,
			RequestTimeout: cfg.Platform.RequestTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}

	p, err := local.New(local.Options{
		Store:   blobs,
		Columns: datasetColumns(cfg),
		Workers: cfg.Compute.MaxNodes,
		Seed:    cfg.Dataset.Seed,
	})
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close() }, nil
}

func datasetColumns(cfg *config.Config) dataset.Columns {
	return dataset.Columns{
		User:      cfg.Dataset.UserColumn,
		Item:      cfg.Dataset.ItemColumn,
		Rating:    cfg.Dataset.RatingColumn,
		Timestamp: cfg.Dataset.TimestampColumn,
	}
}
