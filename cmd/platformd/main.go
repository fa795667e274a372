// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package main runs the platform daemon: a local platform instance exposed
// over the REST facade, supervised by a suture tree. Remote-mode sweeps
// (HYPERSWEEP_PLATFORM_MODE=remote) point their base URL at this process.
//
// The daemon supervises three services: the run janitor, the status event
// logger and the HTTP facade. A crash in any of them is restarted in
// isolation.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/hypersweep/internal/config"
	"github.com/tomtom215/hypersweep/internal/dataset"
	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/platform/local"
	"github.com/tomtom215/hypersweep/internal/platform/server"
	"github.com/tomtom215/hypersweep/internal/store"
	"github.com/tomtom215/hypersweep/internal/supervisor"
)

func main() {
	if err := run(); err != nil && err != context.Canceled {
		logging.Err(err).Msg("platform daemon failed")
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		addr       = flag.String("addr", ":8080", "HTTP listen address")
	)
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var blobs store.BlobStore
	if cfg.Platform.StoreBackend == "badger" {
		blobs, err = store.OpenBadger(store.BadgerOptions{Path: cfg.Platform.StoreDir})
	} else {
		blobs, err = store.NewFSStore(cfg.Platform.StoreDir)
	}
	if err != nil {
		return err
	}
	defer blobs.Close()

	p, err := local.New(local.Options{
		Store: blobs,
		Columns: dataset.Columns{
			User:      cfg.Dataset.UserColumn,
			Item:      cfg.Dataset.ItemColumn,
			Rating:    cfg.Dataset.RatingColumn,
			Timestamp: cfg.Dataset.TimestampColumn,
		},
		Workers: cfg.Compute.MaxNodes,
		Seed:    cfg.Dataset.Seed,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPlatformService(local.NewJanitor(p, 10*time.Minute, 24*time.Hour))
	tree.AddPlatformService(local.NewStatusLogger(p))
	tree.AddAPIService(server.New(server.Config{
		Addr:           *addr,
		TokenSecret:    cfg.Platform.TokenSecret,
		RequestTimeout: cfg.Platform.RequestTimeout,
	}, p))

	logging.Info().Str("addr", *addr).Msg("platform daemon starting")
	return tree.Serve(ctx)
}
