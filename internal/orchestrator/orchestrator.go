// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package orchestrator drives the sweep pipeline end to end: workspace
// resolution, compute provisioning, dataset staging, sweep configuration,
// submission, best-run selection and offline evaluation. The stages run
// strictly in order and never branch back; any stage error aborts the
// pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/hypersweep/internal/config"
	"github.com/tomtom215/hypersweep/internal/dataset"
	"github.com/tomtom215/hypersweep/internal/evaluate"
	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/metrics"
	"github.com/tomtom215/hypersweep/internal/model"
	"github.com/tomtom215/hypersweep/internal/platform"
	"github.com/tomtom215/hypersweep/internal/store"
	"github.com/tomtom215/hypersweep/internal/sweep"
	"github.com/tomtom215/hypersweep/internal/trainer"
)

// Report is the pipeline's final output.
//
// ValidationMetrics are the best run's self-reported metrics, computed by
// the trainer on the validation partition. OfflineMetrics are recomputed
// here on the held-out test partition. They answer different questions and
// are reported side by side, never merged.
type Report struct {
	SweepID string `json:"sweep_id"`

	BestRun *platform.RunInfo `json:"best_run"`

	ValidationMetrics map[string]float64 `json:"validation_metrics"`
	OfflineMetrics    map[string]float64 `json:"offline_metrics"`

	// ArtifactPath is where the best model artifact was written.
	ArtifactPath string `json:"artifact_path"`
}

// Orchestrator executes the pipeline against a platform.
type Orchestrator struct {
	cfg      *config.Config
	platform platform.Platform
	blobs    store.BlobStore
	log      zerolog.Logger
}

// New creates an orchestrator. The content store is where datasets are
// staged; in local mode it is the same store the platform trains from.
func New(cfg *config.Config, p platform.Platform, blobs store.BlobStore) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		platform: p,
		blobs:    blobs,
		log:      logging.With().Str("component", "orchestrator").Logger(),
	}
}

// Run executes all seven stages and returns the final report. When the
// sweep timeout elapses before all runs are terminal, Run cancels the
// outstanding runs and proceeds to selection over whatever completed.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	ws, err := o.resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	pool, err := o.provisionCompute(ctx, ws.ID)
	if err != nil {
		return nil, err
	}

	if err := o.stageDataset(ctx); err != nil {
		return nil, err
	}

	desc, err := o.configureSweep()
	if err != nil {
		return nil, err
	}

	runs, err := o.submitAndAwait(ctx, desc, ws.ID, pool.Spec.Name)
	if err != nil {
		return nil, err
	}
	o.log.Info().Int("runs", len(runs)).Str("sweep_id", desc.ID).Msg("sweep finished")

	best, err := o.selectBest(ctx, desc)
	if err != nil {
		return nil, err
	}

	offline, artifactPath, err := o.evaluateOffline(ctx, best)
	if err != nil {
		return nil, err
	}

	return &Report{
		SweepID:           desc.ID,
		BestRun:           best,
		ValidationMetrics: best.Metrics,
		OfflineMetrics:    offline,
		ArtifactPath:      artifactPath,
	}, nil
}

// timed wraps one stage with duration metrics and logging.
func (o *Orchestrator) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.RecordStage(stage, elapsed)

	event := o.log.Info()
	if err != nil {
		event = o.log.Error().Err(err)
	}
	event.Str("stage", stage).Dur("elapsed", elapsed).Msg("stage finished")
	return err
}

func (o *Orchestrator) resolveWorkspace(ctx context.Context) (*platform.Workspace, error) {
	var ws *platform.Workspace
	err := o.timed("resolve_workspace", func() error {
		var err error
		ws, err = o.platform.ResolveWorkspace(ctx, platform.WorkspaceSpec{
			Subscription:   o.cfg.Workspace.Subscription,
			ResourceGroup:  o.cfg.Workspace.ResourceGroup,
			Name:           o.cfg.Workspace.Name,
			CreateIfAbsent: o.cfg.Workspace.CreateIfAbsent,
		})
		if err != nil {
			return fmt.Errorf("resolve workspace: %w", err)
		}
		return nil
	})
	return ws, err
}

func (o *Orchestrator) provisionCompute(ctx context.Context, workspaceID string) (*platform.ComputePool, error) {
	var pool *platform.ComputePool
	err := o.timed("provision_compute", func() error {
		var err error
		pool, err = o.platform.EnsureComputePool(ctx, workspaceID, platform.PoolSpec{
			Name:     o.cfg.Compute.PoolName,
			VMSize:   o.cfg.Compute.VMSize,
			Priority: o.cfg.Compute.Priority,
			MinNodes: o.cfg.Compute.MinNodes,
			MaxNodes: o.cfg.Compute.MaxNodes,
		})
		if err != nil {
			return fmt.Errorf("provision compute pool: %w", err)
		}
		if pool.Reused {
			o.log.Info().Str("pool", pool.Spec.Name).Msg("existing compute pool reused as-is")
		}
		return nil
	})
	return pool, err
}

func (o *Orchestrator) stageDataset(ctx context.Context) error {
	return o.timed("stage_dataset", func() error {
		f, err := os.Open(o.cfg.Dataset.Path)
		if err != nil {
			return fmt.Errorf("open dataset: %w", err)
		}
		defer f.Close()

		ratings, err := dataset.ReadCSV(f, o.columns())
		if err != nil {
			return fmt.Errorf("read dataset: %w", err)
		}

		stager := dataset.NewStager(o.blobs, o.columns())
		_, err = stager.Stage(ctx, o.cfg.Dataset.Name, ratings, dataset.Proportions{
			Train:      o.cfg.Dataset.TrainFraction,
			Validation: o.cfg.Dataset.ValidationFraction,
			Test:       o.cfg.Dataset.TestFraction,
		}, o.cfg.Dataset.Seed)
		if err != nil {
			return fmt.Errorf("stage dataset: %w", err)
		}
		return nil
	})
}

func (o *Orchestrator) configureSweep() (*sweep.Descriptor, error) {
	var desc *sweep.Descriptor
	err := o.timed("configure_sweep", func() error {
		var err error
		desc, err = sweep.NewDescriptor(o.cfg.Sweep, trainer.HyperparameterNames())
		if err != nil {
			return fmt.Errorf("configure sweep: %w", err)
		}
		return nil
	})
	return desc, err
}

// submitAndAwait submits all runs and blocks until the sweep is terminal.
// On wait timeout the outstanding runs are canceled and the pipeline
// proceeds with whatever completed.
func (o *Orchestrator) submitAndAwait(ctx context.Context, desc *sweep.Descriptor, workspaceID, poolName string) ([]*platform.RunInfo, error) {
	var runs []*platform.RunInfo
	err := o.timed("submit_sweep", func() error {
		submitter := sweep.NewSubmitter(o.platform, o.cfg.Platform.PollInterval)
		_, err := submitter.Submit(ctx, desc, sweep.NewSampler(desc), sweep.RunTarget{
			WorkspaceID: workspaceID,
			PoolName:    poolName,
			EntryPoint:  "trainer",
			Dataset:     o.cfg.Dataset.Name,
		})
		if err != nil {
			return fmt.Errorf("submit sweep: %w", err)
		}

		waiter := sweep.NewWaiter(o.platform, o.cfg.Platform.PollInterval)
		runs, err = waiter.Wait(ctx, desc.ID, desc.Timeout)
		if errors.Is(err, sweep.ErrWaitTimeout) {
			o.log.Warn().Str("sweep_id", desc.ID).Msg("sweep timed out, canceling outstanding runs")
			if cancelErr := o.platform.CancelSweep(ctx, desc.ID); cancelErr != nil {
				return fmt.Errorf("cancel timed-out sweep: %w", cancelErr)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("await sweep: %w", err)
		}
		return nil
	})
	return runs, err
}

func (o *Orchestrator) selectBest(ctx context.Context, desc *sweep.Descriptor) (*platform.RunInfo, error) {
	var best *platform.RunInfo
	err := o.timed("select_best", func() error {
		var err error
		best, err = sweep.Best(ctx, o.platform, desc.ID, desc.PrimaryMetric, desc.Goal)
		if err != nil {
			return fmt.Errorf("select best run: %w", err)
		}
		o.log.Info().
			Str("run_id", best.ID).
			Int("index", best.Index).
			Float64(desc.PrimaryMetric, best.Metrics[desc.PrimaryMetric]).
			Msg("best run selected")
		return nil
	})
	return best, err
}

// evaluateOffline downloads the best run's artifact, recomputes the
// configured metrics on the held-out test partition and writes the
// artifact to its final path, overwriting any previous one.
func (o *Orchestrator) evaluateOffline(ctx context.Context, best *platform.RunInfo) (map[string]float64, string, error) {
	var offline map[string]float64
	artifactPath := o.cfg.Evaluation.ArtifactPath

	err := o.timed("evaluate_offline", func() error {
		artifact, err := o.platform.DownloadArtifact(ctx, best.ID)
		if err != nil {
			return fmt.Errorf("download best artifact: %w", err)
		}

		m, err := model.UnmarshalALS(artifact)
		if err != nil {
			return fmt.Errorf("decode best artifact: %w", err)
		}

		stager := dataset.NewStager(o.blobs, o.columns())
		test, err := stager.LoadPartition(ctx, o.cfg.Dataset.Name, dataset.LabelTest)
		if err != nil {
			return err
		}

		opts := evaluate.Options{
			Metrics:            o.cfg.Evaluation.Metrics,
			K:                  o.cfg.Evaluation.TopK,
			RelevanceThreshold: o.cfg.Evaluation.RelevanceThreshold,
		}
		if o.cfg.Evaluation.ExcludeSeen {
			train, err := stager.LoadPartition(ctx, o.cfg.Dataset.Name, dataset.LabelTrain)
			if err != nil {
				return err
			}
			opts.Seen = seenPairs(&train)
		}

		offline, err = evaluate.Evaluate(m, &test, opts)
		if err != nil {
			return fmt.Errorf("offline evaluation: %w", err)
		}

		if err := os.WriteFile(artifactPath, artifact, 0o644); err != nil {
			return fmt.Errorf("write best artifact: %w", err)
		}
		return nil
	})
	return offline, artifactPath, err
}

func (o *Orchestrator) columns() dataset.Columns {
	return dataset.Columns{
		User:      o.cfg.Dataset.UserColumn,
		Item:      o.cfg.Dataset.ItemColumn,
		Rating:    o.cfg.Dataset.RatingColumn,
		Timestamp: o.cfg.Dataset.TimestampColumn,
	}
}

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
