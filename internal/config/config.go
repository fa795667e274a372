// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package config loads and validates Hypersweep configuration.
//
// Configuration is layered with Koanf v2: struct defaults, then an optional
// YAML file, then HYPERSWEEP_-prefixed environment variables. Every
// recognized fixed trainer argument and every sweep knob is an explicit,
// typed field; there are no free-form parameter bags. Validation runs
// eagerly at load time so that bad identifiers or bad sweep settings fail
// before any remote resource is touched.
package config

import (
	"time"
)

// Config is the root configuration for a sweep invocation.
type Config struct {
	Workspace  WorkspaceConfig  `koanf:"workspace"`
	Compute    ComputeConfig    `koanf:"compute"`
	Dataset    DatasetConfig    `koanf:"dataset"`
	Sweep      SweepConfig      `koanf:"sweep"`
	Evaluation EvaluationConfig `koanf:"evaluation"`
	Platform   PlatformConfig   `koanf:"platform"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// WorkspaceConfig identifies the remote workspace.
type WorkspaceConfig struct {
	// Subscription is the cloud subscription identifier.
	Subscription string `koanf:"subscription" validate:"required"`

	// ResourceGroup is the resource group containing the workspace.
	ResourceGroup string `koanf:"resource_group" validate:"required"`

	// Name is the workspace name.
	Name string `koanf:"name" validate:"required"`

	// CreateIfAbsent creates the workspace when it does not exist.
	CreateIfAbsent bool `koanf:"create_if_absent"`
}

// ComputeConfig describes the elastic compute pool runs execute on.
type ComputeConfig struct {
	// PoolName is the compute pool name. Provisioning is idempotent:
	// an existing pool with this name is reused as-is.
	PoolName string `koanf:"pool_name" validate:"required"`

	// VMSize is the VM shape for pool nodes (e.g. "standard-d2-v2").
	VMSize string `koanf:"vm_size" validate:"required"`

	// Priority is the node priority class.
	Priority string `koanf:"priority" validate:"oneof=dedicated lowpriority"`

	// MinNodes is the minimum pool size.
	MinNodes int `koanf:"min_nodes" validate:"min=0"`

	// MaxNodes is the maximum pool size.
	MaxNodes int `koanf:"max_nodes" validate:"min=1"`
}

// DatasetConfig describes the ratings dataset and how to split it.
type DatasetConfig struct {
	// Name is the dataset name used to derive content-store paths.
	Name string `koanf:"name" validate:"required"`

	// Path is the local CSV file holding the raw ratings.
	Path string `koanf:"path" validate:"required"`

	// UserColumn, ItemColumn and RatingColumn bind CSV headers to the
	// three-column rating schema. TimestampColumn is optional.
	UserColumn      string `koanf:"user_column" validate:"required"`
	ItemColumn      string `koanf:"item_column" validate:"required"`
	RatingColumn    string `koanf:"rating_column" validate:"required"`
	TimestampColumn string `koanf:"timestamp_column"`

	// TrainFraction, ValidationFraction and TestFraction are the split
	// proportions. They must be positive and sum to 1.0 within tolerance.
	TrainFraction      float64 `koanf:"train_fraction"`
	ValidationFraction float64 `koanf:"validation_fraction"`
	TestFraction       float64 `koanf:"test_fraction"`

	// Seed makes the partition assignment reproducible.
	Seed int64 `koanf:"seed"`
}

// TrainerArguments enumerates every fixed (non-swept) argument the trainer
// entry point accepts. Swept hyperparameter names must not collide with any
// argument name declared here.
type TrainerArguments struct {
	// Factors is the latent factor dimension.
	Factors int `koanf:"factors" validate:"min=1"`

	// Iterations is the number of ALS iterations.
	Iterations int `koanf:"iterations" validate:"min=1"`

	// Regularization is the L2 regularization strength.
	Regularization float64 `koanf:"regularization" validate:"gt=0"`

	// TopK is the ranking cutoff the trainer evaluates at.
	TopK int `koanf:"top_k" validate:"min=1"`

	// Metrics lists the metric names the trainer must log, each exactly once.
	Metrics []string `koanf:"metrics" validate:"min=1"`

	// SaveModel instructs the trainer to persist the model artifact.
	SaveModel bool `koanf:"save_model"`
}

// ArgumentNames returns the CLI argument name of every fixed argument.
// Used for swept-name collision detection.
func (a TrainerArguments) ArgumentNames() []string {
	return []string{"factors", "iterations", "regularization", "top_k", "metrics", "save_model"}
}

// DistributionConfig declares a sampling distribution for one hyperparameter.
type DistributionConfig struct {
	// Kind is the distribution kind: choice, uniform or quniform.
	Kind string `koanf:"kind" validate:"oneof=choice uniform quniform"`

	// Choices holds the candidate values for a choice distribution.
	Choices []float64 `koanf:"choices"`

	// Low and High bound uniform and quniform distributions.
	Low  float64 `koanf:"low"`
	High float64 `koanf:"high"`

	// Step quantizes a quniform distribution.
	Step float64 `koanf:"step"`
}

// SweepConfig describes the hyperparameter sweep.
type SweepConfig struct {
	// Strategy is the sampling strategy: random, grid or bayesian.
	Strategy string `koanf:"strategy" validate:"oneof=random grid bayesian"`

	// PrimaryMetric is the scalar used to rank runs.
	PrimaryMetric string `koanf:"primary_metric" validate:"required"`

	// Goal is the optimization direction: maximize or minimize.
	Goal string `koanf:"goal" validate:"oneof=maximize minimize"`

	// MaxTotalRuns bounds the number of runs submitted.
	MaxTotalRuns int `koanf:"max_total_runs" validate:"min=1"`

	// MaxConcurrentRuns bounds the number of runs in flight.
	MaxConcurrentRuns int `koanf:"max_concurrent_runs" validate:"min=1"`

	// Timeout bounds the wait for sweep completion. Zero means no timeout.
	// On timeout, outstanding runs keep executing unless canceled.
	Timeout time.Duration `koanf:"timeout"`

	// Seed seeds the local sampler.
	Seed int64 `koanf:"seed"`

	// FixedArguments are the non-swept trainer arguments.
	FixedArguments TrainerArguments `koanf:"fixed_arguments"`

	// SearchSpace maps hyperparameter name to sampling distribution.
	SearchSpace map[string]DistributionConfig `koanf:"search_space" validate:"min=1"`
}

// EvaluationConfig describes the offline evaluation stage.
type EvaluationConfig struct {
	// TopK is the ranking cutoff for precision/ndcg.
	TopK int `koanf:"top_k" validate:"min=1"`

	// ExcludeSeen removes (user,item) pairs seen during training from
	// ranking candidates.
	ExcludeSeen bool `koanf:"exclude_seen"`

	// RelevanceThreshold is the minimum rating for an item to count as
	// relevant in ranking metrics.
	RelevanceThreshold float64 `koanf:"relevance_threshold"`

	// Metrics lists the metric names to recompute offline.
	Metrics []string `koanf:"metrics" validate:"min=1"`

	// ArtifactPath is where the best run's model artifact is downloaded.
	// An existing file at this path is overwritten.
	ArtifactPath string `koanf:"artifact_path" validate:"required"`
}

// PlatformConfig selects and configures the platform transport.
type PlatformConfig struct {
	// Mode selects the platform implementation: local or remote.
	Mode string `koanf:"mode" validate:"oneof=local remote"`

	// BaseURL is the remote platform endpoint (remote mode).
	BaseURL string `koanf:"base_url" validate:"required_if=Mode remote"`

	// TokenSecret signs the bearer tokens presented to the platform API.
	TokenSecret string `koanf:"token_secret" validate:"required_if=Mode remote"`

	// StoreDir is the local content-store root (local mode).
	StoreDir string `koanf:"store_dir"`

	// StoreBackend selects the local content-store backend: fs or badger.
	StoreBackend string `koanf:"store_backend" validate:"oneof=fs badger"`

	// RequestTimeout bounds individual platform API calls.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// PollInterval is the run-status polling cadence.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns a Config with all sensible default values.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			CreateIfAbsent: true,
		},
		Compute: ComputeConfig{
			PoolName: "sweep-pool",
			VMSize:   "standard-d2-v2",
			Priority: "lowpriority",
			MinNodes: 0,
			MaxNodes: 4,
		},
		Dataset: DatasetConfig{
			UserColumn:         "user_id",
			ItemColumn:         "item_id",
			RatingColumn:       "rating",
			TrainFraction:      0.70,
			ValidationFraction: 0.15,
			TestFraction:       0.15,
			Seed:               42,
		},
		Sweep: SweepConfig{
			Strategy:          "random",
			PrimaryMetric:     "precision_at_k",
			Goal:              "maximize",
			MaxTotalRuns:      20,
			MaxConcurrentRuns: 4,
			Timeout:           0,
			Seed:              42,
			FixedArguments: TrainerArguments{
				Factors:        64,
				Iterations:     15,
				Regularization: 0.05,
				TopK:           10,
				Metrics:        []string{"rmse", "precision_at_k", "ndcg_at_k"},
				SaveModel:      true,
			},
			SearchSpace: map[string]DistributionConfig{},
		},
		Evaluation: EvaluationConfig{
			TopK:               10,
			ExcludeSeen:        true,
			RelevanceThreshold: 3.5,
			Metrics:            []string{"rmse", "precision_at_k", "ndcg_at_k"},
			ArtifactPath:       "best-model.json",
		},
		Platform: PlatformConfig{
			Mode:           "local",
			StoreDir:       "data",
			StoreBackend:   "fs",
			RequestTimeout: 30 * time.Second,
			PollInterval:   2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
