// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"hypersweep.yaml",
	"hypersweep.yml",
	"/etc/hypersweep/config.yaml",
	"/etc/hypersweep/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "HYPERSWEEP_CONFIG"

// envPrefix is stripped from environment variables before mapping them to
// config paths.
const envPrefix = "HYPERSWEEP_"

// Load loads configuration with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if found)
//  3. Environment variables: HYPERSWEEP_-prefixed overrides
//
// The merged configuration is validated before being returned; a validation
// failure here means no remote call has been made yet.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom loads configuration from a specific YAML file path. An empty
// path skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines config paths parsed as comma-separated slices
// when supplied through environment variables.
var sliceConfigPaths = []string{
	"sweep.fixed_arguments.metrics",
	"evaluation.metrics",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars arrive as strings; the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps flattened environment variable names (prefix stripped,
// lowercased) to nested config paths. Only mapped variables are honored;
// unmapped ones are dropped so unrelated HYPERSWEEP_ vars cannot corrupt
// nested keys containing underscores.
var envMappings = map[string]string{
	"workspace_subscription":     "workspace.subscription",
	"workspace_resource_group":   "workspace.resource_group",
	"workspace_name":             "workspace.name",
	"workspace_create_if_absent": "workspace.create_if_absent",

	"compute_pool_name": "compute.pool_name",
	"compute_vm_size":   "compute.vm_size",
	"compute_priority":  "compute.priority",
	"compute_min_nodes": "compute.min_nodes",
	"compute_max_nodes": "compute.max_nodes",

	"dataset_name":                "dataset.name",
	"dataset_path":                "dataset.path",
	"dataset_user_column":         "dataset.user_column",
	"dataset_item_column":         "dataset.item_column",
	"dataset_rating_column":       "dataset.rating_column",
	"dataset_timestamp_column":    "dataset.timestamp_column",
	"dataset_train_fraction":      "dataset.train_fraction",
	"dataset_validation_fraction": "dataset.validation_fraction",
	"dataset_test_fraction":       "dataset.test_fraction",
	"dataset_seed":                "dataset.seed",

	"sweep_strategy":            "sweep.strategy",
	"sweep_primary_metric":      "sweep.primary_metric",
	"sweep_goal":                "sweep.goal",
	"sweep_max_total_runs":      "sweep.max_total_runs",
	"sweep_max_concurrent_runs": "sweep.max_concurrent_runs",
	"sweep_timeout":             "sweep.timeout",
	"sweep_seed":                "sweep.seed",
	"sweep_metrics":             "sweep.fixed_arguments.metrics",

	"evaluation_top_k":         "evaluation.top_k",
	"evaluation_exclude_seen":  "evaluation.exclude_seen",
	"evaluation_metrics":       "evaluation.metrics",
	"evaluation_artifact_path": "evaluation.artifact_path",

	"platform_mode":            "platform.mode",
	"platform_base_url":        "platform.base_url",
	"platform_token_secret":    "platform.token_secret",
	"platform_store_dir":       "platform.store_dir",
	"platform_store_backend":   "platform.store_backend",
	"platform_request_timeout": "platform.request_timeout",
	"platform_poll_interval":   "platform.poll_interval",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

// envTransformFunc maps HYPERSWEEP_WORKSPACE_NAME to workspace.name, etc.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
