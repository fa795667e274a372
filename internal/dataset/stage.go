// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/store"
)

// PartitionKey returns the deterministic content-store key for a partition.
func PartitionKey(datasetName string, label PartitionLabel) string {
	return fmt.Sprintf("datasets/%s/%s.csv", datasetName, label)
}

// ManifestKey returns the content-store key for a dataset's split manifest.
func ManifestKey(datasetName string) string {
	return fmt.Sprintf("datasets/%s/manifest.json", datasetName)
}

// Manifest records how a staged dataset was split, so a sweep can verify it
// is training against the partitions it expects.
type Manifest struct {
	Dataset     string                 `json:"dataset"`
	Seed        int64                  `json:"seed"`
	Proportions Proportions            `json:"proportions"`
	Counts      map[PartitionLabel]int `json:"counts"`
	StagedAt    time.Time              `json:"staged_at"`
}

// Stager splits a dataset and uploads the partitions to a content store.
type Stager struct {
	store store.BlobStore
	cols  Columns
}

// NewStager creates a stager writing through the given store with the given
// column bindings.
func NewStager(blobs store.BlobStore, cols Columns) *Stager {
	return &Stager{store: blobs, cols: cols}
}

// Stage splits ratings per proportions and seed, then serializes each
// partition to the content store under a deterministic path derived from
// the dataset name and partition label, overwriting existing objects.
// Validation failures surface before anything is written.
func (s *Stager) Stage(ctx context.Context, name string, ratings []Rating, proportions Proportions, seed int64) (*Manifest, error) {
	if name == "" {
		return nil, fmt.Errorf("dataset name must not be empty")
	}

	train, validation, test, err := Split(ratings, proportions, seed)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Dataset:     name,
		Seed:        seed,
		Proportions: proportions,
		Counts:      make(map[PartitionLabel]int, 3),
		StagedAt:    time.Now().UTC(),
	}

	for _, partition := range []Partition{train, validation, test} {
		data, err := MarshalCSV(partition.Ratings, s.cols)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s partition: %w", partition.Label, err)
		}

		key := PartitionKey(name, partition.Label)
		if err := s.store.Put(ctx, key, data); err != nil {
			return nil, fmt.Errorf("failed to stage %s partition: %w", partition.Label, err)
		}
		manifest.Counts[partition.Label] = partition.Len()

		logging.Debug().
			Str("dataset", name).
			Str("partition", string(partition.Label)).
			Int("records", partition.Len()).
			Msg("partition staged")
	}

	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := s.store.Put(ctx, ManifestKey(name), manifestData); err != nil {
		return nil, fmt.Errorf("failed to stage manifest: %w", err)
	}

	logging.Info().
		Str("dataset", name).
		Int("train", manifest.Counts[LabelTrain]).
		Int("validation", manifest.Counts[LabelValidation]).
		Int("test", manifest.Counts[LabelTest]).
		Msg("dataset staged")

	return manifest, nil
}

// LoadPartition fetches and decodes one staged partition.
func (s *Stager) LoadPartition(ctx context.Context, name string, label PartitionLabel) (Partition, error) {
	data, err := s.store.Get(ctx, PartitionKey(name, label))
	if err != nil {
		return Partition{}, fmt.Errorf("failed to load %s partition: %w", label, err)
	}
	ratings, err := UnmarshalCSV(data, s.cols)
	if err != nil {
		return Partition{}, fmt.Errorf("failed to decode %s partition: %w", label, err)
	}
	return Partition{Label: label, Ratings: ratings}, nil
}
