// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package store provides the content-store contract used to stage dataset
// partitions and retrieve run artifacts.
//
// A BlobStore is addressed by deterministic, slash-separated keys
// ("datasets/movielens/train.csv"). Put overwrites unconditionally, matching
// the staging semantics of the dataset stager: re-staging a dataset replaces
// any prior objects at the same paths.
//
// Two implementations are provided: a filesystem store for plain directories
// and a BadgerDB store for durable single-file deployments.
package store

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ErrEmptyKey indicates an empty or invalid object key.
var ErrEmptyKey = errors.New("object key must not be empty")

// BlobStore is the narrow content-store contract the orchestrator depends on.
type BlobStore interface {
	// Put writes data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the object stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases underlying resources.
	Close() error
}
