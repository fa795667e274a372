// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package dataset models rating data and its train/validation/test split.
//
// A dataset is a sequence of rating records (user, item, rating, optional
// timestamp). Records are immutable once loaded and duplicates pass through
// untouched. The split is deterministic for a fixed seed: re-splitting the
// same records with the same proportions and seed reproduces the exact same
// three partitions.
package dataset

import (
	"errors"
	"time"
)

// PartitionLabel names one of the three fixed partitions.
type PartitionLabel string

const (
	// LabelTrain is the training partition.
	LabelTrain PartitionLabel = "train"
	// LabelValidation is the validation partition.
	LabelValidation PartitionLabel = "validation"
	// LabelTest is the held-out test partition.
	LabelTest PartitionLabel = "test"
)

// Labels returns the three partition labels in canonical order.
func Labels() []PartitionLabel {
	return []PartitionLabel{LabelTrain, LabelValidation, LabelTest}
}

// ErrEmptyPartition indicates an operation on a partition with no records.
var ErrEmptyPartition = errors.New("partition contains no records")

// Rating is a single user-item rating record.
type Rating struct {
	// UserID is the user identifier.
	UserID int `json:"user_id"`

	// ItemID is the item identifier.
	ItemID int `json:"item_id"`

	// Rating is the rating value.
	Rating float64 `json:"rating"`

	// Timestamp is when the rating was given. Optional; zero when absent.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Partition is a labeled set of rating records. Record order carries no
// meaning.
type Partition struct {
	// Label identifies the partition.
	Label PartitionLabel `json:"label"`

	// Ratings holds the partition's records.
	Ratings []Rating `json:"ratings"`
}

// Len returns the number of records in the partition.
func (p Partition) Len() int {
	return len(p.Ratings)
}

// Users returns the distinct user IDs present in the partition.
func (p Partition) Users() []int {
	seen := make(map[int]struct{})
	var users []int
	for _, r := range p.Ratings {
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			users = append(users, r.UserID)
		}
	}
	return users
}

// Items returns the distinct item IDs present in the partition.
func (p Partition) Items() []int {
	seen := make(map[int]struct{})
	var items []int
	for _, r := range p.Ratings {
		if _, ok := seen[r.ItemID]; !ok {
			seen[r.ItemID] = struct{}{}
			items = append(items, r.ItemID)
		}
	}
	return items
}
