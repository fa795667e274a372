// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package model

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ArtifactFormatVersion identifies the serialized model layout. Bump on any
// incompatible change to the artifact schema.
const ArtifactFormatVersion = 1

// ErrArtifactVersion indicates an artifact with an unsupported format version.
var ErrArtifactVersion = errors.New("unsupported model artifact version")

// artifact is the on-disk model representation. Map keys serialize as
// strings per encoding/json semantics.
type artifact struct {
	FormatVersion int                 `json:"format_version"`
	Config        ALSConfig           `json:"config"`
	GlobalMean    float64             `json:"global_mean"`
	MinRating     float64             `json:"min_rating"`
	MaxRating     float64             `json:"max_rating"`
	UserBias      map[int]float64     `json:"user_bias"`
	ItemBias      map[int]float64     `json:"item_bias"`
	UserFactor    map[int][]float64   `json:"user_factor"`
	ItemFactor    map[int][]float64   `json:"item_factor"`
}

// Marshal serializes the trained model to its JSON artifact form.
func (m *ALS) Marshal() ([]byte, error) {
	a := artifact{
		FormatVersion: ArtifactFormatVersion,
		Config:        m.config,
		GlobalMean:    m.mu,
		MinRating:     m.minRating,
		MaxRating:     m.maxRating,
		UserBias:      m.userBias,
		ItemBias:      m.itemBias,
		UserFactor:    m.userFactor,
		ItemFactor:    m.itemFactor,
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal model artifact: %w", err)
	}
	return data, nil
}

// UnmarshalALS reconstructs a trained model from its JSON artifact form.
func UnmarshalALS(data []byte) (*ALS, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal model artifact: %w", err)
	}
	if a.FormatVersion != ArtifactFormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrArtifactVersion, a.FormatVersion, ArtifactFormatVersion)
	}

	return &ALS{
		config:     a.Config,
		mu:         a.GlobalMean,
		minRating:  a.MinRating,
		maxRating:  a.MaxRating,
		userBias:   a.UserBias,
		itemBias:   a.ItemBias,
		userFactor: a.UserFactor,
		itemFactor: a.ItemFactor,
	}, nil
}
