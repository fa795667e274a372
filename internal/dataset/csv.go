// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ErrUnknownColumn indicates a configured column binding that does not
// exist in the data's header row.
var ErrUnknownColumn = errors.New("unknown column")

// Columns binds CSV header names to the rating schema. Timestamp is
// optional; leave it empty to skip timestamps entirely.
type Columns struct {
	User      string
	Item      string
	Rating    string
	Timestamp string
}

// DefaultColumns returns the canonical three-column binding.
func DefaultColumns() Columns {
	return Columns{User: "user_id", Item: "item_id", Rating: "rating"}
}

// ReadCSV decodes rating records from CSV data with a header row.
// Column order in the file is irrelevant; bindings resolve by header name.
func ReadCSV(r io.Reader, cols Columns) ([]Rating, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv data has no header row")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	userIdx, err := columnIndex(index, cols.User)
	if err != nil {
		return nil, err
	}
	itemIdx, err := columnIndex(index, cols.Item)
	if err != nil {
		return nil, err
	}
	ratingIdx, err := columnIndex(index, cols.Rating)
	if err != nil {
		return nil, err
	}

	tsIdx := -1
	if cols.Timestamp != "" {
		if tsIdx, err = columnIndex(index, cols.Timestamp); err != nil {
			return nil, err
		}
	}

	var ratings []Rating
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}

		userID, err := strconv.Atoi(record[userIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad user id %q: %w", line, record[userIdx], err)
		}
		itemID, err := strconv.Atoi(record[itemIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad item id %q: %w", line, record[itemIdx], err)
		}
		value, err := strconv.ParseFloat(record[ratingIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad rating %q: %w", line, record[ratingIdx], err)
		}

		rating := Rating{UserID: userID, ItemID: itemID, Rating: value}
		if tsIdx >= 0 && record[tsIdx] != "" {
			unix, err := strconv.ParseInt(record[tsIdx], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad timestamp %q: %w", line, record[tsIdx], err)
			}
			rating.Timestamp = time.Unix(unix, 0).UTC()
		}

		ratings = append(ratings, rating)
	}

	return ratings, nil
}

// columnIndex resolves a binding to a header position.
func columnIndex(index map[string]int, name string) (int, error) {
	if name == "" {
		return -1, fmt.Errorf("%w: empty column binding", ErrUnknownColumn)
	}
	idx, ok := index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return idx, nil
}

// WriteCSV encodes ratings as CSV with a header row using the given
// bindings. Timestamps are written as unix seconds when bound.
func WriteCSV(w io.Writer, ratings []Rating, cols Columns) error {
	writer := csv.NewWriter(w)

	header := []string{cols.User, cols.Item, cols.Rating}
	if cols.Timestamp != "" {
		header = append(header, cols.Timestamp)
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, 0, 4)
	for _, r := range ratings {
		row = row[:0]
		row = append(row,
			strconv.Itoa(r.UserID),
			strconv.Itoa(r.ItemID),
			strconv.FormatFloat(r.Rating, 'g', -1, 64),
		)
		if cols.Timestamp != "" {
			if r.Timestamp.IsZero() {
				row = append(row, "")
			} else {
				row = append(row, strconv.FormatInt(r.Timestamp.Unix(), 10))
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// MarshalCSV encodes ratings as CSV bytes.
func MarshalCSV(ratings []Rating, cols Columns) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ratings, cols); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalCSV decodes ratings from CSV bytes.
func UnmarshalCSV(data []byte, cols Columns) ([]Rating, error) {
	return ReadCSV(bytes.NewReader(data), cols)
}
