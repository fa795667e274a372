// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package local

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/hypersweep/internal/platform"
)

// TopicRunStatus carries one event per run state transition.
const TopicRunStatus = "runs.status"

// StatusEvent is the payload published on TopicRunStatus.
type StatusEvent struct {
	RunID   string            `json:"run_id"`
	SweepID string            `json:"sweep_id"`
	Index   int               `json:"index"`
	State   platform.RunState `json:"state"`
	At      time.Time         `json:"at"`
}

// publishStatus emits one status event. Event delivery is best effort: a
// failed publish is logged and never blocks the run lifecycle.
func (l *Local) publishStatus(info *platform.RunInfo) {
	payload, err := json.Marshal(StatusEvent{
		RunID:   info.ID,
		SweepID: info.SweepID,
		Index:   info.Index,
		State:   info.State,
		At:      time.Now().UTC(),
	})
	if err != nil {
		l.log.Err(err).Str("run_id", info.ID).Msg("failed to encode status event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := l.pubsub.Publish(TopicRunStatus, msg); err != nil {
		l.log.Err(err).Str("run_id", info.ID).Msg("failed to publish status event")
	}
}

// wmLogger adapts zerolog to watermill's logger contract.
type wmLogger struct {
	log zerolog.Logger
}

var _ watermill.LoggerAdapter = wmLogger{}

func (w wmLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.event(w.log.Error().Err(err), msg, fields)
}

func (w wmLogger) Info(msg string, fields watermill.LogFields) {
	w.event(w.log.Info(), msg, fields)
}

func (w wmLogger) Debug(msg string, fields watermill.LogFields) {
	w.event(w.log.Debug(), msg, fields)
}

func (w wmLogger) Trace(msg string, fields watermill.LogFields) {
	w.event(w.log.Trace(), msg, fields)
}

func (w wmLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := w.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return wmLogger{log: ctx.Logger()}
}

func (w wmLogger) event(e *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
