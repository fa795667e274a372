// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package local

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"
)

// Janitor prunes long-terminal runs from the registry so an always-on local
// platform does not grow without bound. Artifacts in the content store are
// left alone; only registry entries are dropped.
type Janitor struct {
	platform  *Local
	interval  time.Duration
	retention time.Duration
}

var _ suture.Service = (*Janitor)(nil)

// NewJanitor creates a janitor sweeping at the given interval, dropping
// terminal runs older than retention. Zero values get conservative
// defaults (10m interval, 24h retention).
func NewJanitor(p *Local, interval, retention time.Duration) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Janitor{platform: p, interval: interval, retention: retention}
}

// Serve runs the prune loop until the context is canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.prune(time.Now().Add(-j.retention))
		}
	}
}

// prune drops terminal runs that finished before the cutoff.
func (j *Janitor) prune(cutoff time.Time) {
	l := j.platform
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.order[:0]
	removed := 0
	for _, id := range l.order {
		entry := l.runs[id]
		if entry.info.State.Terminal() &&
			entry.info.FinishedAt != nil && entry.info.FinishedAt.Before(cutoff) {
			delete(l.runs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	l.order = kept

	if removed > 0 {
		l.log.Info().Int("removed", removed).Msg("pruned terminal runs")
	}
}

// StatusLogger subscribes to the run status topic and logs every event. It
// is the default consumer keeping the event stream drained when nothing
// else subscribes.
type StatusLogger struct {
	platform *Local
}

var _ suture.Service = (*StatusLogger)(nil)

// NewStatusLogger creates a status event logger.
func NewStatusLogger(p *Local) *StatusLogger {
	return &StatusLogger{platform: p}
}

// Serve consumes status events until the context is canceled.
func (s *StatusLogger) Serve(ctx context.Context) error {
	msgs, err := s.platform.Events().Subscribe(ctx, TopicRunStatus)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var event StatusEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				s.platform.log.Err(err).Msg("malformed status event")
				msg.Ack()
				continue
			}
			s.platform.log.Debug().
				Str("run_id", event.RunID).
				Str("sweep_id", event.SweepID).
				Str("state", string(event.State)).
				Msg("run status event")
			msg.Ack()
		}
	}
}
