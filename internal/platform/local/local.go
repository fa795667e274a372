// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package local is the in-process reference implementation of the platform
// contract. Runs execute the bundled trainer against partitions staged in a
// content store, bounded by a worker semaphore sized from the compute
// pool's node count. Every state transition is published on the
// runs.status topic.
//
// The package exists so the whole pipeline is executable and testable
// without a remote platform; platform/server exposes the same instance
// over HTTP.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/hypersweep/internal/dataset"
	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/metrics"
	"github.com/tomtom215/hypersweep/internal/platform"
	"github.com/tomtom215/hypersweep/internal/store"
	"github.com/tomtom215/hypersweep/internal/trainer"
)

// Options configures the local platform.
type Options struct {
	// Store holds staged datasets and run artifacts.
	Store store.BlobStore

	// Columns bind the staged CSV partitions to the rating schema.
	Columns dataset.Columns

	// Workers bounds concurrent run execution. It stands in for the
	// compute pool's node count. Defaults to 4.
	Workers int

	// Seed seeds every run's model initialization, keeping local sweeps
	// reproducible.
	Seed int64
}

// Local implements platform.Platform in-process.
type Local struct {
	mu         sync.Mutex
	workspaces map[string]*platform.Workspace // keyed by spec identity
	pools      map[string]*platform.ComputePool
	runs       map[string]*runEntry
	order      []string // run IDs in submission order

	stager  *dataset.Stager
	blobs   store.BlobStore
	pubsub  *gochannel.GoChannel
	sem     chan struct{}
	seed    int64
	log     zerolog.Logger
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

type runEntry struct {
	info   *platform.RunInfo
	cancel context.CancelFunc
}

var _ platform.Platform = (*Local)(nil)

// New creates a local platform.
func New(opts Options) (*Local, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("local platform requires a content store")
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Columns == (dataset.Columns{}) {
		opts.Columns = dataset.DefaultColumns()
	}

	log := logging.With().Str("component", "platform.local").Logger()
	ctx, cancel := context.WithCancel(context.Background())

	return &Local{
		workspaces: make(map[string]*platform.Workspace),
		pools:      make(map[string]*platform.ComputePool),
		runs:       make(map[string]*runEntry),
		stager:     dataset.NewStager(opts.Store, opts.Columns),
		blobs:      opts.Store,
		// Buffered so a slow subscriber never blocks run state transitions.
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, wmLogger{log: log}),
		sem:        make(chan struct{}, opts.Workers),
		seed:       opts.Seed,
		log:        log,
		baseCtx:    ctx,
		stop:       cancel,
	}, nil
}

// Events returns the subscriber side of the run status topic.
func (l *Local) Events() message.Subscriber {
	return l.pubsub
}

// Close cancels all running work, waits for it to drain and shuts the
// event channel down.
func (l *Local) Close() error {
	l.stop()
	l.wg.Wait()
	return l.pubsub.Close()
}

func workspaceKey(spec platform.WorkspaceSpec) string {
	return spec.Subscription + "/" + spec.ResourceGroup + "/" + spec.Name
}

func poolKey(workspaceID, name string) string {
	return workspaceID + "/" + name
}

// ResolveWorkspace returns the workspace for the spec's identity, creating
// it when CreateIfAbsent is set.
func (l *Local) ResolveWorkspace(_ context.Context, spec platform.WorkspaceSpec) (*platform.Workspace, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := workspaceKey(spec)
	if ws, ok := l.workspaces[key]; ok {
		return ws, nil
	}
	if !spec.CreateIfAbsent {
		return nil, fmt.Errorf("%w: %s", platform.ErrWorkspaceNotFound, key)
	}

	ws := &platform.Workspace{
		ID:        uuid.NewString(),
		Spec:      spec,
		CreatedAt: time.Now().UTC(),
	}
	l.workspaces[key] = ws
	l.log.Info().Str("workspace_id", ws.ID).Str("name", spec.Name).Msg("workspace created")
	return ws, nil
}

// EnsureComputePool creates the named pool if absent. An existing pool is
// returned untouched, its Reused flag set, even when the requested shape
// differs.
func (l *Local) EnsureComputePool(_ context.Context, workspaceID string, spec platform.PoolSpec) (*platform.ComputePool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := poolKey(workspaceID, spec.Name)
	if pool, ok := l.pools[key]; ok {
		reused := *pool
		reused.Reused = true
		return &reused, nil
	}

	pool := &platform.ComputePool{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Spec:        spec,
	}
	l.pools[key] = pool
	l.log.Info().
		Str("pool_id", pool.ID).
		Str("name", spec.Name).
		Int("max_nodes", spec.MaxNodes).
		Msg("compute pool provisioned")
	return pool, nil
}

// SubmitRun schedules one trainer execution. The run starts as soon as a
// worker slot frees up.
func (l *Local) SubmitRun(_ context.Context, spec platform.RunSpec) (*platform.RunInfo, error) {
	l.mu.Lock()
	if _, ok := l.pools[poolKey(spec.WorkspaceID, spec.PoolName)]; !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", platform.ErrPoolNotFound, spec.PoolName)
	}

	runCtx, cancel := context.WithCancel(l.baseCtx)
	info := &platform.RunInfo{
		ID:          uuid.NewString(),
		SweepID:     spec.SweepID,
		Index:       spec.Index,
		State:       platform.RunQueued,
		Params:      spec.Params,
		SubmittedAt: time.Now().UTC(),
	}
	l.runs[info.ID] = &runEntry{info: info, cancel: cancel}
	l.order = append(l.order, info.ID)
	l.mu.Unlock()

	metrics.RunsSubmitted.Inc()
	l.publishStatus(info)

	l.wg.Add(1)
	go l.execute(runCtx, info.ID, spec)

	return info.Clone(), nil
}

// execute runs the trainer for one submitted run.
func (l *Local) execute(ctx context.Context, runID string, spec platform.RunSpec) {
	defer l.wg.Done()

	select {
	case l.sem <- struct{}{}:
		defer func() { <-l.sem }()
	case <-ctx.Done():
		l.finish(runID, platform.RunCanceled, nil, "", "")
		return
	}

	// Cancellation may have landed while the run sat queued.
	if ctx.Err() != nil {
		l.finish(runID, platform.RunCanceled, nil, "", "")
		return
	}

	if !l.transition(runID, platform.RunRunning) {
		return
	}
	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	result, err := l.train(ctx, spec)
	switch {
	case ctx.Err() != nil:
		l.finish(runID, platform.RunCanceled, nil, "", "")
	case err != nil:
		l.finish(runID, platform.RunFailed, nil, "", err.Error())
	default:
		artifactKey := ""
		if result.Artifact != nil {
			artifactKey = fmt.Sprintf("runs/%s/model.json", runID)
			if putErr := l.blobs.Put(ctx, artifactKey, result.Artifact); putErr != nil {
				l.finish(runID, platform.RunFailed, nil, "", fmt.Sprintf("store artifact: %v", putErr))
				return
			}
		}
		l.finish(runID, platform.RunCompleted, result.Metrics, artifactKey, "")
	}
}

// train loads the staged partitions and executes the trainer in-process.
func (l *Local) train(ctx context.Context, spec platform.RunSpec) (*trainer.Result, error) {
	train, err := l.stager.LoadPartition(ctx, spec.Dataset, dataset.LabelTrain)
	if err != nil {
		return nil, err
	}
	validation, err := l.stager.LoadPartition(ctx, spec.Dataset, dataset.LabelValidation)
	if err != nil {
		return nil, err
	}

	return trainer.Train(ctx, trainer.Request{
		Train:      &train,
		Validation: &validation,
		FixedArgs:  spec.FixedArgs,
		Params:     spec.Params,
		Seed:       l.seed,
	})
}

// transition moves a run to a non-terminal state, returning false when the
// run is already terminal.
func (l *Local) transition(runID string, next platform.RunState) bool {
	l.mu.Lock()
	entry, ok := l.runs[runID]
	if !ok || !entry.info.State.CanTransitionTo(next) {
		l.mu.Unlock()
		return false
	}
	entry.info.State = next
	if next == platform.RunRunning {
		now := time.Now().UTC()
		entry.info.StartedAt = &now
	}
	snapshot := entry.info.Clone()
	l.mu.Unlock()

	l.publishStatus(snapshot)
	return true
}

// finish moves a run to a terminal state exactly once and publishes the
// terminal event.
func (l *Local) finish(runID string, state platform.RunState, runMetrics map[string]float64, artifactKey, errMsg string) {
	l.mu.Lock()
	entry, ok := l.runs[runID]
	if !ok || entry.info.State.Terminal() {
		l.mu.Unlock()
		return
	}
	entry.info.State = state
	entry.info.Metrics = runMetrics
	entry.info.ArtifactKey = artifactKey
	entry.info.Error = errMsg
	now := time.Now().UTC()
	entry.info.FinishedAt = &now
	snapshot := entry.info.Clone()
	l.mu.Unlock()

	entry.cancel()
	metrics.RecordRunTerminal(string(state))
	l.publishStatus(snapshot)
	l.log.Info().
		Str("run_id", runID).
		Str("state", string(state)).
		Msg("run finished")
}

// RunStatus returns a snapshot of the run.
func (l *Local) RunStatus(_ context.Context, runID string) (*platform.RunInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", platform.ErrRunNotFound, runID)
	}
	return entry.info.Clone(), nil
}

// ListRuns returns the sweep's runs in submission order.
func (l *Local) ListRuns(_ context.Context, sweepID string) ([]*platform.RunInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*platform.RunInfo
	for _, id := range l.order {
		if entry := l.runs[id]; entry.info.SweepID == sweepID {
			out = append(out, entry.info.Clone())
		}
	}
	return out, nil
}

// RunMetrics returns the metrics the run has logged.
func (l *Local) RunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	info, err := l.RunStatus(ctx, runID)
	if err != nil {
		return nil, err
	}
	return info.Metrics, nil
}

// DownloadArtifact returns the run's persisted model artifact.
func (l *Local) DownloadArtifact(ctx context.Context, runID string) ([]byte, error) {
	info, err := l.RunStatus(ctx, runID)
	if err != nil {
		return nil, err
	}
	if info.ArtifactKey == "" {
		return nil, fmt.Errorf("%w: %s", platform.ErrNoArtifact, runID)
	}
	data, err := l.blobs.Get(ctx, info.ArtifactKey)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact of run %s: %w", runID, err)
	}
	return data, nil
}

// CancelRun requests cancellation. Queued runs never start; running runs
// stop when the trainer observes the context.
func (l *Local) CancelRun(_ context.Context, runID string) error {
	l.mu.Lock()
	entry, ok := l.runs[runID]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", platform.ErrRunNotFound, runID)
	}

	entry.cancel()
	return nil
}

// CancelSweep cancels every non-terminal run of the sweep.
func (l *Local) CancelSweep(ctx context.Context, sweepID string) error {
	l.mu.Lock()
	var ids []string
	for _, id := range l.order {
		entry := l.runs[id]
		if entry.info.SweepID == sweepID && !entry.info.State.Terminal() {
			ids = append(ids, id)
		}
	}
	l.mu.Unlock()

	for _, id := range ids {
		if err := l.CancelRun(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
