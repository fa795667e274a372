// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// tickService counts Serve invocations and blocks until canceled.
type tickService struct {
	started atomic.Int32
}

func (s *tickService) Serve(ctx context.Context) error {
	s.started.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

// crashOnceService fails its first Serve and then behaves.
type crashOnceService struct {
	started atomic.Int32
}

func (s *crashOnceService) Serve(ctx context.Context) error {
	if s.started.Add(1) == 1 {
		return errors.New("transient failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func newTestTree() *Tree {
	return NewTree(slog.New(slog.DiscardHandler), DefaultTreeConfig())
}

func TestTreeServesAndStops(t *testing.T) {
	tree := newTestTree()
	svc := &tickService{}
	tree.AddPlatformService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return svc.started.Load() == 1 })

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}

func TestTreeRestartsCrashedService(t *testing.T) {
	tree := newTestTree()
	svc := &crashOnceService{}
	tree.AddPlatformService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	waitFor(t, func() bool { return svc.started.Load() >= 2 })
}

func TestTreeCrashInOneLayerLeavesOtherRunning(t *testing.T) {
	tree := newTestTree()
	crasher := &crashOnceService{}
	api := &tickService{}
	tree.AddPlatformService(crasher)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	waitFor(t, func() bool { return crasher.started.Load() >= 2 })

	// The API-layer service was never restarted by the platform crash.
	if got := api.started.Load(); got != 1 {
		t.Errorf("api service started %d times, want 1", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
