// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/hypersweep/internal/config"
	"github.com/tomtom215/hypersweep/internal/platform"
	"github.com/tomtom215/hypersweep/internal/trainer"
)

func testDescriptor(t *testing.T) *Descriptor {
	t.Helper()
	desc, err := NewDescriptor(validSweepConfig(), trainer.HyperparameterNames())
	if err != nil {
		t.Fatalf("NewDescriptor() error = %v", err)
	}
	return desc
}

func TestSubmitterSubmitsMaxTotalRuns(t *testing.T) {
	fake := &fakePlatform{completeOnList: true}
	desc := testDescriptor(t)

	sub := NewSubmitter(fake, time.Millisecond)
	ids, err := sub.Submit(context.Background(), desc, NewSampler(desc), RunTarget{
		WorkspaceID: "ws-1",
		PoolName:    "pool-1",
		EntryPoint:  "trainer",
		Dataset:     "movielens",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(ids) != desc.MaxTotalRuns {
		t.Fatalf("submitted %d runs, want %d", len(ids), desc.MaxTotalRuns)
	}

	runs, _ := fake.ListRuns(context.Background(), desc.ID)
	for i, run := range runs {
		if run.Index != i {
			t.Errorf("run %d has index %d, want %d", i, run.Index, i)
		}
	}
}

func TestSubmitterStopsWhenGridExhausts(t *testing.T) {
	cfg := validSweepConfig()
	cfg.Strategy = StrategyGrid
	cfg.SearchSpace = map[string]config.DistributionConfig{
		"rank": {Kind: DistChoice, Choices: []float64{8, 16, 32}},
	}
	desc, err := NewDescriptor(cfg, trainer.HyperparameterNames())
	if err != nil {
		t.Fatalf("NewDescriptor() error = %v", err)
	}

	fake := &fakePlatform{completeOnList: true}
	sub := NewSubmitter(fake, time.Millisecond)

	ids, err := sub.Submit(context.Background(), desc, NewSampler(desc), RunTarget{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	// Grid of 3 choices exhausts well below MaxTotalRuns=10.
	if len(ids) != 3 {
		t.Errorf("submitted %d runs, want 3", len(ids))
	}
}

func TestSubmitterBlocksOnConcurrencyBound(t *testing.T) {
	// Runs never finish, so with concurrency 2 only 2 of 10 get submitted
	// before the context deadline fires.
	fake := &fakePlatform{}
	desc := testDescriptor(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub := NewSubmitter(fake, 5*time.Millisecond)
	ids, err := sub.Submit(ctx, desc, NewSampler(desc), RunTarget{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Submit() error = %v, want DeadlineExceeded", err)
	}
	if len(ids) != desc.MaxConcurrentRuns {
		t.Errorf("submitted %d runs before blocking, want %d", len(ids), desc.MaxConcurrentRuns)
	}
}

func TestWaiterReturnsWhenAllTerminal(t *testing.T) {
	fake := &fakePlatform{}
	now := time.Now()
	for i := 0; i < 3; i++ {
		fake.setRun(&platform.RunInfo{
			ID:          "run-" + string(rune('a'+i)),
			SweepID:     "s1",
			Index:       i,
			State:       platform.RunCompleted,
			SubmittedAt: now,
		})
	}

	w := NewWaiter(fake, time.Millisecond)
	runs, err := w.Wait(context.Background(), "s1", time.Second)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("Wait() returned %d runs, want 3", len(runs))
	}
}

func TestWaiterTimesOut(t *testing.T) {
	fake := &fakePlatform{}
	fake.setRun(&platform.RunInfo{ID: "r1", SweepID: "s1", State: platform.RunRunning})

	w := NewWaiter(fake, 5*time.Millisecond)
	runs, err := w.Wait(context.Background(), "s1", 30*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("Wait() error = %v, want ErrWaitTimeout", err)
	}
	// The timed-out wait still reports the runs seen so far.
	if len(runs) != 1 {
		t.Errorf("Wait() returned %d runs on timeout, want 1", len(runs))
	}
	// The run was not canceled by the waiter.
	info, _ := fake.RunStatus(context.Background(), "r1")
	if info.State != platform.RunRunning {
		t.Errorf("run state after timeout = %s, want running", info.State)
	}
}

func TestWaiterHonorsContext(t *testing.T) {
	fake := &fakePlatform{}
	fake.setRun(&platform.RunInfo{ID: "r1", SweepID: "s1", State: platform.RunQueued})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWaiter(fake, time.Millisecond)
	if _, err := w.Wait(ctx, "s1", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}
}
