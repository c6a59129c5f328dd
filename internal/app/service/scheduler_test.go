package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dealsphere/dealsphere/internal/app/model"
	"go.uber.org/zap"
)

func TestScheduler_TicksDriveCheckAndSweeps(t *testing.T) {
	var selections, staleLists, qualityLists atomic.Int64

	repo := &mockDealRepository{
		selectFn: func(ctx context.Context, now time.Time, recheckInterval time.Duration, limit int, checkAll bool) ([]string, error) {
			selections.Add(1)
			return nil, nil
		},
		staleFn: func(ctx context.Context, cutoff time.Time) ([]model.Deal, error) {
			staleLists.Add(1)
			return nil, nil
		},
		qualityFn: func(ctx context.Context) ([]model.Deal, error) {
			qualityLists.Add(1)
			return nil, nil
		},
	}

	checker := NewHealthChecker(zap.NewNop(), repo, probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible, StatusCode: 200}
	}), nil, testHealthConfig())
	reaper := NewDealReaper(zap.NewNop(), repo, nil, time.Hour)

	sched := NewScheduler(zap.NewNop(), checker, reaper, 10*time.Millisecond, 10*time.Millisecond, 10*time.Millisecond)
	sched.Start()
	defer sched.Stop()

	deadline := time.After(2 * time.Second)
	for selections.Load() == 0 || staleLists.Load() == 0 || qualityLists.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("scheduler ticks missed: checks=%d stale=%d quality=%d",
				selections.Load(), staleLists.Load(), qualityLists.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestScheduler_StopEndsLoop(t *testing.T) {
	var selections atomic.Int64
	repo := &mockDealRepository{
		selectFn: func(ctx context.Context, now time.Time, recheckInterval time.Duration, limit int, checkAll bool) ([]string, error) {
			selections.Add(1)
			return nil, nil
		},
	}

	checker := NewHealthChecker(zap.NewNop(), repo, probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible, StatusCode: 200}
	}), nil, testHealthConfig())
	reaper := NewDealReaper(zap.NewNop(), repo, nil, time.Hour)

	sched := NewScheduler(zap.NewNop(), checker, reaper, 5*time.Millisecond, time.Hour, time.Hour)
	sched.Start()

	deadline := time.After(2 * time.Second)
	for selections.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler never ticked")
		case <-time.After(2 * time.Millisecond):
		}
	}

	sched.Stop()
	time.Sleep(20 * time.Millisecond)
	before := selections.Load()
	time.Sleep(50 * time.Millisecond)
	if after := selections.Load(); after != before {
		t.Errorf("scheduler kept ticking after Stop: %d -> %d", before, after)
	}
}
