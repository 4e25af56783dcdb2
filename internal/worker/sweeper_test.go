package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/railbook-next/internal/service"
)

type stubDueExpirer struct {
	mu     sync.Mutex
	passes int
	limits []int
	result service.SweepResult
	err    error
	now    time.Time
}

func (s *stubDueExpirer) ExpireDue(_ context.Context, _ time.Time, limit int) (service.SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes++
	s.limits = append(s.limits, limit)
	return s.result, s.err
}

func (s *stubDueExpirer) Now() time.Time { return s.now }

func (s *stubDueExpirer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}

func TestSweeperRunOnceContinuesAfterLockFailure(t *testing.T) {
	locks := &stubDueExpirer{err: errors.New("lock pass failed"), now: time.Now()}
	orders := &stubDueExpirer{result: service.SweepResult{Scanned: 2, Expired: 1, Skipped: 1}}
	sweeper := NewSweeper(locks, orders, SweeperOptions{BatchSize: 50})

	_, orderResult := sweeper.RunOnce(context.Background())
	if locks.count() != 1 || orders.count() != 1 {
		t.Fatalf("both passes should run once, got locks=%d orders=%d", locks.count(), orders.count())
	}
	if orderResult.Expired != 1 {
		t.Fatalf("order pass result lost: %+v", orderResult)
	}
	if len(orders.limits) != 1 || orders.limits[0] != 50 {
		t.Fatalf("batch size not passed through: %v", orders.limits)
	}
}

func TestSweeperStartRunsImmediatelyAndStops(t *testing.T) {
	locks := &stubDueExpirer{now: time.Now()}
	orders := &stubDueExpirer{}
	sweeper := NewSweeper(locks, orders, SweeperOptions{Interval: 20 * time.Millisecond})

	errCh := make(chan error, 1)
	go func() { errCh <- sweeper.Start(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for locks.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper should have run at least twice, got %d", locks.count())
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sweeper.Stop(stopCtx); err != nil {
		t.Fatalf("stop sweeper failed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("sweeper start returned error: %v", err)
	}
	if orders.count() < 1 {
		t.Fatalf("order pass should have run")
	}
}

func TestSweeperDefaults(t *testing.T) {
	sweeper := NewSweeper(nil, nil, SweeperOptions{})
	if sweeper.opts.Interval != defaultSweepInterval || sweeper.opts.BatchSize != defaultSweepBatchSize {
		t.Fatalf("unexpected defaults: %+v", sweeper.opts)
	}
	if sweeper.Name() != "sweeper" {
		t.Fatalf("unexpected name: %s", sweeper.Name())
	}
	if err := sweeper.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start should be a no-op, got %v", err)
	}
}
