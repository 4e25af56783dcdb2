package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	stopLog  *stopRecorder
	mu       sync.Mutex
	stopped  bool
}

type stopRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *stopRecorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.stopLog != nil {
		s.stopLog.add(s.name)
	}
	return s.stopErr
}

func (s *fakeService) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func TestRunnerStopsAllServicesOnFailure(t *testing.T) {
	failing := &fakeService{name: "http", startErr: errors.New("bind failed")}
	sweeper := &fakeService{name: "sweeper"}
	var order []string
	runner := NewRunner(failing, sweeper)
	runner.AddCleanup(func() { order = append(order, "first") })
	runner.AddCleanup(func() { order = append(order, "second") })

	err := runner.Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "bind failed" {
		t.Fatalf("runner should surface start error, got %v", err)
	}
	if !failing.isStopped() || !sweeper.isStopped() {
		t.Fatalf("all services should be stopped")
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("cleanups should run in reverse order, got %v", order)
	}
}

func TestRunnerCancelledContextIsClean(t *testing.T) {
	svc := &fakeService{name: "sweeper"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRunner(svc).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancelled run should return nil, got %v", err)
	}
	if !svc.isStopped() {
		t.Fatalf("service should be stopped")
	}
}

func TestIsValidMode(t *testing.T) {
	for _, mode := range []string{ModeAll, ModeAPI, ModeWorker} {
		if !IsValidMode(mode) {
			t.Fatalf("mode %s should be valid", mode)
		}
	}
	if IsValidMode("admin") {
		t.Fatalf("unknown mode should be rejected")
	}
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
}

func TestRunnerStopsInReverseOrderAndReportsStopFailure(t *testing.T) {
	recorder := &stopRecorder{}
	httpSvc := &fakeService{name: "http", stopLog: recorder}
	sweeper := &fakeService{name: "sweeper", stopLog: recorder, stopErr: errors.New("sweeper stuck")}
	consumer := &fakeService{name: "worker", stopLog: recorder}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRunner(httpSvc, sweeper, consumer).Run(ctx, time.Second, nil)
	if err == nil || !strings.Contains(err.Error(), "stop sweeper: sweeper stuck") {
		t.Fatalf("stop failure should be reported, got %v", err)
	}
	want := []string{"worker", "sweeper", "http"}
	if strings.Join(recorder.names, ",") != strings.Join(want, ",") {
		t.Fatalf("services should stop in reverse order, got %v", recorder.names)
	}
	if !httpSvc.isStopped() {
		t.Fatalf("stop failure must not skip remaining services")
	}
}
