package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	block    bool
	stopped  atomic.Bool
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.startErr
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.stopped.Store(true)
	return nil
}

func TestRunnerFirstExitStopsAll(t *testing.T) {
	boom := errors.New("listen failed")
	failing := &fakeService{name: "api", startErr: boom}
	blocking := &fakeService{name: "worker", block: true}

	runner := NewRunner(failing, blocking)
	err := runner.Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want %v", err, boom)
	}
	if !failing.stopped.Load() || !blocking.stopped.Load() {
		t.Fatalf("expected all services stopped, got api=%v worker=%v",
			failing.stopped.Load(), blocking.stopped.Load())
	}
}

func TestRunnerContextCancelIsCleanExit(t *testing.T) {
	blocking := &fakeService{name: "worker", block: true}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := NewRunner(blocking).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("Run() after cancel = %v, want nil", err)
	}
	if !blocking.stopped.Load() {
		t.Fatal("expected service stopped after cancel")
	}
}

func TestRunnerRejectsEmptyAndNil(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatal("expected error for empty runner")
	}
	var nilSvc Service
	if err := NewRunner(nilSvc).Run(context.Background(), time.Second, nil); err == nil {
		t.Fatal("expected error for nil service")
	}
	if err := RunWithOptions(nil, Options{}); err == nil {
		t.Fatal("expected error for nil runner")
	}
}

func TestHTTPServiceLifecycle(t *testing.T) {
	svc := NewHTTPService("127.0.0.1:0", nil)
	if svc.Name() != "http" {
		t.Fatalf("Name() = %q, want http", svc.Name())
	}

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Start() after shutdown = %v, want nil", err)
	}

	var nilSvc *HTTPService
	if nilSvc.Name() != "http" {
		t.Fatal("nil HTTPService must still report a name")
	}
	if err := nilSvc.Stop(context.Background()); err != nil {
		t.Fatalf("nil Stop() = %v", err)
	}
	if err := nilSvc.Start(context.Background()); err == nil {
		t.Fatal("nil Start() must error")
	}
}
