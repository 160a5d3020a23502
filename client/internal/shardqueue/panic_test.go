package shardqueue

import (
	"context"
	"errors"
	"testing"
	"time"
)

// A panicking job is reported and the same shard keeps serving later jobs.
func TestWorker_PanicIsIsolatedToJob(t *testing.T) {
	reported := make(chan error, 1)
	cfg := Config{Shards: 1, QueueSize: 4}
	cfg.ErrorHandler = func(_ string, err error) { reported <- err }
	ex := NewShardExecutor(cfg)
	defer ex.Stop()

	if err := ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error { panic("job panic") })); err != nil {
		t.Fatalf("submit panic job: %v", err)
	}
	ran := make(chan struct{})
	if err := ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error { close(ran); return nil })); err != nil {
		t.Fatalf("submit follow-up: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("shard stopped after job panic")
	}
	select {
	case err := <-reported:
		var pe *PanicError
		if !errors.As(err, &pe) || pe.Value != "job panic" {
			t.Fatalf("expected PanicError, got %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("panic not reported")
	}
}

// A job whose context is already cancelled is skipped and reported.
func TestWorker_CanceledJobSkipsRun(t *testing.T) {
	reported := make(chan error, 1)
	cfg := Config{Shards: 1, QueueSize: 4}
	cfg.ErrorHandler = func(_ string, err error) { reported <- err }
	ex := NewShardExecutor(cfg)
	defer ex.Stop()

	block := make(chan struct{})
	_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error { <-block; return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	if err := ex.Submit(ctx, "k", JobFunc(func(context.Context) error { ran = true; return nil })); err != nil {
		t.Fatalf("submit: %v", err)
	}
	cancel()
	close(block)

	select {
	case err := <-reported:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("cancellation not reported")
	}
	if err := ex.Barrier(context.Background(), "k"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if ran {
		t.Fatal("cancelled job ran")
	}
}
