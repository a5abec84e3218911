package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.Second)
	if err := s.Register("bad", "not a cron spec", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestSchedulerRunsRegisteredTask(t *testing.T) {
	var calls int32
	s := NewScheduler(time.Second)
	if err := s.Register("tick", "@every 1s", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Start()
	waitFor(t, 3*time.Second, func() bool { return atomic.LoadInt32(&calls) >= 1 })
	s.Stop()
}

func TestSchedulerRunNowAppliesTimeout(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)
	defer s.Stop()

	var sawDeadline int32
	s.RunNow("slow", func(ctx context.Context) error {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			atomic.StoreInt32(&sawDeadline, 1)
		}
		return ctx.Err()
	})
	if atomic.LoadInt32(&sawDeadline) != 1 {
		t.Fatal("expected task context to carry the timeout")
	}
}

func TestSchedulerStopCancelsTasks(t *testing.T) {
	s := NewScheduler(time.Minute)
	started := make(chan struct{})
	finished := make(chan error, 1)

	go s.RunNow("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	})
	<-started
	s.Stop()

	select {
	case err := <-finished:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("stop did not cancel the running task")
	}
}
