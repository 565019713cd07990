package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestStartRunsJobImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)
	job := JobFunc(func(context.Context) error {
		ran <- struct{}{}
		return nil
	})

	s := New(context.Background(), "0 0 1 1 *", time.Second, job, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatalf("job did not run on start")
	}
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := New(context.Background(), "not a cron expression", time.Second, JobFunc(func(context.Context) error { return nil }), testLogger())

	if err := s.Start(); err == nil {
		t.Fatalf("Start() error = nil, want error")
	}
}

func TestTickAppliesRunTimeout(t *testing.T) {
	var deadline atomic.Bool
	job := JobFunc(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		deadline.Store(ok)
		<-ctx.Done()
		return ctx.Err()
	})

	s := New(context.Background(), "", 10*time.Millisecond, job, testLogger())
	s.tick()

	if !deadline.Load() {
		t.Fatalf("job context has no deadline")
	}
}

func TestTickSkipsOverlappingRuns(t *testing.T) {
	var runs atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	job := JobFunc(func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return errors.New("done")
	})

	s := New(context.Background(), "", time.Minute, job, testLogger())

	go s.tick()
	<-started

	s.tick()
	close(release)
	s.Stop()

	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestTickSkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var runs atomic.Int32
	s := New(ctx, "", time.Minute, JobFunc(func(context.Context) error {
		runs.Add(1)
		return nil
	}), testLogger())

	s.tick()

	if runs.Load() != 0 {
		t.Fatalf("job ran with a cancelled context")
	}
}
