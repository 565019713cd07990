package ratelimiter

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestNextStart(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		rate     time.Duration
		lastSent time.Time
		want     time.Time
	}{
		{
			"Never sent - start now",
			time.Second,
			time.Time{},
			now,
		},
		{
			"Sent long ago - start now",
			time.Second,
			now.Add(-2 * time.Second),
			now,
		},
		{
			"Sent recently - wait for the rest of the delay",
			time.Second,
			now.Add(-100 * time.Millisecond),
			now.Add(900 * time.Millisecond),
		},
		{
			"Reserved in the future - queue after it",
			time.Second,
			now.Add(500 * time.Millisecond),
			now.Add(1500 * time.Millisecond),
		},
		{
			"Zero rate - start now",
			0,
			now,
			now,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := nextStart(test.rate, test.lastSent, now); !got.Equal(test.want) {
				t.Errorf("Expected start %v, got %v", test.want, got)
			}
		})
	}
}

func TestHostLimiterSpacesConcurrentAcquires(t *testing.T) {
	const delay = 50 * time.Millisecond

	hl := New(3, delay, slog.Default())
	ctx := context.Background()
	begin := time.Now()

	var (
		mu     sync.Mutex
		starts []time.Time
		wg     sync.WaitGroup
	)

	for range 3 {
		wg.Go(func() {
			release, err := hl.Acquire(ctx, "https://example.com/feed")
			if err != nil {
				t.Errorf("unexpected acquire error: %v", err)
				return
			}
			defer release()

			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		})
	}
	wg.Wait()

	if len(starts) != 3 {
		t.Fatalf("Expected 3 starts, got %d", len(starts))
	}

	slices.SortFunc(starts, func(a, b time.Time) int { return a.Compare(b) })

	for i, start := range starts {
		if earliest := begin.Add(time.Duration(i) * delay); start.Before(earliest) {
			t.Fatalf("Expected start %d no earlier than %v after begin, got %v", i, earliest.Sub(begin), start.Sub(begin))
		}
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"URL", "https://Example.com/feed.xml", "example.com"},
		{"URL with port", "http://example.com:8080/rss", "example.com:8080"},
		{"Not a URL", "not a url", "not a url"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := hostOf(test.raw); got != test.want {
				t.Errorf("Expected %q host, got %q", test.want, got)
			}
		})
	}
}

func TestHostLimiterCapsConcurrencyPerHost(t *testing.T) {
	hl := New(1, 0, slog.Default())
	ctx := context.Background()

	release, err := hl.Acquire(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("unexpected acquire error: %v", err)
	}

	otherRelease, err := hl.Acquire(ctx, "https://other.example/b")
	if err != nil {
		t.Fatalf("expected other host to be independent, got %v", err)
	}
	otherRelease()

	blockedCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if _, err = hl.Acquire(blockedCtx, "https://example.com/b"); err == nil {
		t.Fatalf("expected second acquire on the same host to block")
	}

	release()
	release()

	again, err := hl.Acquire(ctx, "https://example.com/c")
	if err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
	again()
}
