package ratelimiter

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
)

type hostState struct {
	slots    chan struct{}
	lastSent time.Time
}

// HostLimiter caps concurrent requests to a single host and spaces
// consecutive requests to it by at least delay.
type HostLimiter struct {
	mu         sync.Mutex
	hosts      map[string]*hostState
	maxPerHost int
	delay      time.Duration
	log        *slog.Logger
}

func New(maxPerHost int, delay time.Duration, log *slog.Logger) *HostLimiter {
	return &HostLimiter{
		hosts:      make(map[string]*hostState),
		maxPerHost: max(maxPerHost, 1),
		delay:      max(delay, 0),
		log:        log,
	}
}

// Acquire blocks until a request to rawURL's host may start. The returned
// release func must be called once the request is done.
func (hl *HostLimiter) Acquire(ctx context.Context, rawURL string) (func(), error) {
	host := hostOf(rawURL)
	state := hl.state(host)

	select {
	case state.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	now := time.Now()

	hl.mu.Lock()
	start := nextStart(hl.delay, state.lastSent, now)
	state.lastSent = start
	hl.mu.Unlock()

	if delay := start.Sub(now); delay > 0 {
		hl.log.DebugContext(ctx, "Rate limiting request",
			"host", host,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			<-state.slots

			return nil, ctx.Err()
		}
	}

	var once sync.Once

	return func() {
		once.Do(func() { <-state.slots })
	}, nil
}

func (hl *HostLimiter) state(host string) *hostState {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	state, ok := hl.hosts[host]
	if !ok {
		state = &hostState{slots: make(chan struct{}, hl.maxPerHost)}
		hl.hosts[host] = state
	}

	return state
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	return strings.ToLower(u.Host)
}

// nextStart is the earliest moment a request may start when the previous
// one on the same host was reserved for lastSent.
func nextStart(rate time.Duration, lastSent, now time.Time) time.Time {
	if lastSent.IsZero() {
		return now
	}

	return maxTime(now, lastSent.Add(rate))
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}

	return a
}
