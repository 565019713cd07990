// Package offline keeps the reader usable without a network. Transport is an
// http.RoundTripper that answers from a response cache when the network
// cannot.
package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"feedsnap/internal/domain"
)

// CacheHeader is set on responses served from the cache.
const CacheHeader = "X-Feedsnap-Cache"

// Store persists cached responses.
type Store interface {
	GetResponse(ctx context.Context, key string) (domain.CachedResponse, bool, error)
	PutResponse(ctx context.Context, resp domain.CachedResponse) error
}

type Transport struct {
	base  http.RoundTripper
	store Store
	// networkFirst lists path suffixes that always try the network first.
	networkFirst []string
	now          func() time.Time
	log          *slog.Logger
}

// NewTransport wraps base. Requests whose path ends with one of
// networkFirstPaths go to the network first and fall back to the cache;
// everything else is served cache-first.
func NewTransport(base http.RoundTripper, store Store, log *slog.Logger, networkFirstPaths ...string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &Transport{
		base:         base,
		store:        store,
		networkFirst: networkFirstPaths,
		now:          time.Now,
		log:          log,
	}
}

// CacheKey identifies a cached response. The query string is ignored so
// cache-busted requests share one entry.
func CacheKey(u *url.URL) string {
	k := *u
	k.RawQuery = ""
	k.ForceQuery = false
	k.Fragment = ""
	k.RawFragment = ""
	k.User = nil

	return k.String()
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}

	if t.isNetworkFirst(req) {
		return t.networkFirstTrip(req)
	}

	return t.cacheFirstTrip(req)
}

func (t *Transport) isNetworkFirst(req *http.Request) bool {
	cc := strings.ToLower(req.Header.Get("Cache-Control"))
	if strings.Contains(cc, "no-store") || strings.Contains(cc, "no-cache") {
		return true
	}

	for _, suffix := range t.networkFirst {
		if strings.HasSuffix(req.URL.Path, suffix) {
			return true
		}
	}

	return false
}

func (t *Transport) networkFirstTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	resp, netErr := t.fetch(req)
	if netErr == nil {
		return resp, nil
	}

	cached, ok, err := t.store.GetResponse(ctx, CacheKey(req.URL))
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to get cached response",
			"error", err,
			"url", req.URL.String())
	}
	if !ok {
		return nil, netErr
	}

	t.log.WarnContext(ctx, "Network is unavailable so cached response is used",
		"error", netErr,
		"url", req.URL.String(),
		"storedAt", cached.StoredAt)

	return toResponse(req, cached), nil
}

func (t *Transport) cacheFirstTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	cached, ok, err := t.store.GetResponse(ctx, CacheKey(req.URL))
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to get cached response",
			"error", err,
			"url", req.URL.String())
	}
	if ok {
		return toResponse(req, cached), nil
	}

	return t.fetch(req)
}

// fetch performs req on the network and caches a successful response.
func (t *Transport) fetch(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	ctx := req.Context()
	err = t.store.PutResponse(ctx, domain.CachedResponse{
		Key:         CacheKey(req.URL),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		StoredAt:    t.now().UTC(),
	})
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to cache response",
			"error", err,
			"url", req.URL.String())
	}

	return resp, nil
}

// Precache fetches urls from the network and stores them, bypassing any
// cached copy.
func (t *Transport) Precache(ctx context.Context, urls []string) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	for _, u := range urls {
		wg.Go(func() {
			if err := t.precacheOne(ctx, u); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	t.log.InfoContext(ctx, "Offline cache is warmed up", "urlCount", len(urls))

	return nil
}

func (t *Transport) precacheOne(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request (url = %s): %w", rawURL, err)
	}

	resp, err := t.fetch(req)
	if err != nil {
		return fmt.Errorf("precache %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("precache %s: status %d", rawURL, resp.StatusCode)
	}

	return nil
}

func toResponse(req *http.Request, cached domain.CachedResponse) *http.Response {
	header := make(http.Header)
	if cached.ContentType != "" {
		header.Set("Content-Type", cached.ContentType)
	}
	header.Set("Content-Length", strconv.Itoa(len(cached.Body)))
	header.Set(CacheHeader, "hit")

	return &http.Response{
		Status:        strconv.Itoa(cached.StatusCode) + " " + http.StatusText(cached.StatusCode),
		StatusCode:    cached.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(cached.Body)),
		ContentLength: int64(len(cached.Body)),
		Request:       req,
	}
}

// MemoryStore keeps cached responses in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	responses map[string]domain.CachedResponse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{responses: make(map[string]domain.CachedResponse)}
}

func (m *MemoryStore) GetResponse(_ context.Context, key string) (domain.CachedResponse, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp, ok := m.responses[key]
	resp.Body = bytes.Clone(resp.Body)

	return resp, ok, nil
}

func (m *MemoryStore) PutResponse(_ context.Context, resp domain.CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp.Body = bytes.Clone(resp.Body)
	m.responses[resp.Key] = resp

	return nil
}
