package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"feedsnap/internal/domain"
	"feedsnap/internal/snapshot"
)

const (
	DefaultFeedsPath    = "feeds.json"
	DefaultSnapshotPath = "data/items.json"

	StatusNoData     = "No data yet"
	StatusLoadFailed = "Failed to load data"

	updatedLayout = "2006-01-02 15:04:05"
)

// Loader fetches the feed list and the snapshot the aggregator published.
type Loader struct {
	client       *http.Client
	baseURL      *url.URL
	feedsPath    string
	snapshotPath string
	now          func() time.Time
	log          *slog.Logger
}

type LoadResult struct {
	Feeds  []domain.Feed
	Items  []domain.Item
	Status string
}

func NewLoader(client *http.Client, baseURL string, log *slog.Logger) (*Loader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Loader{
		client:       client,
		baseURL:      base,
		feedsPath:    DefaultFeedsPath,
		snapshotPath: DefaultSnapshotPath,
		now:          time.Now,
		log:          log,
	}, nil
}

// Load requests both documents concurrently. A non-OK response leaves that
// collection empty; a transport or decoding failure also sets the failure
// status. Load never returns partial garbage.
func (l *Loader) Load(ctx context.Context) LoadResult {
	var (
		wg       sync.WaitGroup
		list     domain.FeedList
		snap     domain.Snapshot
		feedsErr error
		snapErr  error
	)

	wg.Go(func() {
		feedsErr = l.getJSON(ctx, l.resolve(l.feedsPath), true, &list)
	})

	wg.Go(func() {
		target, err := snapshot.BustedURL(l.resolve(l.snapshotPath), l.now())
		if err != nil {
			snapErr = err
			return
		}
		snapErr = l.getJSON(ctx, target, false, &snap)
	})

	wg.Wait()

	var res LoadResult

	if feedsErr == nil {
		res.Feeds = snapshot.NormalizeFeedList(list).Feeds
	} else if !errors.Is(feedsErr, errNotOK) {
		l.log.ErrorContext(ctx, "Failed to load feed list", "error", feedsErr)
	}

	if snapErr == nil {
		res.Items = snap.Items
	} else if !errors.Is(snapErr, errNotOK) {
		l.log.ErrorContext(ctx, "Failed to load snapshot", "error", snapErr)
	}

	switch {
	case isHardFailure(feedsErr) || isHardFailure(snapErr):
		res.Status = StatusLoadFailed
	case snapErr == nil && !snap.UpdatedAt.IsZero():
		res.Status = UpdatedStatus(snap.UpdatedAt)
	default:
		res.Status = StatusNoData
	}

	if res.Feeds == nil {
		res.Feeds = []domain.Feed{}
	}
	if res.Items == nil {
		res.Items = []domain.Item{}
	}

	return res
}

// LoadInto loads and hands the result to the store in one transition.
func (l *Loader) LoadInto(ctx context.Context, store *Store) (State, error) {
	res := l.Load(ctx)

	return store.SetData(ctx, res.Feeds, res.Items, res.Status)
}

// UpdatedStatus is the status line for a snapshot published at t.
func UpdatedStatus(t time.Time) string {
	return "Updated " + t.Local().Format(updatedLayout)
}

var errNotOK = errors.New("response is not OK")

func isHardFailure(err error) bool {
	return err != nil && !errors.Is(err, errNotOK)
}

func (l *Loader) resolve(path string) string {
	return l.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

func (l *Loader) getJSON(ctx context.Context, target string, noStore bool, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if noStore {
		req.Header.Set("Cache-Control", "no-store")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("get %s: status %d: %w", target, resp.StatusCode, errNotOK)
	}

	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}

	return nil
}
