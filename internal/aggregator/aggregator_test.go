package aggregator_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsnap/internal/aggregator"
	"feedsnap/internal/domain"
	"feedsnap/internal/feed"
	"feedsnap/internal/snapshot"
)

const rss = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Good</title>
<item><guid>1</guid><title>One</title><pubDate>Tue, 02 Jan 2024 10:00:00 GMT</pubDate></item>
<item><guid>2</guid><title>Two</title><pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate></item>
<item><guid>3</guid><title>Three</title></item>
</channel></rss>`

func newRunner(t *testing.T, feeds []domain.Feed) (*aggregator.Runner, string) {
	t.Helper()

	dir := t.TempDir()
	feedsPath := filepath.Join(dir, "feeds.json")
	snapshotPath := filepath.Join(dir, "data", "items.json")

	if feeds != nil {
		require.NoError(t, snapshot.WriteFeedList(feedsPath, domain.FeedList{Feeds: feeds}))
	}

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	fetcher := feed.NewFetcher(feed.Options{}, log)

	return aggregator.NewRunner(feedsPath, snapshotPath, fetcher, log), snapshotPath
}

func TestRunWritesSnapshotDespiteFailingFeeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			_, _ = io.WriteString(w, rss)
		case "/broken":
			_, _ = io.WriteString(w, "not a feed")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	runner, snapshotPath := newRunner(t, []domain.Feed{
		{URL: srv.URL + "/missing"},
		{URL: srv.URL + "/broken"},
		{URL: srv.URL + "/good"},
	})

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Items, 3)

	written, err := snapshot.ReadSnapshot(snapshotPath)
	require.NoError(t, err)
	require.Len(t, written.Items, 3)
	assert.Equal(t, srv.URL+"/good|1", written.Items[0].ID)
	assert.Nil(t, written.Items[2].IsoDate)
}

func TestRunFailsWithoutFeedList(t *testing.T) {
	runner, snapshotPath := newRunner(t, nil)

	_, err := runner.Run(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(snapshotPath)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestFailedCount(t *testing.T) {
	results := []feed.Result{{}, {Err: assert.AnError}, {Err: assert.AnError}}

	if got := aggregator.FailedCount(results); got != 2 {
		t.Fatalf("FailedCount() = %d, want 2", got)
	}
}
