package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsnap/internal/config"
	"feedsnap/internal/domain"
	"feedsnap/internal/snapshot"
)

func TestMergeFeeds(t *testing.T) {
	a := &app{
		cfg: config.Config{FeedsPath: filepath.Join(t.TempDir(), "feeds.json")},
		log: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}

	added, total, err := a.mergeFeeds([]domain.Feed{
		{URL: "https://a.example/rss", Title: "A"},
		{URL: "https://a.example/rss", Title: "Duplicate"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, total)

	added, total, err = a.mergeFeeds([]domain.Feed{
		{URL: "https://a.example/rss", Title: "Again", Folder: "X"},
		{URL: "https://b.example/rss", Title: "B", Folder: "Tech"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 2, total)

	list, err := snapshot.ReadFeedList(a.cfg.FeedsPath)
	require.NoError(t, err)
	assert.Equal(t, []domain.Feed{
		{URL: "https://a.example/rss", Title: "A", Folder: domain.DefaultFolder},
		{URL: "https://b.example/rss", Title: "B", Folder: "Tech"},
	}, list.Feeds)

	added, total, err = a.mergeFeeds([]domain.Feed{{URL: "https://c.example/rss"}}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, total)
}
