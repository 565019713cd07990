// Package snapshot reads and writes the JSON files shared by the
// aggregator and the reader: the subscription list and the item snapshot.
package snapshot

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"feedsnap/internal/domain"
)

// BustParam is the query parameter that defeats caches between the reader
// and the snapshot file.
const BustParam = "bust"

func ReadFeedList(path string) (domain.FeedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.FeedList{}, fmt.Errorf("read feed list: %w", err)
	}

	var list domain.FeedList
	if err = json.Unmarshal(data, &list); err != nil {
		return domain.FeedList{}, fmt.Errorf("decode feed list (path = %s): %w", path, err)
	}

	return NormalizeFeedList(list), nil
}

// NormalizeFeedList trims fields, fills in the default folder and drops
// feeds without a URL or repeating an earlier URL.
func NormalizeFeedList(list domain.FeedList) domain.FeedList {
	feeds := make([]domain.Feed, 0, len(list.Feeds))
	seen := make(map[string]struct{}, len(list.Feeds))

	for _, f := range list.Feeds {
		f.URL = strings.TrimSpace(f.URL)
		if f.URL == "" {
			continue
		}
		if _, ok := seen[f.URL]; ok {
			continue
		}
		seen[f.URL] = struct{}{}

		f.Title = strings.TrimSpace(f.Title)
		f.Folder = f.FolderName()
		feeds = append(feeds, f)
	}

	return domain.FeedList{Feeds: feeds}
}

func WriteFeedList(path string, list domain.FeedList) error {
	if list.Feeds == nil {
		list.Feeds = []domain.Feed{}
	}

	return writeJSON(path, list)
}

func ReadSnapshot(path string) (domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err = json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot (path = %s): %w", path, err)
	}

	return snap, nil
}

func WriteSnapshot(path string, snap domain.Snapshot) error {
	if snap.Items == nil {
		snap.Items = []domain.Item{}
	}

	return writeJSON(path, snap)
}

// writeJSON replaces path atomically so readers never observe a partially
// written file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return fmt.Errorf("write temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// BustedURL returns rawURL with BustParam set to now in Unix milliseconds.
func BustedURL(rawURL string, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	q.Set(BustParam, strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()

	return u.String(), nil
}
