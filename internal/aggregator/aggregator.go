// Package aggregator runs one publication cycle: read the subscription list,
// fetch every feed and replace the snapshot file.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"

	"feedsnap/internal/domain"
	"feedsnap/internal/feed"
	"feedsnap/internal/snapshot"
)

type Aggregator interface {
	Aggregate(ctx context.Context, feeds []domain.Feed) (domain.Snapshot, []feed.Result)
}

type Runner struct {
	feedsPath    string
	snapshotPath string
	aggregator   Aggregator
	log          *slog.Logger
}

func NewRunner(feedsPath, snapshotPath string, aggregator Aggregator, log *slog.Logger) *Runner {
	return &Runner{
		feedsPath:    feedsPath,
		snapshotPath: snapshotPath,
		aggregator:   aggregator,
		log:          log,
	}
}

// Run fails without touching the snapshot when the feed list cannot be read.
// Feed failures are logged and never fail the run.
func (r *Runner) Run(ctx context.Context) (domain.Snapshot, error) {
	list, err := snapshot.ReadFeedList(r.feedsPath)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load feed list: %w", err)
	}

	snap, results := r.aggregator.Aggregate(ctx, list.Feeds)

	if err = ctx.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("aggregate feeds: %w", err)
	}

	if err = snapshot.WriteSnapshot(r.snapshotPath, snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}

	r.log.InfoContext(ctx, "Snapshot is written",
		"snapshotPath", r.snapshotPath,
		"itemCount", len(snap.Items),
		"failedFeeds", FailedCount(results))

	return snap, nil
}

func FailedCount(results []feed.Result) int {
	var n int
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}

	return n
}
