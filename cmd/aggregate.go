package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"feedsnap/internal/aggregator"
	"feedsnap/internal/feed"
	"feedsnap/internal/scheduler"
	"feedsnap/internal/server"
)

func (a *app) newFetcher() *feed.Fetcher {
	return feed.NewFetcher(feed.Options{
		FetchTimeout: a.cfg.FetchTimeout,
		MaxItems:     a.cfg.MaxItems,
		UserAgent:    a.cfg.UserAgent,
		MaxPerHost:   a.cfg.MaxPerHost,
		HostDelay:    a.cfg.HostDelay,
	}, a.log)
}

func (a *app) newRunner() *aggregator.Runner {
	return aggregator.NewRunner(a.cfg.FeedsPath, a.cfg.SnapshotPath, a.newFetcher(), a.log)
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch all feeds once and write the snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			start := time.Now()

			snap, err := a.newRunner().Run(ctx)
			if err != nil {
				a.log.ErrorContext(ctx, "Failed to aggregate feeds",
					"error", err,
					"feedsPath", a.cfg.FeedsPath)

				return err
			}

			a.log.InfoContext(ctx, "Fetch is done",
				"itemCount", len(snap.Items),
				"durationSeconds", time.Since(start).Seconds())

			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var serve, preview bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Fetch on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			runner := a.newRunner()

			job := scheduler.JobFunc(func(ctx context.Context) error {
				_, err := runner.Run(ctx)
				return err
			})

			sched := scheduler.New(ctx, a.cfg.Schedule, a.cfg.RunTimeout, job, a.log)
			if err := sched.Start(); err != nil {
				a.log.ErrorContext(ctx, "Failed to start scheduler",
					"error", err,
					"spec", a.cfg.Schedule)

				return err
			}
			defer sched.Stop()

			if serve {
				return a.newServer(preview).Run(ctx, a.cfg.Addr)
			}

			<-ctx.Done()
			a.log.InfoContext(ctx, "Shutdown signal is received")

			return nil
		},
	}

	cmd.Flags().BoolVar(&serve, "serve", false, "also serve the site while watching")
	cmd.Flags().BoolVar(&preview, "preview", false, "mount the server-rendered /preview page when serving")

	return cmd
}

func (a *app) newServer(preview bool) *server.Server {
	return server.New(server.Options{
		SiteDir:      a.cfg.SiteDir,
		FeedsPath:    a.cfg.FeedsPath,
		SnapshotPath: a.cfg.SnapshotPath,
		Preview:      preview,
	}, a.log)
}

func newServeCmd(a *app) *cobra.Command {
	var preview bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site, feed list and snapshot for local preview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := a.newServer(preview).Run(ctx, a.cfg.Addr); err != nil {
				a.log.ErrorContext(ctx, "Failed to serve",
					"error", err,
					"addr", a.cfg.Addr)

				return err
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "mount the server-rendered /preview page")

	return cmd
}
