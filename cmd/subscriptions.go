package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"feedsnap/internal/domain"
	"feedsnap/internal/opml"
	"feedsnap/internal/snapshot"
)

func newOPMLCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opml",
		Short: "Import or export subscriptions as OPML",
	}

	var replace bool
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge an OPML file into the feed list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open OPML file: %w", err)
			}
			defer func() { _ = f.Close() }()

			feeds, err := opml.Parse(f)
			if err != nil {
				a.log.ErrorContext(ctx, "Failed to parse OPML",
					"error", err,
					"path", args[0])

				return err
			}

			added, total, err := a.mergeFeeds(feeds, replace)
			if err != nil {
				return err
			}

			a.log.InfoContext(ctx, "OPML is imported",
				"path", args[0],
				"parsedCount", len(feeds),
				"addedCount", added,
				"feedCount", total)

			return nil
		},
	}
	importCmd.Flags().BoolVar(&replace, "replace", false, "replace the feed list instead of merging")

	var title string
	exportCmd := &cobra.Command{
		Use:         "export",
		Short:       "Print the feed list as OPML",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{payloadAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := snapshot.ReadFeedList(a.cfg.FeedsPath)
			if err != nil {
				a.log.ErrorContext(cmd.Context(), "Failed to read feed list",
					"error", err,
					"feedsPath", a.cfg.FeedsPath)

				return err
			}

			out, err := opml.Export(title, list.Feeds)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
	exportCmd.Flags().StringVar(&title, "title", "feedsnap subscriptions", "OPML head title")

	cmd.AddCommand(importCmd, exportCmd)

	return cmd
}

func newFeedsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "Manage the feed list",
	}

	var folder string
	addCmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Find feed URLs and @channels in text and add the valid ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")

			feeds, findErr := a.newFetcher().FindValidFeeds(ctx, text)
			if findErr != nil {
				a.log.WarnContext(ctx, "Some candidates are not valid feeds",
					"error", findErr)
			}
			if len(feeds) == 0 {
				return errors.New("no valid feeds found")
			}

			if folder = strings.TrimSpace(folder); folder != "" {
				for i := range feeds {
					feeds[i].Folder = folder
				}
			}

			added, total, err := a.mergeFeeds(feeds, false)
			if err != nil {
				return err
			}

			for _, f := range feeds {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", f.FolderName(), f.Title, f.URL)
			}

			a.log.InfoContext(ctx, "Feeds are added",
				"foundCount", len(feeds),
				"addedCount", added,
				"feedCount", total)

			return nil
		},
	}
	addCmd.Flags().StringVar(&folder, "folder", "", "folder for the added feeds")
	addCmd.Annotations = map[string]string{payloadAnnotation: "true"}

	listCmd := &cobra.Command{
		Use:         "list",
		Short:       "Print the feed list",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{payloadAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := snapshot.ReadFeedList(a.cfg.FeedsPath)
			if err != nil {
				return err
			}

			for _, f := range list.Feeds {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", f.FolderName(), f.Title, f.URL)
			}

			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd)

	return cmd
}

// mergeFeeds appends feeds to the stored list, keeping the first entry per
// URL. A missing list is treated as empty.
func (a *app) mergeFeeds(feeds []domain.Feed, replace bool) (int, int, error) {
	var current domain.FeedList
	if !replace {
		list, err := snapshot.ReadFeedList(a.cfg.FeedsPath)
		switch {
		case err == nil:
			current = list
		case errors.Is(err, fs.ErrNotExist):
		default:
			return 0, 0, err
		}
	}

	before := len(current.Feeds)
	merged := snapshot.NormalizeFeedList(domain.FeedList{Feeds: append(current.Feeds, feeds...)})

	if err := snapshot.WriteFeedList(a.cfg.FeedsPath, merged); err != nil {
		return 0, 0, fmt.Errorf("write feed list: %w", err)
	}

	return len(merged.Feeds) - before, len(merged.Feeds), nil
}
