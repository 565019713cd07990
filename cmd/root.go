package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"feedsnap/internal/config"
)

//nolint:gochecknoglobals // Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// payloadAnnotation marks commands that print their result to stdout, so
// their logs go to stderr.
const payloadAnnotation = "stdoutPayload"

type app struct {
	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "feedsnap",
		Short:         "Static feed aggregator and reader",
		Long:          "feedsnap fetches subscribed feeds into a JSON snapshot and reads it offline-first.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] != "" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Failed to load config:", err)
				return err
			}

			out := cmd.OutOrStdout()
			if cmd.Annotations[payloadAnnotation] != "" {
				out = cmd.ErrOrStderr()
			}

			a.cfg = cfg
			a.log = newLogger(out, cfg.LogLevel)
			slog.SetDefault(a.log)

			a.log.DebugContext(cmd.Context(), "Config is loaded",
				"command", cmd.CommandPath(),
				"feedsPath", cfg.FeedsPath,
				"snapshotPath", cfg.SnapshotPath,
				"stateDBPath", cfg.StateDBPath)

			return nil
		},
	}

	root.AddCommand(
		newFetchCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newReadCmd(a),
		newOPMLCmd(a),
		newFeedsCmd(a),
		newVersionCmd(),
	)

	return root
}

const skipConfigAnnotation = "skipConfig"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "feedsnap %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
