package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"feedsnap/internal/database"
	"feedsnap/internal/offline"
	"feedsnap/internal/reader"
	"feedsnap/internal/render"
)

const (
	offlineCacheTTL = 30 * 24 * time.Hour
	defaultHTMLPath = "feedsnap-reader.html"
)

const sessionHelp = `j / k                 next / previous item
m                     toggle read
s                     toggle star
A                     mark all visible read
o                     open the selected item's link in a browser
open <n|id>           open item by list position or id
filter all|starred    show everything or starred items
filter feed <url>     show one feed
filter folder <name>  show one folder
search [query]        filter by text; empty clears
theme                 toggle dark theme
reload                load the snapshot again
html [path]           write the current view as an HTML page
help                  show this help
quit                  leave`

func newReadCmd(a *app) *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:         "read",
		Short:       "Read the snapshot in an interactive line session",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{payloadAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := database.New(ctx, a.cfg.StateDBPath, a.log)
			if err != nil {
				a.log.ErrorContext(ctx, "Failed to initialize db",
					"error", err,
					"dbPath", a.cfg.StateDBPath)

				return err
			}
			defer func() {
				if err = db.Close(); err != nil {
					a.log.ErrorContext(ctx, "Failed to close db",
						"error", err,
						"dbPath", a.cfg.StateDBPath)
				}
			}()

			if _, err = db.PruneResponses(ctx, time.Now().Add(-offlineCacheTTL)); err != nil {
				a.log.WarnContext(ctx, "Failed to prune offline cache", "error", err)
			}

			loader, err := a.newLoader(ctx, db)
			if err != nil {
				return err
			}

			s := &session{
				loader:   loader,
				out:      cmd.OutOrStdout(),
				width:    width,
				now:      time.Now,
				htmlPath: defaultHTMLPath,
				openURL:  openBrowser,
			}

			s.store, err = reader.NewStore(ctx, db, s.paint, a.log)
			if err != nil {
				a.log.ErrorContext(ctx, "Failed to restore reader state", "error", err)
				return err
			}

			return s.run(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().IntVar(&width, "width", 100, "terminal width")

	return cmd
}

// newLoader reads from BASE_URL through the offline cache, or straight from
// SITE_DIR when no base URL is configured.
func (a *app) newLoader(ctx context.Context, db *database.Database) (*reader.Loader, error) {
	if a.cfg.BaseURL == "" {
		base := &http.Transport{}
		base.RegisterProtocol("file", http.NewFileTransport(http.Dir(a.cfg.SiteDir)))

		return reader.NewLoader(&http.Client{Transport: base}, "file:///", a.log)
	}

	baseURL := a.cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	tr := offline.NewTransport(http.DefaultTransport, db, a.log, "/"+reader.DefaultSnapshotPath)

	precacheErr := tr.Precache(ctx, []string{baseURL, baseURL + reader.DefaultFeedsPath})
	if precacheErr != nil {
		a.log.WarnContext(ctx, "Failed to warm up offline cache",
			"error", precacheErr,
			"baseURL", baseURL)
	}

	return reader.NewLoader(&http.Client{Transport: tr, Timeout: a.cfg.FetchTimeout}, baseURL, a.log)
}

type session struct {
	store    *reader.Store
	loader   *reader.Loader
	out      io.Writer
	width    int
	now      func() time.Time
	htmlPath string
	openURL  func(rawURL string) error
}

func (s *session) paint(_ context.Context, st reader.State) {
	fmt.Fprintln(s.out, render.Text(render.Build(st, s.now()), s.width))
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	if _, err := s.loader.LoadInto(ctx, s.store); err != nil {
		s.notify(err)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")

		if !scanner.Scan() {
			break
		}

		quit, err := s.exec(ctx, scanner.Text())
		if err != nil {
			s.notify(err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}

	return scanner.Err()
}

func (s *session) notify(err error) {
	fmt.Fprintln(s.out, "!", err)
}

var errUnknownCommand = errors.New("unknown command, try help")

func (s *session) exec(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error

	switch name {
	case "j":
		_, err = s.store.SelectNext(ctx, 1)
	case "k":
		_, err = s.store.SelectNext(ctx, -1)
	case "m":
		_, err = s.onSelected(ctx, s.store.ToggleRead)
	case "s":
		_, err = s.onSelected(ctx, s.store.ToggleStar)
	case "A":
		_, err = s.store.MarkAllVisibleRead(ctx)
	case "o":
		err = s.openSelected()
	case "open":
		err = s.open(ctx, arg)
	case "filter":
		err = s.filter(ctx, arg)
	case "search":
		_, err = s.store.SetSearch(ctx, arg)
	case "theme":
		_, err = s.store.ToggleTheme(ctx)
	case "reload":
		_, err = s.loader.LoadInto(ctx, s.store)
	case "html":
		err = s.writeHTML(arg)
	case "help", "?":
		fmt.Fprintln(s.out, sessionHelp)
	case "quit", "q", "exit":
		return true, nil
	default:
		err = errUnknownCommand
	}

	return false, err
}

func (s *session) onSelected(
	ctx context.Context,
	action func(context.Context, string) (reader.State, error),
) (reader.State, error) {
	id := s.store.State().SelectedID
	if id == "" {
		return reader.State{}, errors.New("no item is selected")
	}

	return action(ctx, id)
}

// open accepts a 1-based position in the visible list or an item id.
func (s *session) open(ctx context.Context, arg string) error {
	if arg == "" {
		return errors.New("usage: open <n|id>")
	}

	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		visible := reader.VisibleItems(s.store.State())
		if n < 1 || n > len(visible) {
			return fmt.Errorf("no item at position %d", n)
		}
		id = visible[n-1].ID
	}

	_, err := s.store.Select(ctx, id)

	return err
}

func (s *session) filter(ctx context.Context, arg string) error {
	kind, value, _ := strings.Cut(arg, " ")
	value = strings.TrimSpace(value)

	var err error

	switch reader.FilterType(kind) {
	case reader.FilterAll, reader.FilterStarred:
		_, err = s.store.SetFilter(ctx, reader.FilterType(kind), "")
	case reader.FilterFeed, reader.FilterFolder:
		if value == "" {
			return fmt.Errorf("usage: filter %s <value>", kind)
		}
		_, err = s.store.SetFilter(ctx, reader.FilterType(kind), value)
	default:
		return errors.New("usage: filter all|starred|feed <url>|folder <name>")
	}

	return err
}

func (s *session) openSelected() error {
	it, ok := s.store.State().ItemByID(s.store.State().SelectedID)
	if !ok {
		return errors.New("no item is selected")
	}

	return s.openURL(it.Link)
}

func (s *session) writeHTML(path string) error {
	if path == "" {
		path = s.htmlPath
	}

	page, err := render.Page(render.Build(s.store.State(), s.now()))
	if err != nil {
		return err
	}

	if err = os.WriteFile(path, page, 0o644); err != nil {
		return fmt.Errorf("write HTML page: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	fmt.Fprintln(s.out, "Written", abs)

	return nil
}

func openBrowser(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q", u.Scheme)
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}
