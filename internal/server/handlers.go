package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"feedsnap/internal/opml"
	"feedsnap/internal/reader"
	"feedsnap/internal/render"
	"feedsnap/internal/snapshot"
)

// handleDataFile serves a JSON document that changes between runs, so
// clients always revalidate it.
func (s *Server) handleDataFile(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			s.log.ErrorContext(r.Context(), "Failed to open data file",
				"error", err,
				"path", path)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			s.log.ErrorContext(r.Context(), "Failed to stat data file",
				"error", err,
				"path", path)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	list, err := snapshot.ReadFeedList(s.opts.FeedsPath)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to read feed list",
			"error", err,
			"feedsPath", s.opts.FeedsPath)
		http.Error(w, "Failed to read feed list", http.StatusInternalServerError)
		return
	}

	out, err := opml.Export(s.opts.Title, list.Feeds)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to export OPML",
			"error", err,
			"feedCount", len(list.Feeds))
		http.Error(w, "Failed to export OPML", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/x-opml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="subscriptions.opml"`)
	_, _ = w.Write(out)
}

// handlePreview renders the reader for a request without any stored read or
// starred state. Query parameters pick the filter, search and selection.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := reader.NewState()
	status := reader.StatusNoData

	list, err := snapshot.ReadFeedList(s.opts.FeedsPath)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to read feed list for preview", "error", err)
	}

	snap, err := snapshot.ReadSnapshot(s.opts.SnapshotPath)
	switch {
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		s.log.WarnContext(ctx, "Failed to read snapshot for preview", "error", err)
		status = reader.StatusLoadFailed
	case err == nil && !snap.UpdatedAt.IsZero():
		status = reader.UpdatedStatus(snap.UpdatedAt)
	}

	state = reader.WithData(state, list.Feeds, snap.Items, status)

	q := r.URL.Query()
	switch {
	case q.Has("feed"):
		state = reader.SetFilter(state, reader.FilterFeed, q.Get("feed"))
	case q.Has("folder"):
		state = reader.SetFilter(state, reader.FilterFolder, q.Get("folder"))
	}
	state = reader.SetSearch(state, q.Get("q"))
	if id := strings.TrimSpace(q.Get("id")); id != "" {
		state = reader.Select(state, id)
	}
	if q.Get("theme") == reader.ThemeDark {
		state = reader.ToggleTheme(state)
	}

	page, err := render.Page(render.Build(state, s.now()))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to render preview", "error", err)
		http.Error(w, "Failed to render preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
