// Package server hosts the published site for local preview: the static
// reader assets, the feed list and the snapshot.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	FeedsRoute         = "/feeds.json"
	SnapshotRoute      = "/data/items.json"
	SubscriptionsRoute = "/subscriptions.opml"
	PreviewRoute       = "/preview"

	staticCacheControl = "public, max-age=86400"
	shutdownTimeout    = 10 * time.Second
)

type Options struct {
	SiteDir      string
	FeedsPath    string
	SnapshotPath string
	Title        string
	// Preview mounts PreviewRoute, a server-rendered debugging view of the
	// snapshot. The published site never depends on it.
	Preview bool
}

type Server struct {
	opts   Options
	router chi.Router
	now    func() time.Time
	log    *slog.Logger
}

func New(opts Options, log *slog.Logger) *Server {
	if opts.Title == "" {
		opts.Title = "feedsnap"
	}

	s := &Server{
		opts: opts,
		now:  time.Now,
		log:  log,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get(FeedsRoute, s.handleDataFile(s.opts.FeedsPath))
	r.Get(SnapshotRoute, s.handleDataFile(s.opts.SnapshotPath))
	r.Get(SubscriptionsRoute, s.handleSubscriptions)
	if s.opts.Preview {
		r.Get(PreviewRoute, s.handlePreview)
	}

	static := http.FileServer(http.Dir(s.opts.SiteDir))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", staticCacheControl)
		static.ServeHTTP(w, r)
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "Server is listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	s.log.InfoContext(ctx, "Server is stopped")

	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		s.log.InfoContext(r.Context(), "Request is served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started),
			"requestID", middleware.GetReqID(r.Context()))
	})
}
