package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"feedsnap/internal/domain"
	"feedsnap/internal/ratelimiter"

	"mvdan.cc/xurls/v2"
)

const (
	DefaultFetchTimeout = 20 * time.Second
	DefaultMaxItems     = 1500
	DefaultUserAgent    = "feedsnap/1.0"
)

type Options struct {
	FetchTimeout time.Duration
	MaxItems     int
	UserAgent    string
	MaxPerHost   int
	HostDelay    time.Duration
	// Client overrides the HTTP client used for every feed request.
	Client *http.Client
}

type Fetcher struct {
	parser       *Parser
	limiter      *ratelimiter.HostLimiter
	fetchTimeout time.Duration
	maxItems     int
	now          func() time.Time
	log          *slog.Logger
}

// Result is the outcome of fetching one feed. Err and Items are exclusive.
type Result struct {
	Feed  domain.Feed
	Items []domain.Item
	Err   error
}

func NewFetcher(opts Options, log *slog.Logger) *Fetcher {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.FetchTimeout}
	}

	return &Fetcher{
		parser:       NewParser(client, opts.UserAgent, log),
		limiter:      ratelimiter.New(opts.MaxPerHost, opts.HostDelay, log),
		fetchTimeout: opts.FetchTimeout,
		maxItems:     opts.MaxItems,
		now:          time.Now,
		log:          log,
	}
}

// Aggregate fetches every feed concurrently and merges the results into a
// snapshot. A failing feed contributes no items and never fails the batch;
// its error is logged and reported in the returned results.
func (f *Fetcher) Aggregate(
	ctx context.Context,
	feeds []domain.Feed,
) (domain.Snapshot, []Result) {
	results := make([]Result, len(feeds))

	var wg sync.WaitGroup
	for i, feed := range feeds {
		wg.Go(func() {
			items, err := f.FetchFeed(ctx, feed)
			results[i] = Result{Feed: feed, Items: items, Err: err}
		})
	}
	wg.Wait()

	var failed int
	for _, result := range results {
		if result.Err == nil {
			continue
		}

		failed++
		f.log.ErrorContext(ctx, "Failed to fetch feed",
			"error", result.Err,
			"feedURL", result.Feed.URL,
			"feedTitle", result.Feed.Title)
	}

	items := MergeItems(results, f.maxItems)
	snapshot := domain.Snapshot{
		UpdatedAt: f.now().UTC(),
		Items:     items,
	}

	f.log.InfoContext(ctx, "Feeds are aggregated",
		"feedCount", len(feeds),
		"failedCount", failed,
		"itemCount", len(items),
		"maxItems", f.maxItems)

	return snapshot, results
}

func (f *Fetcher) FetchFeed(ctx context.Context, feed domain.Feed) ([]domain.Item, error) {
	feedURL := strings.TrimSpace(feed.URL)
	if feedURL == "" {
		return nil, errors.New("feed URL is empty")
	}

	release, err := f.limiter.Acquire(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("acquire host slot: %w", err)
	}
	defer release()

	fetchCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	parsed, err := f.parser.ParseFeed(fetchCtx, feed)
	if err != nil {
		return nil, err
	}

	feedTitle := firstNonEmpty(feed.Title, parsed.Title, feedURL)

	items := make([]domain.Item, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		items = append(items, Normalize(feed, feedTitle, entry))
	}

	return items, nil
}

// MergeItems flattens the successful results, orders them newest first and
// keeps at most maxItems. Items without a date sort as if published at the
// Unix epoch. The sort is stable so equal dates keep feed list order.
func MergeItems(results []Result, maxItems int) []domain.Item {
	var total int
	for _, result := range results {
		if result.Err == nil {
			total += len(result.Items)
		}
	}

	items := make([]domain.Item, 0, total)
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		items = append(items, result.Items...)
	}

	slices.SortStableFunc(items, func(a, b domain.Item) int {
		return cmp.Compare(sortKey(b), sortKey(a))
	})

	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func sortKey(item domain.Item) int64 {
	if item.IsoDate == nil {
		return 0
	}

	return item.IsoDate.UnixMilli()
}

// FindValidFeeds extracts https URLs and @channel mentions from free text
// and keeps the ones that parse as feeds.
func (f *Fetcher) FindValidFeeds(
	ctx context.Context,
	text string,
) ([]domain.Feed, error) {
	text = strings.TrimSpace(text)

	var slugs []string
	for _, m := range telegramAtSignSlugRe.FindAllStringSubmatch(text, -1) {
		if len(m) < minPartsForTelegramChannelAtSignSlug {
			continue
		}

		slug := strings.TrimSpace(m[2])
		if !telegramSlugRe.MatchString(slug) {
			continue
		}

		slugs = append(slugs, slug)
	}

	httpsURLRe, err := xurls.StrictMatchingScheme("https://")
	if err != nil {
		return nil, fmt.Errorf("create regexp: %w", err)
	}

	candidates := httpsURLRe.FindAllString(text, -1)
	for _, slug := range slugs {
		candidates = append(candidates, TelegramChannelCanonicalURL(slug))
	}

	feeds := make([]domain.Feed, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	var errs []error

	for _, candidate := range candidates {
		feed, validateFeedErr := f.validateFeed(ctx, candidate)
		if validateFeedErr != nil {
			errs = append(errs, fmt.Errorf("validate feed: %w", validateFeedErr))
			continue
		}

		if _, ok := seen[feed.URL]; ok {
			continue
		}

		feeds = append(feeds, feed)
		seen[feed.URL] = struct{}{}
	}

	return feeds, errors.Join(errs...)
}

func (f *Fetcher) validateFeed(
	ctx context.Context,
	feedURL string,
) (domain.Feed, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return domain.Feed{}, errors.New("feed URL is empty")
	}

	if _, err := url.Parse(feedURL); err != nil {
		return domain.Feed{}, fmt.Errorf("parse URL: %w", err)
	}

	if ok, slug := isTelegramChannelURL(feedURL); ok {
		feedURL = TelegramChannelCanonicalURL(slug)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	parsed, err := f.parser.ParseFeed(fetchCtx, domain.Feed{URL: feedURL})
	if err != nil {
		return domain.Feed{}, err
	}

	title := parsed.Title
	if title == "" {
		f.log.WarnContext(ctx, "Empty feed title",
			"feedURL", feedURL,
			"fallbackTitle", feedURL)

		title = feedURL
	}

	return domain.Feed{URL: feedURL, Title: title, Folder: domain.DefaultFolder}, nil
}
