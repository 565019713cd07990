package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"feedsnap/internal/domain"

	"github.com/mmcdole/gofeed"
)

type parsedFeed struct {
	Title   string
	Entries []Entry
}

// Parser turns a subscription into raw entries. RSS, Atom and JSON feeds go
// through gofeed; public Telegram channels are scraped from their web
// preview.
type Parser struct {
	libParser *gofeed.Parser
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

func NewParser(client *http.Client, userAgent string, log *slog.Logger) *Parser {
	libParser := gofeed.NewParser()
	libParser.Client = client
	libParser.UserAgent = userAgent

	return &Parser{
		libParser: libParser,
		client:    client,
		userAgent: userAgent,
		log:       log,
	}
}

func (p *Parser) ParseFeed(ctx context.Context, feed domain.Feed) (parsedFeed, error) {
	feedURL := strings.TrimSpace(feed.URL)

	if ok, slug := isTelegramChannelURL(feedURL); ok {
		parsed, err := p.fetchTelegramChannel(ctx, slug)
		if err != nil {
			return parsedFeed{}, fmt.Errorf("fetch Telegram channel (slug = %s): %w", slug, err)
		}

		return parsed, nil
	}

	parsed, err := p.libParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return parsedFeed{}, fmt.Errorf("parse feed (URL = %s): %w", feedURL, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, entryFromGofeed(item))
	}

	return parsedFeed{
		Title:   strings.TrimSpace(parsed.Title),
		Entries: entries,
	}, nil
}
