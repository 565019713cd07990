package feed

import (
	"strings"
	"time"

	"feedsnap/internal/domain"

	"github.com/mmcdole/gofeed"
)

const (
	maxItemIDLength  = 900
	maxSnippetLength = 400
)

// Entry is a raw feed entry before normalization, independent of the
// source it was scraped or parsed from.
type Entry struct {
	GUID        string
	Link        string
	Title       string
	Published   *time.Time
	Updated     *time.Time
	Description string
	Content     string
}

func entryFromGofeed(item *gofeed.Item) Entry {
	if item == nil {
		return Entry{}
	}

	return Entry{
		GUID:        item.GUID,
		Link:        item.Link,
		Title:       item.Title,
		Published:   item.PublishedParsed,
		Updated:     item.UpdatedParsed,
		Description: item.Description,
		Content:     item.Content,
	}
}

// ItemID derives the stable item key from the feed URL and the first
// available of guid, link and title. Repeated fetches of the same entry
// yield the same key.
func ItemID(feedURL string, e Entry) string {
	base := firstNonEmpty(e.GUID, e.Link, e.Title)

	return truncateRunes(strings.TrimSpace(feedURL)+"|"+base, maxItemIDLength)
}

// Snippet is the plain-text preview of an entry.
func Snippet(e Entry) string {
	source := firstNonEmpty(e.Description, e.Content)
	if source == "" {
		return ""
	}

	return truncateRunes(plainText(source), maxSnippetLength)
}

func Normalize(feed domain.Feed, feedTitle string, e Entry) domain.Item {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = domain.PlaceholderTitle
	}

	var isoDate *time.Time
	switch {
	case e.Published != nil && !e.Published.IsZero():
		t := e.Published.UTC()
		isoDate = &t
	case e.Updated != nil && !e.Updated.IsZero():
		t := e.Updated.UTC()
		isoDate = &t
	}

	feedURL := strings.TrimSpace(feed.URL)

	return domain.Item{
		ID:        ItemID(feedURL, e),
		FeedURL:   feedURL,
		FeedTitle: feedTitle,
		Title:     title,
		Link:      strings.TrimSpace(e.Link),
		IsoDate:   isoDate,
		Snippet:   Snippet(e),
		Content:   firstNonEmpty(e.Content, e.Description),
	}
}
