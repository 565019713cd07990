package domain

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	DefaultFolder    = "Unfiled"
	PlaceholderTitle = "(no title)"
)

type Feed struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Folder string `json:"folder"`
}

// FolderName is the folder the feed is grouped under; feeds without one
// belong to DefaultFolder.
func (f Feed) FolderName() string {
	if folder := strings.TrimSpace(f.Folder); folder != "" {
		return folder
	}

	return DefaultFolder
}

type FeedList struct {
	Feeds []Feed `json:"feeds"`
}

type Item struct {
	ID        string     `json:"id"`
	FeedURL   string     `json:"feedUrl"`
	FeedTitle string     `json:"feedTitle"`
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	IsoDate   *time.Time `json:"isoDate"`
	Snippet   string     `json:"snippet"`
	Content   string     `json:"content,omitempty"`
}

// isoDateLayouts are the date forms accepted when reading a snapshot.
// Older publishers wrote the raw pubDate when no ISO date was available.
var isoDateLayouts = []string{
	time.RFC3339Nano,
	time.DateOnly,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
}

// ParseIsoDate parses a published date in any accepted form; unknown
// forms yield nil.
func ParseIsoDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}

	return nil
}

// UnmarshalJSON decodes an item leniently: optional fields with a wrong
// type or an unknown date form fall back to their zero values, so one bad
// item never invalidates a snapshot.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		FeedURL   string          `json:"feedUrl"`
		FeedTitle json.RawMessage `json:"feedTitle"`
		Title     json.RawMessage `json:"title"`
		Link      json.RawMessage `json:"link"`
		IsoDate   json.RawMessage `json:"isoDate"`
		Snippet   json.RawMessage `json:"snippet"`
		Content   json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*it = Item{
		ID:        raw.ID,
		FeedURL:   raw.FeedURL,
		FeedTitle: optionalString(raw.FeedTitle),
		Title:     optionalString(raw.Title),
		Link:      optionalString(raw.Link),
		IsoDate:   ParseIsoDate(optionalString(raw.IsoDate)),
		Snippet:   optionalString(raw.Snippet),
		Content:   optionalString(raw.Content),
	}

	return nil
}

func optionalString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}

	return s
}

type Snapshot struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Items     []Item    `json:"items"`
}

type CachedResponse struct {
	Key         string
	StatusCode  int
	ContentType string
	Body        []byte
	StoredAt    time.Time
}
