// Package render turns reader state into something to look at. Build derives
// a view model without side effects; HTML and Text paint it.
package render

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"feedsnap/internal/domain"
	"feedsnap/internal/reader"
)

const (
	ReaderPlaceholder = "Select an article"
	EmptyList         = "No items match."

	LabelMarkRead   = "Mark read"
	LabelMarkUnread = "Mark unread"
	LabelStar       = "Star"
	LabelUnstar     = "Unstar"
)

type SidebarEntry struct {
	Name   string
	Type   reader.FilterType
	Value  string
	Count  int
	Active bool
}

type FolderSection struct {
	SidebarEntry
	Feeds []SidebarEntry
}

type Row struct {
	Position  int
	ID        string
	Title     string
	Snippet   string
	FeedTitle string
	Date      string
	Unread    bool
	Starred   bool
	Selected  bool
}

type Article struct {
	ID        string
	FeedTitle string
	Date      string
	Title     string
	Link      string
	Content   string
	Snippet   string
	ReadLabel string
	StarLabel string
}

type ViewModel struct {
	Status  string
	Theme   string
	Search  string
	Top     []SidebarEntry
	Folders []FolderSection
	Rows    []Row
	// Reader is nil when nothing selected is in the current snapshot.
	Reader *Article
}

func Build(s reader.State, now time.Time) ViewModel {
	counts := reader.CountsByFeed(s)

	vm := ViewModel{
		Status: s.Status,
		Theme:  s.Theme,
		Search: s.Search,
		Top: []SidebarEntry{
			{
				Name:   "All",
				Type:   reader.FilterAll,
				Count:  reader.TotalUnread(counts),
				Active: s.Filter.Type == reader.FilterAll,
			},
			{
				Name:   "Starred",
				Type:   reader.FilterStarred,
				Count:  len(s.Starred),
				Active: s.Filter.Type == reader.FilterStarred,
			},
		},
		Folders: buildFolders(s, counts),
		Rows:    buildRows(s, now),
	}

	if it, ok := s.ItemByID(s.SelectedID); ok {
		vm.Reader = buildArticle(s, it, now)
	}

	return vm
}

func buildFolders(s reader.State, counts map[string]int) []FolderSection {
	byFolder := make(map[string][]domain.Feed)
	for _, f := range s.Feeds {
		byFolder[f.FolderName()] = append(byFolder[f.FolderName()], f)
	}

	folderCounts := reader.FolderUnread(s.Feeds, counts)

	names := make([]string, 0, len(byFolder))
	for name := range byFolder {
		names = append(names, name)
	}
	slices.Sort(names)

	sections := make([]FolderSection, 0, len(names))
	for _, name := range names {
		feeds := byFolder[name]
		slices.SortStableFunc(feeds, func(a, b domain.Feed) int {
			return cmp.Compare(strings.ToLower(feedName(a)), strings.ToLower(feedName(b)))
		})

		section := FolderSection{
			SidebarEntry: SidebarEntry{
				Name:   name,
				Type:   reader.FilterFolder,
				Value:  name,
				Count:  folderCounts[name],
				Active: s.Filter.Type == reader.FilterFolder && s.Filter.Value == name,
			},
			Feeds: make([]SidebarEntry, 0, len(feeds)),
		}

		for _, f := range feeds {
			section.Feeds = append(section.Feeds, SidebarEntry{
				Name:   feedName(f),
				Type:   reader.FilterFeed,
				Value:  f.URL,
				Count:  counts[f.URL],
				Active: s.Filter.Type == reader.FilterFeed && s.Filter.Value == f.URL,
			})
		}

		sections = append(sections, section)
	}

	return sections
}

func buildRows(s reader.State, now time.Time) []Row {
	visible := reader.VisibleItems(s)

	rows := make([]Row, 0, len(visible))
	for i, it := range visible {
		rows = append(rows, Row{
			Position:  i + 1,
			ID:        it.ID,
			Title:     titleOf(it),
			Snippet:   it.Snippet,
			FeedTitle: it.FeedTitle,
			Date:      FormatDate(it.IsoDate, now),
			Unread:    !s.Read.Has(it.ID),
			Starred:   s.Starred.Has(it.ID),
			Selected:  it.ID == s.SelectedID,
		})
	}

	return rows
}

func buildArticle(s reader.State, it domain.Item, now time.Time) *Article {
	a := &Article{
		ID:        it.ID,
		FeedTitle: it.FeedTitle,
		Date:      FormatDate(it.IsoDate, now),
		Title:     titleOf(it),
		Link:      it.Link,
		Content:   it.Content,
		Snippet:   it.Snippet,
		ReadLabel: LabelMarkRead,
		StarLabel: LabelStar,
	}

	if s.Read.Has(it.ID) {
		a.ReadLabel = LabelMarkUnread
	}
	if s.Starred.Has(it.ID) {
		a.StarLabel = LabelUnstar
	}

	return a
}

// FormatDate shows the time of day for dates on now's calendar day and the
// date otherwise.
func FormatDate(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}

	local := t.In(now.Location())
	y1, m1, d1 := local.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return local.Format("15:04")
	}

	return local.Format(time.DateOnly)
}

func titleOf(it domain.Item) string {
	if strings.TrimSpace(it.Title) == "" {
		return domain.PlaceholderTitle
	}

	return it.Title
}

func feedName(f domain.Feed) string {
	if f.Title != "" {
		return f.Title
	}

	return f.URL
}
