package reader

import (
	"strings"

	"feedsnap/internal/domain"
)

// CountsByFeed counts unread items per feed URL.
func CountsByFeed(s State) map[string]int {
	counts := make(map[string]int)
	for _, it := range s.Items {
		if !s.Read.Has(it.ID) {
			counts[it.FeedURL]++
		}
	}

	return counts
}

func TotalUnread(counts map[string]int) int {
	var total int
	for _, c := range counts {
		total += c
	}

	return total
}

// FolderUnread sums the unread counts of the feeds in each folder.
func FolderUnread(feeds []domain.Feed, counts map[string]int) map[string]int {
	folders := make(map[string]int)
	for _, f := range feeds {
		folders[f.FolderName()] += counts[f.URL]
	}

	return folders
}

// VisibleItems applies the structural filter and then the search query,
// keeping snapshot order.
func VisibleItems(s State) []domain.Item {
	match := structuralPredicate(s)
	query := strings.ToLower(strings.TrimSpace(s.Search))

	visible := make([]domain.Item, 0, len(s.Items))
	for _, it := range s.Items {
		if !match(it) {
			continue
		}
		if query != "" && !matchesQuery(it, query) {
			continue
		}
		visible = append(visible, it)
	}

	return visible
}

func structuralPredicate(s State) func(domain.Item) bool {
	switch s.Filter.Type {
	case FilterStarred:
		return func(it domain.Item) bool { return s.Starred.Has(it.ID) }
	case FilterFeed:
		url := s.Filter.Value
		return func(it domain.Item) bool { return it.FeedURL == url }
	case FilterFolder:
		urls := make(map[string]struct{})
		for _, f := range s.Feeds {
			if f.FolderName() == s.Filter.Value {
				urls[f.URL] = struct{}{}
			}
		}
		return func(it domain.Item) bool {
			_, ok := urls[it.FeedURL]
			return ok
		}
	default:
		return func(domain.Item) bool { return true }
	}
}

func matchesQuery(it domain.Item, query string) bool {
	return strings.Contains(strings.ToLower(it.Title), query) ||
		strings.Contains(strings.ToLower(it.Snippet), query) ||
		strings.Contains(strings.ToLower(it.FeedTitle), query)
}
