package reader

import (
	"strings"

	"feedsnap/internal/domain"
)

// WithData replaces the loaded feeds and items. The current filter, search
// and selection survive; a selection no longer present just renders empty.
func WithData(s State, feeds []domain.Feed, items []domain.Item, status string) State {
	next := s.Clone()
	next.Feeds = append([]domain.Feed(nil), feeds...)
	next.Items = append([]domain.Item(nil), items...)
	next.Status = status

	return next
}

// SetFilter replaces the filter wholesale and clears the selection.
func SetFilter(s State, filterType FilterType, value string) State {
	next := s.Clone()

	switch filterType {
	case FilterFeed, FilterFolder:
		next.Filter = Filter{Type: filterType, Value: strings.TrimSpace(value)}
	case FilterStarred:
		next.Filter = Filter{Type: FilterStarred}
	default:
		next.Filter = Filter{Type: FilterAll}
	}
	next.SelectedID = ""

	return next
}

func SetSearch(s State, query string) State {
	next := s.Clone()
	next.Search = strings.TrimSpace(query)

	return next
}

// Select opens id and marks it read.
func Select(s State, id string) State {
	if id == "" {
		return s
	}

	next := s.Clone()
	next.SelectedID = id
	next.Read[id] = struct{}{}

	return next
}

// SelectNext moves the selection delta positions through the visible items,
// clamped to the first and last item. Without a current selection the first
// visible item is opened; with no visible items nothing changes.
func SelectNext(s State, delta int) State {
	visible := VisibleItems(s)
	if len(visible) == 0 {
		return s
	}

	idx := -1
	for i, it := range visible {
		if it.ID == s.SelectedID {
			idx = i
			break
		}
	}

	if idx == -1 {
		idx = 0
	} else {
		idx = min(max(idx+delta, 0), len(visible)-1)
	}

	return Select(s, visible[idx].ID)
}

func ToggleRead(s State, id string) State {
	if id == "" {
		return s
	}

	next := s.Clone()
	toggle(next.Read, id)

	return next
}

func ToggleStar(s State, id string) State {
	if id == "" {
		return s
	}

	next := s.Clone()
	toggle(next.Starred, id)

	return next
}

func MarkAllVisibleRead(s State) State {
	next := s.Clone()
	for _, it := range VisibleItems(s) {
		next.Read[it.ID] = struct{}{}
	}

	return next
}

func ToggleTheme(s State) State {
	next := s.Clone()
	if next.Theme == ThemeDark {
		next.Theme = ""
	} else {
		next.Theme = ThemeDark
	}

	return next
}

func toggle(set IDSet, id string) {
	if set.Has(id) {
		delete(set, id)
		return
	}

	set[id] = struct{}{}
}
