// Package reader holds the client side of feedsnap: the application state
// record, the pure derivations and transitions over it, and the store that
// persists read and starred ids between sessions.
package reader

import (
	"slices"

	"feedsnap/internal/domain"
)

type FilterType string

const (
	FilterAll     FilterType = "all"
	FilterStarred FilterType = "starred"
	FilterFeed    FilterType = "feed"
	FilterFolder  FilterType = "folder"
)

type Filter struct {
	Type FilterType
	// Value is the feed URL or folder name; empty for all and starred.
	Value string
}

const ThemeDark = "dark"

// State is the whole client state. Transitions never mutate a State in
// place; they return a new one with copied sets.
type State struct {
	Feeds      []domain.Feed
	Items      []domain.Item
	Filter     Filter
	Search     string
	SelectedID string
	Read       IDSet
	Starred    IDSet
	Theme      string
	Status     string
}

func NewState() State {
	return State{
		Filter:  Filter{Type: FilterAll},
		Read:    IDSet{},
		Starred: IDSet{},
	}
}

func (s State) Clone() State {
	c := s
	c.Feeds = slices.Clone(s.Feeds)
	c.Items = slices.Clone(s.Items)
	c.Read = s.Read.Clone()
	c.Starred = s.Starred.Clone()

	return c
}

// ItemByID finds an item of the current snapshot. Ids that only live in the
// read or starred sets are not found.
func (s State) ItemByID(id string) (domain.Item, bool) {
	if id == "" {
		return domain.Item{}, false
	}

	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}

	return domain.Item{}, false
}

type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}

	return c
}

func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}

	for id := range s {
		if !other.Has(id) {
			return false
		}
	}

	return true
}
