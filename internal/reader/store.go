package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"feedsnap/internal/domain"
)

// RenderFunc paints a state. It is called after every transition while the
// store is still locked, so paints never interleave.
type RenderFunc func(ctx context.Context, s State)

// Store owns the single State record. Each transition is an exclusive
// read-modify-write followed by persisting the changed sets and a render.
type Store struct {
	mu     sync.Mutex
	state  State
	kv     KV
	render RenderFunc
	log    *slog.Logger
}

// NewStore restores the read and starred sets and the theme from kv.
// Malformed stored values are logged and treated as empty.
func NewStore(ctx context.Context, kv KV, render RenderFunc, log *slog.Logger) (*Store, error) {
	state := NewState()

	read, err := loadSet(ctx, kv, ReadKey, log)
	if err != nil {
		return nil, err
	}
	state.Read = read

	starred, err := loadSet(ctx, kv, StarredKey, log)
	if err != nil {
		return nil, err
	}
	state.Starred = starred

	theme, _, err := kv.Get(ctx, ThemeKey)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ThemeKey, err)
	}
	state.Theme = theme

	if render == nil {
		render = func(context.Context, State) {}
	}

	log.DebugContext(ctx, "Reader state is restored",
		"readCount", len(state.Read),
		"starredCount", len(state.Starred),
		"theme", state.Theme)

	return &Store{state: state, kv: kv, render: render, log: log}, nil
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

// Dispatch applies transition to the current state. The new state is kept
// even when persisting fails; the error is returned so the caller can
// surface it.
func (s *Store) Dispatch(ctx context.Context, transition func(State) State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	next := transition(prev)
	s.state = next

	err := s.persist(ctx, prev, next)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to persist reader state",
			"error", err,
			"readCount", len(next.Read),
			"starredCount", len(next.Starred))
	}

	s.render(ctx, next.Clone())

	return next.Clone(), err
}

func (s *Store) Render(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.render(ctx, s.state.Clone())
}

func (s *Store) SetData(ctx context.Context, feeds []domain.Feed, items []domain.Item, status string) (State, error) {
	return s.Dispatch(ctx, func(st State) State { return WithData(st, feeds, items, status) })
}

func (s *Store) SetFilter(ctx context.Context, filterType FilterType, value string) (State, error) {
	return s.Dispatch(ctx, func(st State) State { return SetFilter(st, filterType, value) })
}

func (s *Store) SetSearch(ctx context.Context, query string) (State, error) {
	return s.Dispatch(ctx, func(st State) State { return SetSearch(st, query) })
}

func (s *Store) Select(ctx context.Context, id string) (State, error) {
	return s.Dispatch(ctx, func(st State) State { return Select(st, id) })
}

func (s *Store) SelectNext(ctx context.Context, delta int) (State, error) {
	return s.Dispatch(ctx, func(st State) State { return SelectNext(st, delta) })
}

func (s *Store) ToggleRead(ctx context.Context, id string) (State, error) {
	return s.Dispatch(ctx, func(st State) State { return ToggleRead(st, id) })
}

func (s *Store) ToggleStar(ctx context.Context, id string) (State, error) {
	return s.Dispatch(ctx, func(st State) State { return ToggleStar(st, id) })
}

func (s *Store) MarkAllVisibleRead(ctx context.Context) (State, error) {
	return s.Dispatch(ctx, MarkAllVisibleRead)
}

func (s *Store) ToggleTheme(ctx context.Context) (State, error) {
	return s.Dispatch(ctx, ToggleTheme)
}

func (s *Store) persist(ctx context.Context, prev State, next State) error {
	var errs []error

	if !prev.Read.Equal(next.Read) {
		if err := saveSet(ctx, s.kv, ReadKey, next.Read); err != nil {
			errs = append(errs, err)
		}
	}

	if !prev.Starred.Equal(next.Starred) {
		if err := saveSet(ctx, s.kv, StarredKey, next.Starred); err != nil {
			errs = append(errs, err)
		}
	}

	if prev.Theme != next.Theme {
		if err := s.kv.Set(ctx, ThemeKey, next.Theme); err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", ThemeKey, err))
		}
	}

	return errors.Join(errs...)
}

func loadSet(ctx context.Context, kv KV, key string, log *slog.Logger) (IDSet, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || raw == "" {
		return IDSet{}, nil
	}

	var ids []string
	if err = json.Unmarshal([]byte(raw), &ids); err != nil {
		log.WarnContext(ctx, "Failed to decode stored ids so they are reset",
			"error", err,
			"key", key)

		return IDSet{}, nil
	}

	return NewIDSet(ids...), nil
}

func saveSet(ctx context.Context, kv KV, key string, set IDSet) error {
	data, err := json.Marshal(set.Sorted())
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err = kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}
