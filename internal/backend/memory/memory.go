// Package memory is an in-process repository. It evaluates the same predicate trees
// the sqlite adapter lowers to SQL and backs tests and BACKEND_TYPE=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/planetlabs/go-ogc/filter"
	"github.com/spf13/cast"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// Store holds collections and items in memory.
type Store struct {
	mu          sync.RWMutex
	collections *catalog.Registry
	items       []*catalog.Item
	keys        map[string]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: catalog.NewRegistry(),
		keys:        make(map[string]struct{}),
	}
}

// NewFromDataset creates a store holding ds.
func NewFromDataset(ds *catalog.Dataset) (*Store, error) {
	s := New()
	if err := backend.Seed(context.Background(), s, ds); err != nil {
		return nil, err
	}
	return s, nil
}

func itemKey(collection, id string) string {
	return collection + "\x00" + id
}

// PutCollections adds collections. IDs must be new.
func (s *Store) PutCollections(ctx context.Context, collections []*catalog.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range collections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.collections.Add(c); err != nil {
			return err
		}
	}
	return nil
}

// PutItems adds items. Each must belong to a stored collection and be new within it.
func (s *Store) PutItems(ctx context.Context, items []*catalog.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.collections.Has(item.Collection) {
			return fmt.Errorf("item %q: %w: %s", item.ID, backend.ErrCollectionNotFound, item.Collection)
		}
		key := itemKey(item.Collection, item.ID)
		if _, exists := s.keys[key]; exists {
			return fmt.Errorf("item %q already exists in collection %q", item.ID, item.Collection)
		}
		s.keys[key] = struct{}{}
		s.items = append(s.items, item)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// match returns the items f selects.
func (s *Store) match(ctx context.Context, f filter.BooleanExpression) ([]*catalog.Item, error) {
	var matched []*catalog.Item
	for _, item := range s.items {
		if err := ctx.Err(); err != nil {
			return nil, backend.WrapError("scan items", err)
		}
		ok, err := Match(item, f)
		if err != nil {
			return nil, backend.WrapError("evaluate filter", err)
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// Count returns the number of items f selects.
func (s *Store) Count(ctx context.Context, f filter.BooleanExpression) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.match(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// CountByGroup counts the items f selects per distinct value of field.
func (s *Store) CountByGroup(ctx context.Context, f filter.BooleanExpression, field string) (map[string]int, error) {
	if !catalog.IsColumn(field) {
		return nil, backend.WrapError("count by group", fmt.Errorf("unknown column %q: %w", field, backend.ErrUnsupportedExpression))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.match(ctx, f)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, item := range matched {
		value, _ := item.Value(field)
		if value == nil {
			continue
		}
		counts[cast.ToString(value)]++
	}
	return counts, nil
}

// Fetch returns the window of items f selects in the given order. A window limit
// of zero or less returns every item from the offset on.
func (s *Store) Fetch(ctx context.Context, f filter.BooleanExpression, w backend.Window, order []backend.OrderBy) ([]*catalog.Item, error) {
	for _, o := range order {
		if !catalog.IsColumn(o.Field) {
			return nil, backend.WrapError("fetch", fmt.Errorf("unknown sort column %q: %w", o.Field, backend.ErrUnsupportedExpression))
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.match(ctx, f)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range order {
			a, _ := matched[i].Value(o.Field)
			b, _ := matched[j].Value(o.Field)
			lt, eq := less(a, b)
			if eq {
				continue
			}
			if o.Desc {
				return !lt
			}
			return lt
		}
		return false
	})

	if w.Offset >= len(matched) {
		return []*catalog.Item{}, nil
	}
	matched = matched[max(w.Offset, 0):]
	if w.Limit > 0 && w.Limit < len(matched) {
		matched = matched[:w.Limit]
	}
	return matched, nil
}

// Collections returns every collection sorted by ID.
func (s *Store) Collections(ctx context.Context) ([]*catalog.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections.All(), nil
}

// Collection returns one collection.
func (s *Store) Collection(ctx context.Context, id string) (*catalog.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.collections.Get(id)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", backend.ErrCollectionNotFound, id)
	}
	return c, nil
}
