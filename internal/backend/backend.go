// Package backend defines the repository port search runs against and the pieces
// shared by its adapters (sqlite, memory).
package backend

import (
	"context"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// Window selects a slice of an ordered result set.
type Window struct {
	Offset int
	Limit  int
}

// OrderBy is one sort key over a stored column.
type OrderBy struct {
	Field string
	Desc  bool
}

// Counter counts the records matching a predicate. A nil predicate matches all.
type Counter interface {
	Count(ctx context.Context, f filter.BooleanExpression) (int, error)
}

// Repository is the storage port used by search. Predicates are go-ogc filter
// trees over stored item columns; adapters lower or evaluate them.
type Repository interface {
	Counter

	// CountByGroup counts matches per distinct value of field. Groups without
	// matches may be absent from the result.
	CountByGroup(ctx context.Context, f filter.BooleanExpression, field string) (map[string]int, error)

	// Fetch returns the window of matching records in the given order.
	Fetch(ctx context.Context, f filter.BooleanExpression, w Window, order []OrderBy) ([]*catalog.Item, error)

	// Collections returns every stored collection sorted by ID.
	Collections(ctx context.Context) ([]*catalog.Collection, error)

	// Collection returns one collection or ErrCollectionNotFound.
	Collection(ctx context.Context, id string) (*catalog.Collection, error)
}

// Pinger is implemented by repositories that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Writer is implemented by repositories that accept records. Search never writes;
// it is used to load fixtures.
type Writer interface {
	PutCollections(ctx context.Context, collections []*catalog.Collection) error
	PutItems(ctx context.Context, items []*catalog.Item) error
}

// Seed writes a dataset into w, collections first.
func Seed(ctx context.Context, w Writer, ds *catalog.Dataset) error {
	if ds == nil {
		return nil
	}
	if err := w.PutCollections(ctx, ds.Collections); err != nil {
		return WrapError("seed collections", err)
	}
	if err := w.PutItems(ctx, ds.Items); err != nil {
		return WrapError("seed items", err)
	}
	return nil
}

// InCollection restricts f to one collection.
func InCollection(f filter.BooleanExpression, collectionID string) filter.BooleanExpression {
	scope := &filter.Comparison{
		Name:  filter.Equals,
		Left:  &filter.Property{Name: catalog.ColumnCollection},
		Right: &filter.String{Value: collectionID},
	}
	if f == nil {
		return scope
	}
	return &filter.And{Args: []filter.BooleanExpression{f, scope}}
}
