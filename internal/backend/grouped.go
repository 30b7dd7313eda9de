package backend

import (
	"context"
	"fmt"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// Grouped wraps a repository without grouped aggregation. Its CountByGroup issues
// one Count per stored collection.
type Grouped struct {
	Repository
}

// NewGrouped wraps r.
func NewGrouped(r Repository) *Grouped {
	return &Grouped{Repository: r}
}

// CountByGroup counts matches per collection. Only the collection field is
// supported. Collections without matches are omitted.
func (g *Grouped) CountByGroup(ctx context.Context, f filter.BooleanExpression, field string) (map[string]int, error) {
	if field != catalog.ColumnCollection {
		return nil, fmt.Errorf("grouped count by %q: %w", field, ErrUnsupportedExpression)
	}

	collections, err := g.Repository.Collections(ctx)
	if err != nil {
		return nil, WrapError("list collections", err)
	}

	counts := make(map[string]int)
	for _, c := range collections {
		n, err := g.Repository.Count(ctx, InCollection(f, c.ID))
		if err != nil {
			return nil, WrapError(fmt.Sprintf("count collection %s", c.ID), err)
		}
		if n > 0 {
			counts[c.ID] = n
		}
	}
	return counts, nil
}

// Ping forwards to the wrapped repository when it can report its health.
func (g *Grouped) Ping(ctx context.Context) error {
	if p, ok := g.Repository.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
