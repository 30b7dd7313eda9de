// Package translate turns search requests into repository query plans and stored
// records into STAC documents.
package translate

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
	"github.com/robert-malhotra/inpe-stac-search/internal/stac"
)

// IDsScope decides whether requested collections still restrict an id lookup.
type IDsScope string

const (
	// IDsGlobal looks ids up across every collection.
	IDsGlobal IDsScope = "global"
	// IDsInCollections restricts an id lookup to the requested collections.
	IDsInCollections IDsScope = "collections"
)

// Options configures planning.
type Options struct {
	IDsScope     IDsScope
	SpatialMode  SpatialMode
	DefaultLimit int
	MaxLimit     int
}

// Translator plans repository queries for search requests.
type Translator struct {
	opts   Options
	logger *slog.Logger
}

// NewTranslator creates a new translator instance.
func NewTranslator(opts Options, logger *slog.Logger) *Translator {
	if opts.IDsScope == "" {
		opts.IDsScope = IDsGlobal
	}
	if opts.SpatialMode == "" {
		opts.SpatialMode = SpatialOverlap
	}
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &Translator{opts: opts, logger: logger}
}

// Plan is a validated search ready to run against a repository.
type Plan struct {
	// Filter selects the matching records. Nil matches all.
	Filter filter.BooleanExpression

	// Collections is the requested collection scope, sorted and without duplicates.
	Collections []string

	Page   int
	Limit  int
	Window backend.Window
	Order  []backend.OrderBy
}

// MultiCollection reports whether per-collection counts are reported.
func (p *Plan) MultiCollection() bool {
	return len(p.Collections) > 1
}

// ShouldFetch reports whether the page window can hold any of matched records.
func (p *Plan) ShouldFetch(matched int) bool {
	return p.Limit > 0 && p.Window.Offset < matched
}

// CollectionCount is the match count of one requested collection.
type CollectionCount struct {
	Collection string
	Matched    int
}

// CollectionCounts reports groups for every requested collection, in collection
// order. Collections without matches report zero.
func (p *Plan) CollectionCounts(groups map[string]int) []CollectionCount {
	counts := make([]CollectionCount, len(p.Collections))
	for i, id := range p.Collections {
		counts[i] = CollectionCount{Collection: id, Matched: groups[id]}
	}
	return counts
}

// Plan validates req and builds its query plan. Nothing touches the repository;
// every parse error surfaces here.
func (t *Translator) Plan(req *stac.SearchRequest) (*Plan, error) {
	if req == nil {
		req = &stac.SearchRequest{}
	}

	page, limit, err := t.window(req)
	if err != nil {
		return nil, err
	}

	order, err := t.order(req.Sortby)
	if err != nil {
		return nil, err
	}

	collections := uniqueSorted(req.Collections)
	f, err := t.predicate(req, collections)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Filter:      f,
		Collections: collections,
		Page:        page,
		Limit:       limit,
		Window:      backend.Window{Offset: (page - 1) * limit, Limit: limit},
		Order:       order,
	}

	t.logger.Debug("search planned",
		slog.Any("collections", plan.Collections),
		slog.Int("page", plan.Page),
		slog.Int("limit", plan.Limit),
		slog.Bool("multi_collection", plan.MultiCollection()),
	)

	return plan, nil
}

// PlanCollection plans a search scoped to one collection, ignoring any collections
// in the request.
func (t *Translator) PlanCollection(req *stac.SearchRequest, collectionID string) (*Plan, error) {
	scoped := stac.SearchRequest{}
	if req != nil {
		scoped = *req
	}
	scoped.Collections = stac.StringList{collectionID}
	return t.Plan(&scoped)
}

func (t *Translator) predicate(req *stac.SearchRequest, collections []string) (filter.BooleanExpression, error) {
	// Explicit ids take precedence over every other predicate.
	if ids := uniqueSorted(req.IDs); len(ids) > 0 {
		f := membership(catalog.ColumnID, ids)
		if t.opts.IDsScope == IDsInCollections && len(collections) > 0 {
			f = and(membership(catalog.ColumnCollection, collections), f)
		}
		return f, nil
	}

	var clauses []filter.BooleanExpression
	if len(collections) > 0 {
		clauses = append(clauses, membership(catalog.ColumnCollection, collections))
	}

	// A bbox that was sent but is empty is malformed, not absent.
	if req.BBox != nil {
		bbox, err := ParseBBox(req.BBox)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, BBoxFilter(bbox, t.opts.SpatialMode))
	}

	tr, err := ParseTimeExpression(req.TimeExpression())
	if err != nil {
		return nil, err
	}
	if tf := TimeFilter(tr); tf != nil {
		clauses = append(clauses, tf)
	}

	qf, err := QueryFilter(req.Query)
	if err != nil {
		return nil, err
	}
	if qf != nil {
		clauses = append(clauses, qf)
	}

	switch len(clauses) {
	case 0:
		return nil, nil
	case 1:
		return clauses[0], nil
	}
	return and(clauses...), nil
}

func (t *Translator) window(req *stac.SearchRequest) (int, int, error) {
	page := 1
	if req.Page != nil {
		page = *req.Page
	}
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be at least 1, got %d", ErrInvalidParameter, page)
	}

	limit := t.opts.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 0 {
		return 0, 0, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidParameter, limit)
	}
	if limit > t.opts.MaxLimit {
		limit = t.opts.MaxLimit
	}
	return page, limit, nil
}

// order maps sortby entries to stored columns. The date descending default applies
// when none are given; id and collection always break ties.
func (t *Translator) order(sortby []stac.SortbyItem) ([]backend.OrderBy, error) {
	var order []backend.OrderBy
	seen := make(map[string]bool)

	for _, s := range sortby {
		field, ok := catalog.LookupField(s.Field)
		if !ok {
			return nil, fmt.Errorf("%w: cannot sort by %q", ErrUnknownField, s.Field)
		}
		desc, err := descending(s.Direction)
		if err != nil {
			return nil, err
		}
		if seen[field.Column] {
			continue
		}
		seen[field.Column] = true
		order = append(order, backend.OrderBy{Field: field.Column, Desc: desc})
	}

	if len(order) == 0 {
		order = append(order, backend.OrderBy{Field: catalog.ColumnDate, Desc: true})
		seen[catalog.ColumnDate] = true
	}
	for _, col := range []string{catalog.ColumnID, catalog.ColumnCollection} {
		if !seen[col] {
			order = append(order, backend.OrderBy{Field: col})
		}
	}
	return order, nil
}

func descending(direction string) (bool, error) {
	switch direction {
	case "", "asc":
		return false, nil
	case "desc":
		return true, nil
	}
	return false, fmt.Errorf("%w: sort direction must be asc or desc, got %q", ErrInvalidParameter, direction)
}

// membership matches column against one value or a list of values.
func membership(column string, values []string) filter.BooleanExpression {
	prop := &filter.Property{Name: column}
	if len(values) == 1 {
		return &filter.Comparison{Name: filter.Equals, Left: prop, Right: &filter.String{Value: values[0]}}
	}
	list := make([]filter.ScalarExpression, len(values))
	for i, v := range values {
		list[i] = &filter.String{Value: v}
	}
	return &filter.In{Item: prop, List: list}
}

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
