// Package search runs planned searches against a repository and assembles the
// STAC documents the API serves.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
	"github.com/robert-malhotra/inpe-stac-search/internal/stac"
	"github.com/robert-malhotra/inpe-stac-search/internal/translate"
)

// Options configures a Service.
type Options struct {
	// Timeout bounds the repository work of one call. Zero means no bound beyond
	// the caller's context.
	Timeout time.Duration

	// Instrumenter observes each stage. Nil disables observation.
	Instrumenter Instrumenter
}

// Service answers searches. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	repo         backend.Repository
	translator   *translate.Translator
	materializer *translate.Materializer
	timeout      time.Duration
	instr        Instrumenter
	logger       *slog.Logger
}

// NewService creates a search service.
func NewService(repo backend.Repository, translator *translate.Translator, materializer *translate.Materializer, opts Options, logger *slog.Logger) *Service {
	instr := opts.Instrumenter
	if instr == nil {
		instr = nopInstrumenter{}
	}
	return &Service{
		repo:         repo,
		translator:   translator,
		materializer: materializer,
		timeout:      opts.Timeout,
		instr:        instr,
		logger:       logger,
	}
}

// Result is one page of a search.
type Result struct {
	Plan    *translate.Plan
	Matched int
	Items   []*stac.Item

	// Counts holds per-collection matches in multi-collection mode.
	Counts []translate.CollectionCount
}

// ItemCollection assembles the response envelope for the page.
func (r *Result) ItemCollection() *stac.ItemCollection {
	ic := stac.NewItemCollection(r.Items)
	matched := r.Matched
	ic.SetContext(r.Plan.Page, r.Plan.Limit, &matched)

	if r.Plan.MultiCollection() {
		names := make([]string, len(r.Counts))
		counts := make([]int, len(r.Counts))
		for i, c := range r.Counts {
			names[i] = c.Collection
			counts[i] = c.Matched
		}
		ic.SetCollectionMeta(r.Plan.Page, r.Plan.Limit, names, counts)
	}
	return ic
}

// Search runs a search across the requested collections.
func (s *Service) Search(ctx context.Context, req *stac.SearchRequest) (*Result, error) {
	start := time.Now()
	plan, err := s.translator.Plan(req)
	s.instr.ObserveStage(ctx, StagePlan, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, plan)
}

// Items runs a search scoped to one collection. An unknown collection is
// backend.ErrCollectionNotFound.
func (s *Service) Items(ctx context.Context, collectionID string, req *stac.SearchRequest) (*Result, error) {
	start := time.Now()
	plan, err := s.translator.PlanCollection(req, collectionID)
	s.instr.ObserveStage(ctx, StagePlan, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if _, err := s.Collection(ctx, collectionID); err != nil {
		return nil, err
	}
	return s.run(ctx, plan)
}

// Item returns one item of a collection. The lookup never leaves the collection,
// whatever the configured ids scope.
func (s *Service) Item(ctx context.Context, collectionID, itemID string) (*stac.Item, error) {
	if _, err := s.Collection(ctx, collectionID); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	byID := &filter.Comparison{
		Name:  filter.Equals,
		Left:  &filter.Property{Name: catalog.ColumnID},
		Right: &filter.String{Value: itemID},
	}

	start := time.Now()
	records, err := s.repo.Fetch(ctx, backend.InCollection(byID, collectionID), backend.Window{Limit: 1}, nil)
	err = backend.WrapError("fetch item", err)
	s.instr.ObserveStage(ctx, StageFetch, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", backend.ErrItemNotFound, collectionID, itemID)
	}

	start = time.Now()
	item, err := s.materializer.Item(records[0])
	s.instr.ObserveStage(ctx, StageMaterialize, time.Since(start), err)
	return item, err
}

// Collections lists every stored collection.
func (s *Service) Collections(ctx context.Context) ([]*stac.Collection, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stored, err := s.repo.Collections(ctx)
	if err != nil {
		return nil, backend.WrapError("list collections", err)
	}
	out := make([]*stac.Collection, len(stored))
	for i, c := range stored {
		out[i] = s.materializer.Collection(c)
	}
	return out, nil
}

// Collection returns one collection or backend.ErrCollectionNotFound.
func (s *Service) Collection(ctx context.Context, id string) (*stac.Collection, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.repo.Collection(ctx, id)
	if err != nil {
		return nil, backend.WrapError(fmt.Sprintf("get collection %s", id), err)
	}
	return s.materializer.Collection(c), nil
}

// Ping checks the repository when it can report its health.
func (s *Service) Ping(ctx context.Context) error {
	p, ok := s.repo.(backend.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return backend.WrapError("ping", p.Ping(ctx))
}

// run counts, fetches and renders the page of a plan. A timeout or repository
// error fails the whole search; it never degrades to an empty page.
func (s *Service) run(ctx context.Context, plan *translate.Plan) (*Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := &Result{Plan: plan}

	start := time.Now()
	err := s.count(ctx, plan, res)
	s.instr.ObserveStage(ctx, StageCount, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	var records []*catalog.Item
	if plan.ShouldFetch(res.Matched) {
		start = time.Now()
		records, err = s.repo.Fetch(ctx, plan.Filter, plan.Window, plan.Order)
		err = backend.WrapError("fetch", err)
		s.instr.ObserveStage(ctx, StageFetch, time.Since(start), err)
		if err != nil {
			return nil, err
		}
	}

	start = time.Now()
	res.Items, err = s.materializer.Items(ctx, records)
	if err != nil && !errors.Is(err, translate.ErrCorruptRecord) {
		err = backend.WrapError("materialize", err)
	}
	s.instr.ObserveStage(ctx, StageMaterialize, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search completed",
		slog.Int("matched", res.Matched),
		slog.Int("returned", len(res.Items)),
		slog.Int("page", plan.Page),
	)
	return res, nil
}

func (s *Service) count(ctx context.Context, plan *translate.Plan, res *Result) error {
	if !plan.MultiCollection() {
		n, err := s.repo.Count(ctx, plan.Filter)
		if err != nil {
			return backend.WrapError("count", err)
		}
		res.Matched = n
		return nil
	}

	groups, err := s.repo.CountByGroup(ctx, plan.Filter, catalog.ColumnCollection)
	if err != nil {
		return backend.WrapError("count by collection", err)
	}
	// A global id lookup can match outside the requested collections, so the total
	// sums every group rather than only the reported ones.
	res.Counts = plan.CollectionCounts(groups)
	for _, n := range groups {
		res.Matched += n
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
