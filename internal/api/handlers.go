package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/inpe-stac-search/internal/config"
	"github.com/robert-malhotra/inpe-stac-search/internal/metrics"
	"github.com/robert-malhotra/inpe-stac-search/internal/search"
	intstac "github.com/robert-malhotra/inpe-stac-search/internal/stac"
)

// Catalog is the search service the handlers answer from.
type Catalog interface {
	Search(ctx context.Context, req *intstac.SearchRequest) (*search.Result, error)
	Items(ctx context.Context, collectionID string, req *intstac.SearchRequest) (*search.Result, error)
	Item(ctx context.Context, collectionID, itemID string) (*stac.Item, error)
	Collections(ctx context.Context) ([]*stac.Collection, error)
	Collection(ctx context.Context, id string) (*stac.Collection, error)
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP handlers for the STAC API.
type Handlers struct {
	cfg     *config.Config
	catalog Catalog
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(cfg *config.Config, catalog Catalog, logger *slog.Logger) *Handlers {
	return &Handlers{
		cfg:     cfg,
		catalog: catalog,
		logger:  logger,
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func (h *Handlers) WithMetrics(m *metrics.Metrics) *Handlers {
	h.metrics = m
	return h
}

// LandingPage returns the STAC API landing page (root catalog).
// GET /
func (h *Handlers) LandingPage(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.STAC.BaseURL

	landing := intstac.NewLandingPage(
		"inpe-stac-root",
		h.cfg.STAC.Title,
		h.cfg.STAC.Description,
		h.cfg.STAC.Version,
		intstac.DefaultConformance(),
	)

	landing.AddLink("self", baseURL+"/", "application/json")
	landing.AddLink("root", baseURL+"/", "application/json")
	landing.AddLink("conformance", baseURL+"/conformance", "application/json")
	landing.AddLink("data", baseURL+"/collections", "application/json")
	landing.AddLink("child", baseURL+"/stac", "application/json")

	if h.cfg.Features.EnableSearch {
		landing.Links = append(landing.Links,
			&stac.Link{Rel: "search", Href: baseURL + "/search", Type: "application/geo+json", Method: "GET"},
			&stac.Link{Rel: "search", Href: baseURL + "/search", Type: "application/geo+json", Method: "POST"},
		)
	}
	if h.cfg.Features.EnableQueryables {
		landing.AddLink("http://www.opengis.net/def/rel/ogc/1.0/queryables", baseURL+"/queryables", "application/schema+json")
	}

	WriteJSON(w, http.StatusOK, landing)
}

// Catalog returns the scene catalog with one child link per collection.
// GET /stac
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.STAC.BaseURL

	collections, err := h.catalog.Collections(r.Context())
	if err != nil {
		WriteSearchError(w, r, h.logger, err)
		return
	}

	cat := intstac.NewCatalog("inpe-stac", h.cfg.STAC.Title, h.cfg.STAC.Description, h.cfg.STAC.Version)
	cat.Links = append(cat.Links,
		&stac.Link{Rel: "self", Href: baseURL + "/stac", Type: "application/json"},
		&stac.Link{Rel: "root", Href: baseURL + "/stac", Type: "application/json"},
	)
	for _, c := range collections {
		cat.Links = append(cat.Links, &stac.Link{
			Rel:   "child",
			Href:  fmt.Sprintf("%s/collections/%s", baseURL, c.Id),
			Type:  "application/json",
			Title: c.Title,
		})
	}
	if h.cfg.Features.EnableSearch {
		cat.Links = append(cat.Links, &stac.Link{Rel: "search", Href: baseURL + "/stac/search", Type: "application/geo+json"})
	}

	WriteJSON(w, http.StatusOK, cat)
}

// Conformance returns the conformance classes supported by this API.
// GET /conformance
func (h *Handlers) Conformance(w http.ResponseWriter, r *http.Request) {
	conformance := &intstac.Conformance{
		ConformsTo: intstac.DefaultConformance(),
	}

	WriteJSON(w, http.StatusOK, conformance)
}

// Collections returns the list of all available collections.
// GET /collections
func (h *Handlers) Collections(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.STAC.BaseURL

	collections, err := h.catalog.Collections(r.Context())
	if err != nil {
		WriteSearchError(w, r, h.logger, err)
		return
	}

	response := intstac.NewCollectionsList(collections)
	response.Links = append(response.Links,
		&stac.Link{Rel: "self", Href: baseURL + "/collections", Type: "application/json"},
		&stac.Link{Rel: "root", Href: baseURL + "/", Type: "application/json"},
	)

	WriteJSON(w, http.StatusOK, response)
}

// Collection returns a single collection by ID.
// GET /collections/{collectionId}
func (h *Handlers) Collection(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")
	if collectionID == "" {
		WriteBadRequest(w, "collection ID is required")
		return
	}

	collection, err := h.catalog.Collection(r.Context(), collectionID)
	if err != nil {
		WriteSearchError(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, collection)
}

// Items returns a page of the items of one collection. Any collections named in
// the query are ignored.
// GET /collections/{collectionId}/items
func (h *Handlers) Items(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")
	if collectionID == "" {
		WriteBadRequest(w, "collection ID is required")
		return
	}

	searchReq, err := intstac.ParseSearchRequest(r)
	if err != nil {
		WriteSearchError(w, r, h.logger, err)
		return
	}

	result, err := h.catalog.Items(r.Context(), collectionID, searchReq)
	if err != nil {
		WriteSearchError(w, r, h.logger, err)
		return
	}

	baseURL := h.cfg.STAC.BaseURL
	collectionURL := fmt.Sprintf("%s/collections/%s", baseURL, collectionID)
	selfURL := collectionURL + "/items"

	itemCollection := result.ItemCollection()
	itemCollection.AddLink("self", selfURL, "application/geo+json")
	itemCollection.AddLink("root", baseURL+"/", "application/json")
	itemCollection.AddLink("parent", collectionURL, "application/json")
	itemCollection.AddLink("collection", collectionURL, "application/json")
	h.addPaginationLinks(itemCollection, result, selfURL, r.URL.Query())

	WriteGeoJSON(w, http.StatusOK, itemCollection)
}

// Item returns a single item by ID from a collection.
// GET /collections/{collectionId}/items/{itemId}
func (h *Handlers) Item(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")
	itemID := chi.URLParam(r, "itemId")

	if collectionID == "" {
		WriteBadRequest(w, "collection ID is required")
		return
	}

	if itemID == "" {
		WriteBadRequest(w, "item ID is required")
		return
	}

	item, err := h.catalog.Item(r.Context(), collectionID, itemID)
	if err != nil {
		WriteSearchError(w, r, h.logger, err)
		return
	}

	WriteGeoJSON(w, http.StatusOK, item)
}

// Search performs a cross-collection search.
// GET/POST /search
// GET/POST /stac/search
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Features.EnableSearch {
		WriteError(w, http.StatusNotImplemented, "NotImplemented", "search endpoint is disabled")
		return
	}

	var searchReq *intstac.SearchRequest
	var err error
	var pageParams url.Values

	// Parse request based on method
	switch r.Method {
	case http.MethodGet:
		searchReq, err = intstac.ParseSearchRequest(r)
		pageParams = r.URL.Query()
	case http.MethodPost:
		defer r.Body.Close()
		searchReq, err = intstac.ParseSearchRequestBody(r.Body)
		if err == nil {
			// Pages of a POST search are linked as the equivalent GET search
			pageParams = searchReq.ToQueryParams()
		}
	default:
		WriteError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
		return
	}

	if err != nil {
		WriteSearchError(w, r, h.logger, err)
		return
	}

	result, err := h.catalog.Search(r.Context(), searchReq)
	if err != nil {
		WriteSearchError(w, r, h.logger, err)
		return
	}

	baseURL := h.cfg.STAC.BaseURL
	selfURL := baseURL + r.URL.Path

	itemCollection := result.ItemCollection()
	itemCollection.AddLink("self", selfURL, "application/geo+json")
	itemCollection.AddLink("root", baseURL+"/", "application/json")
	h.addPaginationLinks(itemCollection, result, selfURL, pageParams)

	WriteGeoJSON(w, http.StatusOK, itemCollection)
}

func (h *Handlers) addPaginationLinks(ic *intstac.ItemCollection, result *search.Result, pageURL string, params url.Values) {
	matched := result.Matched
	links := intstac.BuildPaginationLinks(intstac.PaginationInfo{
		BaseURL:       pageURL,
		CurrentPage:   result.Plan.Page,
		Limit:         result.Plan.Limit,
		TotalCount:    &matched,
		ReturnedCount: len(ic.Features),
		QueryParams:   params,
	})
	ic.Links = append(ic.Links, links...)
}

// Health reports whether the catalog repository answers.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
