// Package stac provides STAC API types and utilities, wrapping planetlabs/go-stac
// for core types and adding API-specific types.
package stac

import (
	gostac "github.com/planetlabs/go-stac"
)

// Re-export core types from planetlabs/go-stac for convenience
type (
	Item           = gostac.Item
	Collection     = gostac.Collection
	Catalog        = gostac.Catalog
	Asset          = gostac.Asset
	Link           = gostac.Link
	Provider       = gostac.Provider
	Extent         = gostac.Extent
	SpatialExtent  = gostac.SpatialExtent
	TemporalExtent = gostac.TemporalExtent
)

// ItemCollection represents a STAC ItemCollection (GeoJSON FeatureCollection)
// This extends the standard FeatureCollection with STAC-specific pagination fields.
type ItemCollection struct {
	Type           string           `json:"type"` // "FeatureCollection"
	Features       []*gostac.Item   `json:"features"`
	Links          []*gostac.Link   `json:"links"`
	NumberMatched  *int             `json:"numberMatched,omitempty"`
	NumberReturned int              `json:"numberReturned"`
	Context        *Context         `json:"context,omitempty"`
	Meta           []CollectionMeta `json:"meta,omitempty"`
}

// Context provides additional metadata about the response (STAC Context extension)
type Context struct {
	Page     int  `json:"page"`
	Limit    int  `json:"limit"`
	Matched  *int `json:"matched,omitempty"`
	Returned int  `json:"returned"`
}

// CollectionMeta is the per-collection breakdown of a multi-collection search.
type CollectionMeta struct {
	Name    string   `json:"name"`
	Context *Context `json:"context"`
}

// NewItemCollection creates a new ItemCollection with the given items.
// A nil slice is replaced so features always encodes as an array.
func NewItemCollection(items []*gostac.Item) *ItemCollection {
	if items == nil {
		items = make([]*gostac.Item, 0)
	}
	return &ItemCollection{
		Type:           "FeatureCollection",
		Features:       items,
		Links:          make([]*gostac.Link, 0),
		NumberReturned: len(items),
	}
}

// AddLink adds a link to the ItemCollection.
func (ic *ItemCollection) AddLink(rel, href, mediaType string) {
	ic.Links = append(ic.Links, &gostac.Link{
		Rel:  rel,
		Href: href,
		Type: mediaType,
	})
}

// SetContext sets the context metadata for the ItemCollection.
func (ic *ItemCollection) SetContext(page, limit int, matched *int) {
	ic.Context = &Context{
		Page:     page,
		Limit:    limit,
		Matched:  matched,
		Returned: len(ic.Features),
	}
	if matched != nil {
		ic.NumberMatched = matched
	}
}

// SetCollectionMeta records one entry per collection, in the given order. Each
// entry's returned count is the number of features on this page that belong to
// that collection.
func (ic *ItemCollection) SetCollectionMeta(page, limit int, names []string, matched []int) {
	returned := make(map[string]int, len(names))
	for _, f := range ic.Features {
		returned[f.Collection]++
	}

	ic.Meta = make([]CollectionMeta, len(names))
	for i, name := range names {
		m := matched[i]
		ic.Meta[i] = CollectionMeta{
			Name: name,
			Context: &Context{
				Page:     page,
				Limit:    limit,
				Matched:  &m,
				Returned: returned[name],
			},
		}
	}
}

// NewItem creates a new STAC Item with the given ID and collection.
func NewItem(id, collection, version string) *gostac.Item {
	return &gostac.Item{
		Version:    version,
		Id:         id,
		Collection: collection,
		Properties: make(map[string]any),
		Assets:     make(map[string]*gostac.Asset),
		Links:      make([]*gostac.Link, 0),
	}
}

// NewCollection creates a new STAC Collection with the given ID.
func NewCollection(id, title, description, version string) *gostac.Collection {
	return &gostac.Collection{
		Version:     version,
		Id:          id,
		Title:       title,
		Description: description,
		Links:       make([]*gostac.Link, 0),
		Assets:      make(map[string]*gostac.Asset),
		Summaries:   make(map[string]any),
	}
}

// NewCatalog creates a new STAC Catalog for the landing page.
func NewCatalog(id, title, description, version string) *gostac.Catalog {
	return &gostac.Catalog{
		Version:     version,
		Id:          id,
		Title:       title,
		Description: description,
		Links:       make([]*gostac.Link, 0),
	}
}

// CollectionsList represents a list of collections response.
type CollectionsList struct {
	Collections []*gostac.Collection `json:"collections"`
	Links       []*gostac.Link       `json:"links"`
}

// NewCollectionsList creates a new CollectionsList.
func NewCollectionsList(collections []*gostac.Collection) *CollectionsList {
	return &CollectionsList{
		Collections: collections,
		Links:       make([]*gostac.Link, 0),
	}
}

// Conformance represents the conformance classes response.
type Conformance struct {
	ConformsTo []string `json:"conformsTo"`
}

// LandingPage represents the STAC API landing page response.
type LandingPage struct {
	Type        string         `json:"type"` // "Catalog"
	Id          string         `json:"id"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description"`
	StacVersion string         `json:"stac_version"`
	ConformsTo  []string       `json:"conformsTo,omitempty"`
	Links       []*gostac.Link `json:"links"`
}

// NewLandingPage creates a new landing page response.
func NewLandingPage(id, title, description, version string, conformsTo []string) *LandingPage {
	return &LandingPage{
		Type:        "Catalog",
		Id:          id,
		Title:       title,
		Description: description,
		StacVersion: version,
		ConformsTo:  conformsTo,
		Links:       make([]*gostac.Link, 0),
	}
}

// AddLink adds a link to the landing page.
func (lp *LandingPage) AddLink(rel, href, mediaType string) {
	lp.Links = append(lp.Links, &gostac.Link{
		Rel:  rel,
		Href: href,
		Type: mediaType,
	})
}

// Standard STAC conformance URIs
const (
	ConformanceCore           = "https://api.stacspec.org/v1.0.0/core"
	ConformanceOGCFeatures    = "https://api.stacspec.org/v1.0.0/ogcapi-features"
	ConformanceItemSearch     = "https://api.stacspec.org/v1.0.0/item-search"
	ConformanceContext        = "https://api.stacspec.org/v1.0.0-rc.2/item-search#context"
	ConformanceQuery          = "https://api.stacspec.org/v1.0.0-rc.2/item-search#query"
	ConformanceSort           = "https://api.stacspec.org/v1.0.0/item-search#sort"
	ConformanceOGCFeatCore    = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core"
	ConformanceOGCFeatGeoJSON = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson"
)

// DefaultConformance returns the conformance classes the service implements.
func DefaultConformance() []string {
	return []string{
		ConformanceCore,
		ConformanceOGCFeatures,
		ConformanceItemSearch,
		ConformanceContext,
		ConformanceQuery,
		ConformanceSort,
		ConformanceOGCFeatCore,
		ConformanceOGCFeatGeoJSON,
	}
}
