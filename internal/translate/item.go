package translate

import (
	"context"
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/paulmach/orb"

	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
	"github.com/robert-malhotra/inpe-stac-search/internal/stac"
	"github.com/robert-malhotra/inpe-stac-search/pkg/geojson"
)

// Asset media types.
const (
	MediaTypeXML = "text/xml"
	MediaTypePNG = "image/png"
)

// AssetRoots are the prefixes joined to stored asset paths.
type AssetRoots struct {
	TIF string
	PNG string
}

// Materializer renders stored records as STAC items.
type Materializer struct {
	baseURL string
	version string
	roots   AssetRoots
	links   []*stac.Link
}

// NewMaterializer creates a materializer for a service rooted at baseURL.
func NewMaterializer(baseURL, version string, roots AssetRoots) *Materializer {
	baseURL = strings.TrimSuffix(baseURL, "/")
	collections := baseURL + "/collections/"
	return &Materializer{
		baseURL: baseURL,
		version: version,
		roots:   roots,
		links: []*stac.Link{
			{Rel: "self", Href: collections, Type: "application/geo+json"},
			{Rel: "parent", Href: collections, Type: "application/json"},
			{Rel: "collection", Href: collections, Type: "application/json"},
			{Rel: "root", Href: baseURL + "/stac", Type: "application/json"},
		},
	}
}

// Items renders records in order. Cancellation is checked before each record and
// discards everything rendered so far.
func (m *Materializer) Items(ctx context.Context, records []*catalog.Item) ([]*stac.Item, error) {
	items := make([]*stac.Item, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := m.Item(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Item renders one record.
func (m *Materializer) Item(rec *catalog.Item) (*stac.Item, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: record is nil", ErrCorruptRecord)
	}
	if rec.ID == "" || rec.Collection == "" {
		return nil, fmt.Errorf("%w: record has no id or collection", ErrCorruptRecord)
	}

	fp := rec.Footprint
	corners := []catalog.Point{fp.TopLeft, fp.BottomLeft, fp.BottomRight, fp.TopRight}
	for _, c := range corners {
		if !finite(c.Lon()) || !finite(c.Lat()) {
			return nil, fmt.Errorf("%w: item %s/%s has a non-finite footprint corner", ErrCorruptRecord, rec.Collection, rec.ID)
		}
	}

	footprint := geojson.Quad(point(fp.TopLeft), point(fp.BottomLeft), point(fp.BottomRight), point(fp.TopRight))
	bbox, err := geojson.BBox(footprint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	item := stac.NewItem(rec.ID, rec.Collection, m.version)
	item.Geometry = geojson.Geometry(footprint)
	item.Bbox = bbox

	var syncLoss any
	if rec.SyncLoss != nil {
		syncLoss = *rec.SyncLoss
	}
	item.Properties["datetime"] = FormatSTACTime(rec.Timestamp())
	item.Properties["path"] = rec.Path
	item.Properties["row"] = rec.Row
	item.Properties["satellite"] = rec.Satellite
	item.Properties["sensor"] = rec.Sensor
	item.Properties["cloud_cover"] = rec.CloudCover
	item.Properties["sync_loss"] = syncLoss

	for _, a := range rec.Assets {
		if a.Band == "" || a.Href == "" {
			return nil, fmt.Errorf("%w: item %s/%s has an incomplete asset", ErrCorruptRecord, rec.Collection, rec.ID)
		}
		item.Assets[a.Band] = &stac.Asset{
			Href:  m.roots.TIF + a.Href,
			Type:  a.MediaType(),
			Roles: []string{"data"},
		}
		item.Assets[a.Band+"_xml"] = &stac.Asset{
			Href:  m.roots.TIF + metadataPath(a.Href),
			Type:  MediaTypeXML,
			Roles: []string{"metadata"},
		}
	}

	item.Assets["thumbnail"] = &stac.Asset{
		Href:  m.roots.PNG + rec.Thumbnail,
		Type:  MediaTypePNG,
		Roles: []string{"thumbnail"},
	}

	item.Links = m.itemLinks(rec.Collection, rec.ID)
	return item, nil
}

// itemLinks copies the link template and completes the entries that name the item
// and its collection.
func (m *Materializer) itemLinks(collection, id string) []*stac.Link {
	links := make([]*stac.Link, len(m.links))
	for i, l := range m.links {
		cp := *l
		links[i] = &cp
	}
	links[0].Href += collection + "/items/" + id
	links[1].Href += collection
	links[2].Href += collection
	return links
}

// Collection renders a stored collection with its extent and navigation links.
func (m *Materializer) Collection(c *catalog.Collection) *stac.Collection {
	title := c.Title
	if title == "" {
		title = c.ID
	}
	collection := stac.NewCollection(c.ID, title, c.Description, m.version)
	collection.License = c.License
	if collection.License == "" {
		collection.License = "proprietary"
	}

	var end any
	if c.EndDate != nil {
		end = FormatSTACTime(*c.EndDate)
	}
	collection.Extent = &stac.Extent{
		Spatial: &stac.SpatialExtent{
			Bbox: [][]float64{{c.MinX, c.MinY, c.MaxX, c.MaxY}},
		},
		Temporal: &stac.TemporalExtent{
			Interval: [][]any{{FormatSTACTime(c.StartDate), end}},
		},
	}

	self := fmt.Sprintf("%s/collections/%s", m.baseURL, c.ID)
	collection.Links = append(collection.Links,
		&stac.Link{Rel: "self", Href: self, Type: "application/json"},
		&stac.Link{Rel: "items", Href: self + "/items", Type: "application/geo+json", Title: "Items"},
		&stac.Link{Rel: "parent", Href: m.baseURL + "/collections", Type: "application/json"},
		&stac.Link{Rel: "root", Href: m.baseURL + "/stac", Type: "application/json"},
	)
	return collection
}

// metadataPath swaps the file extension of a band path for .xml.
func metadataPath(href string) string {
	return strings.TrimSuffix(href, path.Ext(href)) + ".xml"
}

func point(p catalog.Point) orb.Point {
	return orb.Point{p.Lon(), p.Lat()}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
