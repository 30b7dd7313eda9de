// Package catalog defines the stored scene catalog records: collections, items and
// their packed asset descriptors.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the fixed-width UTC layout instants are stored in. Stored values
// compare correctly as plain strings.
const TimeLayout = "2006-01-02T15:04:05"

// DefaultAssetType is the media type of band assets that do not declare one.
const DefaultAssetType = "image/vnd.stac.geotiff"

// FormatTime renders t in the stored layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored instant. RFC 3339 values are accepted as well so that
// fixtures written by hand do not need the stored layout.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Collection is a named grouping of items sharing provenance and extent.
type Collection struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description"`
	License     string     `json:"license,omitempty"`
	MinX        float64    `json:"min_x"`
	MinY        float64    `json:"min_y"`
	MaxX        float64    `json:"max_x"`
	MaxY        float64    `json:"max_y"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// Point is a (longitude, latitude) pair.
type Point [2]float64

// Lon returns the longitude.
func (p Point) Lon() float64 { return p[0] }

// Lat returns the latitude.
func (p Point) Lat() float64 { return p[1] }

// Footprint is the ground coverage of a scene as four corners. The corners are not
// necessarily axis aligned.
type Footprint struct {
	TopLeft     Point `json:"top_left"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
	TopRight    Point `json:"top_right"`
}

// Asset describes one stored band file of an item.
type Asset struct {
	Band string `json:"band"`
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// MediaType returns the declared media type or DefaultAssetType.
func (a Asset) MediaType() string {
	if a.Type == "" {
		return DefaultAssetType
	}
	return a.Type
}

// Item is one cataloged scene. Items are read-side records; ingestion happens
// elsewhere.
type Item struct {
	ID         string     `json:"id"`
	Collection string     `json:"collection"`
	Date       time.Time  `json:"date"`
	CenterTime *time.Time `json:"center_time,omitempty"`
	Footprint  Footprint  `json:"footprint"`
	Assets     []Asset    `json:"assets"`
	Thumbnail  string     `json:"thumbnail"`
	Satellite  string     `json:"satellite"`
	Sensor     string     `json:"sensor"`
	Path       int        `json:"path"`
	Row        int        `json:"row"`
	CloudCover float64    `json:"cloud_cover"`
	SyncLoss   *float64   `json:"sync_loss,omitempty"`
}

// Timestamp returns the instant reported for the item: the center time when known,
// otherwise the acquisition date.
func (i *Item) Timestamp() time.Time {
	if i.CenterTime != nil && !i.CenterTime.IsZero() {
		return *i.CenterTime
	}
	return i.Date
}

// PackAssets encodes assets into the packed form kept in storage.
func PackAssets(assets []Asset) (string, error) {
	if assets == nil {
		assets = []Asset{}
	}
	data, err := json.Marshal(assets)
	if err != nil {
		return "", fmt.Errorf("failed to pack assets: %w", err)
	}
	return string(data), nil
}

// UnpackAssets decodes the packed storage form. An empty string is an empty list.
func UnpackAssets(packed string) ([]Asset, error) {
	if strings.TrimSpace(packed) == "" {
		return nil, nil
	}
	var assets []Asset
	if err := json.Unmarshal([]byte(packed), &assets); err != nil {
		return nil, fmt.Errorf("failed to unpack assets: %w", err)
	}
	for i, a := range assets {
		if a.Band == "" {
			return nil, fmt.Errorf("asset %d has no band", i)
		}
	}
	return assets, nil
}
