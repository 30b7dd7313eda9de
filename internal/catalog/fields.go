package catalog

import (
	"sort"
	"strings"
)

// Stored item columns.
const (
	ColumnID          = "id"
	ColumnCollection  = "collection"
	ColumnDate        = "date"
	ColumnCenterTime  = "center_time"
	ColumnTLLongitude = "tl_longitude"
	ColumnTLLatitude  = "tl_latitude"
	ColumnBLLongitude = "bl_longitude"
	ColumnBLLatitude  = "bl_latitude"
	ColumnBRLongitude = "br_longitude"
	ColumnBRLatitude  = "br_latitude"
	ColumnTRLongitude = "tr_longitude"
	ColumnTRLatitude  = "tr_latitude"
	ColumnPath        = "path"
	ColumnRow         = "row"
	ColumnSatellite   = "satellite"
	ColumnSensor      = "sensor"
	ColumnCloudCover  = "cloud_cover"
	ColumnSyncLoss    = "sync_loss"
)

// FieldKind is the value type of a queryable field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindInstant
)

// String returns the JSON schema type name of the kind.
func (k FieldKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	default:
		return "string"
	}
}

// Field is a queryable item attribute and the column backing it.
type Field struct {
	Name        string
	Column      string
	Kind        FieldKind
	Description string
}

var queryables = map[string]Field{
	"id":          {Name: "id", Column: ColumnID, Kind: KindString, Description: "Item identifier"},
	"collection":  {Name: "collection", Column: ColumnCollection, Kind: KindString, Description: "Collection identifier"},
	"datetime":    {Name: "datetime", Column: ColumnDate, Kind: KindInstant, Description: "Acquisition instant"},
	"date":        {Name: "date", Column: ColumnDate, Kind: KindInstant, Description: "Acquisition instant"},
	"center_time": {Name: "center_time", Column: ColumnCenterTime, Kind: KindInstant, Description: "Scene center instant"},
	"satellite":   {Name: "satellite", Column: ColumnSatellite, Kind: KindString, Description: "Satellite name"},
	"sensor":      {Name: "sensor", Column: ColumnSensor, Kind: KindString, Description: "Sensor name"},
	"path":        {Name: "path", Column: ColumnPath, Kind: KindNumber, Description: "Orbit path"},
	"row":         {Name: "row", Column: ColumnRow, Kind: KindNumber, Description: "Orbit row"},
	"cloud_cover": {Name: "cloud_cover", Column: ColumnCloudCover, Kind: KindNumber, Description: "Cloud cover percentage"},
	"sync_loss":   {Name: "sync_loss", Column: ColumnSyncLoss, Kind: KindNumber, Description: "Synchronization loss ratio"},
}

var columns = map[string]FieldKind{
	ColumnID:          KindString,
	ColumnCollection:  KindString,
	ColumnDate:        KindInstant,
	ColumnCenterTime:  KindInstant,
	ColumnTLLongitude: KindNumber,
	ColumnTLLatitude:  KindNumber,
	ColumnBLLongitude: KindNumber,
	ColumnBLLatitude:  KindNumber,
	ColumnBRLongitude: KindNumber,
	ColumnBRLatitude:  KindNumber,
	ColumnTRLongitude: KindNumber,
	ColumnTRLatitude:  KindNumber,
	ColumnPath:        KindNumber,
	ColumnRow:         KindNumber,
	ColumnSatellite:   KindString,
	ColumnSensor:      KindString,
	ColumnCloudCover:  KindNumber,
	ColumnSyncLoss:    KindNumber,
}

// LookupField resolves a public field name. A "properties." prefix is ignored.
func LookupField(name string) (Field, bool) {
	f, ok := queryables[strings.TrimPrefix(name, "properties.")]
	return f, ok
}

// Queryables returns every queryable field sorted by name.
func Queryables() []Field {
	fields := make([]Field, 0, len(queryables))
	for _, f := range queryables {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

// IsColumn reports whether col is a stored item column.
func IsColumn(col string) bool {
	_, ok := columns[col]
	return ok
}

// Value returns the stored value of column col: a string, a float64 or nil for a
// null. The second result is false for unknown columns.
func (i *Item) Value(col string) (any, bool) {
	fp := i.Footprint
	switch col {
	case ColumnID:
		return i.ID, true
	case ColumnCollection:
		return i.Collection, true
	case ColumnDate:
		return FormatTime(i.Date), true
	case ColumnCenterTime:
		if i.CenterTime == nil {
			return nil, true
		}
		return FormatTime(*i.CenterTime), true
	case ColumnTLLongitude:
		return fp.TopLeft.Lon(), true
	case ColumnTLLatitude:
		return fp.TopLeft.Lat(), true
	case ColumnBLLongitude:
		return fp.BottomLeft.Lon(), true
	case ColumnBLLatitude:
		return fp.BottomLeft.Lat(), true
	case ColumnBRLongitude:
		return fp.BottomRight.Lon(), true
	case ColumnBRLatitude:
		return fp.BottomRight.Lat(), true
	case ColumnTRLongitude:
		return fp.TopRight.Lon(), true
	case ColumnTRLatitude:
		return fp.TopRight.Lat(), true
	case ColumnPath:
		return float64(i.Path), true
	case ColumnRow:
		return float64(i.Row), true
	case ColumnSatellite:
		return i.Satellite, true
	case ColumnSensor:
		return i.Sensor, true
	case ColumnCloudCover:
		return i.CloudCover, true
	case ColumnSyncLoss:
		if i.SyncLoss == nil {
			return nil, true
		}
		return *i.SyncLoss, true
	}
	return nil, false
}
