package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2020, 1, 15, 13, 40, 0, 0, time.UTC)

	got, err := ParseTime("2020-01-15T13:40:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTime("2020-01-15T10:40:00-03:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = ParseTime("15/01/2020")
	assert.Error(t, err)
}

func TestFormatTime_SortsAsString(t *testing.T) {
	a := FormatTime(time.Date(2019, 12, 31, 23, 59, 59, 0, time.UTC))
	b := FormatTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "2019-12-31T23:59:59", a)
	assert.Less(t, a, b)
}

func TestPackAssets(t *testing.T) {
	assets := []Asset{
		{Band: "blue", Href: "/x/BAND5.tif"},
		{Band: "nir", Href: "/x/BAND8.tif", Type: "image/tiff"},
	}

	packed, err := PackAssets(assets)
	require.NoError(t, err)

	unpacked, err := UnpackAssets(packed)
	require.NoError(t, err)
	assert.Equal(t, assets, unpacked)

	assert.Equal(t, DefaultAssetType, unpacked[0].MediaType())
	assert.Equal(t, "image/tiff", unpacked[1].MediaType())
}

func TestPackAssets_Nil(t *testing.T) {
	packed, err := PackAssets(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", packed)
}

func TestUnpackAssets_Invalid(t *testing.T) {
	_, err := UnpackAssets("not json")
	assert.Error(t, err)

	_, err = UnpackAssets(`[{"href":"/x.tif"}]`)
	assert.ErrorContains(t, err, "no band")

	assets, err := UnpackAssets("  ")
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestItemTimestamp(t *testing.T) {
	item := testItem("a1", "A")
	assert.Equal(t, item.Date, item.Timestamp())

	center := item.Date.Add(5 * time.Minute)
	item.CenterTime = &center
	assert.Equal(t, center, item.Timestamp())
}

func TestItemValue(t *testing.T) {
	item := testItem("a1", "A")
	item.Footprint = Footprint{
		TopLeft:     Point{-47.5, -15.0},
		BottomLeft:  Point{-47.8, -16.1},
		BottomRight: Point{-46.6, -16.4},
		TopRight:    Point{-46.3, -15.3},
	}
	item.CloudCover = 12.5

	tests := []struct {
		column string
		want   any
	}{
		{ColumnID, "a1"},
		{ColumnCollection, "A"},
		{ColumnDate, "2020-01-15T13:40:00"},
		{ColumnCenterTime, nil},
		{ColumnTLLongitude, -47.5},
		{ColumnBRLatitude, -16.4},
		{ColumnPath, 151.0},
		{ColumnRow, 98.0},
		{ColumnSatellite, "CBERS4"},
		{ColumnCloudCover, 12.5},
		{ColumnSyncLoss, nil},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, ok := item.Value(tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := item.Value("nope")
	assert.False(t, ok)
}

func TestLookupField(t *testing.T) {
	f, ok := LookupField("properties.cloud_cover")
	require.True(t, ok)
	assert.Equal(t, ColumnCloudCover, f.Column)
	assert.Equal(t, KindNumber, f.Kind)

	f, ok = LookupField("datetime")
	require.True(t, ok)
	assert.Equal(t, ColumnDate, f.Column)

	_, ok = LookupField("tl_longitude")
	assert.False(t, ok)
}

func TestQueryablesSorted(t *testing.T) {
	fields := Queryables()
	require.NotEmpty(t, fields)
	for i := 1; i < len(fields); i++ {
		assert.Less(t, fields[i-1].Name, fields[i].Name)
	}
	for _, f := range fields {
		assert.True(t, IsColumn(f.Column), f.Name)
	}
}
