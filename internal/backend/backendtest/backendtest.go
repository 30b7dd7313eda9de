// Package backendtest holds a behavioral test suite every repository adapter runs.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/planetlabs/go-ogc/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// Store is a repository that also accepts writes.
type Store interface {
	backend.Repository
	backend.Writer
}

// Factory returns an empty store.
type Factory func(t *testing.T) Store

// Dataset returns the records the suite seeds: collection A holds three items,
// collection B holds two and collection C holds none.
func Dataset() *catalog.Dataset {
	start := time.Date(2014, 12, 8, 0, 0, 0, 0, time.UTC)
	collections := []*catalog.Collection{
		{ID: "A", Description: "collection A", MinX: -80, MinY: -35, MaxX: -30, MaxY: 10, StartDate: start},
		{ID: "B", Description: "collection B", MinX: -80, MinY: -35, MaxX: -30, MaxY: 10, StartDate: start},
		{ID: "C", Description: "collection C", MinX: -80, MinY: -35, MaxX: -30, MaxY: 10, StartDate: start},
	}

	syncLoss := 0.25
	center := time.Date(2020, 1, 2, 10, 5, 0, 0, time.UTC)

	mk := func(id, collection string, day int, cloud float64, lon, lat float64) *catalog.Item {
		return &catalog.Item{
			ID:         id,
			Collection: collection,
			Date:       time.Date(2020, 1, day, 10, 0, 0, 0, time.UTC),
			Footprint: catalog.Footprint{
				TopLeft:     catalog.Point{lon, lat},
				BottomLeft:  catalog.Point{lon, lat - 1},
				BottomRight: catalog.Point{lon + 1, lat - 1},
				TopRight:    catalog.Point{lon + 1, lat},
			},
			Assets:     []catalog.Asset{{Band: "blue", Href: fmt.Sprintf("/%s/%s_BAND5.tif", collection, id)}},
			Thumbnail:  fmt.Sprintf("/%s/%s.png", collection, id),
			Satellite:  "CBERS4",
			Sensor:     "MUX",
			Path:       150 + day,
			Row:        100,
			CloudCover: cloud,
		}
	}

	a1 := mk("a1", "A", 1, 10, -50, -10)
	a2 := mk("a2", "A", 2, 50, -50, -10)
	a2.CenterTime = &center
	a2.SyncLoss = &syncLoss
	a3 := mk("a3", "A", 3, 90, -40, -20)
	b1 := mk("b1", "B", 1, 10, -50, -10)
	b1.Sensor = "AWFI"
	b2 := mk("b2", "B", 4, 0, 10, 10)
	b2.Sensor = "AWFI"
	b2.Satellite = "CBERS4A"

	return &catalog.Dataset{
		Collections: collections,
		Items:       []*catalog.Item{a1, a2, a3, b1, b2},
	}
}

func eq(col string, v any) filter.BooleanExpression {
	return &filter.Comparison{Name: filter.Equals, Left: &filter.Property{Name: col}, Right: lit(v)}
}

func cmp(name, col string, v any) filter.BooleanExpression {
	return &filter.Comparison{Name: name, Left: &filter.Property{Name: col}, Right: lit(v)}
}

func lit(v any) filter.ScalarExpression {
	switch x := v.(type) {
	case string:
		return &filter.String{Value: x}
	case float64:
		return &filter.Number{Value: x}
	case int:
		return &filter.Number{Value: float64(x)}
	}
	panic(fmt.Sprintf("unsupported literal %T", v))
}

func ids(items []*catalog.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

// Run exercises a repository produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	seeded := func(t *testing.T) backend.Repository {
		t.Helper()
		repo := newRepo(t)
		require.NoError(t, backend.Seed(ctx, repo, Dataset()))
		return repo
	}

	t.Run("count all", func(t *testing.T) {
		repo := seeded(t)
		n, err := repo.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("comparisons", func(t *testing.T) {
		repo := seeded(t)
		tests := []struct {
			name string
			f    filter.BooleanExpression
			want int
		}{
			{"string equality", eq(catalog.ColumnSensor, "AWFI"), 2},
			{"number equality", eq(catalog.ColumnCloudCover, 10.0), 2},
			{"not equal", cmp(filter.NotEquals, catalog.ColumnCollection, "A"), 2},
			{"less than", cmp(filter.LessThan, catalog.ColumnCloudCover, 50.0), 3},
			{"less or equal", cmp(filter.LessThanOrEquals, catalog.ColumnCloudCover, 50.0), 4},
			{"greater than", cmp(filter.GreaterThan, catalog.ColumnPath, 152), 2},
			{"greater or equal instant", cmp(filter.GreaterThanOrEquals, catalog.ColumnDate, "2020-01-02T00:00:00"), 3},
			{"null never matches", cmp(filter.GreaterThanOrEquals, catalog.ColumnSyncLoss, 0.0), 1},
			{"null center time", eq(catalog.ColumnCenterTime, "2020-01-02T10:05:00"), 1},
			{"is null", &filter.IsNull{Value: &filter.Property{Name: catalog.ColumnSyncLoss}}, 4},
			{"in", &filter.In{
				Item: &filter.Property{Name: catalog.ColumnID},
				List: []filter.ScalarExpression{lit("a1"), lit("b2"), lit("zz")},
			}, 2},
			{"empty in", &filter.In{Item: &filter.Property{Name: catalog.ColumnID}}, 0},
			{"and", &filter.And{Args: []filter.BooleanExpression{
				eq(catalog.ColumnCollection, "A"), cmp(filter.GreaterThan, catalog.ColumnCloudCover, 20.0),
			}}, 2},
			{"or", &filter.Or{Args: []filter.BooleanExpression{
				eq(catalog.ColumnID, "a1"), eq(catalog.ColumnID, "b1"),
			}}, 2},
			{"not", &filter.Not{Arg: eq(catalog.ColumnCollection, "A")}, 2},
			{"empty and", &filter.And{}, 5},
			{"empty or", &filter.Or{}, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				n, err := repo.Count(ctx, tt.f)
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			})
		}
	})

	t.Run("like", func(t *testing.T) {
		repo := seeded(t)
		tests := []struct {
			pattern string
			want    int
		}{
			{"CBERS4%", 5},
			{"CBERS4", 4},
			{"%4A", 1},
			{"CBERS_", 4},
			{"cbers4", 0},
			{`CBERS4\%`, 0},
		}
		for _, tt := range tests {
			t.Run(tt.pattern, func(t *testing.T) {
				n, err := repo.Count(ctx, &filter.Like{
					Value:   &filter.Property{Name: catalog.ColumnSatellite},
					Pattern: &filter.String{Value: tt.pattern},
				})
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			})
		}
	})

	t.Run("unknown column is rejected", func(t *testing.T) {
		repo := seeded(t)
		_, err := repo.Count(ctx, eq("nope", "x"))
		require.Error(t, err)
		assert.ErrorIs(t, err, backend.ErrUnsupportedExpression)
		assert.ErrorIs(t, err, backend.ErrRepositoryFailure)
	})

	t.Run("count by group", func(t *testing.T) {
		repo := seeded(t)
		counts, err := repo.CountByGroup(ctx, cmp(filter.LessThan, catalog.ColumnCloudCover, 60.0), catalog.ColumnCollection)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"A": 2, "B": 2}, counts)
	})

	t.Run("fetch ordered window", func(t *testing.T) {
		repo := seeded(t)
		order := []backend.OrderBy{
			{Field: catalog.ColumnDate, Desc: true},
			{Field: catalog.ColumnID},
			{Field: catalog.ColumnCollection},
		}

		all, err := repo.Fetch(ctx, nil, backend.Window{}, order)
		require.NoError(t, err)
		assert.Equal(t, []string{"b2", "a3", "a2", "a1", "b1"}, ids(all))

		page, err := repo.Fetch(ctx, nil, backend.Window{Offset: 1, Limit: 2}, order)
		require.NoError(t, err)
		assert.Equal(t, []string{"a3", "a2"}, ids(page))

		past, err := repo.Fetch(ctx, nil, backend.Window{Offset: 10, Limit: 2}, order)
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("fetch round trips records", func(t *testing.T) {
		repo := seeded(t)
		items, err := repo.Fetch(ctx, eq(catalog.ColumnID, "a2"), backend.Window{Limit: 1}, nil)
		require.NoError(t, err)
		require.Len(t, items, 1)

		want := Dataset().Items[1]
		got := items[0]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Collection, got.Collection)
		assert.True(t, want.Date.Equal(got.Date))
		require.NotNil(t, got.CenterTime)
		assert.True(t, want.CenterTime.Equal(*got.CenterTime))
		assert.Equal(t, want.Footprint, got.Footprint)
		assert.Equal(t, want.Assets, got.Assets)
		assert.Equal(t, want.Thumbnail, got.Thumbnail)
		assert.Equal(t, want.Path, got.Path)
		assert.Equal(t, want.Row, got.Row)
		assert.Equal(t, want.CloudCover, got.CloudCover)
		require.NotNil(t, got.SyncLoss)
		assert.Equal(t, *want.SyncLoss, *got.SyncLoss)
	})

	t.Run("collections", func(t *testing.T) {
		repo := seeded(t)
		collections, err := repo.Collections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 3)
		assert.Equal(t, "A", collections[0].ID)
		assert.Equal(t, "C", collections[2].ID)

		c, err := repo.Collection(ctx, "B")
		require.NoError(t, err)
		assert.Equal(t, "collection B", c.Description)
		assert.True(t, c.StartDate.Equal(Dataset().Collections[1].StartDate))

		_, err = repo.Collection(ctx, "Z")
		assert.True(t, errors.Is(err, backend.ErrCollectionNotFound))
	})

	t.Run("grouped fallback matches native grouping", func(t *testing.T) {
		repo := seeded(t)
		f := cmp(filter.GreaterThan, catalog.ColumnCloudCover, 5.0)

		native, err := repo.CountByGroup(ctx, f, catalog.ColumnCollection)
		require.NoError(t, err)
		fallback, err := backend.NewGrouped(repo).CountByGroup(ctx, f, catalog.ColumnCollection)
		require.NoError(t, err)
		assert.Equal(t, native, fallback)
	})

	t.Run("canceled context", func(t *testing.T) {
		repo := seeded(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.Fetch(cctx, nil, backend.Window{Limit: 10}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
