package sqlite

import (
	"testing"

	"github.com/planetlabs/go-ogc/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
)

func prop(name string) *filter.Property { return &filter.Property{Name: name} }

func TestLower(t *testing.T) {
	tests := []struct {
		name      string
		f         filter.BooleanExpression
		wantSQL   string
		wantArgs  []any
		wantError bool
	}{
		{
			name:    "nil matches all",
			f:       nil,
			wantSQL: "1=1",
		},
		{
			name:     "equality",
			f:        &filter.Comparison{Name: filter.Equals, Left: prop("id"), Right: &filter.String{Value: "a1"}},
			wantSQL:  `"id" = ?`,
			wantArgs: []any{"a1"},
		},
		{
			name: "and of or",
			f: &filter.And{Args: []filter.BooleanExpression{
				&filter.Or{Args: []filter.BooleanExpression{
					&filter.Comparison{Name: filter.LessThanOrEquals, Left: prop("tr_longitude"), Right: &filter.Number{Value: -50}},
					&filter.Comparison{Name: filter.GreaterThan, Left: prop("row"), Right: &filter.Number{Value: 3}},
				}},
				&filter.Comparison{Name: filter.NotEquals, Left: prop("sensor"), Right: &filter.String{Value: "MUX"}},
			}},
			wantSQL:  `(("tr_longitude" <= ? OR "row" > ?) AND "sensor" <> ?)`,
			wantArgs: []any{-50.0, 3.0, "MUX"},
		},
		{
			name:     "like escapes with backslash",
			f:        &filter.Like{Value: prop("satellite"), Pattern: &filter.String{Value: `CB\%%`}},
			wantSQL:  `"satellite" LIKE ? ESCAPE '\'`,
			wantArgs: []any{`CB\%%`},
		},
		{
			name: "in",
			f: &filter.In{Item: prop("collection"), List: []filter.ScalarExpression{
				&filter.String{Value: "A"}, &filter.String{Value: "B"},
			}},
			wantSQL:  `"collection" IN (?, ?)`,
			wantArgs: []any{"A", "B"},
		},
		{
			name:    "empty or",
			f:       &filter.Or{},
			wantSQL: "1=0",
		},
		{
			name:    "not null",
			f:       &filter.Not{Arg: &filter.IsNull{Value: prop("sync_loss")}},
			wantSQL: `NOT ("sync_loss" IS NULL)`,
		},
		{
			name:      "unknown column",
			f:         &filter.Comparison{Name: filter.Equals, Left: prop("id; DROP TABLE x"), Right: &filter.String{Value: "a"}},
			wantError: true,
		},
		{
			name:      "property on the right",
			f:         &filter.Comparison{Name: filter.Equals, Left: prop("id"), Right: prop("collection")},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := Lower(tt.f)
			if tt.wantError {
				assert.ErrorIs(t, err, backend.ErrUnsupportedExpression)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestOrderClause(t *testing.T) {
	clause, err := orderClause([]backend.OrderBy{{Field: "date", Desc: true}, {Field: "id"}})
	require.NoError(t, err)
	assert.Equal(t, ` ORDER BY "date" DESC, "id" ASC`, clause)

	clause, err = orderClause(nil)
	require.NoError(t, err)
	assert.Empty(t, clause)
}
