package memory

import (
	"context"
	"testing"

	"github.com/planetlabs/go-ogc/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/backend/backendtest"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

var (
	_ backend.Repository = (*Store)(nil)
	_ backend.Writer     = (*Store)(nil)
	_ backend.Pinger     = (*Store)(nil)
)

func TestStore(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backendtest.Store {
		return New()
	})
}

func TestNewFromDataset(t *testing.T) {
	s, err := NewFromDataset(backendtest.Dataset())
	require.NoError(t, err)

	n, err := s.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestPutItems_UnknownCollection(t *testing.T) {
	s := New()
	err := s.PutItems(context.Background(), []*catalog.Item{{ID: "x", Collection: "nope"}})
	assert.ErrorIs(t, err, backend.ErrCollectionNotFound)
}

func TestPutItems_Duplicate(t *testing.T) {
	ds := backendtest.Dataset()
	s, err := NewFromDataset(ds)
	require.NoError(t, err)

	err = s.PutItems(context.Background(), ds.Items[:1])
	assert.ErrorContains(t, err, "already exists")
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"abc", "abc", true},
		{"abc", "abcd", false},
		{"a%", "abcd", true},
		{"%d", "abcd", true},
		{"a_c", "abc", true},
		{"a_c", "ac", false},
		{`50\%`, "50%", true},
		{`50\%`, "500", false},
		{`a\_c`, "abc", false},
		{`a\_c`, "a_c", true},
		{`a\\b`, `a\b`, true},
		{"a.c", "abc", false},
		{"(x)", "(x)", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.value, func(t *testing.T) {
			re, err := likePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, re.MatchString(tt.value))
		})
	}
}

func TestMatch_TypeMismatch(t *testing.T) {
	item := backendtest.Dataset().Items[0]
	_, err := Match(item, &filter.Comparison{
		Name:  filter.Equals,
		Left:  &filter.Property{Name: catalog.ColumnCloudCover},
		Right: &filter.String{Value: "cloudy"},
	})
	assert.ErrorIs(t, err, backend.ErrUnsupportedExpression)
}

func TestMatch_LiteralOnLeft(t *testing.T) {
	item := backendtest.Dataset().Items[0]
	_, err := Match(item, &filter.Comparison{
		Name:  filter.Equals,
		Left:  &filter.String{Value: "a1"},
		Right: &filter.Property{Name: catalog.ColumnID},
	})
	assert.ErrorIs(t, err, backend.ErrUnsupportedExpression)
}
