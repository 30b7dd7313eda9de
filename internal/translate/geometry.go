package translate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// SpatialMode selects how the upper corner comparison of the bbox predicate is made.
type SpatialMode string

const (
	// SpatialOverlap compares every corner with >=.
	SpatialOverlap SpatialMode = "overlap"
	// SpatialLegacy requires the bbox top to equal the bottom-right latitude in the
	// last clause, as older deployments did.
	SpatialLegacy SpatialMode = "legacy"
)

// BoundingBox is a query rectangle in degrees.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// ParseBBox parses bbox tokens: exactly four numbers, minX <= maxX and minY <= maxY.
func ParseBBox(tokens []string) (BoundingBox, error) {
	if len(tokens) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: expected 4 values, got %d", ErrInvalidBoundingBox, len(tokens))
	}

	var v [4]float64
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: value %q is not a number", ErrInvalidBoundingBox, tok)
		}
		v[i] = f
	}

	b := BoundingBox{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return BoundingBox{}, fmt.Errorf("%w: [%g, %g, %g, %g] is inverted", ErrInvalidBoundingBox, b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	return b, nil
}

// BBoxFilter matches footprints overlapping b. The footprint corners are compared
// column by column so the predicate runs on plain indexes:
//
//	(minX <= tr_lon AND minY <= tr_lat) OR (minX <= br_lon AND minY <= tl_lat)
//	AND
//	(maxX >= bl_lon AND maxY >= bl_lat) OR (maxX >= tl_lon AND maxY >= br_lat)
func BBoxFilter(b BoundingBox, mode SpatialMode) filter.BooleanExpression {
	lastOp := filter.GreaterThanOrEquals
	if mode == SpatialLegacy {
		lastOp = filter.Equals
	}

	low := or(
		and(
			compare(catalog.ColumnTRLongitude, filter.LessThanOrEquals, b.MinX),
			compare(catalog.ColumnTRLatitude, filter.LessThanOrEquals, b.MinY),
		),
		and(
			compare(catalog.ColumnBRLongitude, filter.LessThanOrEquals, b.MinX),
			compare(catalog.ColumnTLLatitude, filter.LessThanOrEquals, b.MinY),
		),
	)
	high := or(
		and(
			compare(catalog.ColumnBLLongitude, filter.GreaterThanOrEquals, b.MaxX),
			compare(catalog.ColumnBLLatitude, filter.GreaterThanOrEquals, b.MaxY),
		),
		and(
			compare(catalog.ColumnTLLongitude, filter.GreaterThanOrEquals, b.MaxX),
			compare(catalog.ColumnBRLatitude, lastOp, b.MaxY),
		),
	)
	return and(low, high)
}

// compare builds "literal op column" as "column op' literal" where op' mirrors op.
func compare(column, op string, value float64) filter.BooleanExpression {
	return &filter.Comparison{
		Name:  mirror(op),
		Left:  &filter.Property{Name: column},
		Right: &filter.Number{Value: value},
	}
}

// mirror swaps the operands of a comparison operator.
func mirror(op string) string {
	switch op {
	case filter.LessThan:
		return filter.GreaterThan
	case filter.LessThanOrEquals:
		return filter.GreaterThanOrEquals
	case filter.GreaterThan:
		return filter.LessThan
	case filter.GreaterThanOrEquals:
		return filter.LessThanOrEquals
	}
	return op
}

func and(args ...filter.BooleanExpression) filter.BooleanExpression {
	return &filter.And{Args: args}
}

func or(args ...filter.BooleanExpression) filter.BooleanExpression {
	return &filter.Or{Args: args}
}
