package translate

import (
	"fmt"
	"strings"
	"time"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// FormatSTACTime formats a time.Time as RFC3339 for STAC.
// STAC uses RFC3339 format: "2023-06-15T14:00:00Z"
func FormatSTACTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// TimeRange is a closed or half-open range of stored instants. An empty bound is
// open on that side.
type TimeRange struct {
	Start string
	End   string
}

// ParseTimeExpression parses a time (or datetime) parameter. It accepts a string
// split on "/" or a sequence of strings:
//   - one part: the range starts at that instant and is open ended
//   - two parts: a closed range; an empty or ".." part leaves that side open
//
// Bounds are RFC3339 instants or YYYY-MM-DD dates. A date-only end bound covers the
// whole day. An open bound is "", ".." or, in a sequence, null. A nil or blank
// string yields a nil range; an empty sequence has no parts and is rejected.
//
// Stored instants have whole-second precision. A fractional start bound is rounded
// up to the next second and a fractional end bound down, so the range never widens.
func ParseTimeExpression(expr any) (*TimeRange, error) {
	var parts []string

	switch v := expr.(type) {
	case nil:
		return nil, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, nil
		}
		parts = strings.Split(v, "/")
	case []string:
		parts = v
	case []any:
		parts = make([]string, len(v))
		for i, p := range v {
			if p == nil {
				continue
			}
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T, not a string", ErrInvalidTimeExpression, i, p)
			}
			parts[i] = s
		}
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidTimeExpression, expr)
	}

	if len(parts) == 0 || len(parts) > 2 {
		return nil, fmt.Errorf("%w: expected 1 or 2 parts, got %d", ErrInvalidTimeExpression, len(parts))
	}

	start, err := parseBound(parts[0], false)
	if err != nil {
		return nil, err
	}

	r := &TimeRange{Start: start}
	if len(parts) == 2 {
		if r.End, err = parseBound(parts[1], true); err != nil {
			return nil, err
		}
		if r.Start != "" && r.End != "" && r.Start > r.End {
			return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidTimeExpression, r.Start, r.End)
		}
	}

	if r.Start == "" && r.End == "" {
		return nil, nil
	}
	return r, nil
}

// parseBound normalizes one bound to the stored layout. An open bound is "".
func parseBound(s string, end bool) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ".." {
		return "", nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		if whole := t.Truncate(time.Second); !end && whole.Before(t) {
			t = whole.Add(time.Second)
		}
		return catalog.FormatTime(t), nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q is neither RFC3339 nor YYYY-MM-DD", ErrInvalidTimeExpression, s)
	}
	if end {
		t = t.Add(24*time.Hour - time.Second)
	}
	return catalog.FormatTime(t), nil
}

// TimeFilter matches acquisition dates inside r. A nil range matches all.
func TimeFilter(r *TimeRange) filter.BooleanExpression {
	if r == nil {
		return nil
	}

	var clauses []filter.BooleanExpression
	if r.Start != "" {
		clauses = append(clauses, &filter.Comparison{
			Name:  filter.GreaterThanOrEquals,
			Left:  &filter.Property{Name: catalog.ColumnDate},
			Right: &filter.String{Value: r.Start},
		})
	}
	if r.End != "" {
		clauses = append(clauses, &filter.Comparison{
			Name:  filter.LessThanOrEquals,
			Left:  &filter.Property{Name: catalog.ColumnDate},
			Right: &filter.String{Value: r.End},
		})
	}

	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	}
	return and(clauses...)
}
