package translate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/planetlabs/go-ogc/filter"
	"github.com/spf13/cast"

	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// Query operators, in the order their clauses are emitted.
var queryOps = []string{"eq", "neq", "lt", "lte", "gt", "gte", "startsWith", "endsWith", "contains"}

var comparisonOps = map[string]string{
	"eq":  filter.Equals,
	"neq": filter.NotEquals,
	"lt":  filter.LessThan,
	"lte": filter.LessThanOrEquals,
	"gt":  filter.GreaterThan,
	"gte": filter.GreaterThanOrEquals,
}

// QueryFilter translates attribute predicates of the form
//
//	{"cloud_cover": {"lte": 10}, "sensor": {"eq": "MUX"}}
//
// into a conjunction. Fields must be queryable; operators outside the supported
// set are ignored. Values are coerced to the field type. An empty query yields nil.
func QueryFilter(query map[string]map[string]any) (filter.BooleanExpression, error) {
	if len(query) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	var clauses []filter.BooleanExpression
	for _, name := range names {
		field, ok := catalog.LookupField(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}

		ops := query[name]
		for _, op := range queryOps {
			value, present := ops[op]
			if !present {
				continue
			}
			clause, err := fieldClause(field, op, value)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
	}

	switch len(clauses) {
	case 0:
		return nil, nil
	case 1:
		return clauses[0], nil
	}
	return and(clauses...), nil
}

func fieldClause(field catalog.Field, op string, value any) (filter.BooleanExpression, error) {
	prop := &filter.Property{Name: field.Column}

	if name, ok := comparisonOps[op]; ok {
		lit, err := coerce(field, op, value)
		if err != nil {
			return nil, err
		}
		return &filter.Comparison{Name: name, Left: prop, Right: lit}, nil
	}

	if field.Kind != catalog.KindString {
		return nil, fmt.Errorf("%w: %s cannot be used on %s field %q", ErrInvalidQuery, op, field.Kind, field.Name)
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s value for %q is not text", ErrInvalidQuery, op, field.Name)
	}

	var pattern string
	switch op {
	case "startsWith":
		pattern = escapeLike(s) + "%"
	case "endsWith":
		pattern = "%" + escapeLike(s)
	default:
		pattern = "%" + escapeLike(s) + "%"
	}
	return &filter.Like{Value: prop, Pattern: &filter.String{Value: pattern}}, nil
}

// coerce converts a query value to a literal of the field's type.
func coerce(field catalog.Field, op string, value any) (filter.ScalarExpression, error) {
	switch field.Kind {
	case catalog.KindNumber:
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s value %v for %q is not a number", ErrInvalidQuery, op, value, field.Name)
		}
		return &filter.Number{Value: n}, nil

	case catalog.KindInstant:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s value for %q is not an instant", ErrInvalidQuery, op, field.Name)
		}
		// A date-only upper bound covers the whole day.
		bound, err := parseBound(s, op == "lte" || op == "gt")
		if err != nil || bound == "" {
			return nil, fmt.Errorf("%w: %s value %q for %q is not an instant", ErrInvalidQuery, op, s, field.Name)
		}
		return &filter.String{Value: bound}, nil

	default:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s value for %q is not text", ErrInvalidQuery, op, field.Name)
		}
		return &filter.String{Value: s}, nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
