package memory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/planetlabs/go-ogc/filter"
	"github.com/spf13/cast"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// Match evaluates f against item. Comparisons with a null column never match, the
// same as in SQL.
func Match(item *catalog.Item, f filter.BooleanExpression) (bool, error) {
	switch e := f.(type) {
	case nil:
		return true, nil

	case *filter.And:
		for _, arg := range e.Args {
			ok, err := Match(item, arg)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case *filter.Or:
		for _, arg := range e.Args {
			ok, err := Match(item, arg)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case *filter.Not:
		ok, err := Match(item, e.Arg)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case *filter.Comparison:
		value, err := column(item, e.Left)
		if err != nil || value == nil {
			return false, err
		}
		lit, err := literal(e.Right)
		if err != nil {
			return false, err
		}
		c, err := compare(value, lit)
		if err != nil {
			return false, err
		}
		switch e.Name {
		case filter.Equals:
			return c == 0, nil
		case filter.NotEquals:
			return c != 0, nil
		case filter.LessThan:
			return c < 0, nil
		case filter.LessThanOrEquals:
			return c <= 0, nil
		case filter.GreaterThan:
			return c > 0, nil
		case filter.GreaterThanOrEquals:
			return c >= 0, nil
		}
		return false, fmt.Errorf("comparison %q: %w", e.Name, backend.ErrUnsupportedExpression)

	case *filter.Like:
		value, err := column(item, e.Value)
		if err != nil || value == nil {
			return false, err
		}
		pattern, ok := e.Pattern.(*filter.String)
		if !ok {
			return false, fmt.Errorf("like pattern %T: %w", e.Pattern, backend.ErrUnsupportedExpression)
		}
		re, err := likePattern(pattern.Value)
		if err != nil {
			return false, err
		}
		return re.MatchString(cast.ToString(value)), nil

	case *filter.In:
		value, err := column(item, e.Item)
		if err != nil || value == nil {
			return false, err
		}
		for _, entry := range e.List {
			lit, err := literal(entry)
			if err != nil {
				return false, err
			}
			c, err := compare(value, lit)
			if err != nil {
				return false, err
			}
			if c == 0 {
				return true, nil
			}
		}
		return false, nil

	case *filter.IsNull:
		value, err := column(item, e.Value)
		if err != nil {
			return false, err
		}
		return value == nil, nil
	}

	return false, fmt.Errorf("expression %T: %w", f, backend.ErrUnsupportedExpression)
}

func column(item *catalog.Item, expr any) (any, error) {
	prop, ok := expr.(*filter.Property)
	if !ok {
		return nil, fmt.Errorf("operand %T is not a property: %w", expr, backend.ErrUnsupportedExpression)
	}
	value, ok := item.Value(prop.Name)
	if !ok {
		return nil, fmt.Errorf("unknown column %q: %w", prop.Name, backend.ErrUnsupportedExpression)
	}
	return value, nil
}

func literal(expr any) (any, error) {
	switch v := expr.(type) {
	case *filter.String:
		return v.Value, nil
	case *filter.Number:
		return v.Value, nil
	}
	return nil, fmt.Errorf("operand %T is not a literal: %w", expr, backend.ErrUnsupportedExpression)
}

// compare orders two stored values of the same kind.
func compare(a, b any) (int, error) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare text with %T: %w", b, backend.ErrUnsupportedExpression)
		}
		return strings.Compare(av, bv), nil
	case float64:
		bv, err := cast.ToFloat64E(b)
		if err != nil {
			return 0, fmt.Errorf("cannot compare number with %T: %w", b, backend.ErrUnsupportedExpression)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("value %T: %w", a, backend.ErrUnsupportedExpression)
}

// likePattern converts a LIKE pattern with '\' as escape character to a regexp.
func likePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(regexp.QuoteMeta(`\`))
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// less orders two stored values for sorting. Nulls sort first.
func less(a, b any) (bool, bool) {
	switch {
	case a == nil && b == nil:
		return false, true
	case a == nil:
		return true, false
	case b == nil:
		return false, false
	}
	c, err := compare(a, b)
	if err != nil {
		return false, true
	}
	return c < 0, c == 0
}
