package sqlite

import (
	"fmt"
	"strings"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// Lower turns a predicate tree into a WHERE clause with positional parameters.
// Column names are checked against the stored columns; literal values are always
// bound, never interpolated.
func Lower(f filter.BooleanExpression) (string, []any, error) {
	l := &lowering{}
	clause, err := l.expr(f)
	if err != nil {
		return "", nil, err
	}
	return clause, l.args, nil
}

type lowering struct {
	args []any
}

func (l *lowering) expr(f filter.BooleanExpression) (string, error) {
	switch e := f.(type) {
	case nil:
		return "1=1", nil

	case *filter.And:
		return l.join(e.Args, " AND ", "1=1")

	case *filter.Or:
		return l.join(e.Args, " OR ", "1=0")

	case *filter.Not:
		inner, err := l.expr(e.Arg)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil

	case *filter.Comparison:
		col, err := columnName(e.Left)
		if err != nil {
			return "", err
		}
		op, ok := operator(e)
		if !ok {
			return "", fmt.Errorf("comparison %q: %w", e.Name, backend.ErrUnsupportedExpression)
		}
		if err := l.bind(e.Right); err != nil {
			return "", err
		}
		return col + " " + op + " ?", nil

	case *filter.Like:
		col, err := columnName(e.Value)
		if err != nil {
			return "", err
		}
		if err := l.bind(e.Pattern); err != nil {
			return "", err
		}
		return col + ` LIKE ? ESCAPE '\'`, nil

	case *filter.In:
		col, err := columnName(e.Item)
		if err != nil {
			return "", err
		}
		if len(e.List) == 0 {
			return "1=0", nil
		}
		marks := make([]string, len(e.List))
		for i, entry := range e.List {
			if err := l.bind(entry); err != nil {
				return "", err
			}
			marks[i] = "?"
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")", nil

	case *filter.IsNull:
		col, err := columnName(e.Value)
		if err != nil {
			return "", err
		}
		return col + " IS NULL", nil
	}

	return "", fmt.Errorf("expression %T: %w", f, backend.ErrUnsupportedExpression)
}

func operator(c *filter.Comparison) (string, bool) {
	switch c.Name {
	case filter.Equals:
		return "=", true
	case filter.NotEquals:
		return "<>", true
	case filter.LessThan:
		return "<", true
	case filter.LessThanOrEquals:
		return "<=", true
	case filter.GreaterThan:
		return ">", true
	case filter.GreaterThanOrEquals:
		return ">=", true
	}
	return "", false
}

func (l *lowering) join(args []filter.BooleanExpression, sep, empty string) (string, error) {
	if len(args) == 0 {
		return empty, nil
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		part, err := l.expr(arg)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (l *lowering) bind(expr any) error {
	switch v := expr.(type) {
	case *filter.String:
		l.args = append(l.args, v.Value)
	case *filter.Number:
		l.args = append(l.args, v.Value)
	default:
		return fmt.Errorf("operand %T is not a literal: %w", expr, backend.ErrUnsupportedExpression)
	}
	return nil
}

// columnName returns the quoted identifier of a stored column.
func columnName(expr any) (string, error) {
	prop, ok := expr.(*filter.Property)
	if !ok {
		return "", fmt.Errorf("operand %T is not a property: %w", expr, backend.ErrUnsupportedExpression)
	}
	return quote(prop.Name)
}

func quote(col string) (string, error) {
	if !catalog.IsColumn(col) {
		return "", fmt.Errorf("unknown column %q: %w", col, backend.ErrUnsupportedExpression)
	}
	return `"` + col + `"`, nil
}

// orderClause renders sort keys as an ORDER BY list.
func orderClause(order []backend.OrderBy) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	keys := make([]string, len(order))
	for i, o := range order {
		col, err := quote(o.Field)
		if err != nil {
			return "", err
		}
		if o.Desc {
			keys[i] = col + " DESC"
		} else {
			keys[i] = col + " ASC"
		}
	}
	return " ORDER BY " + strings.Join(keys, ", "), nil
}
