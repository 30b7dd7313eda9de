package translate

import "errors"

var (
	// ErrInvalidBoundingBox is returned when a bbox is malformed or inverted.
	ErrInvalidBoundingBox = errors.New("invalid bounding box")

	// ErrInvalidTimeExpression is returned when a time or datetime parameter cannot be parsed.
	ErrInvalidTimeExpression = errors.New("invalid time expression")

	// ErrUnknownField is returned when a query or sortby names a field outside the queryables.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidQuery is returned when a query value cannot be coerced to its field type.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidParameter is returned when page, limit or sortby values are out of range.
	ErrInvalidParameter = errors.New("invalid parameter value")

	// ErrCorruptRecord is returned when a stored record cannot be rendered as an item.
	ErrCorruptRecord = errors.New("corrupt record")
)
