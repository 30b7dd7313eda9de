package stac

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// SortbyItem represents a single sort criterion
type SortbyItem struct {
	Field     string `json:"field" validate:"required"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=asc desc"`
}

// StringList is a list parameter that accepts either a comma-separated string or a
// JSON array. Array elements may be numbers. Empty entries are dropped.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	out, err := decodeList(data, false)
	if err != nil {
		return err
	}
	*l = out
	return nil
}

// SplitList splits a comma-separated parameter, trimming and dropping empty entries.
func SplitList(s string) StringList {
	return splitList(s, false)
}

// Tokens is a list parameter decoded like StringList but keeping empty entries, so
// "1,,2,3" stays four tokens and a malformed value can be rejected as sent.
type Tokens []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tokens) UnmarshalJSON(data []byte) error {
	out, err := decodeList(data, true)
	if err != nil {
		return err
	}
	*t = Tokens(out)
	return nil
}

// SplitTokens splits a comma-separated parameter, trimming but keeping empty entries.
func SplitTokens(s string) Tokens {
	return Tokens(splitList(s, true))
}

func splitList(s string, keepEmpty bool) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" || keepEmpty {
			out = append(out, part)
		}
	}
	return out
}

func decodeList(data []byte, keepEmpty bool) ([]string, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return splitList(v, keepEmpty), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, elem := range v {
			s, err := cast.ToStringE(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			if s = strings.TrimSpace(s); s != "" || keepEmpty {
				out = append(out, s)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a string or an array, got %T", raw)
}

// SearchRequest represents a STAC search request.
//
// bbox, ids and collections accept a comma-separated string or an array. bbox keeps
// empty entries so that a malformed box is rejected rather than shortened. time and
// datetime are aliases; time wins when both are sent. query holds attribute
// predicates of the form {"field": {"op": value}}.
type SearchRequest struct {
	BBox        Tokens     `json:"bbox,omitempty"`
	Time        any        `json:"time,omitempty"`
	DateTime    any        `json:"datetime,omitempty"`
	IDs         StringList `json:"ids,omitempty" validate:"omitempty,dive,required"`
	Collections StringList `json:"collections,omitempty" validate:"omitempty,dive,required"`

	// Page-based pagination
	Page  *int `json:"page,omitempty" validate:"omitempty,min=1"`
	Limit *int `json:"limit,omitempty" validate:"omitempty,min=0"`

	// Query extension
	Query map[string]map[string]any `json:"query,omitempty"`

	// Sortby extension
	Sortby []SortbyItem `json:"sortby,omitempty" validate:"omitempty,dive"`
}

// TimeExpression returns the temporal parameter, preferring time over datetime.
func (req *SearchRequest) TimeExpression() any {
	if !emptyTime(req.Time) {
		return req.Time
	}
	if !emptyTime(req.DateTime) {
		return req.DateTime
	}
	return nil
}

// emptyTime reports whether a temporal parameter was left out. An empty sequence
// counts as sent so that it fails as a malformed expression.
func emptyTime(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// ParseSearchRequest parses a STAC search request from GET query parameters
func ParseSearchRequest(r *http.Request) (*SearchRequest, error) {
	query := r.URL.Query()
	req := &SearchRequest{}

	if query.Has("bbox") {
		req.BBox = SplitTokens(query.Get("bbox"))
	}

	// Both names are accepted for the temporal filter
	if t := query.Get("time"); t != "" {
		req.Time = t
	}
	if datetime := query.Get("datetime"); datetime != "" {
		req.DateTime = datetime
	}

	if ids := query.Get("ids"); ids != "" {
		req.IDs = SplitList(ids)
	}

	if collections := query.Get("collections"); collections != "" {
		req.Collections = SplitList(collections)
	}

	if pageStr := query.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid page parameter %q", ErrInvalidRequest, pageStr)
		}
		req.Page = &page
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid limit parameter %q", ErrInvalidRequest, limitStr)
		}
		req.Limit = &limit
	}

	// The query extension travels as JSON in a GET parameter
	if q := query.Get("query"); q != "" {
		if err := json.Unmarshal([]byte(q), &req.Query); err != nil {
			return nil, fmt.Errorf("%w: query parameter must be a JSON object: %v", ErrInvalidRequest, err)
		}
	}

	if sortbyStr := query.Get("sortby"); sortbyStr != "" {
		sortbyItems, err := parseSortbyParam(sortbyStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid sortby parameter: %v", ErrInvalidRequest, err)
		}
		req.Sortby = sortbyItems
	}

	if err := ValidateSearchRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// parseSortbyParam parses the sortby query parameter
// Format: sortby=+datetime or sortby=-datetime (+ is asc, - is desc)
// Multiple sorts: sortby=-datetime,+cloud_cover
func parseSortbyParam(sortbyStr string) ([]SortbyItem, error) {
	if sortbyStr == "" {
		return nil, nil
	}

	fields := strings.Split(sortbyStr, ",")
	items := make([]SortbyItem, 0, len(fields))

	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		direction := "asc"
		fieldName := field
		switch field[0] {
		case '+':
			fieldName = field[1:]
		case '-':
			direction = "desc"
			fieldName = field[1:]
		}

		if fieldName == "" {
			return nil, fmt.Errorf("empty field name in sortby")
		}

		items = append(items, SortbyItem{
			Field:     fieldName,
			Direction: direction,
		})
	}

	return items, nil
}

// ParseSearchRequestBody parses a STAC search request from POST JSON body.
// An empty body is an empty search.
func ParseSearchRequestBody(body io.Reader) (*SearchRequest, error) {
	var req SearchRequest

	decoder := json.NewDecoder(body)
	if err := decoder.Decode(&req); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: failed to parse search request body: %v", ErrInvalidRequest, err)
	}

	if err := ValidateSearchRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ToQueryParams converts a SearchRequest to URL query parameters.
// This is used to preserve search parameters in pagination links for POST requests.
func (req *SearchRequest) ToQueryParams() url.Values {
	params := url.Values{}

	if len(req.BBox) > 0 {
		params.Set("bbox", strings.Join(req.BBox, ","))
	}

	if t := req.TimeExpression(); t != nil {
		switch v := t.(type) {
		case string:
			params.Set("time", v)
		default:
			parts := cast.ToStringSlice(v)
			params.Set("time", strings.Join(parts, "/"))
		}
	}

	if len(req.IDs) > 0 {
		params.Set("ids", strings.Join(req.IDs, ","))
	}

	if len(req.Collections) > 0 {
		params.Set("collections", strings.Join(req.Collections, ","))
	}

	if req.Limit != nil {
		params.Set("limit", strconv.Itoa(*req.Limit))
	}

	// Page is set by the pagination link builder

	if len(req.Query) > 0 {
		if b, err := json.Marshal(req.Query); err == nil {
			params.Set("query", string(b))
		}
	}

	if len(req.Sortby) > 0 {
		sortbyStrs := make([]string, 0, len(req.Sortby))
		for _, item := range req.Sortby {
			prefix := "+"
			if item.Direction == "desc" {
				prefix = "-"
			}
			sortbyStrs = append(sortbyStrs, prefix+item.Field)
		}
		params.Set("sortby", strings.Join(sortbyStrs, ","))
	}

	return params
}
