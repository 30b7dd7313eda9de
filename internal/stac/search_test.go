package stac

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestParseSearchRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/search?bbox=-50,-20,-40,-10&datetime=2020-01-01/2020-02-01"+
		"&ids=a1,%20a2,&collections=A,B&page=2&limit=5&sortby=-datetime,%2Bcloud_cover"+
		`&query={"cloud_cover":{"lte":20}}`, nil)

	req, err := ParseSearchRequest(r)
	if err != nil {
		t.Fatalf("ParseSearchRequest: %v", err)
	}

	if want := (Tokens{"-50", "-20", "-40", "-10"}); !reflect.DeepEqual(req.BBox, want) {
		t.Errorf("bbox = %v, want %v", req.BBox, want)
	}
	if req.TimeExpression() != "2020-01-01/2020-02-01" {
		t.Errorf("time = %v", req.TimeExpression())
	}
	if want := (StringList{"a1", "a2"}); !reflect.DeepEqual(req.IDs, want) {
		t.Errorf("ids = %v, want %v", req.IDs, want)
	}
	if want := (StringList{"A", "B"}); !reflect.DeepEqual(req.Collections, want) {
		t.Errorf("collections = %v, want %v", req.Collections, want)
	}
	if req.Page == nil || *req.Page != 2 {
		t.Errorf("page = %v, want 2", req.Page)
	}
	if req.Limit == nil || *req.Limit != 5 {
		t.Errorf("limit = %v, want 5", req.Limit)
	}
	wantSort := []SortbyItem{{Field: "datetime", Direction: "desc"}, {Field: "cloud_cover", Direction: "asc"}}
	if !reflect.DeepEqual(req.Sortby, wantSort) {
		t.Errorf("sortby = %v, want %v", req.Sortby, wantSort)
	}
	if got := req.Query["cloud_cover"]["lte"]; got != float64(20) {
		t.Errorf("query cloud_cover.lte = %v", got)
	}
}

func TestParseSearchRequest_TimePreferredOverDatetime(t *testing.T) {
	r := httptest.NewRequest("GET", "/search?time=2021-01-01&datetime=2020-01-01", nil)
	req, err := ParseSearchRequest(r)
	if err != nil {
		t.Fatalf("ParseSearchRequest: %v", err)
	}
	if req.TimeExpression() != "2021-01-01" {
		t.Errorf("time = %v, want 2021-01-01", req.TimeExpression())
	}
}

func TestTimeExpression_EmptySequenceIsSent(t *testing.T) {
	req, err := ParseSearchRequestBody(strings.NewReader(`{"time": [], "datetime": "2020-01-01"}`))
	if err != nil {
		t.Fatalf("ParseSearchRequestBody: %v", err)
	}
	if got, ok := req.TimeExpression().([]any); !ok || len(got) != 0 {
		t.Errorf("time = %#v, want the empty sequence", req.TimeExpression())
	}
}

func TestParseSearchRequest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"page not a number", "page=x"},
		{"page zero", "page=0"},
		{"negative limit", "limit=-1"},
		{"limit not a number", "limit=ten"},
		{"query not json", "query=cloud_cover"},
		{"empty sortby field", "sortby=-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/search?"+tt.query, nil)
			_, err := ParseSearchRequest(r)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestParseSearchRequestBody(t *testing.T) {
	body := `{
		"bbox": [-50.5, -20, -40, -10],
		"time": ["2020-01-01", ".."],
		"ids": "a1,a2",
		"collections": ["A"],
		"limit": 0,
		"query": {"sensor": {"eq": "MUX"}},
		"sortby": [{"field": "cloud_cover", "direction": "desc"}]
	}`

	req, err := ParseSearchRequestBody(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseSearchRequestBody: %v", err)
	}

	if want := (Tokens{"-50.5", "-20", "-40", "-10"}); !reflect.DeepEqual(req.BBox, want) {
		t.Errorf("bbox = %v, want %v", req.BBox, want)
	}
	if want := []any{"2020-01-01", ".."}; !reflect.DeepEqual(req.TimeExpression(), want) {
		t.Errorf("time = %#v", req.TimeExpression())
	}
	if want := (StringList{"a1", "a2"}); !reflect.DeepEqual(req.IDs, want) {
		t.Errorf("ids = %v, want %v", req.IDs, want)
	}
	if req.Limit == nil || *req.Limit != 0 {
		t.Errorf("limit = %v, want explicit 0", req.Limit)
	}
	if req.Page != nil {
		t.Errorf("page = %v, want nil", *req.Page)
	}
	if req.Query["sensor"]["eq"] != "MUX" {
		t.Errorf("query = %v", req.Query)
	}
}

func TestBBoxKeepsEmptyTokens(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Tokens
	}{
		{"doubled comma", "bbox=1,,2,3,4", Tokens{"1", "", "2", "3", "4"}},
		{"trailing comma", "bbox=1,2,3,4,", Tokens{"1", "2", "3", "4", ""}},
		{"leading comma", "bbox=,1,2,3,4", Tokens{"", "1", "2", "3", "4"}},
		{"empty value", "bbox=", Tokens{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseSearchRequest(httptest.NewRequest("GET", "/search?"+tt.query, nil))
			if err != nil {
				t.Fatalf("ParseSearchRequest: %v", err)
			}
			if !reflect.DeepEqual(req.BBox, tt.want) {
				t.Errorf("bbox = %q, want %q", req.BBox, tt.want)
			}
		})
	}
}

func TestBBoxKeepsEmptyTokens_Body(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Tokens
	}{
		{"empty array element", `{"bbox": [1, "", 2, 3, 4]}`, Tokens{"1", "", "2", "3", "4"}},
		{"string with doubled comma", `{"bbox": "1,,2,3"}`, Tokens{"1", "", "2", "3"}},
		{"empty array", `{"bbox": []}`, Tokens{}},
		{"null", `{"bbox": null}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseSearchRequestBody(strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("ParseSearchRequestBody: %v", err)
			}
			if !reflect.DeepEqual(req.BBox, tt.want) {
				t.Errorf("bbox = %#v, want %#v", req.BBox, tt.want)
			}
		})
	}
}

func TestStringListDropsEmptyEntries(t *testing.T) {
	var l StringList
	if err := json.Unmarshal([]byte(`["a", "", " b "]`), &l); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if want := (StringList{"a", "b"}); !reflect.DeepEqual(l, want) {
		t.Errorf("list = %q, want %q", l, want)
	}
}

func TestParseSearchRequestBody_Empty(t *testing.T) {
	req, err := ParseSearchRequestBody(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseSearchRequestBody: %v", err)
	}
	if req.TimeExpression() != nil || len(req.IDs) != 0 {
		t.Errorf("expected empty request, got %+v", req)
	}
}

func TestParseSearchRequestBody_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"bbox": `},
		{"object bbox", `{"bbox": {"minx": 1}}`},
		{"page zero", `{"page": 0}`},
		{"negative limit", `{"limit": -3}`},
		{"bad sort direction", `{"sortby": [{"field": "datetime", "direction": "up"}]}`},
		{"missing sort field", `{"sortby": [{"direction": "asc"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSearchRequestBody(strings.NewReader(tt.body))
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestStringList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want StringList
	}{
		{`"a, b,,c"`, StringList{"a", "b", "c"}},
		{`["a", "", " b "]`, StringList{"a", "b"}},
		{`[1, 2.5, -3]`, StringList{"1", "2.5", "-3"}},
		{`null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got StringList
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToQueryParams(t *testing.T) {
	limit := 20
	req := &SearchRequest{
		BBox:        Tokens{"-50", "-20", "-40", "-10"},
		DateTime:    []any{"2020-01-01", "2020-02-01"},
		Collections: StringList{"A", "B"},
		Limit:       &limit,
		Query:       map[string]map[string]any{"cloud_cover": {"lt": 10}},
		Sortby:      []SortbyItem{{Field: "datetime", Direction: "desc"}},
	}

	params := req.ToQueryParams()
	want := map[string]string{
		"bbox":        "-50,-20,-40,-10",
		"time":        "2020-01-01/2020-02-01",
		"collections": "A,B",
		"limit":       "20",
		"query":       `{"cloud_cover":{"lt":10}}`,
		"sortby":      "-datetime",
	}
	for key, value := range want {
		if got := params.Get(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
	if params.Has("page") {
		t.Errorf("page should be left to the link builder")
	}

	// The params parse back into an equivalent request
	r := httptest.NewRequest("GET", "/search?"+params.Encode(), nil)
	back, err := ParseSearchRequest(r)
	if err != nil {
		t.Fatalf("ParseSearchRequest: %v", err)
	}
	if !reflect.DeepEqual(back.Collections, req.Collections) || *back.Limit != limit {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
