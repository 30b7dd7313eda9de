package stac

import (
	"encoding/json"
	"strings"
	"testing"

	gostac "github.com/planetlabs/go-stac"
)

func TestNewItemCollection_EmptyFeaturesEncodeAsArray(t *testing.T) {
	ic := NewItemCollection(nil)
	ic.SetContext(1, 10, intPtr(0))

	b, err := json.Marshal(ic)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(b)
	if !strings.Contains(body, `"features":[]`) {
		t.Errorf("features not an empty array: %s", body)
	}
	if !strings.Contains(body, `"context":{"page":1,"limit":10,"matched":0,"returned":0}`) {
		t.Errorf("unexpected context: %s", body)
	}
	if strings.Contains(body, `"meta"`) {
		t.Errorf("meta present for single-collection result: %s", body)
	}
}

func TestSetContext(t *testing.T) {
	ic := NewItemCollection([]*gostac.Item{{Id: "a"}, {Id: "b"}})
	ic.SetContext(3, 2, intPtr(7))

	if ic.Context.Returned != 2 || ic.NumberReturned != 2 {
		t.Errorf("returned = %d / %d, want 2", ic.Context.Returned, ic.NumberReturned)
	}
	if ic.NumberMatched == nil || *ic.NumberMatched != 7 {
		t.Errorf("numberMatched = %v, want 7", ic.NumberMatched)
	}
	if ic.Context.Page != 3 || ic.Context.Limit != 2 {
		t.Errorf("context = %+v", ic.Context)
	}
}

func TestSetCollectionMeta(t *testing.T) {
	ic := NewItemCollection([]*gostac.Item{
		{Id: "a1", Collection: "A"},
		{Id: "a2", Collection: "A"},
		{Id: "c1", Collection: "C"},
	})
	ic.SetCollectionMeta(1, 3, []string{"A", "B", "C"}, []int{5, 0, 1})

	if len(ic.Meta) != 3 {
		t.Fatalf("meta entries = %d, want 3", len(ic.Meta))
	}
	want := []struct {
		name              string
		matched, returned int
	}{{"A", 5, 2}, {"B", 0, 0}, {"C", 1, 1}}
	for i, w := range want {
		m := ic.Meta[i]
		if m.Name != w.name || *m.Context.Matched != w.matched || m.Context.Returned != w.returned {
			t.Errorf("meta[%d] = %s matched=%d returned=%d, want %+v",
				i, m.Name, *m.Context.Matched, m.Context.Returned, w)
		}
		if m.Context.Page != 1 || m.Context.Limit != 3 {
			t.Errorf("meta[%d] context = %+v", i, m.Context)
		}
	}
}
