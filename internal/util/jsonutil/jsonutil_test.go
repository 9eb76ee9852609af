package jsonutil

import (
	"strings"
	"testing"
)

func TestUnmarshalFlexDirect(t *testing.T) {
	var v map[string]any
	if err := UnmarshalFlex([]byte(`{"a":1}`), &v); err != nil {
		t.Fatalf("direct decode failed: %v", err)
	}
	if v["a"] != float64(1) {
		t.Fatalf("got %v", v["a"])
	}
}

func TestUnmarshalFlexQuotedDocument(t *testing.T) {
	// A document returned as one big JSON string.
	raw := []byte(`"{\"title\":\"Phase 2 Study\",\"arms\":[\"a\",\"b\"]}"`)
	var v struct {
		Title string   `json:"title"`
		Arms  []string `json:"arms"`
	}
	if err := UnmarshalFlex(raw, &v); err != nil {
		t.Fatalf("quoted decode failed: %v", err)
	}
	if v.Title != "Phase 2 Study" || len(v.Arms) != 2 {
		t.Fatalf("got %+v", v)
	}
}

func TestNormalizeUnescapesUnicode(t *testing.T) {
	raw := []byte(`{"criterion":"age \\u003e= 18"}`)
	out, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !strings.Contains(string(out), "age >= 18") {
		t.Fatalf("escape not resolved: %s", out)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"k": "a<b"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"k":"a<b"}` {
		t.Fatalf("got %s", out)
	}
}
