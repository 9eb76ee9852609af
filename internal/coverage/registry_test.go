package coverage

import (
	"reflect"
	"testing"
)

func exampleDoc() map[string]any {
	return map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": []any{2, 3},
		},
	}
}

func mustRegistry(t *testing.T, doc any) *Registry {
	t.Helper()
	r, err := New(doc)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func TestMarkRendered_DescendantClosure(t *testing.T) {
	r := mustRegistry(t, exampleDoc())

	if changed := r.MarkRendered("a"); !changed {
		t.Fatal("expected first mark to change state")
	}
	stats := r.Stats()
	if stats.Rendered != 5 || stats.Percentage != 100 {
		t.Fatalf("expected full coverage after marking container, got %+v", stats)
	}
	if got := r.UnrenderedPaths(); len(got) != 0 {
		t.Fatalf("expected no unrendered paths, got %v", got)
	}
}

func TestMarkRendered_Idempotent(t *testing.T) {
	r := mustRegistry(t, exampleDoc())

	r.MarkRendered("a.b")
	first := r.Stats()
	if changed := r.MarkRendered("a.b"); changed {
		t.Fatal("second identical mark must be a no-op")
	}
	if second := r.Stats(); second != first {
		t.Fatalf("stats drifted on repeat mark: %+v vs %+v", first, second)
	}
}

func TestMarkRendered_Commutative(t *testing.T) {
	left := mustRegistry(t, exampleDoc())
	right := mustRegistry(t, exampleDoc())
	merged := mustRegistry(t, exampleDoc())

	left.MarkRendered("a.b")
	left.MarkRendered("a.c")
	right.MarkRendered("a.c")
	right.MarkRendered("a.b")
	merged.MarkRendered("a.b", "a.c")

	l, rr, m := left.UnrenderedPaths(), right.UnrenderedPaths(), merged.UnrenderedPaths()
	if !reflect.DeepEqual(l, rr) || !reflect.DeepEqual(l, m) {
		t.Fatalf("mark order changed outcome: %v vs %v vs %v", l, rr, m)
	}
	if left.Stats() != right.Stats() || left.Stats() != merged.Stats() {
		t.Fatalf("stats differ across orders")
	}
}

func TestMarkRendered_UnknownPathIsSilent(t *testing.T) {
	r := mustRegistry(t, exampleDoc())

	if changed := r.MarkRendered("no.such.path"); !changed {
		t.Fatal("unknown path should still be recorded for prefix matching")
	}
	stats := r.Stats()
	if stats.Rendered != 0 {
		t.Fatalf("unknown path must not inflate rendered count, got %+v", stats)
	}
}

func TestMarkRendered_Monotonic(t *testing.T) {
	r := mustRegistry(t, exampleDoc())

	prev := 0
	for _, p := range []string{"a.c[1]", "a.b", "bogus", "a.c", "a"} {
		r.MarkRendered(p)
		cur := r.Stats().Rendered
		if cur < prev {
			t.Fatalf("rendered count decreased after marking %q: %d -> %d", p, prev, cur)
		}
		prev = cur
	}
}

func TestMarkRendered_NotifiesOncePerChangingCall(t *testing.T) {
	r := mustRegistry(t, exampleDoc())

	calls := 0
	r.Subscribe(func() { calls++ })

	r.MarkRendered("a.b", "a.c[0]", "a.c[1]")
	if calls != 1 {
		t.Fatalf("expected one notification for a batched mark, got %d", calls)
	}
	r.MarkRendered("a.b")
	if calls != 1 {
		t.Fatalf("no-op mark must not notify, got %d calls", calls)
	}
	r.MarkRendered("a")
	if calls != 2 {
		t.Fatalf("expected second notification, got %d", calls)
	}
}

func TestUnrenderedPaths_Complement(t *testing.T) {
	r := mustRegistry(t, exampleDoc())

	r.MarkRendered("a.c")
	got := r.UnrenderedPaths()
	want := []string{"a", "a.b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUnrenderedData_TopLevelGranularity(t *testing.T) {
	doc := map[string]any{
		"study":    map[string]any{"name": "TRIAL-001", "phase": "III"},
		"sites":    []any{"site-a"},
		"sponsor":  "Acme Clinical",
		"versions": []any{1.0},
	}
	r := mustRegistry(t, doc)
	r.MarkRendered("study", "versions")

	data := r.UnrenderedData()
	if len(data) != 2 {
		t.Fatalf("expected two unrendered sections, got %v", data)
	}
	if _, ok := data["sites"]; !ok {
		t.Errorf("expected sites section in fallback data")
	}
	if data["sponsor"] != "Acme Clinical" {
		t.Errorf("expected original value for sponsor, got %v", data["sponsor"])
	}

	r.MarkRendered("sites", "sponsor")
	if data := r.UnrenderedData(); len(data) != 0 {
		t.Fatalf("expected empty fallback at full coverage, got %v", data)
	}
}

func TestUnrenderedData_PartiallyRenderedSectionStaysWhole(t *testing.T) {
	r := mustRegistry(t, exampleDoc())

	// One leaf of "a" remains; the whole section is reported.
	r.MarkRendered("a.b", "a.c[0]")
	data := r.UnrenderedData()
	if len(data) != 1 {
		t.Fatalf("expected one section, got %v", data)
	}
	if _, ok := data["a"]; !ok {
		t.Fatalf("expected section a, got %v", data)
	}
}

func TestUnrenderedData_ArrayRootDocument(t *testing.T) {
	r := mustRegistry(t, []any{"first", "second"})

	r.MarkRendered("[0]")
	data := r.UnrenderedData()
	if len(data) != 1 || data["[1]"] != "second" {
		t.Fatalf("expected [1] section, got %v", data)
	}
}

func TestStats_EmptyDocuments(t *testing.T) {
	for _, doc := range []any{nil, map[string]any{}, []any{}} {
		r := mustRegistry(t, doc)
		stats := r.Stats()
		if stats.Total != 0 || stats.Rendered != 0 || stats.Percentage != 100 {
			t.Errorf("empty document %v: expected {0 0 100}, got %+v", doc, stats)
		}
		if got := r.UnrenderedPaths(); len(got) != 0 {
			t.Errorf("empty document %v: expected no unrendered paths, got %v", doc, got)
		}
	}
}

func TestStats_Rounding(t *testing.T) {
	// Three paths: a, a.b, a.x. Marking one leaf covers 1/3 -> 33%.
	doc := map[string]any{"a": map[string]any{"b": 1, "x": 2}}
	r := mustRegistry(t, doc)
	r.MarkRendered("a.b")
	if stats := r.Stats(); stats.Percentage != 33 {
		t.Fatalf("expected 33%%, got %+v", stats)
	}
	r.MarkRendered("a.x")
	if stats := r.Stats(); stats.Percentage != 67 {
		t.Fatalf("expected 67%% after two of three, got %+v", stats)
	}
}

func TestRebind_ResetsState(t *testing.T) {
	r := mustRegistry(t, exampleDoc())
	r.MarkRendered("a")
	if r.Stats().Percentage != 100 {
		t.Fatal("precondition: fully covered")
	}

	next := map[string]any{"b": []any{true}}
	if err := r.Rebind(next); err != nil {
		t.Fatalf("rebind failed: %v", err)
	}
	stats := r.Stats()
	if stats.Rendered != 0 {
		t.Fatalf("rebind must clear rendered marks, got %+v", stats)
	}
	if stats.Total != 2 {
		t.Fatalf("expected recomputed total 2, got %+v", stats)
	}
}

func TestRebind_FailureKeepsBinding(t *testing.T) {
	r := mustRegistry(t, exampleDoc())
	r.MarkRendered("a.b")
	before := r.Stats()

	if err := r.Rebind(map[string]any{"bad": func() {}}); err == nil {
		t.Fatal("expected rebind error for non-JSON document")
	}
	if after := r.Stats(); after != before {
		t.Fatalf("failed rebind must not touch state: %+v vs %+v", before, after)
	}
}

func TestNew_RejectsBadDocument(t *testing.T) {
	if _, err := New(map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected error for non-JSON document")
	}
}
