package coverage

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Stats summarizes coverage of the bound document.
type Stats struct {
	Total      int `json:"total"`
	Rendered   int `json:"rendered"`
	Percentage int `json:"percentage"`
}

// Registry tracks rendered paths against the full path set of one document
// snapshot. All operations run synchronously; a mutex makes the registry safe
// to share between request handlers.
type Registry struct {
	mu          sync.Mutex
	document    any
	allPaths    map[string]struct{}
	rendered    map[string]struct{}
	subscribers []func()
}

// New binds a registry to a document snapshot. Enumeration failures (non-JSON
// values, runaway nesting) are returned before any registry state exists.
func New(document any) (*Registry, error) {
	paths, err := Enumerate(document, "")
	if err != nil {
		return nil, err
	}
	return &Registry{
		document: document,
		allPaths: paths,
		rendered: make(map[string]struct{}),
	}, nil
}

// Rebind replaces the document snapshot: the path set is recomputed from
// scratch and all rendered marks are cleared. On enumeration failure the
// previous binding is kept untouched.
func (r *Registry) Rebind(document any) error {
	if r == nil {
		return nil
	}
	paths, err := Enumerate(document, "")
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.document = document
	r.allPaths = paths
	r.rendered = make(map[string]struct{})
	subs := append([]func(){}, r.subscribers...)
	r.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return nil
}

// Subscribe registers fn to run after every state-changing mutation. Callbacks
// run synchronously on the mutating goroutine, outside the registry lock.
func (r *Registry) Subscribe(fn func()) {
	if r == nil || fn == nil {
		return
	}
	r.mu.Lock()
	r.subscribers = append(r.subscribers, fn)
	r.mu.Unlock()
}

// MarkRendered records the given paths and, for each, every path in the
// document that sits below it. Unknown paths are accepted silently; they only
// matter for descendant matching. Returns whether any state changed, and
// notifies subscribers exactly once when it did, however many paths were
// passed.
func (r *Registry) MarkRendered(paths ...string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	changed := false
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := r.rendered[p]; ok {
			continue
		}
		r.rendered[p] = struct{}{}
		changed = true
		for candidate := range r.allPaths {
			if isDescendant(candidate, p) {
				r.rendered[candidate] = struct{}{}
			}
		}
	}
	var subs []func()
	if changed {
		subs = append([]func(){}, r.subscribers...)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return changed
}

// UnrenderedPaths returns every document path not covered by the rendered set,
// sorted so repeated calls are comparable.
func (r *Registry) UnrenderedPaths() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	out := make([]string, 0, len(r.allPaths))
	for p := range r.allPaths {
		if _, ok := r.rendered[p]; !ok {
			out = append(out, p)
		}
	}
	r.mu.Unlock()
	sort.Strings(out)
	return out
}

// UnrenderedData maps each top-level section that still has unrendered paths
// to its value in the bound document. Granularity is deliberately coarse: a
// single unrendered leaf pulls in its whole top-level section, which keeps the
// fallback display trivial to build.
func (r *Registry) UnrenderedData() map[string]any {
	if r == nil {
		return map[string]any{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	sections := make(map[string]struct{})
	for p := range r.allPaths {
		if _, ok := r.rendered[p]; ok {
			continue
		}
		if seg := topSegment(p); seg != "" {
			sections[seg] = struct{}{}
		}
	}

	out := make(map[string]any, len(sections))
	for seg := range sections {
		if v, ok := r.lookupTopLevel(seg); ok {
			out[seg] = v
		}
	}
	return out
}

// lookupTopLevel resolves a top segment against the bound document. Callers
// hold r.mu.
func (r *Registry) lookupTopLevel(seg string) (any, bool) {
	switch doc := r.document.(type) {
	case map[string]any:
		v, ok := doc[seg]
		return v, ok
	case []any:
		if len(seg) < 3 || seg[0] != '[' || seg[len(seg)-1] != ']' {
			return nil, false
		}
		i, err := strconv.Atoi(seg[1 : len(seg)-1])
		if err != nil || i < 0 || i >= len(doc) {
			return nil, false
		}
		return doc[i], true
	}
	return nil, false
}

// Stats reports totals over the bound document. Marks that do not correspond
// to a real document path are ignored by the rendered count. An empty document
// counts as fully covered.
func (r *Registry) Stats() Stats {
	if r == nil {
		return Stats{Percentage: 100}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(r.allPaths)
	rendered := 0
	for p := range r.rendered {
		if _, ok := r.allPaths[p]; ok {
			rendered++
		}
	}
	percentage := 100
	if total > 0 {
		percentage = int(math.Round(float64(rendered) * 100 / float64(total)))
	}
	return Stats{Total: total, Rendered: rendered, Percentage: percentage}
}
