// Package coverage tracks which parts of an extracted protocol document have
// been displayed to a reviewer. A registry is bound to one document snapshot,
// enumerates every addressable path inside it, and records the paths reported
// as rendered so the remainder can be surfaced as a fallback view.
package coverage

import (
	"fmt"
	"reflect"
	"strconv"
)

// maxDepth bounds recursion during enumeration. Deserialized JSON is acyclic,
// so hitting this limit means the caller handed us something that is not.
const maxDepth = 1000

// Enumerate walks a JSON-compatible value and returns the set of every
// addressable path under prefix: object members as ".key", array elements as
// "[i]". Containers at depth >= 1 appear as paths themselves in addition to
// their descendants. The root (empty prefix) is never included.
//
// The value must be shaped like deserialized JSON: map[string]any, []any,
// string, number, bool or nil. Anything else fails before any path is
// reported.
func Enumerate(node any, prefix string) (map[string]struct{}, error) {
	paths := make(map[string]struct{})
	if err := enumerateInto(node, prefix, 0, paths); err != nil {
		return nil, err
	}
	return paths, nil
}

func enumerateInto(node any, prefix string, depth int, paths map[string]struct{}) error {
	if depth > maxDepth {
		return fmt.Errorf("document nesting exceeds %d levels at %q; input is not acyclic JSON", maxDepth, prefix)
	}
	if node == nil {
		if prefix != "" {
			paths[prefix] = struct{}{}
		}
		return nil
	}

	switch v := node.(type) {
	case map[string]any:
		if prefix != "" {
			paths[prefix] = struct{}{}
		}
		for key, child := range v {
			childPrefix := key
			if prefix != "" {
				childPrefix = prefix + "." + key
			}
			if err := enumerateInto(child, childPrefix, depth+1, paths); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if prefix != "" {
			paths[prefix] = struct{}{}
		}
		for i, child := range v {
			if err := enumerateInto(child, prefix+"["+strconv.Itoa(i)+"]", depth+1, paths); err != nil {
				return err
			}
		}
		return nil
	}

	if !isJSONScalar(node) {
		return fmt.Errorf("value of type %T at %q is not JSON-compatible", node, prefix)
	}
	if prefix != "" {
		paths[prefix] = struct{}{}
	}
	return nil
}

func isJSONScalar(node any) bool {
	switch reflect.ValueOf(node).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// isDescendant reports whether path sits strictly below parent, i.e. parent
// followed immediately by a member or index accessor.
func isDescendant(path, parent string) bool {
	if len(path) <= len(parent) || path[:len(parent)] != parent {
		return false
	}
	return path[len(parent)] == '.' || path[len(parent)] == '['
}

// topSegment returns the leading path segment: the text before the first '.'
// or '['. For array-rooted paths like "[2].name" the segment is "[2]".
func topSegment(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '[' {
		for i := 1; i < len(path); i++ {
			if path[i] == ']' {
				return path[:i+1]
			}
		}
		return path
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '.' || path[i] == '[' {
			return path[:i]
		}
	}
	return path
}
