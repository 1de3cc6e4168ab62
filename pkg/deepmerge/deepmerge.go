// Package deepmerge combines JSON-like documents.
//
// Documents use the value model produced by encoding/json when decoding into
// an interface: map[string]any, []any, float64, string, bool and nil. The
// merge is schema agnostic, so it works for any fixture payload.
package deepmerge

import (
	"encoding/json"
	"fmt"
)

// Merge returns a new document with overrides applied on top of base. Neither
// input is modified and the result shares no maps or slices with them.
//
// Nested maps merge key by key. When both values are sequences of maps they
// merge by position: override element i merges into base element i, extra
// override elements are appended and trailing base elements are kept. Any
// other override value replaces the base value.
func Merge(base, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		out[k] = Clone(v)
	}
	for k, v := range overrides {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

func mergeValue(base, override any) any {
	switch o := override.(type) {
	case map[string]any:
		if b, ok := base.(map[string]any); ok {
			return Merge(b, o)
		}
	case []any:
		if b, ok := base.([]any); ok && allMaps(b) && allMaps(o) {
			return mergeSlices(b, o)
		}
	}
	return Clone(override)
}

func mergeSlices(base, overrides []any) []any {
	n := max(len(base), len(overrides))
	out := make([]any, n)
	for i := range n {
		switch {
		case i >= len(overrides):
			out[i] = Clone(base[i])
		case i >= len(base):
			out[i] = Clone(overrides[i])
		default:
			out[i] = Merge(base[i].(map[string]any), overrides[i].(map[string]any))
		}
	}
	return out
}

func allMaps(s []any) bool {
	for _, v := range s {
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of v. Maps and slices are copied recursively,
// everything else is returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// Normalize converts an arbitrary Go value (structs, typed maps and slices,
// integers) into the JSON value model by round-tripping it through
// encoding/json.
func Normalize(v any) (any, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var out any
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// NormalizeMap is Normalize for documents that must decode to a map. A nil
// input yields an empty map.
func NormalizeMap(v map[string]any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	m, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("normalize: expected an object, got %T", n)
	}
	return m, nil
}
