package stripemock

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// decodeForm turns Stripe-style form values (metadata[key]=v,
// items[0][plan]=gold, expand[]=customer) into a nested document.
func decodeForm(values url.Values) (map[string]any, error) {
	root := map[string]any{}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		for _, v := range values[key] {
			if err := assign(root, path, v); err != nil {
				return nil, fmt.Errorf("%w: param %q: %v", ErrInvalidRequest, key, err)
			}
		}
	}
	for k, v := range root {
		root[k] = listify(k, v)
	}
	return root, nil
}

func splitKey(key string) ([]string, error) {
	i := strings.IndexByte(key, '[')
	if i < 0 {
		return []string{key}, nil
	}
	path := []string{key[:i]}
	rest := key[i:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, fmt.Errorf("%w: malformed param %q", ErrInvalidRequest, key)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: malformed param %q", ErrInvalidRequest, key)
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path, nil
}

// assign stores v at path. Empty segments ("[]") append to a list, which is
// represented as a map keyed by position until listify runs.
func assign(node map[string]any, path []string, v string) error {
	last := len(path) - 1
	for _, seg := range path[:last] {
		if seg == "" {
			seg = strconv.Itoa(len(node))
		}
		child, ok := node[seg].(map[string]any)
		if !ok {
			if _, exists := node[seg]; exists {
				return fmt.Errorf("conflicting value for %q", seg)
			}
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	key := path[last]
	if key == "" {
		key = strconv.Itoa(len(node))
	}
	if _, ok := node[key].(map[string]any); ok {
		return fmt.Errorf("conflicting value for %q", key)
	}
	node[key] = v
	return nil
}

// listify converts maps whose keys are exactly 0..n-1 into slices. Metadata
// keys are user data and stay a map whatever they look like.
func listify(name string, v any) any {
	m, ok := v.(map[string]any)
	if !ok || name == "metadata" {
		return v
	}
	for k, e := range m {
		m[k] = listify(k, e)
	}
	if len(m) == 0 {
		return m
	}
	list := make([]any, len(m))
	for k, e := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) {
			return m
		}
		list[i] = e
	}
	return list
}

// coerce converts form strings to the type of the matching value in the
// template document, so that "2000" becomes a number where the resource
// holds a number. Values without a typed counterpart stay strings.
func coerce(template, v any) any {
	switch t := v.(type) {
	case map[string]any:
		tm, _ := template.(map[string]any)
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = coerce(tm[k], e)
		}
		return out
	case []any:
		tl, _ := template.([]any)
		out := make([]any, len(t))
		for i, e := range t {
			var te any
			if i < len(tl) {
				te = tl[i]
			} else if len(tl) > 0 {
				te = tl[0]
			}
			out[i] = coerce(te, e)
		}
		return out
	case string:
		switch template.(type) {
		case float64:
			if n, err := strconv.ParseFloat(t, 64); err == nil {
				return n
			}
		case bool:
			if b, err := strconv.ParseBool(t); err == nil {
				return b
			}
		}
		if t == "" {
			return nil
		}
		return t
	default:
		return v
	}
}
