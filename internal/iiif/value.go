package iiif

import (
	"fmt"
	"sort"
	"strings"
)

// Text collapses the polymorphic IIIF label/value shapes into a plain
// string: bare strings pass through, lists join with "; ", @value objects
// unwrap, and v3 language maps prefer "en", then "none", then the first
// language present.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Text(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if val, ok := t["@value"]; ok {
			return Text(val)
		}
		for _, lang := range []string{"en", "none"} {
			if val, ok := t[lang]; ok {
				return Text(val)
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := Text(t[k]); s != "" {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func mapSlice(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}
