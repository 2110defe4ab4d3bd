// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for mp-export.
package types

import "strings"

// Record is one material entry as returned by the Materials Project API:
// property name to value. Values are json.Number, string, bool, nil,
// map[string]any or []any after decoding. A Record is never modified
// after it is received.
type Record map[string]any

// Lookup returns the value stored under path. The legacy API returns
// dotted property names ("spacegroup.number") as flat keys, so the flat
// key is tried first; otherwise the path is walked through nested maps.
// ok is false when the property is absent; a present null yields (nil, true).
func (r Record) Lookup(path string) (any, bool) {
	if v, ok := r[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, p := range parts {
		m, isMap := asMap(cur)
		if !isMap {
			return nil, false
		}
		v, ok := m[p]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// String returns the value at path if it is a string.
func (r Record) String(path string) string {
	v, _ := r.Lookup(path)
	s, _ := v.(string)
	return s
}

// Describe identifies the record in error messages.
func (r Record) Describe() string {
	id := r.String("task_id")
	formula := r.String("pretty_formula")
	switch {
	case id != "" && formula != "":
		return id + " (" + formula + ")"
	case id != "":
		return id
	case formula != "":
		return formula
	default:
		return "<unidentified record>"
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	default:
		return nil, false
	}
}
