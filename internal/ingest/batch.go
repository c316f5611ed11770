// Package ingest validates raw candidate records from an untrusted
// collaborator and merges the accepted ones into a graph.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Batch is a set of raw candidate records. Each record is untyped key/value
// data whose schema is not guaranteed.
type Batch struct {
	Nodes []map[string]any
	Edges []map[string]any
}

// Len returns the number of raw records.
func (b Batch) Len() int {
	return len(b.Nodes) + len(b.Edges)
}

// BatchFromMap pulls records out of a decoded payload. Both the
// {nodes, edges} and the {new_nodes, new_edges} spellings are read. Entries
// that are not objects are kept as empty records so they are counted as
// skipped.
func BatchFromMap(m map[string]any) Batch {
	var b Batch
	for _, key := range []string{"nodes", "new_nodes"} {
		b.Nodes = append(b.Nodes, records(m[key])...)
	}
	for _, key := range []string{"edges", "new_edges"} {
		b.Edges = append(b.Edges, records(m[key])...)
	}
	return b
}

func records(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		rec, _ := it.(map[string]any)
		out = append(out, rec)
	}
	return out
}

func stringFromAny(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// floatFromAny reports false when v is absent, not numeric, or not finite
// ("NaN" and "Inf" parse as floats but cannot be serialized).
func floatFromAny(v any) (float64, bool) {
	f, ok := 0.0, false
	switch t := v.(type) {
	case float64:
		f, ok = t, true
	case float32:
		f, ok = float64(t), true
	case int:
		f, ok = float64(t), true
	case int64:
		f, ok = float64(t), true
	case json.Number:
		if n, err := t.Float64(); err == nil {
			f, ok = n, true
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				f, ok = n, true
			}
		}
	}
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringSliceFromAny(v any) []string {
	if v == nil {
		return nil
	}
	if ss, ok := v.([]string); ok {
		out := make([]string, 0, len(ss))
		for _, s := range ss {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	arr, ok := v.([]any)
	if !ok {
		if s := stringFromAny(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		if s := stringFromAny(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
