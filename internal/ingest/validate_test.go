package ingest

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/logger"
	"github.com/rcliao/kg-course/internal/model"
	"github.com/rcliao/kg-course/internal/observability"
)

func node(id, name string, kv ...any) map[string]any {
	m := map[string]any{"id": id, "name": name}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func edge(src, dst, rel string) map[string]any {
	return map[string]any{"source": src, "target": dst, "relationship": rel}
}

func seeded(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	require.True(t, g.AddConcept(model.Concept{ID: "attention", Name: "Attention", Type: model.TypeTheory, Level: model.LevelFoundational, Confidence: 1}))
	return g
}

func TestValidateDefaults(t *testing.T) {
	g := graph.New()
	res := Validator{}.Validate(g, Batch{Nodes: []map[string]any{
		node("rope", "RoPE"),
		node("gqa", "GQA", "type", "Optimization", "level", " advanced ", "key_ideas", []any{"share kv", " ", "fewer heads"}),
	}}, Extraction)

	require.Len(t, res.Nodes, 2)
	assert.Equal(t, model.TypeTheory, res.Nodes[0].Type)
	assert.Equal(t, model.LevelIntermediate, res.Nodes[0].Level)
	assert.Equal(t, 1.0, res.Nodes[0].Confidence)

	assert.Equal(t, model.TypeOptimization, res.Nodes[1].Type)
	assert.Equal(t, model.LevelAdvanced, res.Nodes[1].Level)
	assert.Equal(t, []string{"share kv", "fewer heads"}, res.Nodes[1].KeyIdeas)

	// Validation does not touch the graph.
	assert.Equal(t, 0, g.Len())
}

func TestValidateConfidenceByProvenance(t *testing.T) {
	g := graph.New()
	b := Batch{Nodes: []map[string]any{
		node("a", "A"),
		node("b", "B", "confidence", 1.7),
		node("c", "C", "confidence", "0.25"),
		node("d", "D", "confidence", -3),
	}}
	res := Validator{}.Validate(g, b, Expansion)
	require.Len(t, res.Nodes, 4)
	assert.Equal(t, 0.8, res.Nodes[0].Confidence)
	assert.Equal(t, 1.0, res.Nodes[1].Confidence)
	assert.Equal(t, 0.25, res.Nodes[2].Confidence)
	assert.Equal(t, 0.0, res.Nodes[3].Confidence)
}

func TestValidateSkipsMalformedNodes(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	v := Validator{Log: logger.FromZap(zap.New(core))}

	res := v.Validate(graph.New(), Batch{Nodes: []map[string]any{
		node("", "No id"),
		{"id": "noname"},
		node("bad_level", "Bad", "level", "expert"),
		node("bad_type", "Bad", "type", "vibes"),
		nil,
		node("ok", "OK"),
	}}, Extraction)

	require.Len(t, res.Nodes, 1)
	assert.Equal(t, "ok", res.Nodes[0].ID)
	assert.Equal(t, 5, res.SkippedNodes)
	assert.Equal(t, 5, logs.FilterMessage("skip candidate node").Len())
	assert.Equal(t, "bad_level", logs.All()[2].ContextMap()["id"])
}

func TestValidateDuplicatesFirstWins(t *testing.T) {
	g := seeded(t)
	res := Validator{}.Validate(g, Batch{Nodes: []map[string]any{
		node("attention", "Attention again"),
		node("mqa", "MQA"),
		node("mqa", "MQA second"),
	}}, Expansion)

	require.Len(t, res.Nodes, 1)
	assert.Equal(t, "MQA", res.Nodes[0].Name)
	assert.Equal(t, 2, res.SkippedNodes)
}

func TestValidateEdgeEndpoints(t *testing.T) {
	g := seeded(t)
	b := Batch{
		Nodes: []map[string]any{
			node("mha", "Multi-head attention"),
			node("broken", "Broken", "level", "nope"),
		},
		// One valid edge, two dangling ones, three malformed ones.
		Edges: []map[string]any{
			edge("attention", "mha", "requires"),
			edge("mha", "ghost", "builds_on"),
			edge("attention", "broken", "requires"),
			edge("attention", "mha", "cites"),
			{"source": "attention", "target": "mha"},
			nil,
		},
	}
	res := Validator{}.Validate(g, b, Expansion)

	require.Len(t, res.Edges, 1)
	assert.Equal(t, model.RelRequires, res.Edges[0].Type)
	assert.Equal(t, 1.0, res.Edges[0].Weight)
	assert.Equal(t, 2, res.DroppedEdges)
	assert.Equal(t, 3, res.SkippedEdges)
	assert.Equal(t, 1, res.SkippedNodes)
	assert.Equal(t, 6, res.Skipped())
}

func TestIngestMergesAndRecordsMetrics(t *testing.T) {
	g := seeded(t)
	m := observability.NewCollector("test")
	v := Validator{Metrics: m}

	e := edge("attention", "ffn", "component_of")
	e["weight"] = 0.5
	res := v.Ingest(g, Batch{
		Nodes: []map[string]any{node("ffn", "Feed-forward", "type", "component")},
		Edges: []map[string]any{e, edge("ffn", "nowhere", "requires")},
	}, Extraction)

	assert.False(t, res.Empty())
	assert.Equal(t, 2, g.Len())
	require.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 0.5, g.Relationships()[0].Weight)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodesAccepted.WithLabelValues("extraction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EdgesDropped.WithLabelValues("extraction")))
}

func TestEmptyResult(t *testing.T) {
	res := Validator{}.Validate(graph.New(), Batch{Edges: []map[string]any{edge("a", "b", "requires")}}, Expansion)
	assert.True(t, res.Empty())
	assert.Equal(t, 1, res.DroppedEdges)
}

func TestMergeSkipsStaleRecords(t *testing.T) {
	g := seeded(t)
	res := Result{
		Nodes: []model.Concept{{ID: "attention", Name: "dup"}, {ID: "new", Name: "New"}},
		Edges: []model.Relationship{
			{Source: "attention", Target: "new", Type: model.RelRequires},
			{Source: "new", Target: "gone", Type: model.RelRequires},
		},
	}
	nodes, edges := Merge(g, res)
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 1, edges)
}

func TestBatchFromMap(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"new_nodes": [{"id": "a", "name": "A"}, "junk"],
		"nodes": [{"id": "b", "name": "B"}],
		"new_edges": [{"source": "a", "target": "b", "relationship": "requires"}],
		"edges": "not a list"
	}`), &payload))

	b := BatchFromMap(payload)
	require.Len(t, b.Nodes, 3)
	assert.Equal(t, "b", b.Nodes[0]["id"])
	assert.Nil(t, b.Nodes[2])
	assert.Len(t, b.Edges, 1)
	assert.Equal(t, 4, b.Len())

	res := Validator{}.Validate(graph.New(), b, Expansion)
	assert.Len(t, res.Nodes, 2)
	assert.Len(t, res.Edges, 1)
	assert.Equal(t, 1, res.SkippedNodes)
}

func TestIngestNonFiniteNumbersTakeDefaults(t *testing.T) {
	g := graph.New()
	weighted := func(src, dst string, w any) map[string]any {
		e := edge(src, dst, "requires")
		e["weight"] = w
		return e
	}
	b := Batch{
		Nodes: []map[string]any{
			node("a", "A", "confidence", "NaN"),
			node("b", "B", "confidence", "Inf"),
			node("c", "C", "confidence", "-Infinity"),
		},
		Edges: []map[string]any{
			weighted("a", "b", "Inf"),
			weighted("b", "c", "NaN"),
			weighted("a", "c", math.Inf(-1)),
		},
	}
	res := Validator{}.Ingest(g, b, Expansion)
	require.Len(t, res.Nodes, 3)
	require.Len(t, res.Edges, 3)
	for _, c := range res.Nodes {
		assert.Equal(t, 0.8, c.Confidence, "concept %s", c.ID)
	}
	for _, r := range res.Edges {
		assert.Equal(t, DefaultWeight, r.Weight, "edge %s->%s", r.Source, r.Target)
	}

	_, err := g.Marshal()
	assert.NoError(t, err)
}

func TestFloatFromAnyRejectsNonFinite(t *testing.T) {
	for _, v := range []any{"NaN", "inf", "+Infinity", math.NaN(), math.Inf(1), json.Number("NaN")} {
		_, ok := floatFromAny(v)
		assert.False(t, ok, "%#v", v)
	}
	f, ok := floatFromAny(" 0.5 ")
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)
}
