package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/model"
)

func build(t *testing.T, nodes map[string]model.Level, ids []string, edges [][3]string) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, id := range ids {
		require.True(t, g.AddConcept(model.Concept{ID: id, Name: id, Type: model.TypeTheory, Level: nodes[id]}))
	}
	for _, e := range edges {
		rt, err := model.ParseRelationshipType(e[2])
		require.NoError(t, err)
		require.NoError(t, g.AddRelationship(model.Relationship{Source: e[0], Target: e[1], Type: rt, Weight: 1}))
	}
	return g
}

func index(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

func TestOrderRespectsPrerequisites(t *testing.T) {
	levels := map[string]model.Level{
		"tokenizer": model.LevelFoundational,
		"embedding": model.LevelFoundational,
		"attention": model.LevelFoundational,
		"bert":      model.LevelIntermediate,
		"gpt":       model.LevelIntermediate,
		"flash":     model.LevelAdvanced,
	}
	// Inserted in reverse dependency order so insertion order alone is wrong.
	ids := []string{"flash", "gpt", "bert", "attention", "embedding", "tokenizer"}
	edges := [][3]string{
		{"attention", "flash", "requires"},
		{"attention", "bert", "builds_on"},
		{"attention", "gpt", "builds_on"},
		{"embedding", "attention", "requires"},
		{"tokenizer", "embedding", "requires"},
		{"gpt", "bert", "alternative_to"},
		{"bert", "gpt", "alternative_to"},
	}
	g := build(t, levels, ids, edges)

	res := Engine{}.Order(g)
	require.False(t, res.Cyclic)
	require.Len(t, res.IDs, len(ids))

	pos := index(res.IDs)
	for _, r := range g.Relationships() {
		if r.Type == model.RelRequires || r.Type == model.RelBuildsOn {
			assert.Less(t, pos[r.Source], pos[r.Target], "%s before %s", r.Source, r.Target)
		}
	}
}

func TestOrderTiesFollowInsertion(t *testing.T) {
	levels := map[string]model.Level{"z": model.LevelFrontier, "a": model.LevelFoundational, "m": model.LevelAdvanced}
	g := build(t, levels, []string{"z", "a", "m"}, nil)
	assert.Equal(t, []string{"z", "a", "m"}, Order(g))
}

func TestOrderTwoNodeCycleFallsBack(t *testing.T) {
	levels := map[string]model.Level{
		"a":    model.LevelIntermediate,
		"b":    model.LevelIntermediate,
		"root": model.LevelFrontier,
		"base": model.LevelFoundational,
	}
	edges := [][3]string{
		{"a", "b", "requires"},
		{"b", "a", "requires"},
		{"root", "base", "requires"},
	}
	g := build(t, levels, []string{"root", "b", "a", "base"}, edges)

	res := Engine{}.Order(g)
	assert.True(t, res.Cyclic)
	// The fallback covers every node, not just the cycle.
	assert.Equal(t, []string{"base", "a", "b", "root"}, res.IDs)
	assert.Equal(t, Fallback(g), res.IDs)
}

func TestOrderSelfLoopIsCycle(t *testing.T) {
	levels := map[string]model.Level{"a": model.LevelAdvanced, "b": model.LevelFoundational}
	g := build(t, levels, []string{"a", "b"}, [][3]string{{"a", "a", "builds_on"}})

	res := Engine{}.Order(g)
	assert.True(t, res.Cyclic)
	assert.Equal(t, []string{"b", "a"}, res.IDs)
}

func TestOrderIgnoresOtherRelationshipCycles(t *testing.T) {
	levels := map[string]model.Level{"a": model.LevelAdvanced, "b": model.LevelFoundational}
	g := build(t, levels, []string{"a", "b"}, [][3]string{
		{"a", "b", "evolves_to"},
		{"b", "a", "variant_of"},
	})
	res := Engine{}.Order(g)
	assert.False(t, res.Cyclic)
	assert.Equal(t, []string{"a", "b"}, res.IDs)
}

func TestOrderCustomPrerequisites(t *testing.T) {
	levels := map[string]model.Level{"a": model.LevelFoundational, "b": model.LevelFoundational}
	g := build(t, levels, []string{"b", "a"}, [][3]string{{"a", "b", "enables"}})

	assert.Equal(t, []string{"b", "a"}, Order(g))
	res := Engine{Prerequisites: []model.RelationshipType{model.RelEnables}}.Order(g)
	assert.Equal(t, []string{"a", "b"}, res.IDs)
}

func TestOrderDuplicateEdges(t *testing.T) {
	levels := map[string]model.Level{"a": model.LevelFoundational, "b": model.LevelFoundational}
	g := build(t, levels, []string{"b", "a"}, [][3]string{
		{"a", "b", "requires"},
		{"a", "b", "requires"},
		{"a", "b", "builds_on"},
	})
	res := Engine{}.Order(g)
	assert.False(t, res.Cyclic)
	assert.Equal(t, []string{"a", "b"}, res.IDs)
}

func TestOrderScenario(t *testing.T) {
	levels := map[string]model.Level{"a": model.LevelFoundational, "b": model.LevelIntermediate, "c": model.LevelAdvanced}
	g := build(t, levels, []string{"c", "b", "a"}, [][3]string{
		{"a", "b", "requires"},
		{"b", "c", "requires"},
	})
	assert.Equal(t, []string{"a", "b", "c"}, Order(g))
}

func TestOrderEmptyGraph(t *testing.T) {
	res := Engine{}.Order(graph.New())
	assert.False(t, res.Cyclic)
	assert.Empty(t, res.IDs)
}
