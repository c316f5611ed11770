package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/kg-course/internal/model"
)

func ids(cs []model.Concept) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestStats(t *testing.T) {
	g := newABC(t)
	g.AddConcept(concept("d", model.LevelFrontier))

	st := g.Stats()
	assert.Equal(t, Stats{Concepts: 4, Edges: 3, Foundational: 1, Intermediate: 1, Advanced: 1, Frontier: 1}, st)
}

func TestRootsAndLeaves(t *testing.T) {
	g := New()
	g.AddConcept(concept("a", model.LevelFoundational))
	g.AddConcept(concept("b", model.LevelIntermediate))
	g.AddConcept(concept("c", model.LevelAdvanced))
	require.NoError(t, g.AddRelationship(rel("a", "b", model.RelRequires)))

	assert.Equal(t, []string{"a", "c"}, ids(g.Roots()))
	assert.Equal(t, []string{"b", "c"}, ids(g.Leaves()))
	assert.Equal(t, []string{"b"}, ids(g.ByLevel(model.LevelIntermediate)))
}

func TestSearch(t *testing.T) {
	g := New()
	c := concept("flash_attention", model.LevelAdvanced)
	c.Name = "FlashAttention"
	c.Description = "IO-aware exact attention"
	g.AddConcept(c)
	g.AddConcept(concept("rope", model.LevelIntermediate))

	assert.Equal(t, []string{"flash_attention"}, ids(g.Search("IO-AWARE", 0)))
	assert.Equal(t, []string{"flash_attention", "rope"}, ids(g.Search("about", 0)))
	assert.Len(t, g.Search("about", 1), 1)
	assert.Empty(t, g.Search("  ", 0))
}

func TestMermaid(t *testing.T) {
	g := newABC(t)
	out := g.Mermaid([]string{"a"}, "b")

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "graph LR", lines[0])
	assert.Equal(t, `    a["a name [done]"]`, lines[1])
	assert.Equal(t, `    b["b name [here]"]`, lines[2])
	assert.Equal(t, "    a -->|requires| b", lines[4])
}
