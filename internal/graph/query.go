package graph

import (
	"strings"

	"github.com/rcliao/kg-course/internal/model"
)

// Stats holds graph counts.
type Stats struct {
	Concepts     int `json:"num_concepts"`
	Edges        int `json:"num_edges"`
	Foundational int `json:"num_foundational"`
	Intermediate int `json:"num_intermediate"`
	Advanced     int `json:"num_advanced"`
	Frontier     int `json:"num_frontier"`
}

// Stats returns node, edge and per-level counts.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := Stats{Concepts: len(g.ids), Edges: len(g.rels)}
	for _, id := range g.ids {
		switch g.concepts[id].Level {
		case model.LevelFoundational:
			st.Foundational++
		case model.LevelIntermediate:
			st.Intermediate++
		case model.LevelAdvanced:
			st.Advanced++
		case model.LevelFrontier:
			st.Frontier++
		}
	}
	return st
}

// ByLevel returns the concepts at level, in insertion order.
func (g *Graph) ByLevel(level model.Level) []model.Concept {
	return g.filter(func(c model.Concept) bool { return c.Level == level })
}

// Roots returns concepts with no incoming edge of any type.
func (g *Graph) Roots() []model.Concept {
	g.mu.RLock()
	in := make(map[string]bool, len(g.in))
	for id, idx := range g.in {
		in[id] = len(idx) > 0
	}
	g.mu.RUnlock()
	return g.filter(func(c model.Concept) bool { return !in[c.ID] })
}

// Leaves returns concepts with no outgoing edge of any type. These are the
// current frontier of the graph.
func (g *Graph) Leaves() []model.Concept {
	g.mu.RLock()
	out := make(map[string]bool, len(g.out))
	for id, idx := range g.out {
		out[id] = len(idx) > 0
	}
	g.mu.RUnlock()
	return g.filter(func(c model.Concept) bool { return !out[c.ID] })
}

// Search returns concepts whose id, name or description contains query,
// ignoring case. Results are in insertion order, capped at limit when
// limit > 0.
func (g *Graph) Search(query string, limit int) []model.Concept {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	res := g.filter(func(c model.Concept) bool {
		return strings.Contains(MatchText(c), q)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}

// MatchText is the lowercased text that keyword and search matching run
// against: id, name and description joined by spaces.
func MatchText(c model.Concept) string {
	return strings.ToLower(c.ID + " " + c.Name + " " + c.Description)
}

func (g *Graph) filter(keep func(model.Concept) bool) []model.Concept {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []model.Concept
	for _, id := range g.ids {
		c := g.concepts[id]
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}
