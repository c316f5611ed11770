// Package order computes a dependency-respecting total order over a concept
// graph.
package order

import (
	"cmp"
	"slices"

	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/model"
)

// Result is a total order of every concept id in a graph.
type Result struct {
	IDs []string `json:"order"`
	// Cyclic is set when the prerequisite edges contain a cycle and IDs is
	// the (level, id) fallback order.
	Cyclic bool `json:"cyclic"`
}

// Engine orders concepts so that, for every prerequisite edge, the source
// precedes the target. Relationships of other types do not constrain the
// order.
type Engine struct {
	// Prerequisites are the relationship types that constrain order. Empty
	// means model.PrerequisiteTypes.
	Prerequisites []model.RelationshipType
}

// Order returns a topological order of g's prerequisite subgraph. Ties go to
// insertion order. When the subgraph has a cycle, every concept is instead
// ordered by (level rank, id). Order never fails.
func (e Engine) Order(g *graph.Graph) Result {
	types := e.Prerequisites
	if len(types) == 0 {
		types = model.PrerequisiteTypes()
	}

	doc := g.Document()
	indegree := make(map[string]int, len(doc.Nodes))
	succ := make(map[string][]string, len(doc.Nodes))
	for _, r := range doc.Edges {
		if !slices.Contains(types, r.Type) {
			continue
		}
		succ[r.Source] = append(succ[r.Source], r.Target)
		indegree[r.Target]++
	}

	queue := make([]string, 0, len(doc.Nodes))
	for _, c := range doc.Nodes {
		if indegree[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}

	out := make([]string, 0, len(doc.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		for _, next := range succ[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(out) < len(doc.Nodes) {
		return Result{IDs: fallback(doc.Nodes), Cyclic: true}
	}
	return Result{IDs: out}
}

// Order orders g with the default prerequisite types.
func Order(g *graph.Graph) []string {
	return Engine{}.Order(g).IDs
}

// Fallback returns every concept id ordered by (level rank, id).
func Fallback(g *graph.Graph) []string {
	return fallback(g.Concepts())
}

func fallback(cs []model.Concept) []string {
	sorted := slices.Clone(cs)
	slices.SortStableFunc(sorted, func(a, b model.Concept) int {
		if c := cmp.Compare(a.Level.Rank(), b.Level.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	ids := make([]string, len(sorted))
	for i, c := range sorted {
		ids[i] = c.ID
	}
	return ids
}
