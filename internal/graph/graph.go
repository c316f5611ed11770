// Package graph provides the concept graph store: concepts keyed by id, an
// insertion-ordered relationship sequence, and successor/predecessor views
// derived from that sequence.
//
// A Graph serializes all mutation behind a single writer lock. Readers may run
// concurrently with each other but never overlap a mutation, so the adjacency
// views are always consistent with the relationship sequence.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rcliao/kg-course/internal/model"
)

var (
	// ErrUnknownEndpoint is returned when a relationship names a concept id
	// that is not in the graph.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrInvalidRelationship is returned when a relationship has no valid
	// relationship type.
	ErrInvalidRelationship = errors.New("invalid relationship type")

	// ErrCorruptDocument is returned when a serialized graph cannot be loaded
	// without breaking referential integrity.
	ErrCorruptDocument = errors.New("corrupt graph document")
)

// Graph is a directed, typed concept graph.
type Graph struct {
	mu       sync.RWMutex
	concepts map[string]model.Concept
	ids      []string
	rels     []model.Relationship
	out      map[string][]int // indices into rels, keyed by source
	in       map[string][]int // indices into rels, keyed by target
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		concepts: make(map[string]model.Concept),
		out:      make(map[string][]int),
		in:       make(map[string][]int),
	}
}

// AddConcept inserts c if its id is new. An existing concept with the same id
// is left unchanged (first insert wins). Concepts with an empty id or an
// invalid type or level are refused. Reports whether c was inserted.
func (g *Graph) AddConcept(c model.Concept) bool {
	if c.ID == "" || !c.Type.Valid() || !c.Level.Valid() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.concepts[c.ID]; ok {
		return false
	}
	g.concepts[c.ID] = c.Clone()
	g.ids = append(g.ids, c.ID)
	return true
}

// AddRelationship appends r. Both endpoints must already be present and the
// type must be valid.
// Exact duplicates are kept.
func (g *Graph) AddRelationship(r model.Relationship) error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidRelationship, r.Source, r.Target)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.concepts[r.Source]; !ok {
		return fmt.Errorf("%w: source %q", ErrUnknownEndpoint, r.Source)
	}
	if _, ok := g.concepts[r.Target]; !ok {
		return fmt.Errorf("%w: target %q", ErrUnknownEndpoint, r.Target)
	}

	idx := len(g.rels)
	g.rels = append(g.rels, r)
	g.out[r.Source] = append(g.out[r.Source], idx)
	g.in[r.Target] = append(g.in[r.Target], idx)
	return nil
}

// Concept looks up a concept by id.
func (g *Graph) Concept(id string) (model.Concept, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c, ok := g.concepts[id]
	if !ok {
		return model.Concept{}, false
	}
	return c.Clone(), true
}

// Has reports whether id is present.
func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.concepts[id]
	return ok
}

// Len returns the number of concepts.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ids)
}

// EdgeCount returns the number of relationships.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rels)
}

// IDs returns concept ids in insertion order.
func (g *Graph) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Concepts returns a snapshot of all concepts in insertion order.
func (g *Graph) Concepts() []model.Concept {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]model.Concept, 0, len(g.ids))
	for _, id := range g.ids {
		out = append(out, g.concepts[id].Clone())
	}
	return out
}

// Relationships returns a snapshot of all relationships in insertion order.
func (g *Graph) Relationships() []model.Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]model.Relationship, len(g.rels))
	copy(out, g.rels)
	return out
}

// PredecessorsByRelationship returns the distinct ids p with an edge
// (p, id, r) where r is one of types. With no types every relationship
// counts. Ids appear in the order of their first qualifying edge.
func (g *Graph) PredecessorsByRelationship(id string, types ...model.RelationshipType) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.neighbors(g.in[id], types, func(r model.Relationship) string { return r.Source })
}

// SuccessorsByRelationship returns the distinct ids s with an edge
// (id, s, r) where r is one of types.
func (g *Graph) SuccessorsByRelationship(id string, types ...model.RelationshipType) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.neighbors(g.out[id], types, func(r model.Relationship) string { return r.Target })
}

// Prerequisites returns the requires/builds_on predecessors of id.
func (g *Graph) Prerequisites(id string) []string {
	return g.PredecessorsByRelationship(id, model.PrerequisiteTypes()...)
}

// Dependents returns the requires/builds_on successors of id.
func (g *Graph) Dependents(id string) []string {
	return g.SuccessorsByRelationship(id, model.PrerequisiteTypes()...)
}

func (g *Graph) neighbors(idx []int, types []model.RelationshipType, end func(model.Relationship) string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, i := range idx {
		r := g.rels[i]
		if len(types) > 0 && !slices.Contains(types, r.Type) {
			continue
		}
		n := end(r)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Subgraph returns a new graph holding the given concepts and only the
// relationships whose endpoints are both among them. Unknown ids are ignored.
func (g *Graph) Subgraph(ids []string) *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sub := New()
	for _, id := range ids {
		if c, ok := g.concepts[id]; ok {
			sub.AddConcept(c)
		}
	}
	for _, r := range g.rels {
		if sub.Has(r.Source) && sub.Has(r.Target) {
			// Both endpoints were just checked.
			_ = sub.AddRelationship(r)
		}
	}
	return sub
}
