// Package model defines the concept graph and curriculum data types.
package model

import "encoding/json"

// Concept is a node in the concept graph.
type Concept struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Type          ConceptType `json:"type"`
	Level         Level       `json:"level"`
	Description   string      `json:"description"`
	KeyIdeas      []string    `json:"key_ideas"`
	CodeRefs      []string    `json:"code_refs"`
	PaperRef      string      `json:"paper_ref,omitempty"`
	FirstAppeared string      `json:"first_appeared,omitempty"`
	Confidence    float64     `json:"confidence"`
}

// Clone returns a copy that shares no slices with c.
func (c Concept) Clone() Concept {
	c.KeyIdeas = cloneStrings(c.KeyIdeas)
	c.CodeRefs = cloneStrings(c.CodeRefs)
	return c
}

// Relationship is a typed directed edge from Source to Target.
type Relationship struct {
	Source      string           `json:"source"`
	Target      string           `json:"target"`
	Type        RelationshipType `json:"relationship"`
	Weight      float64          `json:"weight"`
	Description string           `json:"description"`
}

// Course is a named, ordered group of concept ids. Lessons are produced by a
// downstream generator and carried through unchanged.
type Course struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Concepts    []string          `json:"concepts"`
	Lessons     []json.RawMessage `json:"lessons"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
