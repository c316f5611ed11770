package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/kg-course/internal/model"
)

// Document is the serialized form of a graph. Enumerations are written as
// their canonical lowercase tokens.
type Document struct {
	Nodes []model.Concept      `json:"nodes"`
	Edges []model.Relationship `json:"edges"`
}

// Document returns the full node and edge sequences in insertion order.
func (g *Graph) Document() Document {
	g.mu.RLock()
	defer g.mu.RUnlock()

	doc := Document{
		Nodes: make([]model.Concept, 0, len(g.ids)),
		Edges: make([]model.Relationship, len(g.rels)),
	}
	for _, id := range g.ids {
		doc.Nodes = append(doc.Nodes, g.concepts[id].Clone())
	}
	copy(doc.Edges, g.rels)
	return doc
}

// FromDocument rebuilds a graph from doc. Empty or duplicate node ids, nodes
// without a type or level, and edges without a relationship or naming an
// absent node fail with ErrCorruptDocument; no partial graph is returned.
func FromDocument(doc Document) (*Graph, error) {
	g := New()
	for i, c := range doc.Nodes {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: node %d has no id", ErrCorruptDocument, i)
		}
		if !c.Type.Valid() || !c.Level.Valid() {
			return nil, fmt.Errorf("%w: node %q needs a type and level", ErrCorruptDocument, c.ID)
		}
		if !g.AddConcept(c) {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrCorruptDocument, c.ID)
		}
	}
	for i, r := range doc.Edges {
		if err := g.AddRelationship(r); err != nil {
			return nil, fmt.Errorf("%w: edge %d: %w", ErrCorruptDocument, i, err)
		}
	}
	return g, nil
}

// Marshal encodes g as indented JSON with a trailing newline.
func (g *Graph) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(g.Document(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}
	return append(b, '\n'), nil
}

// Unmarshal decodes a graph document. Malformed JSON and unknown enumeration
// tokens are reported as ErrCorruptDocument.
func Unmarshal(data []byte) (*Graph, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	return FromDocument(doc)
}

// Save writes g to path, creating parent directories.
func (g *Graph) Save(path string) error {
	b, err := g.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create graph dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}

// Load reads a graph document from path.
func Load(path string) (*Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	return Unmarshal(b)
}
