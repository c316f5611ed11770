package ingest

import (
	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/logger"
	"github.com/rcliao/kg-course/internal/model"
	"github.com/rcliao/kg-course/internal/observability"
)

// Provenance records where a batch came from. It selects the default
// confidence of nodes that do not carry one.
type Provenance uint8

const (
	// Extraction is a batch sourced directly from repository analysis.
	Extraction Provenance = iota
	// Expansion is a batch inferred during frontier expansion.
	Expansion
)

func (p Provenance) String() string {
	if p == Expansion {
		return "expansion"
	}
	return "extraction"
}

// DefaultConfidence is 1.0 for extraction and 0.8 for expansion.
func (p Provenance) DefaultConfidence() float64 {
	if p == Expansion {
		return 0.8
	}
	return 1.0
}

// Defaults applied to nodes that omit type or level.
const (
	DefaultType   = model.TypeTheory
	DefaultLevel  = model.LevelIntermediate
	DefaultWeight = 1.0
)

// Result is the outcome of validating one batch.
type Result struct {
	Nodes []model.Concept
	Edges []model.Relationship

	SkippedNodes int // malformed or duplicate node records
	SkippedEdges int // malformed edge records
	DroppedEdges int // edges naming an id outside the accepted set
}

// Empty reports whether no node was accepted.
func (r Result) Empty() bool {
	return len(r.Nodes) == 0
}

// Skipped returns the number of records that did not make it through.
func (r Result) Skipped() int {
	return r.SkippedNodes + r.SkippedEdges + r.DroppedEdges
}

// Validator filters and normalizes raw candidate records. The zero value is
// usable.
type Validator struct {
	Log     *logger.Logger
	Metrics *observability.Collector
}

// Validate checks b against g without mutating g. Nodes are validated first;
// an edge is accepted only if both endpoints are already in g or among the
// nodes accepted from b. Per-record problems are counted and logged, never
// returned.
func (v Validator) Validate(g *graph.Graph, b Batch, p Provenance) Result {
	log := v.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("provenance", p.String())

	var res Result
	accepted := make(map[string]bool, len(b.Nodes))
	for i, raw := range b.Nodes {
		c, reason := parseConcept(raw, p)
		switch {
		case reason != "":
			log.Warn("skip candidate node", "index", i, "id", c.ID, "reason", reason)
			res.SkippedNodes++
			continue
		case accepted[c.ID] || g.Has(c.ID):
			log.Debug("skip duplicate node", "id", c.ID)
			res.SkippedNodes++
			continue
		}
		accepted[c.ID] = true
		res.Nodes = append(res.Nodes, c)
	}

	for i, raw := range b.Edges {
		r, reason := parseRelationship(raw)
		if reason != "" {
			log.Warn("skip candidate edge", "index", i, "source", r.Source, "target", r.Target, "reason", reason)
			res.SkippedEdges++
			continue
		}
		known := func(id string) bool { return accepted[id] || g.Has(id) }
		if !known(r.Source) || !known(r.Target) {
			log.Debug("drop dangling edge", "source", r.Source, "target", r.Target, "relationship", r.Type.String())
			res.DroppedEdges++
			continue
		}
		res.Edges = append(res.Edges, r)
	}

	v.Metrics.RecordIngest(p.String(), len(res.Nodes), res.SkippedNodes, len(res.Edges), res.SkippedEdges, res.DroppedEdges)
	return res
}

// parseConcept returns a non-empty reason when raw must be skipped.
func parseConcept(raw map[string]any, p Provenance) (model.Concept, string) {
	c := model.Concept{
		ID:            stringFromAny(raw["id"]),
		Name:          stringFromAny(raw["name"]),
		Type:          DefaultType,
		Level:         DefaultLevel,
		Description:   stringFromAny(raw["description"]),
		KeyIdeas:      stringSliceFromAny(raw["key_ideas"]),
		CodeRefs:      stringSliceFromAny(raw["code_refs"]),
		PaperRef:      stringFromAny(raw["paper_ref"]),
		FirstAppeared: stringFromAny(raw["first_appeared"]),
		Confidence:    p.DefaultConfidence(),
	}
	if raw == nil {
		return c, "not an object"
	}
	if c.ID == "" {
		return c, "missing id"
	}
	if c.Name == "" {
		return c, "missing name"
	}
	if s := stringFromAny(raw["type"]); s != "" {
		t, err := model.ParseConceptType(s)
		if err != nil {
			return c, err.Error()
		}
		c.Type = t
	}
	if s := stringFromAny(raw["level"]); s != "" {
		l, err := model.ParseLevel(s)
		if err != nil {
			return c, err.Error()
		}
		c.Level = l
	}
	if f, ok := floatFromAny(raw["confidence"]); ok {
		c.Confidence = min(max(f, 0), 1)
	}
	return c, ""
}

func parseRelationship(raw map[string]any) (model.Relationship, string) {
	r := model.Relationship{
		Source:      stringFromAny(raw["source"]),
		Target:      stringFromAny(raw["target"]),
		Weight:      DefaultWeight,
		Description: stringFromAny(raw["description"]),
	}
	if raw == nil {
		return r, "not an object"
	}
	if r.Source == "" || r.Target == "" {
		return r, "missing endpoint"
	}
	s := stringFromAny(raw["relationship"])
	if s == "" {
		return r, "missing relationship"
	}
	t, err := model.ParseRelationshipType(s)
	if err != nil {
		return r, err.Error()
	}
	r.Type = t
	if f, ok := floatFromAny(raw["weight"]); ok {
		r.Weight = f
	}
	return r, ""
}

// Merge inserts the accepted records of res into g and returns how many nodes
// and edges were stored. Records that no longer fit g, because g changed after
// validation, are left out.
func Merge(g *graph.Graph, res Result) (nodes, edges int) {
	for _, c := range res.Nodes {
		if g.AddConcept(c) {
			nodes++
		}
	}
	for _, r := range res.Edges {
		if err := g.AddRelationship(r); err == nil {
			edges++
		}
	}
	return nodes, edges
}

// Ingest validates b and merges the result into g.
func (v Validator) Ingest(g *graph.Graph, b Batch, p Provenance) Result {
	res := v.Validate(g, b, p)
	Merge(g, res)
	return res
}
