// Package curriculum partitions a concept graph into ordered courses.
package curriculum

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/logger"
	"github.com/rcliao/kg-course/internal/model"
	"github.com/rcliao/kg-course/internal/order"
)

// ErrNoDefinitions is returned when clustering is asked to run without any
// cluster definition.
var ErrNoDefinitions = errors.New("no cluster definitions")

// ErrDuplicateDefinition is returned when two definitions share an id.
var ErrDuplicateDefinition = errors.New("duplicate cluster definition")

// Clusterer assigns every concept to exactly one course.
type Clusterer struct {
	// Definitions are evaluated in order; the first match wins.
	Definitions []Definition
	// Fallback picks the course for concepts no definition matched. A level
	// with no entry, or an entry naming an unknown cluster, lands in the last
	// definition.
	Fallback map[model.Level]string
	Log      *logger.Logger
}

// NewClusterer returns a clusterer over the default definitions.
func NewClusterer() *Clusterer {
	return &Clusterer{Definitions: DefaultDefinitions(), Fallback: DefaultFallback()}
}

// Cluster groups the concepts of g. ids is the dependency order to assign in;
// ids unknown to g are ignored and concepts of g missing from ids are
// appended in insertion order. Courses keep definition order and drop out when
// empty. Definition ids must be unique.
func (cl *Clusterer) Cluster(g *graph.Graph, ids []string) ([]model.Course, error) {
	if len(cl.Definitions) == 0 {
		return nil, ErrNoDefinitions
	}
	log := cl.Log
	if log == nil {
		log = logger.NewNop()
	}

	concepts := sequence(g, ids)
	courses := make([]model.Course, len(cl.Definitions))
	index := make(map[string]int, len(cl.Definitions))
	for i, d := range cl.Definitions {
		courses[i] = model.Course{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Concepts:    []string{},
			Lessons:     []json.RawMessage{},
		}
		if _, dup := index[d.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateDefinition, d.ID)
		}
		index[d.ID] = i
	}

	assigned := make(map[string]bool, len(concepts))
	for i, d := range cl.Definitions {
		for _, c := range concepts {
			if assigned[c.ID] || !d.Matches(c) {
				continue
			}
			courses[i].Concepts = append(courses[i].Concepts, c.ID)
			assigned[c.ID] = true
		}
	}

	for _, c := range concepts {
		if assigned[c.ID] {
			continue
		}
		target, ok := index[cl.Fallback[c.Level]]
		if !ok {
			target = len(courses) - 1
		}
		log.Debug("fallback assignment", "id", c.ID, "level", c.Level.String(), "course", courses[target].ID)
		courses[target].Concepts = append(courses[target].Concepts, c.ID)
		assigned[c.ID] = true
	}

	out := courses[:0]
	for _, course := range courses {
		if len(course.Concepts) > 0 {
			out = append(out, course)
		}
	}
	log.Info("clustered concepts", "courses", len(out), "concepts", len(concepts))
	return out, nil
}

// Build orders g with the default prerequisite types and clusters it.
func (cl *Clusterer) Build(g *graph.Graph) ([]model.Course, error) {
	return cl.Cluster(g, order.Order(g))
}

// sequence resolves ids against g, dropping unknown and repeated ids and
// appending any concept ids did not mention.
func sequence(g *graph.Graph, ids []string) []model.Concept {
	seen := make(map[string]bool, len(ids))
	out := make([]model.Concept, 0, g.Len())
	for _, id := range ids {
		if seen[id] {
			continue
		}
		if c, ok := g.Concept(id); ok {
			seen[id] = true
			out = append(out, c)
		}
	}
	for _, c := range g.Concepts() {
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out
}

// MarshalCourses encodes a course list as indented JSON with a trailing
// newline.
func MarshalCourses(courses []model.Course) ([]byte, error) {
	if courses == nil {
		courses = []model.Course{}
	}
	b, err := json.MarshalIndent(courses, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode courses: %w", err)
	}
	return append(b, '\n'), nil
}

// UnmarshalCourses decodes a course list. Lessons are kept as raw JSON.
func UnmarshalCourses(data []byte) ([]model.Course, error) {
	var courses []model.Course
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&courses); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	for i := range courses {
		if courses[i].Concepts == nil {
			courses[i].Concepts = []string{}
		}
		if courses[i].Lessons == nil {
			courses[i].Lessons = []json.RawMessage{}
		}
	}
	return courses, nil
}

// SaveCourses writes the course list to path, creating parent directories.
func SaveCourses(path string, courses []model.Course) error {
	b, err := MarshalCourses(courses)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create courses dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write courses: %w", err)
	}
	return nil
}

// LoadCourses reads a course list from path.
func LoadCourses(path string) ([]model.Course, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read courses: %w", err)
	}
	return UnmarshalCourses(b)
}
