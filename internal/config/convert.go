package config

import (
	"fmt"
	"time"

	"github.com/rcliao/kg-course/internal/curriculum"
	"github.com/rcliao/kg-course/internal/expand"
	"github.com/rcliao/kg-course/internal/llm"
	"github.com/rcliao/kg-course/internal/model"
)

// Definition parses the cluster into a curriculum definition.
func (cl Cluster) Definition() (curriculum.Definition, error) {
	d := curriculum.Definition{ID: cl.ID, Title: cl.Title, Description: cl.Description, Keywords: cl.Keywords}
	for _, s := range cl.Levels {
		l, err := model.ParseLevel(s)
		if err != nil {
			return d, err
		}
		d.Levels = append(d.Levels, l)
	}
	for _, s := range cl.PriorityTypes {
		t, err := model.ParseConceptType(s)
		if err != nil {
			return d, err
		}
		d.PriorityTypes = append(d.PriorityTypes, t)
	}
	return d, nil
}

func clusterFromDefinition(d curriculum.Definition) Cluster {
	cl := Cluster{ID: d.ID, Title: d.Title, Description: d.Description, Keywords: d.Keywords}
	for _, l := range d.Levels {
		cl.Levels = append(cl.Levels, l.String())
	}
	for _, t := range d.PriorityTypes {
		cl.PriorityTypes = append(cl.PriorityTypes, t.String())
	}
	return cl
}

// Clusterer builds a clusterer from the cluster list and fallback map.
func (c Config) Clusterer() (*curriculum.Clusterer, error) {
	cl := &curriculum.Clusterer{Fallback: make(map[model.Level]string, len(c.Fallback))}
	for _, raw := range c.Clusters {
		d, err := raw.Definition()
		if err != nil {
			return nil, fmt.Errorf("%w: cluster %q: %w", ErrInvalidConfig, raw.ID, err)
		}
		cl.Definitions = append(cl.Definitions, d)
	}
	for s, id := range c.Fallback {
		l, err := model.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("%w: fallback: %w", ErrInvalidConfig, err)
		}
		cl.Fallback[l] = id
	}
	return cl, nil
}

// PrerequisiteTypes parses the prerequisite relationship tokens.
func (c Config) PrerequisiteTypes() ([]model.RelationshipType, error) {
	out := make([]model.RelationshipType, 0, len(c.Prerequisites))
	for _, s := range c.Prerequisites {
		r, err := model.ParseRelationshipType(s)
		if err != nil {
			return nil, fmt.Errorf("%w: prerequisites: %w", ErrInvalidConfig, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// TimeoutDuration parses Timeout, falling back to the expansion default.
func (c Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return expand.DefaultTimeout
	}
	return d
}

// LLMConfig returns the collaborator client settings.
func (c Config) LLMConfig() llm.Config {
	if c.LLM == nil {
		return llm.Config{}
	}
	return llm.Config{
		BaseURL:     c.LLM.BaseURL,
		Model:       c.LLM.Model,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
		MaxFailures: c.LLM.MaxFailures,
	}
}
