// Package config loads pipeline configuration from YAML or HCL files with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/kg-course/internal/curriculum"
	"github.com/rcliao/kg-course/internal/expand"
	"github.com/rcliao/kg-course/internal/llm"
	"github.com/rcliao/kg-course/internal/model"
)

// ErrInvalidConfig wraps every load and validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the file schema. Zero fields take defaults.
type Config struct {
	Rounds            int               `yaml:"rounds" hcl:"rounds,optional" validate:"min=1"`
	ConceptsPerRound  int               `yaml:"concepts_per_round" hcl:"concepts_per_round,optional" validate:"min=1"`
	Timeout           string            `yaml:"timeout" hcl:"timeout,optional" validate:"required"`
	DescriptionPrefix int               `yaml:"description_prefix" hcl:"description_prefix,optional" validate:"min=1"`
	Prerequisites     []string          `yaml:"prerequisites" hcl:"prerequisites,optional" validate:"min=1,dive,required"`
	Clusters          []Cluster         `yaml:"clusters" hcl:"cluster,block" validate:"min=1,dive"`
	Fallback          map[string]string `yaml:"fallback" hcl:"fallback,optional"`
	LLM               *LLM              `yaml:"llm" hcl:"llm,block" validate:"required"`
}

// Cluster is one curriculum cluster definition. In HCL the id is the block
// label: cluster "foundations" { ... }.
type Cluster struct {
	ID            string   `yaml:"id" hcl:"id,label" validate:"required"`
	Title         string   `yaml:"title" hcl:"title,optional"`
	Description   string   `yaml:"description" hcl:"description,optional"`
	Levels        []string `yaml:"levels" hcl:"levels,optional"`
	Keywords      []string `yaml:"keywords" hcl:"keywords,optional"`
	PriorityTypes []string `yaml:"priority_types" hcl:"priority_types,optional"`
}

// LLM configures the chat-completions collaborator.
type LLM struct {
	BaseURL     string  `yaml:"base_url" hcl:"base_url,optional" validate:"required,url"`
	Model       string  `yaml:"model" hcl:"model,optional" validate:"required"`
	MaxTokens   int     `yaml:"max_tokens" hcl:"max_tokens,optional" validate:"min=1"`
	Temperature float64 `yaml:"temperature" hcl:"temperature,optional" validate:"gte=0,lte=2"`
	MaxFailures int     `yaml:"max_failures" hcl:"max_failures,optional" validate:"min=1"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// Load reads path (or $KG_COURSE_CONFIG when path is empty), applies
// defaults and environment overrides, and validates the result. With no file
// at all the defaults are used.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("KG_COURSE_CONFIG")
	}
	var c Config
	if path != "" {
		var err error
		if c, err = decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	c.applyDefaults()
	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func decodeFile(path string) (Config, error) {
	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	case ".hcl":
		parser := hclparse.NewParser()
		f, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return c, fmt.Errorf("%w: failed to parse HCL file %s: %w", ErrInvalidConfig, path, diags)
		}
		if diags := gohcl.DecodeBody(f.Body, nil, &c); diags.HasErrors() {
			return c, fmt.Errorf("%w: failed to decode HCL file %s: %w", ErrInvalidConfig, path, diags)
		}
	default:
		return c, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, filepath.Ext(path))
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Rounds == 0 {
		c.Rounds = expand.DefaultRounds
	}
	if c.ConceptsPerRound == 0 {
		c.ConceptsPerRound = expand.DefaultPerRound
	}
	if c.Timeout == "" {
		c.Timeout = expand.DefaultTimeout.String()
	}
	if c.DescriptionPrefix == 0 {
		c.DescriptionPrefix = expand.DefaultDescriptionPrefix
	}
	if len(c.Prerequisites) == 0 {
		for _, r := range model.PrerequisiteTypes() {
			c.Prerequisites = append(c.Prerequisites, r.String())
		}
	}
	if len(c.Clusters) == 0 {
		for _, d := range curriculum.DefaultDefinitions() {
			c.Clusters = append(c.Clusters, clusterFromDefinition(d))
		}
	}
	if c.Fallback == nil {
		c.Fallback = make(map[string]string)
		for level, id := range curriculum.DefaultFallback() {
			c.Fallback[level.String()] = id
		}
	}
	if c.LLM == nil {
		c.LLM = &LLM{}
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = llm.DefaultBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = llm.DefaultModel
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = llm.DefaultMaxTokens
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = llm.DefaultTemperature
	}
	if c.LLM.MaxFailures == 0 {
		c.LLM.MaxFailures = llm.DefaultMaxFailures
	}
}

func (c *Config) applyEnv() error {
	for env, dst := range map[string]*int{
		"KG_COURSE_ROUNDS":             &c.Rounds,
		"KG_COURSE_CONCEPTS_PER_ROUND": &c.ConceptsPerRound,
	} {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, env, v)
		}
		*dst = n
	}
	if v := strings.TrimSpace(os.Getenv("VLLM_BASE_URL")); v != "" {
		c.LLM.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("KG_COURSE_MODEL")); v != "" {
		c.LLM.Model = v
	}
	return nil
}

// Validate checks struct constraints and then the cross-field rules: tokens
// parse, cluster ids are unique and fallback targets exist.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, formatValidationError(err))
	}

	var problems []string
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		problems = append(problems, fmt.Sprintf("timeout %q is not a positive duration", c.Timeout))
	}
	for _, p := range c.Prerequisites {
		if _, err := model.ParseRelationshipType(p); err != nil {
			problems = append(problems, "prerequisites: "+err.Error())
		}
	}
	ids := make(map[string]bool, len(c.Clusters))
	for _, cl := range c.Clusters {
		if ids[cl.ID] {
			problems = append(problems, fmt.Sprintf("cluster %q defined twice", cl.ID))
		}
		ids[cl.ID] = true
		if _, err := cl.Definition(); err != nil {
			problems = append(problems, fmt.Sprintf("cluster %q: %v", cl.ID, err))
		}
	}
	for level, id := range c.Fallback {
		if _, err := model.ParseLevel(level); err != nil {
			problems = append(problems, "fallback: "+err.Error())
		}
		if !ids[id] {
			problems = append(problems, fmt.Sprintf("fallback %s: unknown cluster %q", level, id))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Namespace())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "url":
			msgs = append(msgs, field+" must be a URL")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, e.Tag(), e.Param()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
