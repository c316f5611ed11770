package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/kg-course/internal/curriculum"
	"github.com/rcliao/kg-course/internal/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"KG_COURSE_CONFIG", "KG_COURSE_ROUNDS", "KG_COURSE_CONCEPTS_PER_ROUND", "VLLM_BASE_URL", "KG_COURSE_MODEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, c.Rounds)
	assert.Equal(t, 10, c.ConceptsPerRound)
	assert.Equal(t, 120*time.Second, c.TimeoutDuration())
	assert.Equal(t, 100, c.DescriptionPrefix)
	assert.Equal(t, "http://localhost:8000/v1", c.LLM.BaseURL)
	assert.Equal(t, "google/gemma-3-27b-it", c.LLM.Model)

	pre, err := c.PrerequisiteTypes()
	require.NoError(t, err)
	assert.Equal(t, model.PrerequisiteTypes(), pre)

	cl, err := c.Clusterer()
	require.NoError(t, err)
	if diff := cmp.Diff(curriculum.DefaultDefinitions(), cl.Definitions); diff != "" {
		t.Errorf("definitions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, curriculum.DefaultFallback(), cl.Fallback)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "kg.yaml", `
rounds: 4
concepts_per_round: 6
timeout: 30s
prerequisites: [requires]
clusters:
  - id: basics
    title: Basics
    levels: [foundational, intermediate]
  - id: rest
    title: Everything else
    keywords: [attention]
fallback:
  advanced: rest
  frontier: rest
llm:
  base_url: http://gpu:9000/v1
  model: qwen
  max_failures: 5
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, c.Rounds)
	assert.Equal(t, 6, c.ConceptsPerRound)
	assert.Equal(t, 30*time.Second, c.TimeoutDuration())
	assert.Equal(t, []string{"requires"}, c.Prerequisites)
	assert.Equal(t, 5, c.LLMConfig().MaxFailures)
	assert.Equal(t, 8192, c.LLMConfig().MaxTokens)

	cl, err := c.Clusterer()
	require.NoError(t, err)
	require.Len(t, cl.Definitions, 2)
	assert.Equal(t, []model.Level{model.LevelFoundational, model.LevelIntermediate}, cl.Definitions[0].Levels)
	assert.Equal(t, "rest", cl.Fallback[model.LevelAdvanced])
}

func TestLoadHCL(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "kg.hcl", `
rounds             = 3
concepts_per_round = 12

cluster "foundations" {
  title          = "Foundations"
  levels         = ["foundational"]
  priority_types = ["theory", "component"]
}

cluster "frontier" {
  title  = "Frontier"
  levels = ["frontier"]
}

fallback = {
  foundational = "foundations"
  intermediate = "frontier"
}

llm {
  model       = "gemma"
  temperature = 0.7
}
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Rounds)
	assert.Equal(t, 12, c.ConceptsPerRound)
	assert.Equal(t, "gemma", c.LLM.Model)
	assert.Equal(t, 0.7, c.LLM.Temperature)
	assert.Equal(t, "http://localhost:8000/v1", c.LLM.BaseURL)

	cl, err := c.Clusterer()
	require.NoError(t, err)
	require.Len(t, cl.Definitions, 2)
	assert.Equal(t, "foundations", cl.Definitions[0].ID)
	assert.Equal(t, []model.ConceptType{model.TypeTheory, model.TypeComponent}, cl.Definitions[0].PriorityTypes)
	assert.Equal(t, "frontier", cl.Fallback[model.LevelIntermediate])
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "kg.yml", "rounds: 4\n")
	t.Setenv("KG_COURSE_CONFIG", path)
	t.Setenv("KG_COURSE_ROUNDS", "7")
	t.Setenv("KG_COURSE_CONCEPTS_PER_ROUND", "3")
	t.Setenv("VLLM_BASE_URL", "http://other:8000/v1")
	t.Setenv("KG_COURSE_MODEL", "llama")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, c.Rounds)
	assert.Equal(t, 3, c.ConceptsPerRound)
	assert.Equal(t, "http://other:8000/v1", c.LLM.BaseURL)
	assert.Equal(t, "llama", c.LLM.Model)

	t.Setenv("KG_COURSE_ROUNDS", "many")
	_, err = Load("")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestInvalidConfigs(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"negative rounds":     "rounds: -1\n",
		"bad timeout":         "timeout: soon\n",
		"bad prerequisite":    "prerequisites: [requires, likes]\n",
		"duplicate cluster":   "clusters:\n  - id: a\n    levels: [frontier]\n  - id: a\n",
		"cluster without id":  "clusters:\n  - title: Nameless\n",
		"bad cluster level":   "clusters:\n  - id: a\n    levels: [expert]\n",
		"unknown fallback":    "fallback:\n  frontier: nowhere\n",
		"bad fallback level":  "fallback:\n  expert: frontier\n",
		"bad url":             "llm:\n  base_url: not a url\n",
		"malformed yaml":      "rounds: [\n",
		"negative max tokens": "llm:\n  max_tokens: -5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "kg.yaml", body))
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}

	_, err := Load(writeFile(t, "kg.toml", "rounds = 2\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Load(writeFile(t, "kg.hcl", "rounds = \"two\"\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
