package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConceptType(t *testing.T) {
	for _, ct := range ConceptTypes() {
		got, err := ParseConceptType(ct.String())
		require.NoError(t, err)
		assert.Equal(t, ct, got)
	}

	got, err := ParseConceptType("  Architecture ")
	require.NoError(t, err)
	assert.Equal(t, TypeArchitecture, got)

	_, err = ParseConceptType("model")
	assert.True(t, errors.Is(err, ErrUnknownToken))

	_, err = ParseConceptType("")
	assert.True(t, errors.Is(err, ErrUnknownToken))
}

func TestLevelRank(t *testing.T) {
	assert.Equal(t, 0, LevelFoundational.Rank())
	assert.Equal(t, 1, LevelIntermediate.Rank())
	assert.Equal(t, 2, LevelAdvanced.Rank())
	assert.Equal(t, 3, LevelFrontier.Rank())
	assert.Greater(t, Level(0).Rank(), LevelFrontier.Rank())
}

func TestParseRelationshipType(t *testing.T) {
	got, err := ParseRelationshipType("builds_on")
	require.NoError(t, err)
	assert.Equal(t, RelBuildsOn, got)

	_, err = ParseRelationshipType("depends_on")
	assert.True(t, errors.Is(err, ErrUnknownToken))
	assert.Len(t, RelationshipTypes(), 8)
}

func TestEnumJSONTokens(t *testing.T) {
	c := Concept{ID: "attn", Name: "Attention", Type: TypeTheory, Level: LevelFoundational, Confidence: 1}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"theory"`)
	assert.Contains(t, string(b), `"level":"foundational"`)

	var back Concept
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, c, back)
}

func TestEnumZeroValueDoesNotMarshal(t *testing.T) {
	_, err := json.Marshal(Concept{ID: "x", Name: "X"})
	assert.Error(t, err)

	var c Concept
	err = json.Unmarshal([]byte(`{"id":"x","name":"X","type":"gizmo","level":"advanced"}`), &c)
	assert.Error(t, err)
}

func TestConceptCloneDoesNotAlias(t *testing.T) {
	c := Concept{ID: "a", KeyIdeas: []string{"one"}, CodeRefs: []string{"x.go:A"}}
	cp := c.Clone()
	cp.KeyIdeas[0] = "changed"
	cp.CodeRefs[0] = "changed"
	assert.Equal(t, "one", c.KeyIdeas[0])
	assert.Equal(t, "x.go:A", c.CodeRefs[0])
}
