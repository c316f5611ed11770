package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownToken is returned when a string does not name a member of one of
// the closed vocabularies below.
var ErrUnknownToken = errors.New("unknown token")

// ConceptType classifies what kind of idea a concept is.
type ConceptType uint8

const (
	TypeArchitecture ConceptType = iota + 1
	TypeTechnique
	TypeComponent
	TypeOptimization
	TypeTraining
	TypeTokenization
	TypeTheory
	TypeApplication
)

var conceptTypeTokens = []string{
	"", "architecture", "technique", "component", "optimization",
	"training", "tokenization", "theory", "application",
}

// Level orders concepts from foundational to frontier.
type Level uint8

const (
	LevelFoundational Level = iota + 1
	LevelIntermediate
	LevelAdvanced
	LevelFrontier
)

var levelTokens = []string{"", "foundational", "intermediate", "advanced", "frontier"}

// RelationshipType is the label on a directed edge.
type RelationshipType uint8

const (
	RelBuildsOn RelationshipType = iota + 1
	RelOptimizes
	RelRequires
	RelEvolvesTo
	RelVariantOf
	RelComponentOf
	RelAlternativeTo
	RelEnables
)

var relationshipTokens = []string{
	"", "builds_on", "optimizes", "requires", "evolves_to",
	"variant_of", "component_of", "alternative_to", "enables",
}

// parseToken maps s onto its index in tokens. Matching ignores case and
// surrounding whitespace; index 0 is the invalid zero value and never matches.
func parseToken(kind string, tokens []string, s string) (uint8, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == norm {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrUnknownToken, kind, s)
}

func tokenString(tokens []string, v uint8) string {
	if v == 0 || int(v) >= len(tokens) {
		return fmt.Sprintf("invalid(%d)", v)
	}
	return tokens[v]
}

func validToken(tokens []string, v uint8) bool {
	return v != 0 && int(v) < len(tokens)
}

// ParseConceptType parses a canonical concept type token.
func ParseConceptType(s string) (ConceptType, error) {
	v, err := parseToken("concept type", conceptTypeTokens, s)
	return ConceptType(v), err
}

func (t ConceptType) String() string { return tokenString(conceptTypeTokens, uint8(t)) }

// Valid reports whether t is a member of the vocabulary.
func (t ConceptType) Valid() bool { return validToken(conceptTypeTokens, uint8(t)) }

func (t ConceptType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: concept type %d", ErrUnknownToken, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *ConceptType) UnmarshalText(b []byte) error {
	v, err := ParseConceptType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ConceptTypes lists the vocabulary in declaration order.
func ConceptTypes() []ConceptType {
	out := make([]ConceptType, 0, len(conceptTypeTokens)-1)
	for i := 1; i < len(conceptTypeTokens); i++ {
		out = append(out, ConceptType(i))
	}
	return out
}

// ParseLevel parses a canonical level token.
func ParseLevel(s string) (Level, error) {
	v, err := parseToken("level", levelTokens, s)
	return Level(v), err
}

func (l Level) String() string { return tokenString(levelTokens, uint8(l)) }

// Valid reports whether l is a member of the vocabulary.
func (l Level) Valid() bool { return validToken(levelTokens, uint8(l)) }

// Rank is 0 for foundational through 3 for frontier. Invalid levels sort last.
func (l Level) Rank() int {
	if !l.Valid() {
		return len(levelTokens)
	}
	return int(l) - 1
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: level %d", ErrUnknownToken, uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Levels lists the vocabulary from foundational to frontier.
func Levels() []Level {
	return []Level{LevelFoundational, LevelIntermediate, LevelAdvanced, LevelFrontier}
}

// ParseRelationshipType parses a canonical relationship token.
func ParseRelationshipType(s string) (RelationshipType, error) {
	v, err := parseToken("relationship", relationshipTokens, s)
	return RelationshipType(v), err
}

func (r RelationshipType) String() string { return tokenString(relationshipTokens, uint8(r)) }

// Valid reports whether r is a member of the vocabulary.
func (r RelationshipType) Valid() bool { return validToken(relationshipTokens, uint8(r)) }

func (r RelationshipType) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: relationship %d", ErrUnknownToken, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *RelationshipType) UnmarshalText(b []byte) error {
	v, err := ParseRelationshipType(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// RelationshipTypes lists the vocabulary in declaration order.
func RelationshipTypes() []RelationshipType {
	out := make([]RelationshipType, 0, len(relationshipTokens)-1)
	for i := 1; i < len(relationshipTokens); i++ {
		out = append(out, RelationshipType(i))
	}
	return out
}

// PrerequisiteTypes are the relationship types that constrain ordering by
// default: the source must be learned before the target.
func PrerequisiteTypes() []RelationshipType {
	return []RelationshipType{RelRequires, RelBuildsOn}
}
