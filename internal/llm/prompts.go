package llm

import (
	"fmt"
	"strings"

	"github.com/rcliao/kg-course/internal/model"
)

const extractionSystem = `You are a transformer architecture expert. Given analysis data from a source repository, extract a knowledge graph of concepts and their relationships.

For each concept, provide:
- id: snake_case identifier
- name: human-readable name
- type: one of %s
- level: one of %s
- description: 1-2 sentence description
- key_ideas: list of 2-4 key ideas
- code_refs: list of relevant file:class references from the repo
- paper_ref: the seminal paper, e.g. "Vaswani et al., 2017, Attention Is All You Need"

For each relationship (edge), provide:
- source: concept id
- target: concept id
- relationship: one of %s
- description: brief description of the relationship

Focus on:
1. Core concepts (attention, positional encoding, layer norm, etc.)
2. Model architectures
3. Key techniques (flash attention, quantization, KV cache, etc.)
4. Training innovations
5. Prerequisite chains (what must you understand before what)

Return ONLY valid JSON with keys "nodes" and "edges". No other text.`

const extractionUser = `Here is the analysis of the repository:

%s

Extract a comprehensive knowledge graph of concepts and their relationships. Include foundational concepts through frontier concepts. Ensure proper prerequisite chains.

Return ONLY valid JSON with keys "nodes" and "edges".`

const reducedExtractionUser = `Extract 30-40 key concepts from the repository. Topics include: %s.
Return ONLY valid JSON with keys "nodes" and "edges".`

const expansionSystem = `You are a transformer architecture expert. Given a set of existing concepts in a knowledge graph, identify NEW cutting-edge concepts that extend from these concepts but are not yet in the graph.

Focus on:
- Latest model architectures
- Cutting-edge techniques (ring attention, speculative decoding, MoE routing, etc.)
- Recent innovations in efficiency (quantization advances, KV cache optimization, etc.)
- Emerging paradigms (state space models, hybrid architectures, etc.)

For each new concept, provide:
- id: snake_case identifier
- name: human-readable name
- type: one of %s
- level: one of %s
- description: 1-2 sentence description
- key_ideas: list of 2-4 key ideas
- confidence: float 0.0-1.0 (how certain you are this belongs in the graph)

For each new edge connecting new concepts to existing ones, provide:
- source: concept id
- target: concept id
- relationship: one of %s
- description: brief description

Return ONLY valid JSON with keys "new_nodes" and "new_edges". Only include truly new concepts not already in the provided list. No other text.`

const expansionUser = `Here are the existing concepts in the knowledge graph:

%s

Identify %d new cutting-edge concepts that extend from these, especially focusing on frontier models and techniques. Include proper edges connecting them to existing concepts.

Return ONLY valid JSON with keys "new_nodes" and "new_edges".`

func vocabulary() (types, levels, rels string) {
	return joinTokens(model.ConceptTypes()), joinTokens(model.Levels()), joinTokens(model.RelationshipTypes())
}

func joinTokens[T fmt.Stringer](vs []T) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// ExtractionPrompts returns the system and user prompts for one-shot
// extraction from an analysis summary.
func ExtractionPrompts(summary string) (system, user string) {
	types, levels, rels := vocabulary()
	return fmt.Sprintf(extractionSystem, types, levels, rels), fmt.Sprintf(extractionUser, summary)
}

// ReducedExtractionPrompt is the shorter user prompt used after an
// extraction that yielded no concepts. At most 30 topics are listed.
func ReducedExtractionPrompt(topics []string) string {
	if len(topics) > 30 {
		topics = topics[:30]
	}
	list := strings.Join(topics, ", ")
	if list == "" {
		list = "(none listed)"
	}
	return fmt.Sprintf(reducedExtractionUser, list)
}

// ExpansionPrompts returns the system and user prompts for one expansion
// round.
func ExpansionPrompts(state string, count int) (system, user string) {
	types, levels, rels := vocabulary()
	return fmt.Sprintf(expansionSystem, types, levels, rels), fmt.Sprintf(expansionUser, state, count)
}
