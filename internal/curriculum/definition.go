package curriculum

import (
	"slices"
	"strings"

	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/model"
)

// Definition describes one course cluster and the concepts it claims.
type Definition struct {
	ID            string
	Title         string
	Description   string
	Levels        []model.Level
	Keywords      []string
	PriorityTypes []model.ConceptType
}

// Matches reports whether c belongs in d. A defined level set is a hard gate.
// Past the gate, keywords decide when present, then priority types; with
// neither, passing the level gate is a match. A definition with nothing
// defined matches nothing.
func (d Definition) Matches(c model.Concept) bool {
	if len(d.Levels) == 0 && len(d.Keywords) == 0 && len(d.PriorityTypes) == 0 {
		return false
	}
	if len(d.Levels) > 0 && !slices.Contains(d.Levels, c.Level) {
		return false
	}
	if len(d.Keywords) > 0 {
		text := graph.MatchText(c)
		for _, kw := range d.Keywords {
			if kw = strings.ToLower(kw); kw != "" && strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
	if len(d.PriorityTypes) > 0 {
		return slices.Contains(d.PriorityTypes, c.Type)
	}
	return true
}

// DefaultDefinitions returns the transformer curriculum clusters in priority
// order.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID:            "foundations",
			Title:         "Transformer Foundations",
			Description:   "Core concepts every transformer practitioner must understand",
			Levels:        []model.Level{model.LevelFoundational},
			PriorityTypes: []model.ConceptType{model.TypeTheory, model.TypeComponent},
		},
		{
			ID:          "encoder_models",
			Title:       "Encoder Models (BERT Family)",
			Description: "Understanding bidirectional transformers and their applications",
			Levels:      []model.Level{model.LevelIntermediate},
			Keywords:    []string{"bert", "roberta", "electra", "deberta", "albert", "distilbert", "encoder"},
		},
		{
			ID:          "decoder_models",
			Title:       "Decoder Models (GPT Family)",
			Description: "Autoregressive language models from GPT to modern LLMs",
			Levels:      []model.Level{model.LevelIntermediate, model.LevelAdvanced},
			Keywords:    []string{"gpt", "llama", "mistral", "falcon", "opt", "bloom", "decoder", "causal", "autoregressive"},
		},
		{
			ID:          "seq2seq_models",
			Title:       "Sequence-to-Sequence Models",
			Description: "Encoder-decoder architectures for translation and generation",
			Levels:      []model.Level{model.LevelIntermediate},
			Keywords:    []string{"t5", "bart", "marian", "pegasus", "seq2seq", "encoder_decoder"},
		},
		{
			ID:          "efficiency",
			Title:       "Efficiency & Optimization",
			Description: "Making transformers faster and smaller",
			Levels:      []model.Level{model.LevelAdvanced},
			Keywords: []string{
				"attention", "flash", "quantization", "pruning", "distillation",
				"efficient", "sparse", "linear", "cache", "optimization",
			},
		},
		{
			ID:          "frontier",
			Title:       "Frontier Models & Techniques",
			Description: "Cutting-edge architectures and emerging paradigms",
			Levels:      []model.Level{model.LevelFrontier},
		},
	}
}

// DefaultFallback maps each level to the cluster that takes its unmatched
// concepts.
func DefaultFallback() map[model.Level]string {
	return map[model.Level]string{
		model.LevelFoundational: "foundations",
		model.LevelIntermediate: "encoder_models",
		model.LevelAdvanced:     "efficiency",
		model.LevelFrontier:     "frontier",
	}
}
