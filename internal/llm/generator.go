package llm

import (
	"context"
	"fmt"

	"github.com/rcliao/kg-course/internal/expand"
	"github.com/rcliao/kg-course/internal/ingest"
)

// ExpansionMaxTokens bounds expansion replies.
const ExpansionMaxTokens = 4096

// Generator asks the model for new frontier concepts. It satisfies
// expand.Generator.
type Generator struct {
	Completer Completer
}

var _ expand.Generator = (*Generator)(nil)

func (g *Generator) Generate(ctx context.Context, req expand.Request) (ingest.Batch, error) {
	system, user := ExpansionPrompts(req.State, req.Count)
	text, err := g.Completer.Complete(ctx, system, user, ExpansionMaxTokens)
	if err != nil {
		return ingest.Batch{}, err
	}
	payload, err := ExtractJSON(text)
	if err != nil {
		return ingest.Batch{}, fmt.Errorf("round %d: %w", req.Round, err)
	}
	return ingest.BatchFromMap(payload), nil
}
