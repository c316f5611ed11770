package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/kg-course/internal/chunker"
	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/ingest"
	"github.com/rcliao/kg-course/internal/logger"
	"github.com/rcliao/kg-course/internal/observability"
)

// Source is the analysis material handed to one-shot extraction.
type Source struct {
	// Summary is the full analysis text.
	Summary string `json:"summary"`
	// Topics are short names (models, components) used by the reduced retry
	// prompt.
	Topics []string `json:"topics"`
}

// Extractor builds an initial graph from an analysis summary.
type Extractor struct {
	Completer Completer
	Validator ingest.Validator
	Timeout   time.Duration
	// SummaryBudget caps the summary bytes in the prompt. Whole sections are
	// kept; 0 means chunker.DefaultBudget.
	SummaryBudget int
	Log           *logger.Logger
	Metrics       *observability.Collector
}

// Extraction reports what one Extract call did.
type Extraction struct {
	ingest.Result
	Attempts int `json:"attempts"`
}

// Extract asks for {nodes, edges} and merges what validates into g with
// extraction provenance. When the first reply yields no concept, whether it
// failed or parsed empty, it retries once with a reduced prompt. An error is
// returned only when both attempts fail outright.
func (e *Extractor) Extract(ctx context.Context, g *graph.Graph, src Source) (Extraction, error) {
	log := e.Log
	if log == nil {
		log = logger.NewNop()
	}
	ctx, span := observability.Tracer().Start(ctx, "llm.extract")
	defer span.End()

	budget := e.SummaryBudget
	if budget <= 0 {
		budget = chunker.DefaultBudget
	}
	summary, omitted := chunker.Fit(src.Summary, budget)
	if omitted > 0 {
		log.Info("summary exceeds prompt budget, sections omitted", "omitted", omitted, "budget", budget)
	}

	system, user := ExtractionPrompts(summary)
	res, firstErr := e.attempt(ctx, g, system, user)
	out := Extraction{Result: res, Attempts: 1}
	if firstErr == nil && !res.Empty() {
		ingest.Merge(g, res)
		return out, nil
	}

	log.Warn("extraction yielded no concepts, retrying with reduced prompt", "error", firstErr)
	res, retryErr := e.attempt(ctx, g, system, ReducedExtractionPrompt(src.Topics))
	out = Extraction{Result: res, Attempts: 2}
	if retryErr != nil {
		if firstErr != nil {
			return out, errors.Join(firstErr, retryErr)
		}
		log.Warn("reduced extraction failed", "error", retryErr)
		return out, nil
	}
	ingest.Merge(g, res)
	return out, nil
}

func (e *Extractor) attempt(ctx context.Context, g *graph.Graph, system, user string) (ingest.Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := e.Completer.Complete(ctx, system, user, DefaultMaxTokens)
	e.Metrics.RecordCall("extract", time.Since(start), err)
	if err != nil {
		return ingest.Result{}, err
	}
	payload, err := ExtractJSON(text)
	if err != nil {
		return ingest.Result{}, err
	}
	return e.Validator.Validate(g, ingest.BatchFromMap(payload), ingest.Extraction), nil
}
