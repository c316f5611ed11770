// Package expand grows a concept graph through bounded rounds of candidate
// generation. Each round asks a Generator for new candidates given the
// current graph, validates them and merges what survives. A round that adds no
// concept ends the run.
package expand

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/ingest"
	"github.com/rcliao/kg-course/internal/logger"
	"github.com/rcliao/kg-course/internal/observability"
)

// Defaults for a zero-valued Expander.
const (
	DefaultRounds            = 2
	DefaultPerRound          = 10
	DefaultTimeout           = 120 * time.Second
	DefaultDescriptionPrefix = 100
)

// Request is what a Generator is asked for in one round.
type Request struct {
	Round int
	// State describes every concept currently in the graph, one per line.
	State string
	// Count is the number of new concepts wanted.
	Count int
}

// Generator produces candidate records. It is an opaque blocking call that
// must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req Request) (ingest.Batch, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (ingest.Batch, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (ingest.Batch, error) {
	return f(ctx, req)
}

// Journal receives a report after every round.
type Journal interface {
	RecordRound(ctx context.Context, r RoundReport) error
}

// RoundReport summarizes one expansion round.
type RoundReport struct {
	Round         int           `json:"round"`
	Requested     int           `json:"requested"`
	Candidates    int           `json:"candidates"`
	NodesAdded    int           `json:"nodes_added"`
	EdgesAdded    int           `json:"edges_added"`
	SkippedNodes  int           `json:"skipped_nodes"`
	SkippedEdges  int           `json:"skipped_edges"`
	DroppedEdges  int           `json:"dropped_edges"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	GraphConcepts int           `json:"graph_concepts"`
	GraphEdges    int           `json:"graph_edges"`
}

// Outcome classifies the round for metrics: "failed" when the collaborator
// call failed, "empty" when it succeeded without a new concept, otherwise
// "progress".
func (r RoundReport) Outcome() string {
	switch {
	case r.Error != "":
		return "failed"
	case r.NodesAdded == 0:
		return "empty"
	default:
		return "progress"
	}
}

// Report summarizes a whole run.
type Report struct {
	Rounds     []RoundReport `json:"rounds"`
	NodesAdded int           `json:"nodes_added"`
	EdgesAdded int           `json:"edges_added"`
	// Exhausted is set when every configured round ran and made progress.
	Exhausted bool `json:"exhausted"`
}

// Expander drives frontier expansion. Zero numeric fields take the package
// defaults.
type Expander struct {
	Generator         Generator
	Validator         ingest.Validator
	Rounds            int
	PerRound          int
	Timeout           time.Duration
	DescriptionPrefix int
	Log               *logger.Logger
	Metrics           *observability.Collector
	Journal           Journal
}

// Expand runs up to Rounds rounds against g. A failed or timed-out collaborator
// call counts as a round with no candidates and stops the run. The only error
// returned is ctx's own, after which g holds the rounds merged so far.
func (e *Expander) Expand(ctx context.Context, g *graph.Graph) (Report, error) {
	rounds := positive(e.Rounds, DefaultRounds)
	log := e.Log
	if log == nil {
		log = logger.NewNop()
	}

	ctx, span := observability.Tracer().Start(ctx, "expand.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("expand.rounds", rounds),
		attribute.Int("expand.per_round", positive(e.PerRound, DefaultPerRound)),
		attribute.Int("graph.concepts", g.Len()),
	)

	var rep Report
	for round := 1; round <= rounds; round++ {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return rep, err
		}
		rr := e.round(ctx, g, round, log)
		rep.Rounds = append(rep.Rounds, rr)
		rep.NodesAdded += rr.NodesAdded
		rep.EdgesAdded += rr.EdgesAdded
		e.Metrics.RecordRound(rr.Outcome())
		if e.Journal != nil {
			if err := e.Journal.RecordRound(ctx, rr); err != nil {
				log.Warn("journal round failed", "round", round, "error", err)
			}
		}

		if rr.NodesAdded == 0 {
			log.Info("expansion made no progress, stopping", "round", round, "of", rounds, "error", rr.Error)
			if err := ctx.Err(); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return rep, err
			}
			break
		}
		log.Info("expansion round merged",
			"round", round,
			"of", rounds,
			"nodes", rr.NodesAdded,
			"edges", rr.EdgesAdded,
			"skipped", rr.SkippedNodes+rr.SkippedEdges+rr.DroppedEdges,
		)
		rep.Exhausted = round == rounds
	}

	span.SetAttributes(
		attribute.Int("expand.nodes_added", rep.NodesAdded),
		attribute.Int("expand.edges_added", rep.EdgesAdded),
	)
	return rep, nil
}

func (e *Expander) round(ctx context.Context, g *graph.Graph, round int, log *logger.Logger) RoundReport {
	ctx, span := observability.Tracer().Start(ctx, "expand.round")
	defer span.End()
	span.SetAttributes(attribute.Int("expand.round", round))

	req := Request{
		Round: round,
		State: DescribeGraph(g, positive(e.DescriptionPrefix, DefaultDescriptionPrefix)),
		Count: positive(e.PerRound, DefaultPerRound),
	}
	rr := RoundReport{Round: round, Requested: req.Count}

	start := time.Now()
	batch, err := e.generate(ctx, req)
	rr.Duration = time.Since(start)
	e.Metrics.RecordCall("expand", rr.Duration, err)

	if err != nil {
		log.Warn("candidate generation failed", "round", round, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		rr.Error = err.Error()
		return e.finish(g, rr)
	}

	rr.Candidates = len(batch.Nodes)
	res := e.Validator.Validate(g, batch, ingest.Expansion)
	rr.SkippedNodes, rr.SkippedEdges, rr.DroppedEdges = res.SkippedNodes, res.SkippedEdges, res.DroppedEdges
	if !res.Empty() {
		rr.NodesAdded, rr.EdgesAdded = ingest.Merge(g, res)
	}
	span.SetAttributes(
		attribute.Int("expand.candidates", rr.Candidates),
		attribute.Int("expand.nodes_added", rr.NodesAdded),
		attribute.Int("expand.edges_added", rr.EdgesAdded),
	)
	return e.finish(g, rr)
}

func (e *Expander) generate(ctx context.Context, req Request) (ingest.Batch, error) {
	if e.Generator == nil {
		return ingest.Batch{}, errors.New("no generator configured")
	}
	ctx, cancel := context.WithTimeout(ctx, positiveDuration(e.Timeout, DefaultTimeout))
	defer cancel()

	batch, err := e.Generator.Generate(ctx, req)
	if err != nil {
		return ingest.Batch{}, fmt.Errorf("generate round %d: %w", req.Round, err)
	}
	return batch, nil
}

func (e *Expander) finish(g *graph.Graph, rr RoundReport) RoundReport {
	rr.GraphConcepts = g.Len()
	rr.GraphEdges = g.EdgeCount()
	return rr
}

// DescribeGraph lists every concept of g as
// "- id: name (type, level) - description", with the description cut to at
// most prefix runes.
func DescribeGraph(g *graph.Graph, prefix int) string {
	var b strings.Builder
	for i, c := range g.Concepts() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s (%s, %s) - %s", c.ID, c.Name, c.Type, c.Level, truncate(c.Description, prefix))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func positiveDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
