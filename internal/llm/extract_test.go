package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/kg-course/internal/expand"
	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/model"
)

type reply struct {
	text string
	err  error
}

// fakeCompleter replays replies in order and records user prompts.
type fakeCompleter struct {
	replies []reply
	users   []string
	systems []string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string, _ int) (string, error) {
	i := len(f.users)
	f.users = append(f.users, user)
	f.systems = append(f.systems, system)
	if i >= len(f.replies) {
		return "", errors.New("unexpected call")
	}
	return f.replies[i].text, f.replies[i].err
}

const twoNodes = "```json\n" + `{"nodes":[
	{"id":"self_attention","name":"Self-Attention","type":"theory","level":"foundational"},
	{"id":"bert","name":"BERT","type":"architecture","level":"intermediate","confidence":0.9}
],"edges":[{"source":"self_attention","target":"bert","relationship":"requires"}]}` + "\n```"

func TestExtractFirstAttempt(t *testing.T) {
	f := &fakeCompleter{replies: []reply{{text: twoNodes}}}
	g := graph.New()

	out, err := (&Extractor{Completer: f}).Extract(context.Background(), g, Source{Summary: "models: bert"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Contains(t, f.users[0], "models: bert")
	assert.Contains(t, f.systems[0], "architecture, technique, component")

	c, _ := g.Concept("self_attention")
	assert.Equal(t, 1.0, c.Confidence)
}

func TestExtractRetriesWithReducedPrompt(t *testing.T) {
	f := &fakeCompleter{replies: []reply{{text: `{"nodes":[],"edges":[]}`}, {text: twoNodes}}}
	g := graph.New()

	out, err := (&Extractor{Completer: f}).Extract(context.Background(), g, Source{Summary: "big", Topics: []string{"bert", "gpt2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 2, g.Len())
	require.Len(t, f.users, 2)
	assert.Contains(t, f.users[1], "Topics include: bert, gpt2.")
	assert.Equal(t, f.systems[0], f.systems[1])
}

func TestExtractRetriesAfterFailure(t *testing.T) {
	f := &fakeCompleter{replies: []reply{{err: errors.New("timeout")}, {text: "garbage"}}}
	g := graph.New()

	out, err := (&Extractor{Completer: f}).Extract(context.Background(), g, Source{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPayload))
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 0, g.Len())
}

func TestExtractEmptyRetryIsNotAnError(t *testing.T) {
	f := &fakeCompleter{replies: []reply{{text: `{"nodes":[]}`}, {err: errors.New("down")}}}
	out, err := (&Extractor{Completer: f}).Extract(context.Background(), graph.New(), Source{})
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestGeneratorAcceptsNewKeys(t *testing.T) {
	f := &fakeCompleter{replies: []reply{{text: `Sure! {"new_nodes":[{"id":"mamba","name":"Mamba","level":"frontier"}],"new_edges":[]}`}}}
	gen := &Generator{Completer: f}

	// Text before the object is not stripped, so this reply has no payload.
	_, err := gen.Generate(context.Background(), expand.Request{Round: 1, State: "- a: A", Count: 3})
	assert.True(t, errors.Is(err, ErrNoPayload))

	f.replies = append(f.replies, reply{text: `{"new_nodes":[{"id":"mamba","name":"Mamba","level":"frontier"}],"new_edges":[]}`})
	batch, err := gen.Generate(context.Background(), expand.Request{Round: 2, State: "- a: A", Count: 3})
	require.NoError(t, err)
	require.Len(t, batch.Nodes, 1)
	assert.Equal(t, "mamba", batch.Nodes[0]["id"])
	assert.True(t, strings.Contains(f.users[1], "Identify 3 new"))
	assert.Contains(t, f.users[1], "- a: A")
}

func TestGeneratorDrivesExpander(t *testing.T) {
	f := &fakeCompleter{replies: []reply{
		{text: `{"new_nodes":[{"id":"mamba","name":"Mamba","type":"architecture","level":"frontier"}],
			"new_edges":[{"source":"ssm","target":"mamba","relationship":"evolves_to"}]}`},
		{text: `{"new_nodes":[]}`},
	}}
	g := graph.New()
	require.True(t, g.AddConcept(model.Concept{ID: "ssm", Name: "State space model", Type: model.TypeTheory, Level: model.LevelAdvanced}))

	rep, err := (&expand.Expander{Generator: &Generator{Completer: f}, Rounds: 3}).Expand(context.Background(), g)
	require.NoError(t, err)
	assert.Len(t, rep.Rounds, 2)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"mamba"}, g.SuccessorsByRelationship("ssm", model.RelEvolvesTo))
}

func TestReducedPromptCapsTopics(t *testing.T) {
	topics := make([]string, 40)
	for i := range topics {
		topics[i] = "t"
	}
	p := ReducedExtractionPrompt(topics)
	assert.Equal(t, 30, strings.Count(p, "t, ")+1)
	assert.Contains(t, ReducedExtractionPrompt(nil), "(none listed)")
}

func TestExtractFitsSummaryToBudget(t *testing.T) {
	f := &fakeCompleter{replies: []reply{{text: twoNodes}}}
	summary := "# Models\nbert, gpt2\n# Commits\n" + strings.Repeat("refactor attention\n", 20)

	ex := &Extractor{Completer: f, SummaryBudget: 40}
	_, err := ex.Extract(context.Background(), graph.New(), Source{Summary: summary})
	require.NoError(t, err)
	assert.Contains(t, f.users[0], "# Models\nbert, gpt2")
	assert.NotContains(t, f.users[0], "# Commits")
}
