package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/llm"
)

func init() {
	cmd := &cobra.Command{
		Use:   "extract [summary-file]",
		Short: "Extract an initial graph from an analysis summary",
		Long:  "Ask the model for concepts and relationships described by a free-text summary (file or stdin) and merge what validates into the graph.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runExtract,
	}

	cmd.Flags().StringP("topics", "t", "", "Comma-separated topic names for the reduced retry prompt")
	cmd.Flags().Int("summary-budget", 0, "Max summary bytes in the prompt, kept in whole sections (default 24000)")

	RootCmd.AddCommand(cmd)
}

func runExtract(cmd *cobra.Command, args []string) {
	topics, _ := cmd.Flags().GetString("topics")
	budget, _ := cmd.Flags().GetInt("summary-budget")

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	summary, err := readInput(path)
	if err != nil {
		exitErr("read summary", err)
	}

	g, err := openGraph(true)
	if err != nil {
		exitErr("load graph", err)
	}

	ex := &llm.Extractor{
		Completer:     llm.NewClient(cfg.LLMConfig(), log, metrics),
		Validator:     validator(),
		Timeout:       cfg.TimeoutDuration(),
		SummaryBudget: budget,
		Log:           log,
		Metrics:       metrics,
	}
	res, err := ex.Extract(cmd.Context(), g, llm.Source{Summary: summary, Topics: splitList(topics)})
	if err != nil {
		exitErr("extract", err)
	}
	if err := g.Save(graphPath); err != nil {
		exitErr("save graph", err)
	}

	printJSON(map[string]any{
		"attempts":      res.Attempts,
		"nodes_added":   len(res.Nodes),
		"edges_added":   len(res.Edges),
		"skipped_nodes": res.SkippedNodes,
		"skipped_edges": res.SkippedEdges,
		"dropped_edges": res.DroppedEdges,
		"graph":         g.Stats(),
	})
}
