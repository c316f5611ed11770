package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/ingest"
	"github.com/rcliao/kg-course/internal/llm"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [batch-file]",
		Short: "Validate and merge a candidate batch into the graph",
		Long:  "Read a {nodes, edges} (or {new_nodes, new_edges}) payload from a file or stdin, validate it and merge the accepted records. Fenced or truncated JSON is accepted.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runIngest,
	}

	cmd.Flags().StringP("provenance", "p", "extraction", "Provenance: extraction or expansion")
	cmd.Flags().Bool("dry-run", false, "Validate only; do not write the graph")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	provStr, _ := cmd.Flags().GetString("provenance")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var prov ingest.Provenance
	switch provStr {
	case "extraction":
		prov = ingest.Extraction
	case "expansion":
		prov = ingest.Expansion
	default:
		exitErr("ingest", fmt.Errorf("unknown provenance %q", provStr))
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	text, err := readInput(path)
	if err != nil {
		exitErr("read batch", err)
	}
	payload, err := llm.ExtractJSON(text)
	if err != nil {
		exitErr("parse batch", err)
	}

	g, err := openGraph(true)
	if err != nil {
		exitErr("load graph", err)
	}

	v := validator()
	batch := ingest.BatchFromMap(payload)
	var res ingest.Result
	if dryRun {
		res = v.Validate(g, batch, prov)
	} else {
		res = v.Ingest(g, batch, prov)
		if err := g.Save(graphPath); err != nil {
			exitErr("save graph", err)
		}
	}

	printJSON(map[string]any{
		"dry_run":       dryRun,
		"nodes":         len(res.Nodes),
		"edges":         len(res.Edges),
		"skipped_nodes": res.SkippedNodes,
		"skipped_edges": res.SkippedEdges,
		"dropped_edges": res.DroppedEdges,
	})
}
