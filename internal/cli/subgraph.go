package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "subgraph <id...>",
		Short: "Extract the subgraph induced by a set of concepts",
		Long:  "Print the graph document restricted to the given ids and the edges between them. Unknown ids are ignored. With --prerequisites, each id's direct prerequisites are included.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSubgraph,
	}

	cmd.Flags().StringP("out", "o", "", "Write the subgraph document to this file instead of stdout")
	cmd.Flags().Bool("prerequisites", false, "Include direct prerequisites of each id")

	RootCmd.AddCommand(cmd)
}

func runSubgraph(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")
	withPrereqs, _ := cmd.Flags().GetBool("prerequisites")

	g, err := openGraph(false)
	if err != nil {
		exitErr("load graph", err)
	}

	ids := append([]string(nil), args...)
	if withPrereqs {
		prereqs, err := cfg.PrerequisiteTypes()
		if err != nil {
			exitErr("subgraph", err)
		}
		for _, id := range args {
			ids = append(ids, g.PredecessorsByRelationship(id, prereqs...)...)
		}
	}
	sub := g.Subgraph(ids)

	if out != "" {
		if err := sub.Save(out); err != nil {
			exitErr("save subgraph", err)
		}
		fmt.Printf(`{"ok":true,"path":%q,"concepts":%d,"edges":%d}`+"\n", out, sub.Len(), sub.EdgeCount())
		return
	}
	b, err := sub.Marshal()
	if err != nil {
		exitErr("encode subgraph", err)
	}
	cmd.OutOrStdout().Write(b)
}
