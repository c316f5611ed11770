package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mermaid [id...]",
		Short: "Render the graph as a Mermaid flowchart",
		Long:  "Render the graph (or the subgraph over the given ids) as Mermaid graph LR text, marking completed and current concepts.",
		Run:   runMermaid,
	}

	cmd.Flags().String("completed", "", "Comma-separated completed concept ids")
	cmd.Flags().String("current", "", "Current concept id")

	RootCmd.AddCommand(cmd)
}

func runMermaid(cmd *cobra.Command, args []string) {
	completed, _ := cmd.Flags().GetString("completed")
	current, _ := cmd.Flags().GetString("current")

	g, err := openGraph(false)
	if err != nil {
		exitErr("load graph", err)
	}
	if len(args) > 0 {
		g = g.Subgraph(args)
	}
	fmt.Println(g.Mermaid(splitList(completed), current))
}
