package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show graph and journal statistics",
		Run:   runStats,
	}

	cmd.Flags().Bool("journal", false, "Include journal database statistics")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	withJournal, _ := cmd.Flags().GetBool("journal")

	out := map[string]any{"graph_path": graphPath}
	if _, err := os.Stat(graphPath); err == nil {
		g, err := openGraph(false)
		if err != nil {
			exitErr("load graph", err)
		}
		out["graph"] = g.Stats()
		out["roots"] = len(g.Roots())
		out["leaves"] = len(g.Leaves())
	}

	if withJournal {
		s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer s.Close()

		stats, err := s.Stats(cmd.Context(), getDBPath())
		if err != nil {
			exitErr("stats", err)
		}
		out["journal"] = stats
	}

	printJSON(out)
}
