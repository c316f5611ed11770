package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/order"
)

func init() {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print a prerequisite-respecting learning order",
		Long:  "Topologically order the graph over its prerequisite relationships. On a cycle the order falls back to level rank, then id, and cyclic is true.",
		Run:   runOrder,
	}

	RootCmd.AddCommand(cmd)
}

func runOrder(cmd *cobra.Command, args []string) {
	g, err := openGraph(false)
	if err != nil {
		exitErr("load graph", err)
	}
	prereqs, err := cfg.PrerequisiteTypes()
	if err != nil {
		exitErr("order", err)
	}

	res := order.Engine{Prerequisites: prereqs}.Order(g)
	if res.Cyclic {
		log.Warn("prerequisite cycle detected, using level fallback", "concepts", len(res.IDs))
	}
	printJSON(res)
}
