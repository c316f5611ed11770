package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List expansion runs, or show one run with its rounds",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRuns,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max runs")

	RootCmd.AddCommand(cmd)
}

func runRuns(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if len(args) == 0 {
		runs, err := s.Runs(ctx, limit)
		if err != nil {
			exitErr("runs", err)
		}
		if runs == nil {
			runs = []store.Run{}
		}
		printJSON(runs)
		return
	}

	run, err := s.GetRun(ctx, args[0])
	if err != nil {
		exitErr("get run", err)
	}
	rounds, err := s.Rounds(ctx, run.ID)
	if err != nil {
		exitErr("rounds", err)
	}
	printJSON(map[string]any{"run": run, "rounds": rounds})
}
