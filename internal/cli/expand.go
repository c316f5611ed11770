package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/expand"
	"github.com/rcliao/kg-course/internal/llm"
	"github.com/rcliao/kg-course/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Grow the graph frontier over bounded rounds",
		Long:  "Ask the model for new concepts that build on the graph, for up to --rounds rounds. Each round is validated and merged; a round that adds nothing stops the run.",
		Run:   runExpand,
	}

	cmd.Flags().IntP("rounds", "r", 0, "Rounds (default from config)")
	cmd.Flags().IntP("per-round", "n", 0, "Concepts requested per round (default from config)")
	cmd.Flags().Duration("timeout", 0, "Per-call timeout (default from config)")
	cmd.Flags().Bool("journal", true, "Record the run and its rounds in the journal database")
	cmd.Flags().StringP("snapshot", "s", "", "Store the expanded graph as a snapshot with this name")

	RootCmd.AddCommand(cmd)
}

func runExpand(cmd *cobra.Command, args []string) {
	rounds, _ := cmd.Flags().GetInt("rounds")
	perRound, _ := cmd.Flags().GetInt("per-round")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	useJournal, _ := cmd.Flags().GetBool("journal")
	snapshot, _ := cmd.Flags().GetString("snapshot")

	if rounds <= 0 {
		rounds = cfg.Rounds
	}
	if perRound <= 0 {
		perRound = cfg.ConceptsPerRound
	}
	if timeout <= 0 {
		timeout = cfg.TimeoutDuration()
	}

	g, err := openGraph(false)
	if err != nil {
		exitErr("load graph", err)
	}

	client := llm.NewClient(cfg.LLMConfig(), log, metrics)
	e := &expand.Expander{
		Generator:         &llm.Generator{Completer: client},
		Validator:         validator(),
		Rounds:            rounds,
		PerRound:          perRound,
		Timeout:           timeout,
		DescriptionPrefix: cfg.DescriptionPrefix,
		Log:               log,
		Metrics:           metrics,
	}

	ctx := cmd.Context()
	var s *store.SQLiteStore
	var journal *store.RunJournal
	if useJournal || snapshot != "" {
		if s, err = openStore(); err != nil {
			exitErr("open store", err)
		}
		defer s.Close()
	}
	if useJournal {
		journal, err = s.StartRun(ctx, store.StartRunParams{
			Snapshot: snapshot,
			Model:    client.Model(),
			Rounds:   rounds,
			PerRound: perRound,
		})
		if err != nil {
			exitErr("start run", err)
		}
		e.Journal = journal
	}

	start := time.Now()
	rep, runErr := e.Expand(ctx, g)
	if journal != nil {
		if err := journal.Finish(ctx, runErr); err != nil {
			log.Warn("finish run failed", "run", journal.ID(), "error", err)
		}
	}

	// Rounds merged before a cancellation are kept.
	if err := g.Save(graphPath); err != nil {
		exitErr("save graph", err)
	}
	if runErr != nil {
		exitErr("expand", runErr)
	}

	out := map[string]any{
		"rounds":      rep.Rounds,
		"nodes_added": rep.NodesAdded,
		"edges_added": rep.EdgesAdded,
		"exhausted":   rep.Exhausted,
		"elapsed":     time.Since(start).String(),
		"graph":       g.Stats(),
	}
	if journal != nil {
		out["run_id"] = journal.ID()
	}
	if snapshot != "" {
		snap, err := s.Put(ctx, store.PutParams{Name: snapshot, Graph: g, Note: "expand"})
		if err != nil {
			exitErr("put snapshot", err)
		}
		out["snapshot"] = map[string]any{"name": snap.Name, "version": snap.Version, "id": snap.ID}
	}
	printJSON(out)
}
