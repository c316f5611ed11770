package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find concepts by id, name or description",
		Long:  "Case-insensitive substring search over concept id, name and description. With --level, list concepts at that level instead (query optional).",
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")
	cmd.Flags().String("level", "", "Restrict to a level: foundational, intermediate, advanced, frontier")
	cmd.Flags().Bool("ids-only", false, "Only output concept ids")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	levelStr, _ := cmd.Flags().GetString("level")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")
	query := strings.Join(args, " ")

	if strings.TrimSpace(query) == "" && levelStr == "" {
		exitErr("search", fmt.Errorf("query or --level is required"))
	}

	g, err := openGraph(false)
	if err != nil {
		exitErr("load graph", err)
	}

	var results []model.Concept
	if levelStr != "" {
		level, err := model.ParseLevel(levelStr)
		if err != nil {
			exitErr("search", err)
		}
		q := strings.ToLower(strings.TrimSpace(query))
		for _, c := range g.ByLevel(level) {
			if q == "" || strings.Contains(graph.MatchText(c), q) {
				results = append(results, c)
			}
		}
		if limit > 0 && len(results) > limit {
			results = results[:limit]
		}
	} else {
		results = g.Search(query, limit)
	}

	if idsOnly {
		for _, c := range results {
			fmt.Println(c.ID)
		}
		return
	}
	if results == nil {
		results = []model.Concept{}
	}
	printJSON(results)
}
