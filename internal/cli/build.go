package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/curriculum"
	"github.com/rcliao/kg-course/internal/order"
)

func init() {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Partition the ordered graph into courses",
		Long:  "Order the graph, then assign every concept to exactly one course using the configured cluster definitions and level fallback.",
		Run:   runBuild,
	}

	cmd.Flags().StringP("out", "o", "", "Also write the course list to this file")

	RootCmd.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	g, err := openGraph(false)
	if err != nil {
		exitErr("load graph", err)
	}
	prereqs, err := cfg.PrerequisiteTypes()
	if err != nil {
		exitErr("build", err)
	}
	cl, err := cfg.Clusterer()
	if err != nil {
		exitErr("build", err)
	}
	cl.Log = log

	seq := order.Engine{Prerequisites: prereqs}.Order(g)
	courses, err := cl.Cluster(g, seq.IDs)
	if err != nil {
		exitErr("build", err)
	}
	log.Info("courses built", "courses", len(courses), "concepts", g.Len(), "cyclic", seq.Cyclic)

	if out != "" {
		if err := curriculum.SaveCourses(out, courses); err != nil {
			exitErr("save courses", err)
		}
	}
	b, err := curriculum.MarshalCourses(courses)
	if err != nil {
		exitErr("encode courses", err)
	}
	cmd.OutOrStdout().Write(b)
}
