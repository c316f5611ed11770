// Package cli implements the kg-course CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/config"
	"github.com/rcliao/kg-course/internal/graph"
	"github.com/rcliao/kg-course/internal/ingest"
	"github.com/rcliao/kg-course/internal/logger"
	"github.com/rcliao/kg-course/internal/observability"
	"github.com/rcliao/kg-course/internal/store"
)

var (
	dbPath      string
	configPath  string
	graphPath   string
	verbose     bool
	logFormat   string
	metricsFile string
	traceFlag   bool
)

// Shared state built before each command runs.
var (
	cfg           config.Config
	log           *logger.Logger
	metrics       *observability.Collector
	shutdownTrace func(context.Context) error
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "kg-course",
	Short: "Build prerequisite-ordered courses from a concept graph",
	Long:  "Grow a typed concept graph from model output, order it by prerequisites and partition it into courses. Results are JSON on stdout; logs go to stderr.",
}

func init() {
	RootCmd.SilenceUsage = true
	RootCmd.PersistentPreRunE = setup
	RootCmd.PersistentPostRunE = teardown

	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Journal database path (default: $KG_COURSE_DB or ~/.kg-course/journal.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file, .yaml or .hcl (default: $KG_COURSE_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&graphPath, "graph", "g", "knowledge_graph.json", "Graph document path")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "dev", "Log format: dev or prod")
	RootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus textfile metrics here on exit")
	RootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "Print trace spans to stderr")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if log, err = logger.New(logFormat, verbose); err != nil {
		return err
	}
	if cfg, err = config.Load(configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	metrics = observability.NewCollector("kg_course")
	if traceFlag {
		if shutdownTrace, err = observability.InitTracing(os.Stderr, "kg-course", log); err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	flush(cmd.Context())
	return nil
}

// flush writes metrics and ends tracing. exitErr calls it too since
// os.Exit skips the post-run hook.
func flush(ctx context.Context) {
	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil && log != nil {
			log.Warn("write metrics failed", "path", metricsFile, "error", err)
		}
	}
	if shutdownTrace != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		shutdownTrace(ctx)
		shutdownTrace = nil
	}
	if log != nil {
		log.Sync()
	}
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("KG_COURSE_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".kg-course", "journal.db")
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// openGraph loads the graph document, or returns an empty graph when the file
// does not exist and allowMissing is set.
func openGraph(allowMissing bool) (*graph.Graph, error) {
	if allowMissing {
		if _, err := os.Stat(graphPath); os.IsNotExist(err) {
			return graph.New(), nil
		}
	}
	return graph.Load(graphPath)
}

func validator() ingest.Validator {
	return ingest.Validator{Log: log, Metrics: metrics}
}

func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	flush(context.Background())
	os.Exit(1)
}
