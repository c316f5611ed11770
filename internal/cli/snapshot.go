package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/kg-course/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage versioned graph snapshots in the journal",
}

func init() {
	put := &cobra.Command{
		Use:   "put <name>",
		Short: "Store the current graph as a new snapshot version",
		Args:  cobra.ExactArgs(1),
		Run:   runSnapshotPut,
	}
	put.Flags().StringP("note", "m", "", "Note stored with the version")

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List the latest version of each snapshot",
		Run:   runSnapshotList,
	}
	ls.Flags().IntP("limit", "l", 20, "Max results")
	ls.Flags().Bool("names-only", false, "Only output snapshot names")

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch a snapshot",
		Long:  "Print snapshot metadata, or with --restore write its document to --graph.",
		Args:  cobra.ExactArgs(1),
		Run:   runSnapshotGet,
	}
	get.Flags().Int("version", 0, "Version to fetch (default latest)")
	get.Flags().Bool("history", false, "List every version")
	get.Flags().Bool("restore", false, "Write the snapshot document to the graph path")

	rm := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a snapshot",
		Long:  "Soft-delete the latest version of a snapshot. The previous version becomes latest.",
		Args:  cobra.ExactArgs(1),
		Run:   runSnapshotRm,
	}
	rm.Flags().Bool("all", false, "Delete every version")
	rm.Flags().Bool("hard", false, "Remove rows instead of marking them deleted")

	export := &cobra.Command{
		Use:   "export [name]",
		Short: "Export snapshots as JSON",
		Long:  "Export every version of every snapshot (or of one name), documents included.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runSnapshotExport,
	}

	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Import snapshots from JSON",
		Long:  "Import snapshots from JSON (file or stdin). Expects the format produced by export.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runSnapshotImport,
	}

	snapshotCmd.AddCommand(put, ls, get, rm, export, imp)
	RootCmd.AddCommand(snapshotCmd)
}

func runSnapshotPut(cmd *cobra.Command, args []string) {
	note, _ := cmd.Flags().GetString("note")

	g, err := openGraph(false)
	if err != nil {
		exitErr("load graph", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snap, err := s.Put(cmd.Context(), store.PutParams{Name: args[0], Graph: g, Note: note})
	if err != nil {
		exitErr("put", err)
	}
	snap.Document = nil

	b, _ := json.Marshal(snap)
	fmt.Println(string(b))
}

func runSnapshotList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	namesOnly, _ := cmd.Flags().GetBool("names-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snaps, err := s.List(cmd.Context(), store.ListParams{Limit: limit})
	if err != nil {
		exitErr("list", err)
	}

	if namesOnly {
		for _, snap := range snaps {
			fmt.Printf("%s@%d\n", snap.Name, snap.Version)
		}
		return
	}
	if snaps == nil {
		snaps = []store.Snapshot{}
	}
	printJSON(snaps)
}

func runSnapshotGet(cmd *cobra.Command, args []string) {
	version, _ := cmd.Flags().GetInt("version")
	history, _ := cmd.Flags().GetBool("history")
	restore, _ := cmd.Flags().GetBool("restore")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snaps, err := s.Get(cmd.Context(), store.GetParams{Name: args[0], Version: version, History: history})
	if err != nil {
		exitErr("get", err)
	}

	if restore {
		g, err := snaps[0].Graph()
		if err != nil {
			exitErr("decode snapshot", err)
		}
		if err := g.Save(graphPath); err != nil {
			exitErr("save graph", err)
		}
		log.Info("snapshot restored", "name", snaps[0].Name, "version", snaps[0].Version, "path", graphPath)
	}

	for i := range snaps {
		snaps[i].Document = nil
	}
	printJSON(snaps)
}

func runSnapshotRm(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	hard, _ := cmd.Flags().GetBool("hard")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Rm(cmd.Context(), store.RmParams{Name: args[0], AllVersions: all, Hard: hard}); err != nil {
		exitErr("rm", err)
	}
	fmt.Printf(`{"ok":true,"name":%s}`+"\n", strconv.Quote(args[0]))
}

func runSnapshotExport(cmd *cobra.Command, args []string) {
	var name string
	if len(args) > 0 {
		name = args[0]
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snaps, err := s.ExportAll(cmd.Context(), name)
	if err != nil {
		exitErr("export", err)
	}
	if snaps == nil {
		snaps = []store.Snapshot{}
	}
	printJSON(snaps)
}

func runSnapshotImport(cmd *cobra.Command, args []string) {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	data, err := readInput(path)
	if err != nil {
		exitErr("read input", err)
	}

	var snaps []store.Snapshot
	if err := json.Unmarshal([]byte(data), &snaps); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), snaps)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
