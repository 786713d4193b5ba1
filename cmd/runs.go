package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jfmyers9/riffnet/internal/config"
	"github.com/jfmyers9/riffnet/internal/features"
	"github.com/jfmyers9/riffnet/internal/store"
	"github.com/spf13/cobra"
)

var (
	runsDatabase string
	runsLimit    int
	runsKeep     int
)

// runsCmd lists the collection history
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past collection runs",
	Long: `List past collection runs recorded in the history database.

Use --keep to delete all but the most recent runs.`,
	RunE: runRuns,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write the feature table of a past run as CSV to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsExportCmd)

	runsCmd.PersistentFlags().StringVar(&runsDatabase, "db", "", "Run history database (default: from config)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "Number of runs to show (0 shows all)")
	runsCmd.Flags().IntVar(&runsKeep, "keep", 0, "Delete all but the most recent N runs")
}

func openRuns() (*store.Store, error) {
	path := runsDatabase
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		path = cfg.Output.Database
	}
	if path == "" {
		return nil, fmt.Errorf("run history is disabled (output.database is empty)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no run history at %s", path)
	}
	return store.Open(path)
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := openRuns()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if runsKeep > 0 {
		removed, err := db.Prune(ctx, runsKeep)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d runs\n", removed)
	}

	runs, err := db.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.FinishedAt.Sub(r.StartedAt).String(),
			r.Playlist,
			strconv.Itoa(r.PlaylistArtists),
			strconv.Itoa(r.Records),
			strconv.Itoa(r.Relationships),
			strconv.Itoa(r.Failed),
		})
	}

	fmt.Println(renderTable(
		[]string{"Run", "Started", "Took", "Playlist", "Playlist Artists", "Artists", "Edges", "Fallbacks"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	db, err := openRuns()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.Records(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records for run %s", args[0])
	}
	return features.WriteCSV(os.Stdout, records)
}
