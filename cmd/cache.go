package cmd

import (
	"fmt"
	"strconv"

	"github.com/jfmyers9/riffnet/internal/cache"
	"github.com/jfmyers9/riffnet/internal/config"
	"github.com/jfmyers9/riffnet/internal/pipeline"
	"github.com/spf13/cobra"
)

var cacheDir string

// cacheCmd groups the cache maintenance commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the provider cache",
	Long: `Inspect and maintain the on-disk provider cache.

Each dataset is one JSON file in the cache directory. Entries older than
the cache TTL are ignored by collect and can be removed with prune.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats [dataset...]",
	Short: "Show entry counts per dataset",
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune [dataset...]",
	Short: "Remove expired entries",
	RunE:  runCachePrune,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [dataset...]",
	Short: "Delete dataset files",
	Long: `Delete dataset files. With no arguments every dataset collect uses
is deleted.`,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)

	cacheCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Provider cache directory (default: from config)")
}

// openCache opens the store named by --cache-dir or the configuration
func openCache() (*cache.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	dir := cfg.CacheDir
	if cacheDir != "" {
		dir = cacheDir
	}
	return cache.NewStore(dir, cfg.CacheTTL, setupLogger(logFile, logLevel))
}

// datasetArgs returns the datasets named on the command line, or every
// dataset file present when none are
func datasetArgs(s *cache.Store, args []string) ([]string, error) {
	present, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return present, nil
	}

	known := make(map[string]bool, len(present))
	for _, name := range present {
		known[name] = true
	}
	for _, name := range args {
		if !known[name] {
			return nil, fmt.Errorf("no dataset %q in %s", name, s.Dir())
		}
	}
	return args, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	s, err := openCache()
	if err != nil {
		return err
	}
	names, err := datasetArgs(s, args)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Printf("Cache %s is empty\n", s.Dir())
		return nil
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		sum, err := s.Inspect(name)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			sum.Name,
			strconv.Itoa(sum.Valid),
			strconv.Itoa(sum.Expired),
			formatSize(sum.Size),
			sum.Modified.Format("2006-01-02 15:04"),
		})
	}

	fmt.Println(renderTable(
		[]string{"Dataset", "Valid", "Expired", "Size", "Modified"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Printf("TTL %s, directory %s\n", s.TTL(), s.Dir())
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	s, err := openCache()
	if err != nil {
		return err
	}
	names, err := datasetArgs(s, args)
	if err != nil {
		return err
	}

	total := 0
	for _, name := range names {
		removed, err := s.Prune(name)
		if err != nil {
			return err
		}
		if removed > 0 {
			fmt.Printf("%s: removed %d expired entries\n", name, removed)
		}
		total += removed
	}
	if total == 0 {
		fmt.Println("No expired entries")
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	s, err := openCache()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = pipeline.Datasets
	}
	for _, name := range names {
		if err := s.Clear(name); err != nil {
			return err
		}
	}
	fmt.Printf("Cleared %d datasets in %s\n", len(names), s.Dir())
	return nil
}
