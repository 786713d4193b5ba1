package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jfmyers9/riffnet/internal/cache"
	"github.com/jfmyers9/riffnet/internal/config"
	"github.com/jfmyers9/riffnet/internal/features"
	"github.com/jfmyers9/riffnet/internal/graph"
	"github.com/jfmyers9/riffnet/internal/pipeline"
	"github.com/jfmyers9/riffnet/internal/provider/lastfm"
	"github.com/jfmyers9/riffnet/internal/provider/spotify"
	"github.com/jfmyers9/riffnet/internal/provider/ticketmaster"
	"github.com/jfmyers9/riffnet/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	collectPlaylist      string
	collectCacheDir      string
	collectFeatures      string
	collectRelationships string
	collectDatabase      string
	collectRestrict      bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect artist features and relationships from a playlist",
	Long: `Collect artist features and relationships from a Spotify playlist.

The collector will:
- Read every track of the playlist and count tracks per primary artist
- Look up each artist on Spotify, Last.fm and Ticketmaster
- Expand the artist universe with similar artists and tour co-performers
- Look up the new artists by name
- Write the feature table (CSV) and relationship graph (JSON)
- Record the run in the history database

Interrupting with Ctrl-C stops the run without writing partial caches.
A second Ctrl-C exits immediately.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectPlaylist, "playlist", "", "Spotify playlist URL, URI or id")
	collectCmd.Flags().StringVar(&collectCacheDir, "cache-dir", "", "Provider cache directory (default: cache)")
	collectCmd.Flags().StringVar(&collectFeatures, "features-out", "", "Feature table path (default: artist_features.csv)")
	collectCmd.Flags().StringVar(&collectRelationships, "relationships-out", "", "Relationship graph path (default: artist_relationships.json)")
	collectCmd.Flags().StringVar(&collectDatabase, "db", "", "Run history database (default: ~/.local/share/riffnet/runs.db)")
	collectCmd.Flags().BoolVar(&collectRestrict, "restrict", false, "Keep only edges between artists in the feature table")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyCollectFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(logFile, logLevel)

	playlistID, err := spotify.ParsePlaylistID(cfg.Playlist)
	if err != nil {
		return fmt.Errorf("invalid playlist: %w", err)
	}

	catalog, err := spotify.New(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}
	listening, err := lastfm.New(lastfm.Config{
		APIKey:   cfg.LastFM.APIKey,
		Username: cfg.LastFM.Username,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create Last.fm client: %w", err)
	}
	events, err := ticketmaster.New(ticketmaster.Config{
		APIKey: cfg.Ticketmaster.APIKey,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create Ticketmaster client: %w", err)
	}

	caches, err := cache.NewStore(cfg.CacheDir, cfg.CacheTTL, logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	p, err := pipeline.New(pipeline.Config{
		PlaylistID:       playlistID,
		CatalogWorkers:   cfg.Fetch.CatalogWorkers,
		CatalogDelay:     cfg.Fetch.CatalogDelay,
		ListeningWorkers: cfg.Fetch.ListeningWorkers,
		EventsWorkers:    cfg.Fetch.EventsWorkers,
		Denylist:         cfg.Denylist,
		RestrictToTable:  cfg.Graph.RestrictToTable,
	}, catalog, listening, events, caches, logger)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle first signal gracefully, second signal forces exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		logger.Info().Msg("Shutdown signal received, stopping collection")
		cancel()

		<-sigChan
		logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	started := time.Now()
	result, err := p.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("collection interrupted")
		}
		return fmt.Errorf("collection failed: %w", err)
	}

	if err := features.WriteFile(cfg.Output.Features, result.Records); err != nil {
		return err
	}
	if err := graph.WriteFile(cfg.Output.Relationships, result.Relationships); err != nil {
		return err
	}
	logger.Info().
		Str("features", cfg.Output.Features).
		Str("relationships", cfg.Output.Relationships).
		Msg("Wrote outputs")

	if cfg.Output.Database != "" {
		if err := recordRun(ctx, cfg, playlistID, started, result, logger); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
	}

	fmt.Printf("%d artists (%d from playlist), %d relationships, %d lookups fell back\n",
		len(result.Records),
		result.Stats.PlaylistArtists,
		len(result.Relationships),
		result.Stats.Failed())
	return nil
}

// applyCollectFlags overrides configuration with flags set on the command line
func applyCollectFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("playlist") {
		cfg.Playlist = collectPlaylist
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = collectCacheDir
	}
	if flags.Changed("features-out") {
		cfg.Output.Features = collectFeatures
	}
	if flags.Changed("relationships-out") {
		cfg.Output.Relationships = collectRelationships
	}
	if flags.Changed("db") {
		cfg.Output.Database = collectDatabase
	}
	if flags.Changed("restrict") {
		cfg.Graph.RestrictToTable = collectRestrict
	}
}

// recordRun stores the run in the history database and prunes old runs
func recordRun(ctx context.Context, cfg *config.Config, playlistID string, started time.Time, result *pipeline.Result, logger zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Output.Database), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := store.Open(cfg.Output.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, store.Run{
		Playlist:           playlistID,
		StartedAt:          started,
		FinishedAt:         time.Now(),
		Tracks:             result.Stats.PlaylistTracks,
		PlaylistArtists:    result.Stats.PlaylistArtists,
		NonPlaylistArtists: result.Stats.NonPlaylistArtists,
		Failed:             result.Stats.Failed(),
		Duplicates:         result.Stats.Duplicates,
		Incomplete:         result.Stats.Incomplete,
	}, result.Records, result.Relationships)
	if err != nil {
		return err
	}
	logger.Info().Str("run", id).Str("database", cfg.Output.Database).Msg("Recorded run")

	if cfg.Output.KeepRuns > 0 {
		removed, err := db.Prune(ctx, cfg.Output.KeepRuns)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Debug().Int64("removed", removed).Msg("Pruned old runs")
		}
	}
	return nil
}
