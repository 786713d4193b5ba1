// Package pipeline wires the fetch stages, classifiers and builders into
// one collection run.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/cache"
	"github.com/jfmyers9/riffnet/internal/features"
	"github.com/jfmyers9/riffnet/internal/fetch"
	"github.com/jfmyers9/riffnet/internal/graph"
	"github.com/jfmyers9/riffnet/internal/identity"
	"github.com/jfmyers9/riffnet/internal/tour"
	"github.com/rs/zerolog"
)

// Cache dataset names. They double as file names in the cache directory,
// so renaming one orphans its existing entries.
const (
	ArtistDataset      = "spotify_artist_cache"
	DiscographyDataset = "spotify_discog_cache"
	ListeningDataset   = "lastfm_cache"
	SimilarDataset     = "lastfm_similar_cache"
	EventsDataset      = "ticketmaster_cache"
)

// Datasets lists every cache dataset a run reads and writes
var Datasets = []string{
	ArtistDataset,
	DiscographyDataset,
	ListeningDataset,
	SimilarDataset,
	EventsDataset,
}

// Catalog is the artist catalog provider
type Catalog interface {
	Artist(ctx context.Context, id string) (artist.Profile, error)
	SearchArtist(ctx context.Context, name string) (artist.Profile, error)
	Albums(ctx context.Context, id, group string) (artist.Discography, error)
	PlaylistTracks(ctx context.Context, playlistID string, offset int) ([]artist.PlaylistTrack, int, error)
}

// Listening is the listening-history provider
type Listening interface {
	ArtistInfo(ctx context.Context, name string) (artist.Listening, error)
	SimilarArtists(ctx context.Context, name string) ([]artist.SimilarArtist, error)
}

// Events is the events provider
type Events interface {
	Events(ctx context.Context, name string) ([]artist.Event, error)
}

// Config holds pipeline configuration
type Config struct {
	PlaylistID       string        // Catalog playlist to seed the run from
	CatalogWorkers   int           // Concurrent catalog lookups (default 3)
	CatalogDelay     time.Duration // Pause before each catalog call
	ListeningWorkers int           // Concurrent listening lookups (default 5)
	EventsWorkers    int           // Concurrent event lookups (default 5)
	Denylist         []string      // Names that never enter the artist universe
	RestrictToTable  bool          // Keep only edges between artists in the feature table
	Now              func() time.Time
}

// Result is the output of one run
type Result struct {
	Records       []artist.Record
	Relationships []artist.Relationship
	Stats         Stats
}

// Stats summarizes a run
type Stats struct {
	PlaylistTracks     int
	PlaylistArtists    int
	NonPlaylistArtists int
	Duplicates         int
	Incomplete         int
	Stages             map[string]fetch.Stats
}

// Failed returns the number of items that fell back across all stages
func (s Stats) Failed() int {
	n := 0
	for _, st := range s.Stages {
		n += st.Failed
	}
	return n
}

// Pipeline coordinates the providers, the cache and the builders
type Pipeline struct {
	config     Config
	catalog    Catalog
	listening  Listening
	events     Events
	store      *cache.Store
	classifier *tour.Classifier
	logger     zerolog.Logger

	profiles     *cache.Dataset[artist.Profile]
	discography  *cache.Dataset[artist.Discography]
	listeningSet *cache.Dataset[artist.Listening]
	similar      *cache.Dataset[[]artist.SimilarArtist]
	eventSet     *cache.Dataset[[]artist.Event]

	stages map[string]fetch.Stats
}

// New creates a Pipeline and opens its cache datasets
func New(cfg Config, catalog Catalog, listening Listening, events Events, store *cache.Store, logger zerolog.Logger) (*Pipeline, error) {
	if cfg.CatalogWorkers <= 0 {
		cfg.CatalogWorkers = 3
	}
	if cfg.ListeningWorkers <= 0 {
		cfg.ListeningWorkers = 5
	}
	if cfg.EventsWorkers <= 0 {
		cfg.EventsWorkers = 5
	}
	if cfg.Denylist == nil {
		cfg.Denylist = identity.DefaultDenylist
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	p := &Pipeline{
		config:     cfg,
		catalog:    catalog,
		listening:  listening,
		events:     events,
		store:      store,
		classifier: tour.NewClassifier(cfg.Now),
		logger:     logger.With().Str("component", "pipeline").Logger(),
		stages:     make(map[string]fetch.Stats),
	}

	var err error
	if p.profiles, err = cache.Open[artist.Profile](store, ArtistDataset); err != nil {
		return nil, fmt.Errorf("failed to open artist cache: %w", err)
	}
	if p.discography, err = cache.Open[artist.Discography](store, DiscographyDataset); err != nil {
		return nil, fmt.Errorf("failed to open discography cache: %w", err)
	}
	if p.listeningSet, err = cache.Open[artist.Listening](store, ListeningDataset); err != nil {
		return nil, fmt.Errorf("failed to open listening cache: %w", err)
	}
	if p.similar, err = cache.Open[[]artist.SimilarArtist](store, SimilarDataset); err != nil {
		return nil, fmt.Errorf("failed to open similar artists cache: %w", err)
	}
	if p.eventSet, err = cache.Open[[]artist.Event](store, EventsDataset); err != nil {
		return nil, fmt.Errorf("failed to open events cache: %w", err)
	}

	return p, nil
}

// Run executes every stage in order. Per-artist failures degrade to
// fallback values; Run only fails when the playlist cannot be read, a
// cache file cannot be written, or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	p.logger.Info().Str("playlist", p.config.PlaylistID).Msg("Starting collection")

	deny := identity.NewSet(p.config.Denylist...)

	seeds, trackCount, err := p.playlistArtists(ctx)
	if err != nil {
		return nil, err
	}
	seeds = filterSeeds(seeds, deny)
	p.logger.Info().
		Int("tracks", trackCount).
		Int("artists", len(seeds)).
		Msg("Read playlist")

	// Playlist artists: direct lookups with co-performer extraction
	profiles, err := p.fetchProfiles(ctx, seeds)
	if err != nil {
		return nil, err
	}
	playlist, err := p.fetchDiscographies(ctx, "playlist_discography", profiles, true)
	if err != nil {
		return nil, err
	}

	names := make([]named, 0, len(profiles))
	for _, pr := range profiles {
		names = append(names, named{Key: pr.Key, Name: pr.Name})
	}
	listening, err := p.fetchListening(ctx, "playlist_listening", names)
	if err != nil {
		return nil, err
	}
	tours, err := p.fetchTours(ctx, "playlist_events", names, true)
	if err != nil {
		return nil, err
	}
	similar, err := p.fetchSimilar(ctx, names)
	if err != nil {
		return nil, err
	}

	// Universe expansion
	playlistNames := make([]string, 0, len(names))
	for _, n := range names {
		playlistNames = append(playlistNames, n.Key)
	}
	universe := identity.Resolve(playlistNames, similar, tours, p.config.Denylist)
	others := make([]named, 0, len(universe.NonPlaylist))
	for _, k := range universe.NonPlaylist.Sorted() {
		others = append(others, named{Key: k, Name: k})
	}
	p.logger.Info().
		Int("universe", len(universe.All)).
		Int("non_playlist", len(others)).
		Msg("Resolved artist universe")

	// Non-playlist artists: search lookups without co-performers
	found, err := p.searchProfiles(ctx, others)
	if err != nil {
		return nil, err
	}
	nonPlaylist, err := p.fetchDiscographies(ctx, "search_discography", found, false)
	if err != nil {
		return nil, err
	}
	moreListening, err := p.fetchListening(ctx, "search_listening", others)
	if err != nil {
		return nil, err
	}
	moreTours, err := p.fetchTours(ctx, "search_events", others, false)
	if err != nil {
		return nil, err
	}

	// Merge and build. Pool results arrive in completion order, so each
	// group is sorted by key to make the table reproducible across runs.
	sortFeatures(playlist)
	sortFeatures(nonPlaylist)
	catalog := append(playlist, nonPlaylist...)
	records, mergeStats := features.Merge(catalog, append(listening, moreListening...), append(tours, moreTours...))

	builder := graph.NewBuilder()
	if p.config.RestrictToTable {
		keys := make(identity.Set, len(records))
		for _, r := range records {
			keys[r.Key] = struct{}{}
		}
		builder.RestrictTo(keys)
	}
	rels := builder.Build(similar, tours)

	stats := Stats{
		PlaylistTracks:     trackCount,
		PlaylistArtists:    len(seeds),
		NonPlaylistArtists: len(others),
		Duplicates:         mergeStats.Duplicates,
		Incomplete:         mergeStats.Incomplete,
		Stages:             p.stages,
	}

	p.logger.Info().
		Int("records", len(records)).
		Int("relationships", len(rels)).
		Int("duplicates", stats.Duplicates).
		Int("incomplete", stats.Incomplete).
		Int("failed", stats.Failed()).
		Dur("elapsed", time.Since(start)).
		Msg("Collection complete")

	return &Result{
		Records:       records,
		Relationships: rels,
		Stats:         stats,
	}, nil
}

// named is an artist known by canonical key and a display name to query with
type named struct {
	Key  string
	Name string
}

// seed is a distinct playlist artist
type seed struct {
	Key   string
	ID    string
	Name  string
	Count int
}

// playlistArtists pages through the playlist and counts tracks per
// primary artist. Artists are returned in first-appearance order.
func (p *Pipeline) playlistArtists(ctx context.Context) ([]seed, int, error) {
	var (
		seeds []seed
		index = make(map[string]int)
		total int
		read  int
	)

	for offset := 0; offset == 0 || offset < total; offset += pageSize {
		tracks, n, err := p.catalog.PlaylistTracks(ctx, p.config.PlaylistID, offset)
		if err != nil {
			if offset == 0 {
				return nil, 0, fmt.Errorf("failed to read playlist %s: %w", p.config.PlaylistID, err)
			}
			p.logger.Warn().Err(err).Int("offset", offset).Msg("Failed to read playlist page, keeping earlier pages")
			break
		}
		total = n
		read += len(tracks)

		for _, t := range tracks {
			key := identity.Key(t.ArtistName)
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				i = len(seeds)
				index[key] = i
				seeds = append(seeds, seed{Key: key, ID: t.ArtistID, Name: t.ArtistName})
			}
			if seeds[i].ID == t.ArtistID {
				seeds[i].Count++
			}
		}
		if len(tracks) == 0 {
			break
		}
	}

	return seeds, read, nil
}

// pageSize is the playlist page size requested from the catalog
const pageSize = 100

func filterSeeds(seeds []seed, deny identity.Set) []seed {
	out := seeds[:0]
	for _, s := range seeds {
		if _, blocked := deny[s.Key]; blocked {
			continue
		}
		out = append(out, s)
	}
	return out
}

func sortFeatures(fs []artist.Features) {
	sort.Slice(fs, func(i, j int) bool {
		return fs[i].Key < fs[j].Key
	})
}

// pool creates the worker pool for one stage
func (p *Pipeline) pool(name string, size int, delay time.Duration) *fetch.Pool {
	return fetch.NewPool(fetch.PoolConfig{Name: name, Size: size, Delay: delay}, p.logger)
}

// finish records a stage's stats and persists its dataset. A cancelled
// run stops before saving, so fallbacks produced by cancelled calls are
// never written.
func (p *Pipeline) finish(ctx context.Context, stage string, stats fetch.Stats, save func() error) error {
	p.stages[stage] = stats
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := save(); err != nil {
		return fmt.Errorf("failed to save cache after %s: %w", stage, err)
	}
	return nil
}
