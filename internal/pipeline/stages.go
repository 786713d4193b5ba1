package pipeline

import (
	"context"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/cache"
	"github.com/jfmyers9/riffnet/internal/fetch"
	"github.com/jfmyers9/riffnet/internal/provider"
)

// cached resolves key through ds. On a miss it calls fetch and caches the
// result, or caches fallback when fetch fails. Not-found is an answer,
// not a failure: only other errors are returned, alongside the fallback.
func cached[T any](ctx context.Context, ds *cache.Dataset[T], key string, fetchFn func(context.Context) (T, error), fallback func() T) (*T, error) {
	var fetchErr error
	v := ds.GetOrCompute(key, func() T {
		v, err := fetchFn(ctx)
		switch {
		case err == nil:
			return v
		case provider.IsNotFound(err):
			return fallback()
		default:
			fetchErr = err
			return fallback()
		}
	})
	return &v, fetchErr
}

func seedID(s seed) string   { return s.Key }
func namedID(n named) string { return n.Key }

func profileID(pr artist.Profile) string { return pr.Key }

// fetchProfiles looks up playlist artists by catalog id
func (p *Pipeline) fetchProfiles(ctx context.Context, seeds []seed) ([]artist.Profile, error) {
	const stage = "playlist_artists"
	pool := p.pool(stage, p.config.CatalogWorkers, p.config.CatalogDelay)

	profiles, stats := fetch.Map(ctx, pool, seeds, fetch.Job[seed, artist.Profile]{
		ID: seedID,
		Resolve: func(ctx context.Context, s seed) (*artist.Profile, error) {
			pr, err := cached(ctx, p.profiles, s.Key,
				func(ctx context.Context) (artist.Profile, error) {
					pool.Wait(ctx)
					return p.catalog.Artist(ctx, s.ID)
				},
				func() artist.Profile {
					return artist.Profile{Key: s.Key, Name: s.Name, ID: s.ID}
				},
			)
			pr.Key = s.Key
			pr.PlaylistCount = s.Count
			return pr, err
		},
	})

	return profiles, p.finish(ctx, stage, stats, p.profiles.Save)
}

// searchProfiles looks up non-playlist artists by name
func (p *Pipeline) searchProfiles(ctx context.Context, names []named) ([]artist.Profile, error) {
	const stage = "search_artists"
	pool := p.pool(stage, p.config.CatalogWorkers, p.config.CatalogDelay)

	profiles, stats := fetch.Map(ctx, pool, names, fetch.Job[named, artist.Profile]{
		ID: namedID,
		Resolve: func(ctx context.Context, n named) (*artist.Profile, error) {
			pr, err := cached(ctx, p.profiles, n.Key,
				func(ctx context.Context) (artist.Profile, error) {
					pool.Wait(ctx)
					return p.catalog.SearchArtist(ctx, n.Name)
				},
				func() artist.Profile {
					return artist.Profile{Key: n.Key, Name: n.Name}
				},
			)
			pr.Key = n.Key
			pr.PlaylistCount = 0
			return pr, err
		},
	})

	return profiles, p.finish(ctx, stage, stats, p.profiles.Save)
}

// fetchDiscographies joins each profile with its album summary. Profiles
// without a catalog id get an empty discography without a remote call.
func (p *Pipeline) fetchDiscographies(ctx context.Context, stage string, profiles []artist.Profile, fromPlaylist bool) ([]artist.Features, error) {
	pool := p.pool(stage, p.config.CatalogWorkers, p.config.CatalogDelay)

	rows, stats := fetch.Map(ctx, pool, profiles, fetch.Job[artist.Profile, artist.Features]{
		ID: profileID,
		Resolve: func(ctx context.Context, pr artist.Profile) (*artist.Features, error) {
			row := &artist.Features{Profile: pr, FromPlaylist: fromPlaylist}
			if pr.ID == "" {
				return row, nil
			}
			d, err := cached(ctx, p.discography, pr.Key,
				func(ctx context.Context) (artist.Discography, error) {
					pool.Wait(ctx)
					return p.catalog.Albums(ctx, pr.ID, "")
				},
				func() artist.Discography { return artist.Discography{} },
			)
			row.Discography = *d
			return row, err
		},
	})

	return rows, p.finish(ctx, stage, stats, p.discography.Save)
}

// fetchListening collects listening statistics
func (p *Pipeline) fetchListening(ctx context.Context, stage string, names []named) ([]artist.Listening, error) {
	pool := p.pool(stage, p.config.ListeningWorkers, 0)

	rows, stats := fetch.Map(ctx, pool, names, fetch.Job[named, artist.Listening]{
		ID: namedID,
		Resolve: func(ctx context.Context, n named) (*artist.Listening, error) {
			l, err := cached(ctx, p.listeningSet, n.Key,
				func(ctx context.Context) (artist.Listening, error) {
					return p.listening.ArtistInfo(ctx, n.Name)
				},
				func() artist.Listening {
					return artist.Listening{Key: n.Key, Tags: []string{}}
				},
			)
			l.Key = n.Key
			return l, err
		},
	})

	return rows, p.finish(ctx, stage, stats, p.listeningSet.Save)
}

type similarList struct {
	key  string
	list []artist.SimilarArtist
}

// fetchSimilar collects similarity lists keyed by the queried artist
func (p *Pipeline) fetchSimilar(ctx context.Context, names []named) (map[string][]artist.SimilarArtist, error) {
	const stage = "similar_artists"
	pool := p.pool(stage, p.config.ListeningWorkers, 0)

	lists, stats := fetch.Map(ctx, pool, names, fetch.Job[named, similarList]{
		ID: namedID,
		Resolve: func(ctx context.Context, n named) (*similarList, error) {
			l, err := cached(ctx, p.similar, n.Key,
				func(ctx context.Context) ([]artist.SimilarArtist, error) {
					return p.listening.SimilarArtists(ctx, n.Name)
				},
				func() []artist.SimilarArtist { return []artist.SimilarArtist{} },
			)
			return &similarList{key: n.Key, list: *l}, err
		},
	})

	out := make(map[string][]artist.SimilarArtist, len(lists))
	for _, l := range lists {
		out[l.key] = l.list
	}
	return out, p.finish(ctx, stage, stats, p.similar.Save)
}

// fetchTours collects raw events and classifies them. The cache holds the
// raw events, so the same entry serves runs with and without
// co-performer extraction.
func (p *Pipeline) fetchTours(ctx context.Context, stage string, names []named, coperformers bool) ([]artist.TourSummary, error) {
	pool := p.pool(stage, p.config.EventsWorkers, 0)

	tours, stats := fetch.Map(ctx, pool, names, fetch.Job[named, artist.TourSummary]{
		ID: namedID,
		Resolve: func(ctx context.Context, n named) (*artist.TourSummary, error) {
			events, err := cached(ctx, p.eventSet, n.Key,
				func(ctx context.Context) ([]artist.Event, error) {
					return p.events.Events(ctx, n.Name)
				},
				func() []artist.Event { return []artist.Event{} },
			)
			summary := p.classifier.Classify(n.Name, *events, coperformers)
			summary.Key = n.Key
			return &summary, err
		},
	})

	return tours, p.finish(ctx, stage, stats, p.eventSet.Save)
}
