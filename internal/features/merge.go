// Package features joins per-provider artist data into the final feature table.
package features

import (
	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/identity"
)

// MergeStats counts what Merge discarded
type MergeStats struct {
	Duplicates int
	Incomplete int
}

// Merge left-joins catalog rows with listening stats and tour summaries on
// the canonical key. Catalog rows must be ordered playlist artists first:
// when a key repeats only its first row is kept. Rows missing a required
// field are dropped.
func Merge(catalog []artist.Features, listening []artist.Listening, tours []artist.TourSummary) ([]artist.Record, MergeStats) {
	listeningByKey := make(map[string]artist.Listening, len(listening))
	for _, l := range listening {
		k := l.Key
		if _, ok := listeningByKey[k]; !ok {
			listeningByKey[k] = l
		}
	}
	toursByKey := make(map[string]artist.TourSummary, len(tours))
	for _, t := range tours {
		if _, ok := toursByKey[t.Key]; !ok {
			toursByKey[t.Key] = t
		}
	}

	var stats MergeStats
	seen := make(map[string]struct{}, len(catalog))
	records := make([]artist.Record, 0, len(catalog))

	for _, f := range catalog {
		key := f.Key
		if key == "" {
			key = identity.Key(f.Name)
		}
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		r := fromCatalog(key, f)
		if l, ok := listeningByKey[key]; ok {
			applyListening(&r, l)
		}
		if t, ok := toursByKey[key]; ok {
			applyTour(&r, t)
		}

		if !r.Complete() {
			stats.Incomplete++
			continue
		}
		records = append(records, r)
	}

	return records, stats
}

func fromCatalog(key string, f artist.Features) artist.Record {
	albums, tracks := f.Albums, f.Tracks
	popularity, followers := f.Popularity, f.Followers
	return artist.Record{
		Key:            key,
		Name:           f.Name,
		URI:            f.URI,
		URL:            f.URL,
		ImageURL:       f.ImageURL,
		Genres:         f.Genres,
		Albums:         &albums,
		Tracks:         &tracks,
		FirstAlbumDate: f.FirstAlbumDate,
		LastAlbumDate:  f.LastAlbumDate,
		Popularity:     &popularity,
		Followers:      &followers,
		PlaylistCount:  f.PlaylistCount,
	}
}

func applyListening(r *artist.Record, l artist.Listening) {
	listeners, playcount, personal := l.Listeners, l.Playcount, l.PersonalPlaycount
	r.Listeners = &listeners
	r.Playcount = &playcount
	r.PersonalPlaycount = &personal
	r.Tags = l.Tags
	r.Summary = l.Summary
}

func applyTour(r *artist.Record, t artist.TourSummary) {
	r.TourStatus = t.Status
	r.TourDate = t.TourDate
	r.TourCoperformers = t.TourCoperformers
	r.FestivalCoperformers = t.FestivalCoperformers
}
