package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jfmyers9/riffnet/internal/artist"
)

// Header lists the feature table columns in output order
var Header = []string{
	"key",
	"name",
	"uri",
	"spotify_url",
	"image_320",
	"genres",
	"albums",
	"tracks",
	"first_album_date",
	"last_album_date",
	"popularity",
	"followers",
	"playlist_count",
	"lastfm_listeners",
	"lastfm_playcount",
	"personal_playcount",
	"lastfm_tags",
	"summary",
	"tour_status",
	"tour_date",
	"tour_coperformers",
	"festival_coperformers",
}

// WriteCSV writes the feature table with a header row
func WriteCSV(w io.Writer, records []artist.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the feature table to path
func WriteFile(path string, records []artist.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create features file: %w", err)
	}
	if err := WriteCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func row(r artist.Record) []string {
	return []string{
		r.Key,
		r.Name,
		r.URI,
		r.URL,
		r.ImageURL,
		strings.Join(r.Genres, "|"),
		intField(r.Albums),
		intField(r.Tracks),
		r.FirstAlbumDate,
		r.LastAlbumDate,
		intField(r.Popularity),
		intField(r.Followers),
		strconv.Itoa(r.PlaylistCount),
		int64Field(r.Listeners),
		int64Field(r.Playcount),
		int64Field(r.PersonalPlaycount),
		strings.Join(r.Tags, "|"),
		r.Summary,
		string(r.TourStatus),
		r.TourDate,
		strings.Join(r.TourCoperformers, "|"),
		multiset(r.FestivalCoperformers),
	}
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func int64Field(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// multiset renders counts as name:count pairs sorted by name
func multiset(m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + strconv.Itoa(m[k])
	}
	return strings.Join(parts, "|")
}
