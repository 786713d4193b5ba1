package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/cache"
	"github.com/jfmyers9/riffnet/internal/identity"
	"github.com/jfmyers9/riffnet/internal/provider"
	"github.com/rs/zerolog"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func day(offset int) string {
	return now.AddDate(0, 0, offset).Format("2006-01-02")
}

func attractions(names ...string) []artist.Attraction {
	out := make([]artist.Attraction, 0, len(names))
	for _, n := range names {
		out = append(out, artist.Attraction{Name: n, Key: identity.Key(n)})
	}
	return out
}

// counter records calls per key
type counter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *counter) add(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[key]++
}

func (c *counter) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

type fakeCatalog struct {
	tracks  []artist.PlaylistTrack
	artists map[string]artist.Profile // by id
	search  map[string]artist.Profile // by key
	albums  map[string]artist.Discography
	calls   counter
}

func (f *fakeCatalog) Artist(ctx context.Context, id string) (artist.Profile, error) {
	f.calls.add("artist:" + id)
	if p, ok := f.artists[id]; ok {
		return p, nil
	}
	return artist.Profile{}, &provider.ErrNotFound{Provider: "fake", Query: id}
}

func (f *fakeCatalog) SearchArtist(ctx context.Context, name string) (artist.Profile, error) {
	f.calls.add("search:" + name)
	if p, ok := f.search[identity.Key(name)]; ok {
		return p, nil
	}
	return artist.Profile{}, &provider.ErrNotFound{Provider: "fake", Query: name}
}

func (f *fakeCatalog) Albums(ctx context.Context, id, group string) (artist.Discography, error) {
	f.calls.add("albums:" + id)
	return f.albums[id], nil
}

func (f *fakeCatalog) PlaylistTracks(ctx context.Context, playlistID string, offset int) ([]artist.PlaylistTrack, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if offset >= len(f.tracks) {
		return nil, len(f.tracks), nil
	}
	end := min(offset+pageSize, len(f.tracks))
	return f.tracks[offset:end], len(f.tracks), nil
}

type fakeListening struct {
	info    map[string]artist.Listening
	similar map[string][]artist.SimilarArtist
	failing map[string]bool
	calls   counter
}

func (f *fakeListening) ArtistInfo(ctx context.Context, name string) (artist.Listening, error) {
	key := identity.Key(name)
	f.calls.add("info:" + key)
	if f.failing[key] {
		return artist.Listening{}, &provider.ErrUnavailable{Provider: "fake", Status: 503}
	}
	if l, ok := f.info[key]; ok {
		return l, nil
	}
	return artist.Listening{}, &provider.ErrNotFound{Provider: "fake", Query: name}
}

func (f *fakeListening) SimilarArtists(ctx context.Context, name string) ([]artist.SimilarArtist, error) {
	key := identity.Key(name)
	f.calls.add("similar:" + key)
	return f.similar[key], nil
}

type fakeEvents struct {
	events map[string][]artist.Event
	calls  counter
}

func (f *fakeEvents) Events(ctx context.Context, name string) ([]artist.Event, error) {
	key := identity.Key(name)
	f.calls.add(key)
	return f.events[key], nil
}

func scenario() (*fakeCatalog, *fakeListening, *fakeEvents) {
	catalog := &fakeCatalog{
		tracks: []artist.PlaylistTrack{
			{ArtistID: "st", ArtistName: "Sleep Token", ArtistURI: "spotify:artist:st"},
			{ArtistID: "sb", ArtistName: "Spiritbox", ArtistURI: "spotify:artist:sb"},
			{ArtistID: "st", ArtistName: "Sleep Token", ArtistURI: "spotify:artist:st"},
		},
		artists: map[string]artist.Profile{
			"st": {Key: "sleep token", Name: "Sleep Token", ID: "st", Popularity: 80, Followers: 3000000, Found: true},
			"sb": {Key: "spiritbox", Name: "Spiritbox", ID: "sb", Popularity: 70, Followers: 1500000, Found: true},
		},
		search: map[string]artist.Profile{
			"bad omens": {Key: "bad omens", Name: "Bad Omens", ID: "bo", Popularity: 75, Found: true},
		},
		albums: map[string]artist.Discography{
			"st": {Albums: 4, Tracks: 46, FirstAlbumDate: "2019-11-22", LastAlbumDate: "2025-05-09"},
			"sb": {Albums: 2, Tracks: 22},
			"bo": {Albums: 3, Tracks: 33},
		},
	}

	listening := &fakeListening{
		info: map[string]artist.Listening{
			"sleep token": {Key: "sleep token", Listeners: 1500000, Playcount: 90000000, Found: true},
			"spiritbox":   {Key: "spiritbox", Listeners: 800000, Playcount: 40000000, Found: true},
		},
		similar: map[string][]artist.SimilarArtist{
			"sleep token": {{Key: "bad omens", Name: "Bad Omens", Match: 1}},
		},
	}

	festival := attractions("Sleep Token", "Spiritbox", "Gojira", "Knocked Loose", "Poppy", "Currents", "Bad Omens", "Rockville")
	events := &fakeEvents{
		events: map[string][]artist.Event{
			"sleep token": {
				{Name: "Sleep Token: Even In Arcadia Tour", StartDate: day(45), Attractions: attractions("Sleep Token", "Bad Omens", "Loathe")},
				{Name: "sleep token even in arcadia tour", StartDate: day(46), Attractions: attractions("Sleep Token", "Bad Omens", "Loathe")},
				{Name: "Welcome to Rockville", StartDate: day(60), Attractions: festival},
			},
			"spiritbox": {
				{Name: "Spiritbox - Tsunami Sea Tour", StartDate: day(45), Attractions: attractions("Spiritbox", "Dayseeker", "Periphery")},
				{Name: "Rock Fest", StartDate: day(50), Attractions: festival},
			},
		},
	}

	return catalog, listening, events
}

func newPipeline(t *testing.T, dir string, cfg Config, c Catalog, l Listening, e Events) *Pipeline {
	t.Helper()
	store, err := cache.NewStore(dir, 0, zerolog.Nop(), cache.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("failed to create cache store: %v", err)
	}
	cfg.PlaylistID = "pl"
	cfg.Now = func() time.Time { return now }
	p, err := New(cfg, c, l, e, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	return p
}

func recordsByKey(records []artist.Record) map[string]artist.Record {
	out := make(map[string]artist.Record, len(records))
	for _, r := range records {
		out[r.Key] = r
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	catalog, listening, events := scenario()
	p := newPipeline(t, t.TempDir(), Config{}, catalog, listening, events)

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Stats.PlaylistTracks != 3 || res.Stats.PlaylistArtists != 2 {
		t.Errorf("unexpected playlist stats: %+v", res.Stats)
	}
	if len(res.Records) < 2 || res.Records[0].Key != "sleep token" || res.Records[1].Key != "spiritbox" {
		t.Fatalf("expected playlist artists first, got %+v", res.Records)
	}

	byKey := recordsByKey(res.Records)
	for _, key := range []string{"sleep token", "spiritbox"} {
		r := byKey[key]
		if r.TourStatus != artist.UpcomingTour {
			t.Errorf("%s: tour status %q, expected %q", key, r.TourStatus, artist.UpcomingTour)
		}
		if r.TourDate != day(45) {
			t.Errorf("%s: tour date %q, expected %q", key, r.TourDate, day(45))
		}
	}
	if st := byKey["sleep token"]; st.PlaylistCount != 2 || *st.Albums != 4 || *st.Listeners != 1500000 {
		t.Errorf("unexpected sleep token record: %+v", st)
	}

	// Non-playlist artists are discovered and looked up by search
	bo, ok := byKey["bad omens"]
	if !ok {
		t.Fatal("expected bad omens in the feature table")
	}
	if *bo.Popularity != 75 || *bo.Albums != 3 || bo.PlaylistCount != 0 {
		t.Errorf("unexpected bad omens record: %+v", bo)
	}
	if bo.TourCoperformers != nil || bo.FestivalCoperformers != nil {
		t.Errorf("non-playlist artists should carry no co-performers: %+v", bo)
	}
	if _, ok := byKey["rockville"]; ok {
		t.Error("denylisted name entered the feature table")
	}

	edges := make(map[artist.Relationship]bool)
	for _, r := range res.Relationships {
		edges[r] = true
	}
	expected := []artist.Relationship{
		{Origin: "sleep token", Target: "bad omens", Type: artist.Similarity, Weight: 1},
		{Origin: "sleep token", Target: "bad omens", Type: artist.Tour, Weight: 1},
		{Origin: "sleep token", Target: "loathe", Type: artist.Tour, Weight: 1},
		{Origin: "spiritbox", Target: "dayseeker", Type: artist.Tour, Weight: 1},
		{Origin: "spiritbox", Target: "periphery", Type: artist.Tour, Weight: 1},
		{Origin: "sleep token", Target: "spiritbox", Type: artist.Festival, Weight: 1},
		{Origin: "sleep token", Target: "gojira", Type: artist.Festival, Weight: 1},
		{Origin: "spiritbox", Target: "sleep token", Type: artist.Festival, Weight: 1},
		{Origin: "spiritbox", Target: "poppy", Type: artist.Festival, Weight: 1},
	}
	for _, e := range expected {
		if !edges[e] {
			t.Errorf("missing edge %+v", e)
		}
	}
	for _, r := range res.Relationships {
		if r.Origin == r.Target {
			t.Errorf("self edge %+v", r)
		}
	}

	// Each artist is looked up once per stage
	if n := events.calls.get("sleep token"); n != 1 {
		t.Errorf("sleep token events fetched %d times, expected 1", n)
	}

	for _, name := range Datasets {
		if _, err := os.Stat(filepath.Join(p.store.Dir(), name+".json")); err != nil {
			t.Errorf("expected cache file for %s: %v", name, err)
		}
	}
}

func TestRun_RestrictToTable(t *testing.T) {
	tests := []struct {
		name         string
		restrict     bool
		wantRockville bool
	}{
		{name: "unfiltered", restrict: false, wantRockville: true},
		{name: "restricted", restrict: true, wantRockville: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, listening, events := scenario()
			p := newPipeline(t, t.TempDir(), Config{RestrictToTable: tt.restrict}, catalog, listening, events)

			res, err := p.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			found := false
			for _, r := range res.Relationships {
				if r.Target == "rockville" {
					found = true
				}
			}
			if found != tt.wantRockville {
				t.Errorf("edge to rockville present = %v, expected %v", found, tt.wantRockville)
			}
		})
	}
}

func TestRun_FailuresAreCachedAsFallbacks(t *testing.T) {
	dir := t.TempDir()
	catalog, listening, events := scenario()
	listening.failing = map[string]bool{"spiritbox": true}

	first := newPipeline(t, dir, Config{}, catalog, listening, events)
	res, err := first.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stats.Failed() != 1 {
		t.Errorf("expected 1 failed item, got %d (%+v)", res.Stats.Failed(), res.Stats.Stages)
	}

	sb := recordsByKey(res.Records)["spiritbox"]
	if sb.Listeners == nil || *sb.Listeners != 0 {
		t.Errorf("expected zero-valued fallback listeners, got %v", sb.Listeners)
	}

	// A second run within the TTL reuses every cached answer
	second := newPipeline(t, dir, Config{}, catalog, listening, events)
	if _, err := second.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n := listening.calls.get("info:spiritbox"); n != 1 {
		t.Errorf("failing lookup attempted %d times, expected 1", n)
	}
	if n := catalog.calls.get("artist:st"); n != 1 {
		t.Errorf("catalog artist fetched %d times, expected 1", n)
	}
	if n := catalog.calls.get("search:gojira"); n != 1 {
		t.Errorf("not-found search attempted %d times, expected 1", n)
	}
}

func TestRun_Denylist(t *testing.T) {
	catalog, listening, events := scenario()
	catalog.tracks = append(catalog.tracks, artist.PlaylistTrack{ArtistID: "rv", ArtistName: "Rockville"})

	p := newPipeline(t, t.TempDir(), Config{}, catalog, listening, events)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Stats.PlaylistArtists != 2 {
		t.Errorf("expected denylisted playlist artist to be skipped, got %d artists", res.Stats.PlaylistArtists)
	}
	if n := catalog.calls.get("artist:rv"); n != 0 {
		t.Errorf("denylisted artist looked up %d times", n)
	}
}

func TestRun_PlaylistError(t *testing.T) {
	catalog, listening, events := scenario()
	p := newPipeline(t, t.TempDir(), Config{}, catalog, listening, events)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPlaylistArtists_Pagination(t *testing.T) {
	catalog := &fakeCatalog{}
	for i := 0; i < 250; i++ {
		name := "Artist A"
		id := "a"
		if i%2 == 1 {
			name, id = "Artist B", "b"
		}
		catalog.tracks = append(catalog.tracks, artist.PlaylistTrack{ArtistID: id, ArtistName: name})
	}

	p := newPipeline(t, t.TempDir(), Config{}, catalog, &fakeListening{}, &fakeEvents{})
	seeds, read, err := p.playlistArtists(context.Background())
	if err != nil {
		t.Fatalf("playlistArtists: %v", err)
	}

	if read != 250 {
		t.Errorf("read %d tracks, expected 250", read)
	}
	if len(seeds) != 2 || seeds[0].Count != 125 || seeds[1].Count != 125 {
		t.Errorf("unexpected seeds: %+v", seeds)
	}
}
