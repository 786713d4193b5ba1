// Package artist defines the records that flow between the fetch stages,
// the classifiers, and the output writers.
package artist

// TourStatus describes an artist's upcoming live activity
type TourStatus string

const (
	NotTouring   TourStatus = "not_touring"
	OnTour       TourStatus = "on_tour"
	UpcomingTour TourStatus = "upcoming_tour"
)

// Profile is an artist as reported by the catalog provider
type Profile struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	ID            string   `json:"id"`
	URI           string   `json:"uri"`
	URL           string   `json:"url"`
	ImageURL      string   `json:"image_url"`
	Genres        []string `json:"genres"`
	Popularity    int      `json:"popularity"`
	Followers     int      `json:"followers"`
	PlaylistCount int      `json:"playlist_count"`
	Found         bool     `json:"found"`
}

// PlaylistTrack is the primary artist of one playlist track
type PlaylistTrack struct {
	ArtistID   string
	ArtistName string
	ArtistURI  string
}

// Discography summarizes an artist's albums
type Discography struct {
	Albums         int    `json:"albums"`
	Tracks         int    `json:"tracks"`
	FirstAlbumDate string `json:"first_album_date,omitempty"`
	LastAlbumDate  string `json:"last_album_date,omitempty"`
}

// Listening holds listening-service statistics for one artist
type Listening struct {
	Key               string   `json:"key"`
	Listeners         int64    `json:"listeners"`
	Playcount         int64    `json:"playcount"`
	PersonalPlaycount int64    `json:"personal_playcount"`
	Tags              []string `json:"tags"`
	Summary           string   `json:"summary"`
	Found             bool     `json:"found"`
}

// SimilarArtist is one entry of an artist's similarity list.
// Match is always within [0, 1].
type SimilarArtist struct {
	Key   string  `json:"key"`
	Name  string  `json:"name"`
	Match float64 `json:"match"`
}

// Attraction is a performer listed on an event
type Attraction struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Classification is the event provider's genre taxonomy for an event
type Classification struct {
	Segment string `json:"segment,omitempty"`
	Genre   string `json:"genre,omitempty"`
	SubType string `json:"sub_type,omitempty"`
}

// Event is a single ticketed event
type Event struct {
	Name            string           `json:"name"`
	StartDate       string           `json:"start_date,omitempty"` // YYYY-MM-DD
	Classifications []Classification `json:"classifications"`
	Attractions     []Attraction     `json:"attractions"`
	AttractionCount int              `json:"attraction_count,omitempty"` // Attractions listed before filtering
}

// TourSummary is the classifier's verdict for one artist
type TourSummary struct {
	Key                  string         `json:"key"`
	Status               TourStatus     `json:"status"`
	TourDate             string         `json:"tour_date,omitempty"`
	TourCoperformers     []string       `json:"tour_coperformers,omitempty"`
	FestivalCoperformers map[string]int `json:"festival_coperformers,omitempty"`
}

// Features is a catalog profile joined with its discography
type Features struct {
	Profile
	Discography
	FromPlaylist bool `json:"from_playlist"`
}

// Record is one row of the merged feature table. Pointer fields are nil
// when the corresponding provider produced no row for the artist.
type Record struct {
	Key                  string         `json:"key"`
	Name                 string         `json:"name"`
	URI                  string         `json:"uri"`
	URL                  string         `json:"url"`
	ImageURL             string         `json:"image_url"`
	Genres               []string       `json:"genres"`
	Albums               *int           `json:"albums"`
	Tracks               *int           `json:"tracks"`
	FirstAlbumDate       string         `json:"first_album_date,omitempty"`
	LastAlbumDate        string         `json:"last_album_date,omitempty"`
	Popularity           *int           `json:"popularity"`
	Followers            *int           `json:"followers"`
	PlaylistCount        int            `json:"playlist_count"`
	Listeners            *int64         `json:"listeners"`
	Playcount            *int64         `json:"playcount"`
	PersonalPlaycount    *int64         `json:"personal_playcount"`
	Tags                 []string       `json:"tags"`
	Summary              string         `json:"summary,omitempty"`
	TourStatus           TourStatus     `json:"tour_status"`
	TourDate             string         `json:"tour_date,omitempty"`
	TourCoperformers     []string       `json:"tour_coperformers,omitempty"`
	FestivalCoperformers map[string]int `json:"festival_coperformers,omitempty"`
}

// Complete reports whether the record carries every field the feature
// table requires.
func (r Record) Complete() bool {
	return r.Key != "" &&
		r.Popularity != nil &&
		r.Albums != nil &&
		r.Listeners != nil &&
		r.TourStatus != ""
}

// RelationType names the kind of link between two artists
type RelationType string

const (
	Similarity RelationType = "similarity"
	Tour       RelationType = "tour"
	Festival   RelationType = "festival"
)

// Relationship is a directed, weighted edge of the artist graph
type Relationship struct {
	Origin string       `json:"origin"`
	Target string       `json:"target"`
	Type   RelationType `json:"type"`
	Weight float64      `json:"weight"`
}
