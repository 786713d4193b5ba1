package lastfm

// ArtistInfo represents the response from artist.getInfo.
type ArtistInfo struct {
	Name          string   // Artist name as corrected by Last.fm
	MBID          string   // MusicBrainz id, if known
	URL           string   // Last.fm page
	Listeners     int64    // Unique listeners
	Playcount     int64    // Total scrobbles
	UserPlaycount int64    // Scrobbles by the requested user (0 without a username)
	Tags          []string // Top tags
	Summary       string   // Short biography
}

// SimilarArtist represents one entry of artist.getSimilar.
type SimilarArtist struct {
	Name  string  // Artist name
	MBID  string  // MusicBrainz id, if known
	Match float64 // Similarity score in [0, 1]
	URL   string  // Last.fm page
}
