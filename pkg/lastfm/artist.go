package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// ArtistService provides artist lookups for the Last.fm API.
type ArtistService struct {
	client *Client
}

// GetInfo returns listening statistics, tags and a short biography for an
// artist.
//
// When username is set, UserPlaycount holds that user's scrobbles of the
// artist. Misspelled artist names are corrected by Last.fm.
//
// Example:
//
//	info, err := client.Artist().GetInfo(ctx, "Spiritbox", "someuser")
//	if err != nil {
//	    log.Printf("Failed to get artist info: %v", err)
//	}
func (s *ArtistService) GetInfo(ctx context.Context, artist, username string) (*ArtistInfo, error) {
	if artist == "" {
		return nil, fmt.Errorf("lastfm: artist is required")
	}

	params := map[string]string{
		"artist":      artist,
		"username":    username,
		"autocorrect": "1",
	}

	resp, err := s.client.call(ctx, "artist.getInfo", params)
	if err != nil {
		return nil, err
	}

	info, err := unmarshalArtistInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse artist info response: %w", err)
	}

	return info, nil
}

// GetSimilar returns artists similar to the given artist, most similar
// first. A limit of 0 uses the Last.fm default of 100.
func (s *ArtistService) GetSimilar(ctx context.Context, artist string, limit int) ([]SimilarArtist, error) {
	if artist == "" {
		return nil, fmt.Errorf("lastfm: artist is required")
	}

	params := map[string]string{
		"artist":      artist,
		"autocorrect": "1",
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	resp, err := s.client.call(ctx, "artist.getSimilar", params)
	if err != nil {
		return nil, err
	}

	similar, err := unmarshalSimilar(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse similar artists response: %w", err)
	}

	return similar, nil
}

// artistInfoResponse represents the XML response from artist.getInfo.
type artistInfoResponse struct {
	Artist struct {
		Name  string `xml:"name"`
		MBID  string `xml:"mbid"`
		URL   string `xml:"url"`
		Stats struct {
			Listeners     string `xml:"listeners"`
			Playcount     string `xml:"playcount"`
			UserPlaycount string `xml:"userplaycount"`
		} `xml:"stats"`
		Tags []struct {
			Name string `xml:"name"`
		} `xml:"tags>tag"`
		Bio struct {
			Summary string `xml:"summary"`
		} `xml:"bio"`
	} `xml:"artist"`
}

// unmarshalArtistInfo parses the XML response from artist.getInfo.
func unmarshalArtistInfo(data []byte) (*ArtistInfo, error) {
	// Wrap inner XML in root element for proper unmarshaling
	wrapped := []byte("<root>" + string(data) + "</root>")

	var resp artistInfoResponse
	if err := xml.Unmarshal(wrapped, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artist info response: %w", err)
	}

	a := resp.Artist
	info := &ArtistInfo{
		Name:          a.Name,
		MBID:          a.MBID,
		URL:           a.URL,
		Listeners:     parseCount(a.Stats.Listeners),
		Playcount:     parseCount(a.Stats.Playcount),
		UserPlaycount: parseCount(a.Stats.UserPlaycount),
		Tags:          make([]string, 0, len(a.Tags)),
		Summary:       strings.TrimSpace(a.Bio.Summary),
	}
	for _, t := range a.Tags {
		if t.Name != "" {
			info.Tags = append(info.Tags, t.Name)
		}
	}

	return info, nil
}

// similarResponse represents the XML response from artist.getSimilar.
type similarResponse struct {
	Artists []struct {
		Name  string `xml:"name"`
		MBID  string `xml:"mbid"`
		Match string `xml:"match"`
		URL   string `xml:"url"`
	} `xml:"similarartists>artist"`
}

// unmarshalSimilar parses the XML response from artist.getSimilar.
func unmarshalSimilar(data []byte) ([]SimilarArtist, error) {
	wrapped := []byte("<root>" + string(data) + "</root>")

	var resp similarResponse
	if err := xml.Unmarshal(wrapped, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal similar artists response: %w", err)
	}

	similar := make([]SimilarArtist, 0, len(resp.Artists))
	for _, a := range resp.Artists {
		match, _ := strconv.ParseFloat(strings.TrimSpace(a.Match), 64)
		similar = append(similar, SimilarArtist{
			Name:  a.Name,
			MBID:  a.MBID,
			Match: match,
			URL:   a.URL,
		})
	}

	return similar, nil
}

// parseCount parses a numeric field, treating missing or malformed values as 0.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
