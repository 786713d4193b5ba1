package spotify

import (
	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/identity"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type artistObject struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	URI          string   `json:"uri"`
	Genres       []string `json:"genres"`
	Popularity   int      `json:"popularity"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Followers struct {
		Total int `json:"total"`
	} `json:"followers"`
	Images []image `json:"images"`
}

func (a artistObject) profile() artist.Profile {
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return artist.Profile{
		Key:        identity.Key(a.Name),
		Name:       a.Name,
		ID:         a.ID,
		URI:        a.URI,
		URL:        a.ExternalURLs.Spotify,
		ImageURL:   pickImage(a.Images),
		Genres:     genres,
		Popularity: a.Popularity,
		Followers:  a.Followers.Total,
		Found:      true,
	}
}

// pickImage prefers the 320px rendition, then the second-largest image
func pickImage(images []image) string {
	for _, img := range images {
		if img.Width == 320 {
			return img.URL
		}
	}
	switch {
	case len(images) > 1:
		return images[1].URL
	case len(images) == 1:
		return images[0].URL
	}
	return ""
}

type searchResponse struct {
	Artists struct {
		Items []artistObject `json:"items"`
	} `json:"artists"`
}

type albumPage struct {
	Total int `json:"total"`
	Items []struct {
		Name        string `json:"name"`
		ReleaseDate string `json:"release_date"`
		TotalTracks int    `json:"total_tracks"`
	} `json:"items"`
}

// discography counts albums from the page total and tracks from the
// returned items; release dates compare lexically since Spotify reports
// them as YYYY, YYYY-MM or YYYY-MM-DD
func (p albumPage) discography() artist.Discography {
	d := artist.Discography{Albums: p.Total}
	for _, item := range p.Items {
		d.Tracks += item.TotalTracks
		if item.ReleaseDate == "" {
			continue
		}
		if d.FirstAlbumDate == "" || item.ReleaseDate < d.FirstAlbumDate {
			d.FirstAlbumDate = item.ReleaseDate
		}
		if d.LastAlbumDate == "" || item.ReleaseDate > d.LastAlbumDate {
			d.LastAlbumDate = item.ReleaseDate
		}
	}
	return d
}

type trackPage struct {
	Total int `json:"total"`
	Items []struct {
		Track *struct {
			Artists []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				URI  string `json:"uri"`
			} `json:"artists"`
		} `json:"track"`
	} `json:"items"`
}
