// Package spotify is the catalog provider adapter for the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/provider"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Spotify Web API root
	DefaultBaseURL = "https://api.spotify.com/v1"

	// DefaultTokenURL is the client-credentials token endpoint
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	// PageSize is the number of playlist tracks requested per page
	PageSize = 100

	// AlbumGroup restricts album lookups to full-length albums
	AlbumGroup = "album"

	albumPageSize = 50
	tokenSlack    = time.Minute
)

// Config holds client configuration
type Config struct {
	ClientID     string       // Required
	ClientSecret string       // Required
	BaseURL      string       // Optional: API root (used for testing)
	TokenURL     string       // Optional: token endpoint (used for testing)
	HTTPClient   *http.Client // Optional
	RetryCount   int          // Optional: retries for transient failures
}

// Client fetches artist data from Spotify
type Client struct {
	api          *provider.Client
	clientID     string
	clientSecret string
	tokenURL     string

	mu      sync.Mutex
	token   string
	expires time.Time
}

// New creates a Spotify client
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("spotify: ClientID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("spotify: ClientSecret is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &Client{
		api: provider.NewClient(provider.ClientConfig{
			Name:       "spotify",
			BaseURL:    baseURL,
			RetryCount: cfg.RetryCount,
			HTTPClient: cfg.HTTPClient,
		}, logger),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     tokenURL,
	}, nil
}

// accessToken returns a cached client-credentials token, refreshing it
// shortly before it expires
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	var tok tokenResponse
	req := c.api.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok)

	if _, err := c.api.Do(req, http.MethodPost, c.tokenURL); err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("spotify: empty access token")
	}

	c.token = tok.AccessToken
	c.expires = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSlack)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req := c.api.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(query).
		SetResult(out)

	_, err = c.api.Do(req, http.MethodGet, path)
	return err
}

// Artist looks up an artist by Spotify id
func (c *Client) Artist(ctx context.Context, id string) (artist.Profile, error) {
	var a artistObject
	if err := c.get(ctx, "/artists/"+url.PathEscape(id), nil, &a); err != nil {
		return artist.Profile{}, err
	}
	return a.profile(), nil
}

// SearchArtist returns the best match for an artist name
func (c *Client) SearchArtist(ctx context.Context, name string) (artist.Profile, error) {
	var res searchResponse
	query := map[string]string{
		"q":     name,
		"type":  "artist",
		"limit": "1",
	}
	if err := c.get(ctx, "/search", query, &res); err != nil {
		return artist.Profile{}, err
	}
	if len(res.Artists.Items) == 0 {
		return artist.Profile{}, &provider.ErrNotFound{Provider: "spotify", Query: name}
	}
	return res.Artists.Items[0].profile(), nil
}

// Albums summarizes an artist's releases in the given include_groups
// filter. An empty group means full-length albums only.
func (c *Client) Albums(ctx context.Context, id, group string) (artist.Discography, error) {
	if group == "" {
		group = AlbumGroup
	}
	var page albumPage
	query := map[string]string{
		"include_groups": group,
		"limit":          strconv.Itoa(albumPageSize),
	}
	if err := c.get(ctx, "/artists/"+url.PathEscape(id)+"/albums", query, &page); err != nil {
		return artist.Discography{}, err
	}
	return page.discography(), nil
}

// PlaylistTracks returns the primary artist of each track on one page of a
// playlist, and the playlist's total track count
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, offset int) ([]artist.PlaylistTrack, int, error) {
	var page trackPage
	query := map[string]string{
		"offset": strconv.Itoa(offset),
		"limit":  strconv.Itoa(PageSize),
		"fields": "total,items(track(artists(id,name,uri)))",
	}
	if err := c.get(ctx, "/playlists/"+url.PathEscape(playlistID)+"/tracks", query, &page); err != nil {
		return nil, 0, err
	}

	tracks := make([]artist.PlaylistTrack, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track == nil || len(item.Track.Artists) == 0 {
			continue
		}
		primary := item.Track.Artists[0]
		tracks = append(tracks, artist.PlaylistTrack{
			ArtistID:   primary.ID,
			ArtistName: primary.Name,
			ArtistURI:  primary.URI,
		})
	}
	return tracks, page.Total, nil
}

// ParsePlaylistID accepts a bare playlist id, a spotify:playlist: URI or
// an open.spotify.com playlist URL
func ParsePlaylistID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty playlist reference")
	}

	if strings.HasPrefix(s, "spotify:playlist:") {
		return strings.TrimPrefix(s, "spotify:playlist:"), nil
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("invalid playlist URL: %w", err)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := 0; i < len(parts)-1; i++ {
			if parts[i] == "playlist" && parts[i+1] != "" {
				return parts[i+1], nil
			}
		}
		return "", fmt.Errorf("no playlist id in URL %q", s)
	}

	return s, nil
}
