// Package lastfm is the listening provider adapter. It wraps the Last.fm
// SDK in pkg/lastfm and converts its results into artist records.
package lastfm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/identity"
	"github.com/jfmyers9/riffnet/internal/provider"
	lastfmapi "github.com/jfmyers9/riffnet/pkg/lastfm"
	"github.com/rs/zerolog"
)

// SimilarLimit is the number of similar artists requested per artist
const SimilarLimit = 100

// Config holds client configuration
type Config struct {
	APIKey     string       // Required
	Username   string       // Optional: user whose play counts are reported
	BaseURL    string       // Optional: API root (used for testing)
	HTTPClient *http.Client // Optional
	MaxRetries int          // Optional: attempts per call
}

// Client wraps the Last.fm API client
type Client struct {
	client   *lastfmapi.Client
	username string
}

// New creates a Last.fm client
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	client, err := lastfmapi.NewClient(lastfmapi.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		HTTPClient: cfg.HTTPClient,
		MaxRetries: cfg.MaxRetries,
		Logger:     debugLogger{logger.With().Str("component", "provider").Str("provider", "lastfm").Logger()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lastfm client: %w", err)
	}
	return &Client{
		client:   client,
		username: cfg.Username,
	}, nil
}

// ArtistInfo returns listening statistics for an artist. The record is
// keyed by the requested name, not the name Last.fm corrected it to.
func (c *Client) ArtistInfo(ctx context.Context, name string) (artist.Listening, error) {
	info, err := c.client.Artist().GetInfo(ctx, name, c.username)
	if err != nil {
		return artist.Listening{}, convertError(name, err)
	}

	tags := info.Tags
	if tags == nil {
		tags = []string{}
	}
	return artist.Listening{
		Key:               identity.Key(name),
		Listeners:         info.Listeners,
		Playcount:         info.Playcount,
		PersonalPlaycount: info.UserPlaycount,
		Tags:              tags,
		Summary:           info.Summary,
		Found:             true,
	}, nil
}

// SimilarArtists returns an artist's similarity list with canonical keys
// and match scores clamped to [0, 1]. Entries without a usable name and
// repeated keys are dropped.
func (c *Client) SimilarArtists(ctx context.Context, name string) ([]artist.SimilarArtist, error) {
	similar, err := c.client.Artist().GetSimilar(ctx, name, SimilarLimit)
	if err != nil {
		return nil, convertError(name, err)
	}

	self := identity.Key(name)
	seen := make(map[string]bool, len(similar))
	out := make([]artist.SimilarArtist, 0, len(similar))
	for _, s := range similar {
		key := identity.Key(s.Name)
		if key == "" || key == self || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, artist.SimilarArtist{
			Key:   key,
			Name:  s.Name,
			Match: clamp(s.Match),
		})
	}
	return out, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// convertError maps SDK errors onto the shared provider errors
func convertError(name string, err error) error {
	if lastfmapi.IsNotFound(err) {
		return &provider.ErrNotFound{Provider: "lastfm", Query: name}
	}
	var apiErr *lastfmapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Temporary() {
			return &provider.ErrUnavailable{Provider: "lastfm", Err: err}
		}
		return fmt.Errorf("lastfm lookup for %q failed: %w", name, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &provider.ErrUnavailable{Provider: "lastfm", Err: err}
}

// debugLogger adapts zerolog to the SDK's Logger interface
type debugLogger struct {
	logger zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
