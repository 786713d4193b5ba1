// Package lastfm provides a client library for the Last.fm API 2.0.
//
// # Overview
//
// This package implements a small Go client for the read-only artist
// methods of the Last.fm API. Calls are unsigned GET requests carrying
// only an API key, so no session or shared secret is needed.
//
// # Quick Start
//
//	import "github.com/jfmyers9/riffnet/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey: "your-api-key",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Artist Lookups
//
//	// Listening statistics, tags and a short biography. Pass a username
//	// to also receive that user's play count for the artist.
//	info, err := client.Artist().GetInfo(ctx, "Sleep Token", "someuser")
//
//	// Similar artists, most similar first, with a match score in [0, 1]
//	similar, err := client.Artist().GetSimilar(ctx, "Sleep Token", 100)
//
// # Error Handling
//
// API failures are returned as *Error values carrying the Last.fm error
// code. Unknown artists are reported by Last.fm as invalid parameters
// (code 6) and can be detected with IsNotFound:
//
//	info, err := client.Artist().GetInfo(ctx, name, "")
//	if lastfm.IsNotFound(err) {
//	    // no such artist
//	}
//
// Temporary errors (codes 11, 16 and 29), 5xx responses and network
// errors are retried with exponential backoff before being returned.
//
// # Context Support
//
// All API methods accept a context.Context for cancellation and timeouts:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	info, err := client.Artist().GetInfo(ctx, "Spiritbox", "")
//
// # Configuration
//
// The client can be configured with custom HTTP clients, base URLs (for
// testing), retry settings, and optional loggers:
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:     "your-api-key",
//	    HTTPClient: &http.Client{Timeout: 30 * time.Second},
//	    MaxRetries: 5,
//	    Logger:     myLogger, // Implements lastfm.Logger interface
//	})
//
// # API Coverage
//
// Currently implemented:
//   - artist.getInfo
//   - artist.getSimilar
//
// # Last.fm API Documentation
//
// For more information about the Last.fm API:
// https://www.last.fm/api
package lastfm
