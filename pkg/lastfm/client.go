package lastfm

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds client configuration.
type Config struct {
	APIKey     string        // Required: Last.fm API key
	HTTPClient *http.Client  // Optional: HTTP client (defaults to http.DefaultClient)
	BaseURL    string        // Optional: Base URL for API (defaults to Last.fm API, used for testing)
	Logger     Logger        // Optional: Logger interface for debug logging
	MaxRetries int           // Optional: attempts per call (defaults to 3)
	Backoff    time.Duration // Optional: initial retry backoff (defaults to 1s)
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Last.fm API operations.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     Logger
	maxRetries int
	backoff    time.Duration

	artist *ArtistService
}

const (
	// DefaultBaseURL is the default Last.fm API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"
)

// NewClient creates a new Last.fm API client.
//
// Returns an error if the APIKey is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("lastfm: APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 1 * time.Second
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     cfg.Logger,
		maxRetries: maxRetries,
		backoff:    backoff,
	}

	c.artist = &ArtistService{client: c}

	return c, nil
}

// Artist returns the artist service.
func (c *Client) Artist() *ArtistService {
	return c.artist
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
