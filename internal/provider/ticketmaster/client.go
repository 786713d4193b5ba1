// Package ticketmaster is the events provider adapter for the Ticketmaster
// Discovery API.
package ticketmaster

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/identity"
	"github.com/jfmyers9/riffnet/internal/provider"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Discovery API root
	DefaultBaseURL = "https://app.ticketmaster.com/discovery/v2"

	// DefaultPageSize is the number of events requested per artist
	DefaultPageSize = 20

	attractionType = "attraction"
)

// Config holds client configuration
type Config struct {
	APIKey     string       // Required
	BaseURL    string       // Optional: API root (used for testing)
	PageSize   int          // Optional: events per search (default 20)
	HTTPClient *http.Client // Optional
	RetryCount int          // Optional: retries for transient failures
}

// Client searches music events by artist name
type Client struct {
	api      *provider.Client
	apiKey   string
	pageSize int
}

// New creates a Ticketmaster client
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ticketmaster: APIKey is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Client{
		api: provider.NewClient(provider.ClientConfig{
			Name:       "ticketmaster",
			BaseURL:    baseURL,
			RetryCount: cfg.RetryCount,
			HTTPClient: cfg.HTTPClient,
		}, logger),
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
	}, nil
}

// Events returns upcoming music events matching an artist name, sorted by
// date. An artist without events yields an empty slice.
func (c *Client) Events(ctx context.Context, name string) ([]artist.Event, error) {
	var res searchResponse
	req := c.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":             c.apiKey,
			"classificationName": "music",
			"keyword":            name,
			"sort":               "date,name,asc",
			"size":               strconv.Itoa(c.pageSize),
		}).
		SetResult(&res)

	if _, err := c.api.Do(req, http.MethodGet, "/events.json"); err != nil {
		if provider.IsNotFound(err) {
			return []artist.Event{}, nil
		}
		return nil, err
	}

	events := make([]artist.Event, 0, len(res.Embedded.Events))
	for _, e := range res.Embedded.Events {
		events = append(events, e.event())
	}
	return events, nil
}

type named struct {
	Name string `json:"name"`
}

type searchResponse struct {
	Embedded struct {
		Events []eventObject `json:"events"`
	} `json:"_embedded"`
}

type eventObject struct {
	Name  string `json:"name"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
		} `json:"start"`
	} `json:"dates"`
	Classifications []struct {
		Segment named `json:"segment"`
		Genre   named `json:"genre"`
		SubType named `json:"subType"`
	} `json:"classifications"`
	Embedded struct {
		Attractions []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"attractions"`
	} `json:"_embedded"`
}

// event keeps only performer attractions with a name. AttractionCount
// keeps the unfiltered count for festival detection.
func (e eventObject) event() artist.Event {
	out := artist.Event{
		Name:            e.Name,
		StartDate:       e.Dates.Start.LocalDate,
		Classifications: make([]artist.Classification, 0, len(e.Classifications)),
		Attractions:     make([]artist.Attraction, 0, len(e.Embedded.Attractions)),
		AttractionCount: len(e.Embedded.Attractions),
	}
	for _, c := range e.Classifications {
		out.Classifications = append(out.Classifications, artist.Classification{
			Segment: c.Segment.Name,
			Genre:   c.Genre.Name,
			SubType: c.SubType.Name,
		})
	}
	for _, a := range e.Embedded.Attractions {
		if a.Type != "" && !strings.EqualFold(a.Type, attractionType) {
			continue
		}
		key := identity.Key(a.Name)
		if key == "" {
			continue
		}
		out.Attractions = append(out.Attractions, artist.Attraction{Name: a.Name, Key: key})
	}
	return out
}
