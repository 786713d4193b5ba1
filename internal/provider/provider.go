// Package provider holds the HTTP plumbing shared by the remote data
// provider adapters.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrNotFound reports that a provider has no record for the lookup
type ErrNotFound struct {
	Provider string
	Query    string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s: no result for %q", e.Provider, e.Query)
}

// ErrUnavailable reports a transient provider failure: a 5xx or 429
// response, a transport error, or an open circuit breaker
type ErrUnavailable struct {
	Provider string
	Status   int
	Err      error
}

func (e *ErrUnavailable) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unavailable (status %d)", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: unavailable: %v", e.Provider, e.Err)
}

func (e *ErrUnavailable) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an ErrNotFound
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// ClientConfig configures a provider HTTP client
type ClientConfig struct {
	Name       string        // Provider name used in errors, logs and the breaker
	BaseURL    string        // API root
	Timeout    time.Duration // Per-request timeout (default 15s)
	RetryCount int           // Retries for transport errors and 5xx/429 responses
	HTTPClient *http.Client  // Optional underlying client
}

// Client is a resty client guarded by a circuit breaker
type Client struct {
	name   string
	http   *resty.Client
	cb     *gobreaker.CircuitBreaker[*resty.Response]
	logger zerolog.Logger
}

// NewClient builds a provider client. The breaker opens once at least ten
// requests have been made in a minute and 60% of them failed, and probes
// again after thirty seconds.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "riffnet/1.0").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	log := logger.With().Str("component", "provider").Str("provider", cfg.Name).Logger()

	cb := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &Client{
		name:   cfg.Name,
		http:   rc,
		cb:     cb,
		logger: log,
	}
}

// R returns a new request bound to the underlying resty client
func (c *Client) R() *resty.Request {
	return c.http.R()
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.name
}

// Do sends a request through the circuit breaker and classifies the
// response. 404 becomes ErrNotFound; 429, 5xx, transport errors and an
// open breaker become ErrUnavailable; any other non-2xx is a plain error.
func (c *Client) Do(req *resty.Request, method, path string) (*resty.Response, error) {
	resp, err := c.cb.Execute(func() (*resty.Response, error) {
		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, &ErrUnavailable{Provider: c.name, Err: err}
		}
		if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500 {
			return nil, &ErrUnavailable{Provider: c.name, Status: resp.StatusCode()}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ErrUnavailable{Provider: c.name, Err: err}
		}
		return nil, err
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("elapsed", resp.Time()).
		Msg("Provider request")

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &ErrNotFound{Provider: c.name, Query: path}
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: unexpected status %d for %s", c.name, resp.StatusCode(), path)
	}
	return resp, nil
}
