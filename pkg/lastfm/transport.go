package lastfm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// envelope is the <lfm> root element every response is wrapped in.
type envelope struct {
	XMLName xml.Name `xml:"lfm"`
	Status  string   `xml:"status,attr"`
	Inner   []byte   `xml:",innerxml"`
	Error   *struct {
		Code    int    `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
}

// maxBackoff caps the delay between attempts.
const maxBackoff = 30 * time.Second

// retryableError marks a failure that another attempt may fix.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// call performs a read-only API method and returns the inner XML of the
// <lfm> envelope. Network errors, 5xx responses and temporary API errors
// are retried with exponential backoff up to maxRetries attempts.
func (c *Client) call(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	reqURL := c.methodURL(method, params)
	wait := c.backoff

	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.logDebugf("lastfm: %s attempt %d/%d", method, attempt, c.maxRetries)

		var inner []byte
		inner, err = c.attempt(ctx, reqURL)
		if err == nil {
			return inner, nil
		}

		var retry retryableError
		if !errors.As(err, &retry) {
			return nil, err
		}
		err = retry.err
		if attempt == c.maxRetries {
			break
		}

		c.logDebugf("lastfm: %s failed, retrying in %s: %v", method, wait, err)
		if !sleep(ctx, wait) {
			return nil, ctx.Err()
		}
		wait = min(wait*2, maxBackoff)
	}

	return nil, fmt.Errorf("lastfm: %s failed after %d attempts: %w", method, c.maxRetries, err)
}

// methodURL builds the GET url for method. Empty params are omitted.
func (c *Client) methodURL(method string, params map[string]string) string {
	query := url.Values{}
	for k, v := range params {
		if v != "" {
			query.Set(k, v)
		}
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)
	return c.baseURL + "?" + query.Encode()
}

// attempt sends one request. Failures worth retrying come back wrapped in
// retryableError.
func (c *Client) attempt(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "riffnet/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return nil, retryableError{err}
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, retryableError{fmt.Errorf("server error: %s", resp.Status)}
	}

	// API errors arrive with 4xx statuses and an XML body
	var env envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	switch {
	case env.Status == "failed" && env.Error != nil:
		apiErr := &Error{Code: env.Error.Code, Message: env.Error.Message}
		if apiErr.Temporary() {
			return nil, retryableError{apiErr}
		}
		return nil, apiErr
	case resp.StatusCode != http.StatusOK || env.Status != "ok":
		return nil, fmt.Errorf("unexpected response: status %d, lfm status %q", resp.StatusCode, env.Status)
	}
	return env.Inner, nil
}

// isNetworkError reports transport failures other than cancellation.
func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for d and reports false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
