// Package upstream provides the HTTP clients for the external systems this
// engine reconciles against: the lead-capture sources, the reservation API
// and the web-metrics counter.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/cenkalti/backoff/v4"
)

// HTTPClient abstracts the transport so tests can stub responses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a transport with the given per-request timeout.
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// defaultRetries bounds re-attempts for source and metrics fetches.
const defaultRetries = 3

// captureTimeLayouts covers every format the upstream systems are known to
// emit for lead and reservation timestamps.
var captureTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// parseCaptureTime tries each known layout. Unparseable values come back as
// the zero time; the merge pipeline counts those records, it never drops
// them silently.
func parseCaptureTime(value string) time.Time {
	for _, layout := range captureTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// getJSON issues one GET and decodes a 2xx body into v. A 401 or 403 maps
// to lead.ErrUpstreamAuth so callers can halt further dispatch.
func getJSON(ctx context.Context, c HTTPClient, url string, headers map[string]string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return resp.StatusCode, fmt.Errorf("%w: status %d", lead.ErrUpstreamAuth, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// getJSONWithRetry wraps getJSON in bounded exponential backoff. Auth
// failures are permanent and never retried.
func getJSONWithRetry(ctx context.Context, c HTTPClient, url string, headers map[string]string, retries int, v any) (int, error) {
	var status int

	operation := func() error {
		var err error
		status, err = getJSON(ctx, c, url, headers, v)
		if err != nil && errors.Is(err, lead.ErrUpstreamAuth) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return status, err
	}
	return status, nil
}
