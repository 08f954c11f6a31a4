package notion

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// NotionRate is the documented average request rate (3 req/sec
	// per integration).
	NotionRate = 3

	// HeaderRetryAfter is the backoff header on 429 responses (seconds).
	HeaderRetryAfter = "Retry-After"
)

// throttledTransport is an http.RoundTripper that proactively paces
// requests with a token bucket and reactively backs off when the API
// answers 429 with a Retry-After.
type throttledTransport struct {
	base   http.RoundTripper
	bucket *rate.Limiter
}

// newThrottledClient wraps the default transport with Notion-rate pacing.
func newThrottledClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &throttledTransport{
			base:   http.DefaultTransport,
			bucket: rate.NewLimiter(rate.Limit(NotionRate), 1),
		},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.bucket.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp)
		if req.Body != nil && req.GetBody == nil {
			return resp, nil // Streaming body, cannot replay
		}
		retry := req.Clone(req.Context())
		if req.GetBody != nil {
			if retry.Body, err = req.GetBody(); err != nil {
				return resp, nil
			}
		}
		if wait > 0 {
			select {
			case <-req.Context().Done():
				return resp, nil
			case <-time.After(wait):
			}
			// One retry after the advertised backoff. A second 429 is
			// returned to the caller as-is.
			resp.Body.Close()
			if err := t.bucket.Wait(req.Context()); err != nil {
				return nil, err
			}
			return t.base.RoundTrip(retry)
		}
	}

	return resp, nil
}

// retryAfter parses the Retry-After header, zero if absent or malformed.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get(HeaderRetryAfter)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
