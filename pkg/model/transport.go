package model

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/specfoundry/specfoundry/pkg/logging"
)

const defaultTimeout = 120 * time.Second

// newHTTPClient builds the shared client used by all providers. The
// transport caps idle connections per host since every request in this
// process targets a single API endpoint.
func newHTTPClient(rt http.RoundTripper) *http.Client {
	if rt == nil {
		rt = &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	return &http.Client{
		Timeout:   defaultTimeout,
		Transport: rt,
	}
}

// throttledTransport applies a client-side rate limit ahead of the
// provider's own limiter so bursts of generation requests queue locally
// instead of burning 429 responses.
type throttledTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	logger  *logging.Logger
}

// newThrottledTransport wraps base with a limiter of rps requests per
// second (burst of rps). A nil base uses http.DefaultTransport.
func newThrottledTransport(base http.RoundTripper, rps float64, logger *logging.Logger) *throttledTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &throttledTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// RoundTrip implements http.RoundTripper
func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Warn(logging.CategoryNetwork, "request_failed", err.Error(), map[string]any{
			"method":      req.Method,
			"url":         req.URL.String(),
			"duration_ms": duration.Milliseconds(),
		})
		return nil, err
	}

	t.logger.Debug(logging.CategoryNetwork, "request_complete", "", map[string]any{
		"method":      req.Method,
		"url":         req.URL.String(),
		"status":      resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
	})
	return resp, nil
}

// parseAPIError drains the response body and builds an APIError. The
// caller still owns closing the body.
func parseAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    resp.Status,
		Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024))
	if err != nil {
		return apiErr
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	} else if len(body) > 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}
