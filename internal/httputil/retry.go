// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by paper downloads and
// model API calls.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/pdiddy/smartpaper/internal/logging"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// maxRetryAfter caps a server-supplied Retry-After.
const maxRetryAfter = 5 * time.Minute

const defaultMaxRetries = 5

// statusOverloaded is the Anthropic API's "overloaded" status.
const statusOverloaded = 529

// Retryable reports whether a response status is worth retrying.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == statusOverloaded
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) and 529 (Overloaded) with exponential backoff. The delay starts
// at RetryBaseDelay and doubles each attempt, unless the server sends a
// Retry-After in seconds.
//
// When maxRetries is 0 the default (5) is used. Requests with a body are
// replayed through req.GetBody, so POST requests built with http.NewRequest
// over a bytes.Reader retry correctly. If the context is cancelled during a
// backoff wait the function returns ctx.Err(). After exhausting retries the
// last retryable response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	logger := logging.FromContext(ctx)

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replaying request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if d, ok := retryAfter(resp); ok {
			backoff = d
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		logger.Warn("rate limited, retrying",
			"url", req.URL.String(), "status", resp.StatusCode,
			"backoff", backoff, "attempt", attempt+1, "max", maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d, true
}
