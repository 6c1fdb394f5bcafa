// Package infra provides shared infrastructure used by the data sources:
// an HTTP GET helper with status checking and a request rate limiter.
package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/seenimoa/joltsplot/pkg/logger"
)

// UserAgent is sent with every request.
const UserAgent = "joltsplot/1.0 (+https://github.com/seenimoa/joltsplot)"

// --- HTTP ---

// HTTPError is returned for non-2xx responses. Body holds at most the first
// 4 KiB of the response so callers can inspect upstream error messages.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Client performs rate-limited GET requests.
type Client struct {
	http    *http.Client
	limiter *RateLimiter
}

// NewClient creates a client with the given per-request timeout. A nil
// limiter disables rate limiting.
func NewClient(timeout time.Duration, limiter *RateLimiter) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// DoGet issues a GET request and returns the response body and status code.
// The caller must close the body. Non-2xx responses are returned as
// *HTTPError with the body already consumed and closed.
func (c *Client) DoGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", redact(url), err)
	}
	logger.FromContext(ctx).Debug("http get",
		"url", redact(url),
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, &HTTPError{
			URL:        redact(url),
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}
	return resp.Body, resp.StatusCode, nil
}

// redact hides the value of an api_key query parameter.
func redact(url string) string {
	i := strings.Index(url, "api_key=")
	if i < 0 {
		return url
	}
	j := i + len("api_key=")
	end := strings.IndexByte(url[j:], '&')
	if end < 0 {
		return url[:j] + "***"
	}
	return url[:j] + "***" + url[j+end:]
}

// --- Rate limiter ---

// RateLimiter provides simple token-bucket rate limiting.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter that hands out one token every
// refillRate, holding at most maxTokens.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// PerMinute returns a limiter allowing n requests per minute with bursts of n.
// n must be positive; the refill interval is at least one nanosecond.
func PerMinute(n int) *RateLimiter {
	every := time.Minute / time.Duration(n)
	if every <= 0 {
		every = time.Nanosecond
	}
	return NewRateLimiter(n, every)
}

// Wait blocks until a token is available or context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		wait := rl.refillRate - time.Since(rl.lastRefill)
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	elapsed := time.Since(rl.lastRefill)
	if elapsed < rl.refillRate {
		return
	}
	periods := int(elapsed / rl.refillRate)
	rl.tokens += periods
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillRate)
}
