// Package fred implements data sources for FRED (Federal Reserve Economic
// Data), which publishes over 800,000 economic time series, JOLTS among them.
//
// Two sources are provided:
//   - "fred" reads the public fredgraph.csv download and needs no key.
//   - "fred-api" uses the JSON API and requires a free API key from
//     https://fred.stlouisfed.org/docs/api/api_key.html
//
// Rate limit: 120 requests/minute.
// Docs: https://fred.stlouisfed.org/docs/api/fred/
package fred

import (
	"strconv"
	"time"

	"github.com/seenimoa/joltsplot/internal/frame"
	"github.com/seenimoa/joltsplot/internal/infra"
)

const (
	graphName = "fred"
	apiName   = "fred-api"

	defaultGraphURL = "https://fred.stlouisfed.org"
	defaultAPIURL   = "https://api.stlouisfed.org/fred"

	credAPIKey = "api_key"
	website    = "https://fred.stlouisfed.org"

	// FRED's documented limit; shared by both sources through DefaultClient.
	requestsPerMinute = 120
)

// Option configures a source.
type Option func(*options)

type options struct {
	baseURL string
	client  *infra.Client
}

// WithBaseURL overrides the upstream base URL, e.g. for a test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithClient sets the HTTP client. Sources sharing a client share its
// rate limiter.
func WithClient(c *infra.Client) Option {
	return func(o *options) { o.client = c }
}

func buildOptions(baseURL string, opts []Option) options {
	o := options{baseURL: baseURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = DefaultClient(30 * time.Second)
	}
	return o
}

// DefaultClient returns an HTTP client limited to FRED's request rate.
func DefaultClient(timeout time.Duration) *infra.Client {
	return infra.NewClient(timeout, infra.PerMinute(requestsPerMinute))
}

// formatDate renders a request bound the way FRED expects it.
func formatDate(t time.Time) string {
	return t.Format(frame.DateLayout)
}

// parseValue converts an observation value. FRED marks missing
// observations with ".".
func parseValue(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nan
	}
	return f
}
