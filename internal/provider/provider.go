// Package provider defines the data source abstraction: a Source turns a
// list of series codes and a date range into a date-indexed frame.Table,
// and a Registry routes requests to sources by name.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seenimoa/joltsplot/internal/frame"
)

// Credential describes a credential a source may require.
type Credential struct {
	Name        string `json:"name"`        // e.g., "api_key"
	Description string `json:"description"` // e.g., "FRED API key from fred.stlouisfed.org"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"` // environment variable name, e.g., "FRED_API_KEY"
}

// SourceInfo holds metadata about a registered source.
type SourceInfo struct {
	Name        string       `json:"name"`        // e.g., "fred"
	Description string       `json:"description"` // human-readable description
	Website     string       `json:"website"`
	Credentials []Credential `json:"credentials"`
}

// Request asks a source for a set of series over a date range.
type Request struct {
	Series []string  // source series codes, one output column each
	Start  time.Time // first observation date
	End    time.Time // last observation date; zero means latest available
}

// Validate checks the request before any network call is made.
func (r Request) Validate() error {
	if len(r.Series) == 0 {
		return ErrEmptyRequest
	}
	seen := make(map[string]bool, len(r.Series))
	for _, s := range r.Series {
		if s == "" {
			return errors.New("empty series code")
		}
		if seen[s] {
			return fmt.Errorf("series %q requested twice", s)
		}
		seen[s] = true
	}
	if !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("end %s is before start %s", r.End.Format(frame.DateLayout), r.Start.Format(frame.DateLayout))
	}
	return nil
}

// SeriesInfo is descriptive metadata for one series.
type SeriesInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Units       string `json:"units,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// Source is the interface every data source implements.
type Source interface {
	// Info returns metadata about this source.
	Info() SourceInfo

	// Init configures the source with credentials. Returns
	// *ErrInvalidCredentials if a required credential is missing.
	Init(credentials map[string]string) error

	// Fetch returns a table indexed by observation date with one column per
	// requested series, named by its code and in request order. Missing
	// observations are NaN. Unknown codes yield *ErrUnknownSeries.
	Fetch(ctx context.Context, req Request) (*frame.Table, error)

	// Describe returns metadata for each series code, in order.
	Describe(ctx context.Context, series []string) ([]SeriesInfo, error)
}

// ErrEmptyRequest is returned when a request names no series.
var ErrEmptyRequest = errors.New("no series requested")

// ErrSourceNotFound is returned when a requested source is not registered.
type ErrSourceNotFound struct {
	Name string
}

func (e *ErrSourceNotFound) Error() string {
	return fmt.Sprintf("data source %q not found", e.Name)
}

// ErrInvalidCredentials is returned when source credentials are invalid.
type ErrInvalidCredentials struct {
	Source string
	Detail string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for source %q: %s", e.Source, e.Detail)
}

// ErrUnknownSeries is returned when the source does not publish a series.
type ErrUnknownSeries struct {
	Source string
	Series string
}

func (e *ErrUnknownSeries) Error() string {
	return fmt.Sprintf("source %q has no series %q", e.Source, e.Series)
}

// CheckCredentials validates credentials against info. Sources call it
// from Init.
func CheckCredentials(info SourceInfo, credentials map[string]string) error {
	for _, cred := range info.Credentials {
		if !cred.Required {
			continue
		}
		if val, ok := credentials[cred.Name]; !ok || val == "" {
			return &ErrInvalidCredentials{
				Source: info.Name,
				Detail: "missing required credential: " + cred.Name,
			}
		}
	}
	return nil
}
