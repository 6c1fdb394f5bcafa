// Package providers registers the concrete data sources with a registry.
package providers

import (
	"github.com/seenimoa/joltsplot/internal/infra"
	"github.com/seenimoa/joltsplot/internal/provider"
	"github.com/seenimoa/joltsplot/internal/providers/fred"
)

// RegisterAllTo registers every available source with reg. Sources share
// client, and therefore its rate limiter. A nil client gives each source
// its own default client. Sources are not initialized here; the caller
// calls Init on the one it selects.
func RegisterAllTo(reg *provider.Registry, client *infra.Client) error {
	var opts []fred.Option
	if client != nil {
		opts = append(opts, fred.WithClient(client))
	}

	// --- FRED CSV download (free, no API key) ---
	if err := reg.Register(fred.NewGraphSource(opts...)); err != nil {
		return err
	}

	// --- FRED JSON API (requires API key) ---
	if err := reg.Register(fred.NewAPISource(opts...)); err != nil {
		return err
	}

	return nil
}
