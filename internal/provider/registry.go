package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/seenimoa/joltsplot/internal/frame"
)

// Registry is a thread-safe registry of data sources keyed by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates a new empty source registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source to the registry. Duplicate registrations
// overwrite the previous entry.
func (r *Registry) Register(s Source) error {
	name := s.Info().Name
	if name == "" {
		return fmt.Errorf("source name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = s
	return nil
}

// Unregister removes a source from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, name)
}

// Get returns a source by name, or *ErrSourceNotFound.
func (r *Registry) Get(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[name]
	if !ok {
		return nil, &ErrSourceNotFound{Name: name}
	}
	return s, nil
}

// List returns info about all registered sources, sorted by name.
func (r *Registry) List() []SourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SourceInfo, 0, len(r.sources))
	for _, s := range r.sources {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Fetch validates req and fetches it from the named source.
func (r *Registry) Fetch(ctx context.Context, name string, req Request) (*frame.Table, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	tbl, err := s.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}
	return tbl, nil
}
