package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a Strategy from venue-specific settings.
type Factory func(settings map[string]string) (Strategy, error)

// Registry maps venue IDs to adapter factories so deployment selects the
// venue by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(venueID string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[venueID] = f
}

func (r *Registry) Has(venueID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[venueID]
	return ok
}

// New builds the adapter registered under venueID.
func (r *Registry) New(venueID string, settings map[string]string) (Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[venueID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown venue %q", venueID)
	}
	return f(settings)
}

// List returns registered venue IDs, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for id := range r.factories {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
