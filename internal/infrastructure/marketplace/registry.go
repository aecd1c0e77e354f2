package marketplace

import (
	"fmt"
	"sort"

	"github.com/crosslist/backend/internal/domain/listing"
)

// Registry is the static adapter registry. It is populated once at startup
// with one adapter per supported marketplace and never mutated, so no
// locking is needed after construction.
type Registry struct {
	adapters map[listing.Platform]listing.PlatformAdapter
}

// NewRegistry creates a registry from the given adapters. Registering two
// adapters for the same platform is a wiring mistake and fails fast.
func NewRegistry(adapters ...listing.PlatformAdapter) (*Registry, error) {
	byPlatform := make(map[listing.Platform]listing.PlatformAdapter, len(adapters))
	for _, adapter := range adapters {
		platform := adapter.Platform()
		if !platform.IsValid() {
			return nil, fmt.Errorf("%w: %s", listing.ErrPlatformUnknown, platform)
		}
		if _, exists := byPlatform[platform]; exists {
			return nil, fmt.Errorf("duplicate adapter registered for platform %s", platform)
		}
		byPlatform[platform] = adapter
	}
	return &Registry{adapters: byPlatform}, nil
}

// Adapter returns the adapter for the given platform
func (r *Registry) Adapter(platform listing.Platform) (listing.PlatformAdapter, error) {
	if !platform.IsValid() {
		return nil, listing.ErrPlatformUnknown
	}
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, listing.ErrPlatformNotProvisioned
	}
	return adapter, nil
}

// Adapters returns every registered adapter in platform order
func (r *Registry) Adapters() []listing.PlatformAdapter {
	result := make([]listing.PlatformAdapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		result = append(result, adapter)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Platform() < result[j].Platform()
	})
	return result
}

var _ listing.AdapterRegistry = (*Registry)(nil)
