package registry

import (
	"sync"

	"github.com/flowrunner/flowrunner/graph"
)

// cacheKey is the (module_id, node_type_id) pair the Executor Resolver
// caches constructors under.
type cacheKey struct {
	moduleID   string
	nodeTypeID string
}

// Resolver implements graph.Resolver backed by a cache that is fully
// cleared whenever the owning Registry enables or disables any module
// (spec.md §4.C), so newly mounted module code takes effect without a
// process restart.
type Resolver struct {
	registry *Registry

	mu    sync.RWMutex
	cache map[cacheKey]graph.Constructor
}

func newResolver(registry *Registry) *Resolver {
	return &Resolver{
		registry: registry,
		cache:    make(map[cacheKey]graph.Constructor),
	}
}

// Resolve returns the cached constructor for (moduleID, nodeTypeID),
// consulting the module's Dispatcher on a cache miss. A disabled or
// unknown module, or a node type its Dispatcher doesn't recognize,
// reports (nil, false) — the Engine treats that as a pass-through node.
func (r *Resolver) Resolve(moduleID, nodeTypeID string) (graph.Constructor, bool) {
	key := cacheKey{moduleID, nodeTypeID}

	r.mu.RLock()
	ctor, hit := r.cache[key]
	r.mu.RUnlock()
	if hit {
		return ctor, true
	}

	if !r.registry.isEnabled(moduleID) {
		return nil, false
	}
	dispatcher, ok := r.registry.dispatcherFor(moduleID)
	if !ok {
		return nil, false
	}
	ctor, ok = dispatcher.Constructor(nodeTypeID)
	if !ok {
		return nil, false
	}

	r.mu.Lock()
	r.cache[key] = ctor
	r.mu.Unlock()
	return ctor, true
}

// invalidate clears the entire cache, called by Registry.Enable/Disable
// unconditionally (spec.md §4.C).
func (r *Resolver) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[cacheKey]graph.Constructor)
}
