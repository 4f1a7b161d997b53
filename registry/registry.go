package registry

import (
	"errors"
	"sync"

	"github.com/flowrunner/flowrunner/graph"
)

// ErrModuleNotFound is returned by Enable/Disable/UpdateConfig for an
// unknown module id (spec.md §4.B "enable/disable on an unknown module
// returns a miss indicator").
var ErrModuleNotFound = errors.New("module not found")

// Dispatcher is a module's per-node-type constructor lookup, the Go
// analogue of original_source's `modules.<id>.node.get_executor_class`.
// Module packages register one Dispatcher per module id at startup
// (eager registration, per spec.md §9's "prefer eager registration in a
// systems-language port; it removes reflection from the hot path").
type Dispatcher interface {
	Constructor(nodeTypeID string) (graph.Constructor, bool)
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(nodeTypeID string) (graph.Constructor, bool)

func (f DispatcherFunc) Constructor(nodeTypeID string) (graph.Constructor, bool) {
	return f(nodeTypeID)
}

// Registry owns module metadata and the eagerly-registered Dispatcher for
// each module id. All mutators take registry.mu (spec.md §4.B
// "Concurrency: all mutators take a process-wide lock").
type Registry struct {
	mu          sync.RWMutex
	dir         string
	modules     map[string]*Metadata
	dispatchers map[string]Dispatcher
	resolver    *Resolver
}

// New creates a Registry rooted at dir (the modules directory). The
// returned Registry's Resolver is invalidated automatically by Enable and
// Disable.
func New(dir string) *Registry {
	r := &Registry{
		dir:         dir,
		modules:     make(map[string]*Metadata),
		dispatchers: make(map[string]Dispatcher),
	}
	r.resolver = newResolver(r)
	return r
}

// RegisterDispatcher wires a module's Dispatcher into the registry. This
// is independent of the module's enabled state: enable/disable only gates
// whether the Resolver will serve lookups for it.
func (r *Registry) RegisterDispatcher(moduleID string, d Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatchers[moduleID] = d
	if _, exists := r.modules[moduleID]; !exists {
		r.modules[moduleID] = &Metadata{ID: moduleID, Enabled: true, Order: defaultOrder, Config: graph.Map{}}
	}
}

// Discover scans the registry's modules directory, replacing each
// discovered module's metadata (a module already registered via
// RegisterDispatcher but absent on disk keeps its in-memory default).
func (r *Registry) Discover() []error {
	found, errs := discoverDir(r.dir)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, meta := range found {
		r.modules[id] = meta
	}
	return errs
}

// ListModules returns every known module sorted by Order ascending.
func (r *Registry) ListModules() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Metadata, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sortByOrder(out)

	result := make([]Metadata, len(out))
	for i, m := range out {
		result[i] = *m
	}
	return result
}

// Enable mounts moduleID's handlers (tracked here only as Enabled=true)
// and unconditionally invalidates the Executor Resolver cache.
func (r *Registry) Enable(moduleID string) error {
	return r.setEnabled(moduleID, true)
}

// Disable unmounts moduleID's handlers and unconditionally invalidates
// the Executor Resolver cache.
func (r *Registry) Disable(moduleID string) error {
	return r.setEnabled(moduleID, false)
}

func (r *Registry) setEnabled(moduleID string, enabled bool) error {
	r.mu.Lock()
	meta, ok := r.modules[moduleID]
	if !ok {
		r.mu.Unlock()
		return ErrModuleNotFound
	}
	meta.Enabled = enabled
	dir := r.dir
	metaCopy := *meta
	r.mu.Unlock()

	r.resolver.invalidate()

	return writeMetadata(dir, &metaCopy)
}

// UpdateConfig replaces moduleID's config mapping and persists it. No
// cache invalidation is required unless executors read config only at
// construction time, which spec.md §4.B leaves to the module's own
// Dispatcher/Constructor to decide.
func (r *Registry) UpdateConfig(moduleID string, config graph.Map) error {
	r.mu.Lock()
	meta, ok := r.modules[moduleID]
	if !ok {
		r.mu.Unlock()
		return ErrModuleNotFound
	}
	meta.Config = config
	dir := r.dir
	metaCopy := *meta
	r.mu.Unlock()

	return writeMetadata(dir, &metaCopy)
}

// Reorder assigns monotonic Order values, starting at 1, following the
// given id order.
func (r *Registry) Reorder(ids []string) error {
	r.mu.Lock()
	var metas []*Metadata
	for i, id := range ids {
		meta, ok := r.modules[id]
		if !ok {
			r.mu.Unlock()
			return ErrModuleNotFound
		}
		meta.Order = i + 1
		metas = append(metas, meta)
	}
	dir := r.dir
	copies := make([]Metadata, len(metas))
	for i, m := range metas {
		copies[i] = *m
	}
	r.mu.Unlock()

	for i := range copies {
		if err := writeMetadata(dir, &copies[i]); err != nil {
			return err
		}
	}
	return nil
}

// Resolver returns the registry's Executor Resolver.
func (r *Registry) Resolver() *Resolver {
	return r.resolver
}

func (r *Registry) isEnabled(moduleID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.modules[moduleID]
	return ok && meta.Enabled
}

func (r *Registry) dispatcherFor(moduleID string) (Dispatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dispatchers[moduleID]
	return d, ok
}
