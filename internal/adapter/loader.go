// Package adapter implements the Dynamic Adapter Loader (§4.7): a
// memory-budgeted LRU cache of per-project low-rank adapters, grounded on
// the registry's capability-with-stand-in pattern (internal/registry) for
// the no-runtime case, and on the teacher's mutex-guarded cache shape in
// internal/tools/registry.go generalized from named tools to pinned,
// ref-counted adapter handles.
package adapter

import (
	"sync"

	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/logging"
)

// DefaultMemoryBudget is the hard ceiling on total adapter memory, matching
// config.AdapterConfig's default (4.5 GB).
const DefaultMemoryBudget int64 = 4*1024*1024*1024 + 512*1024*1024

// Handle is a loaded adapter. When the adapter runtime capability is
// unavailable, NoAdapterHandle is used as a stand-in and every chat request
// degrades to the base model (§4.9 degrade-in-order fallback).
type Handle struct {
	ProjectID   string
	Path        string
	MemoryBytes int64
	NoAdapter   bool
}

// NoAdapterHandle is the stand-in returned when the adapter runtime
// capability is unavailable.
var NoAdapterHandle = &Handle{NoAdapter: true}

type entry struct {
	handle   *Handle
	refCount int
}

// Loader is the memory-budgeted adapter cache.
type Loader struct {
	mu             sync.Mutex
	budget         int64
	used           int64
	cache          map[string]*entry
	order          []string // front = most recently used; pinned entries stay out of eviction
	runtimeProbe   func() (bool, string)
	maxCached      int
}

// New builds a Loader with the given memory budget and optional cache-count
// ceiling (0 disables the count ceiling and relies on the byte budget
// alone). runtimeProbe reports whether the adapter runtime capability is
// available; nil means "always available" (useful in tests).
func New(budget int64, maxCached int, runtimeProbe func() (bool, string)) *Loader {
	if budget <= 0 {
		budget = DefaultMemoryBudget
	}
	return &Loader{
		budget:       budget,
		maxCached:    maxCached,
		cache:        make(map[string]*entry),
		runtimeProbe: runtimeProbe,
	}
}

// Load admits a project's adapter into the cache, evicting unreferenced
// LRU entries until there is room. An adapter larger than the whole budget
// is rejected with ResourceExhausted before anything is evicted. If
// eviction cannot free enough space (every cached adapter is pinned in an
// active WithAdapter call), Load returns ResourceExhausted rather than
// blocking.
func (l *Loader) Load(projectID, path string, sizeBytes int64) (*Handle, error) {
	if l.runtimeProbe != nil {
		if available, reason := l.runtimeProbe(); !available {
			return NoAdapterHandle, errs.CapabilityUnavailable("adapter_runtime", reason)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.cache[projectID]; ok {
		l.touchLocked(projectID)
		return e.handle, nil
	}

	if sizeBytes > l.budget {
		return nil, errs.New(errs.KindResourceExhausted, "adapter for "+projectID+" is larger than the memory budget")
	}

	for l.used+sizeBytes > l.budget || (l.maxCached > 0 && len(l.cache) >= l.maxCached) {
		if !l.evictOneLocked() {
			return nil, errs.New(errs.KindResourceExhausted, "cannot free enough adapter memory: all cached adapters are in use")
		}
	}

	handle := &Handle{ProjectID: projectID, Path: path, MemoryBytes: sizeBytes}
	l.cache[projectID] = &entry{handle: handle}
	l.order = append([]string{projectID}, l.order...)
	l.used += sizeBytes

	logging.Get(logging.CategoryLoader).Info("loaded adapter for %s (%d bytes, %d/%d used)", projectID, sizeBytes, l.used, l.budget)
	return handle, nil
}

// evictOneLocked drops the least-recently-used unpinned entry. Returns
// false if every entry is pinned (refCount > 0).
func (l *Loader) evictOneLocked() bool {
	for i := len(l.order) - 1; i >= 0; i-- {
		id := l.order[i]
		e, ok := l.cache[id]
		if !ok || e.refCount > 0 {
			continue
		}
		delete(l.cache, id)
		l.order = append(l.order[:i], l.order[i+1:]...)
		l.used -= e.handle.MemoryBytes
		logging.Get(logging.CategoryLoader).Info("evicted adapter for %s to free %d bytes", id, e.handle.MemoryBytes)
		return true
	}
	return false
}

func (l *Loader) touchLocked(projectID string) {
	for i, id := range l.order {
		if id == projectID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.order = append([]string{projectID}, l.order...)
}

// Unload explicitly drops a project's adapter, regardless of recency,
// unless it is currently pinned by an active WithAdapter call.
func (l *Loader) Unload(projectID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.cache[projectID]
	if !ok {
		return nil
	}
	if e.refCount > 0 {
		return errs.New(errs.KindUser, "adapter for "+projectID+" is currently in use")
	}
	delete(l.cache, projectID)
	for i, id := range l.order {
		if id == projectID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.used -= e.handle.MemoryBytes
	return nil
}

// Active lists the project ids currently cached.
func (l *Loader) Active() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// UsedBytes reports current memory usage, for the `status` command.
func (l *Loader) UsedBytes() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// WithAdapter pins a project's adapter for the duration of fn, guaranteeing
// it cannot be evicted mid-use, then unpins it. projectID must already be
// loaded via Load.
func (l *Loader) WithAdapter(projectID string, fn func(*Handle) error) error {
	l.mu.Lock()
	e, ok := l.cache[projectID]
	if !ok {
		l.mu.Unlock()
		return errs.New(errs.KindUser, "adapter for "+projectID+" is not loaded")
	}
	e.refCount++
	l.touchLocked(projectID)
	handle := e.handle
	l.mu.Unlock()

	err := fn(handle)

	l.mu.Lock()
	e.refCount--
	l.mu.Unlock()

	return err
}
