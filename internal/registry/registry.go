// Package registry implements the Component Registry (§4.1): a thread-safe
// catalog of optional capabilities whose availability is detected lazily and
// cached briefly, following the teacher's Registry{mu, tools, byCategory}
// shape in internal/tools/registry.go, generalized from named tools to
// named capabilities with dependency closures and stand-ins.
package registry

import (
	"sync"
	"time"

	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/logging"
)

// DefaultTTL is how long an availability check result is trusted before a
// capability is re-probed.
const DefaultTTL = 5 * time.Minute

// Prober determines whether a capability is currently usable. It is called
// at most once per TTL window per capability.
type Prober func() (available bool, reason string)

// Capability is a named, probeable component with zero or more
// dependencies. Probing is only attempted once every dependency is itself
// available.
type Capability struct {
	Name      string
	DependsOn []string
	Probe     Prober
	StandIn   interface{} // returned by Get when unavailable, may be nil
	Instance  interface{} // returned by Get when available
}

type cacheEntry struct {
	available bool
	reason    string
	checkedAt time.Time
}

// Registry is the thread-safe capability catalog.
type Registry struct {
	mu    sync.RWMutex
	caps  map[string]*Capability
	cache map[string]cacheEntry
	ttl   time.Duration
}

// New constructs an empty Registry using the default TTL.
func New() *Registry {
	return &Registry{
		caps:  make(map[string]*Capability),
		cache: make(map[string]cacheEntry),
		ttl:   DefaultTTL,
	}
}

// WithTTL overrides the availability cache lifetime. Intended for tests.
func (r *Registry) WithTTL(ttl time.Duration) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttl = ttl
	return r
}

// ErrAlreadyRegistered is returned by Register for a duplicate name.
var ErrAlreadyRegistered = errs.New(errs.KindUser, "capability already registered")

// Register adds a capability to the registry. Registering the same name
// twice is a user error, mirroring the teacher's duplicate-tool guard.
func (r *Registry) Register(c *Capability) error {
	if c.Name == "" {
		return errs.New(errs.KindUser, "capability name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[c.Name]; exists {
		return ErrAlreadyRegistered
	}
	r.caps[c.Name] = c
	logging.Get(logging.CategoryRegistry).Debug("registered capability %q (depends_on=%v)", c.Name, c.DependsOn)
	return nil
}

// MustRegister registers a capability and panics on error, for use during
// fixed startup wiring where a duplicate name is a programming error.
func (r *Registry) MustRegister(c *Capability) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// IsAvailable reports whether a capability and its full dependency closure
// currently probe as available. Results are cached for the registry's TTL.
func (r *Registry) IsAvailable(name string) (bool, string) {
	return r.isAvailable(name, make(map[string]bool))
}

func (r *Registry) isAvailable(name string, visiting map[string]bool) (bool, string) {
	r.mu.RLock()
	c, ok := r.caps[name]
	r.mu.RUnlock()
	if !ok {
		return false, "not registered"
	}

	if visiting[name] {
		return false, "dependency cycle detected"
	}
	visiting[name] = true

	for _, dep := range c.DependsOn {
		if ok, reason := r.isAvailable(dep, visiting); !ok {
			return false, "dependency " + dep + " unavailable: " + reason
		}
	}

	r.mu.RLock()
	entry, cached := r.cache[name]
	r.mu.RUnlock()
	if cached && time.Since(entry.checkedAt) < r.ttl {
		return entry.available, entry.reason
	}

	available, reason := true, ""
	if c.Probe != nil {
		available, reason = c.Probe()
	}

	r.mu.Lock()
	r.cache[name] = cacheEntry{available: available, reason: reason, checkedAt: time.Now()}
	r.mu.Unlock()

	if !available {
		logging.Get(logging.CategoryRegistry).Info("capability %q unavailable: %s", name, reason)
	}
	return available, reason
}

// Invalidate clears the cached availability for a capability, forcing the
// next IsAvailable/Get call to re-probe.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, name)
}

// InvalidateAll clears every cached availability result.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]cacheEntry)
}

// Get returns a capability's live Instance if it and its dependencies are
// available, or its StandIn (which may be nil) with CapabilityUnavailable
// otherwise.
func (r *Registry) Get(name string) (interface{}, error) {
	r.mu.RLock()
	c, ok := r.caps[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.KindUser, "unknown capability: "+name)
	}

	if available, reason := r.IsAvailable(name); !available {
		return c.StandIn, errs.CapabilityUnavailable(name, reason)
	}
	return c.Instance, nil
}

// Has reports whether a name has been registered, independent of
// availability.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.caps[name]
	return ok
}

// Names returns every registered capability name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.caps))
	for n := range r.caps {
		names = append(names, n)
	}
	return names
}

// Features reports the availability of every registered capability, for the
// CLI's `features` command (§6).
func (r *Registry) Features() map[string]FeatureStatus {
	names := r.Names()
	out := make(map[string]FeatureStatus, len(names))
	for _, n := range names {
		available, reason := r.IsAvailable(n)
		out[n] = FeatureStatus{Available: available, Reason: reason}
	}
	return out
}

// FeatureStatus is the availability snapshot of one capability.
type FeatureStatus struct {
	Available bool
	Reason    string
}
