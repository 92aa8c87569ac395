// Package projectcontext implements the Project Context Manager (§4.6): an
// in-memory LRU cache (default capacity 8) of ProjectContext values, each
// durably persisted through internal/atomicfile. The LRU shape and
// eviction-before-admission policy are grounded on the
// ManagerConfig/eviction-policy design in
// other_examples/.../context-manager.go, simplified to this system's
// single "drop oldest non-system message" retention rule (§4.6 edge
// cases).
package projectcontext

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/codebase-gardener/gardener/internal/atomicfile"
	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/codebase-gardener/gardener/internal/logging"
)

// PathResolver returns the on-disk context file path for a project id.
type PathResolver func(projectID string) string

// Manager caches up to Capacity ProjectContext values in memory, evicting
// the least-recently-used entry (persisting it first) on overflow.
type Manager struct {
	mu          sync.Mutex
	capacity    int
	maxMessages int
	pathFor     PathResolver

	order    []string // front = most recently used
	contexts map[string]*gardenertypes.ProjectContext
}

// NewManager builds a context manager. capacity and maxMessages should come
// from config.ContextConfig (MaxContextsInMemory, MaxMessagesPerProject).
func NewManager(capacity, maxMessages int, pathFor PathResolver) *Manager {
	if capacity <= 0 {
		capacity = 8
	}
	if maxMessages <= 0 {
		maxMessages = 200
	}
	return &Manager{
		capacity:    capacity,
		maxMessages: maxMessages,
		pathFor:     pathFor,
		contexts:    make(map[string]*gardenertypes.ProjectContext),
	}
}

// Get returns a project's context, loading it from disk (or creating it
// fresh) if it is not already cached, and evicting the LRU victim if the
// cache is at capacity.
func (m *Manager) Get(projectID string) (*gardenertypes.ProjectContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(projectID)
}

func (m *Manager) getLocked(projectID string) (*gardenertypes.ProjectContext, error) {
	if ctx, ok := m.contexts[projectID]; ok {
		m.touchLocked(projectID)
		return ctx, nil
	}

	ctx, err := m.loadLocked(projectID)
	if err != nil {
		return nil, err
	}

	if len(m.order) >= m.capacity {
		if err := m.evictOneLocked(); err != nil {
			logging.Get(logging.CategoryContext).Warn("eviction persist failed: %v", err)
		}
	}

	m.contexts[projectID] = ctx
	m.order = append([]string{projectID}, m.order...)
	return ctx, nil
}

func (m *Manager) loadLocked(projectID string) (*gardenertypes.ProjectContext, error) {
	path := m.pathFor(projectID)
	var ctx gardenertypes.ProjectContext
	_, err := atomicfile.ReadWithBackupFallback(path, func(data []byte) error {
		return json.Unmarshal(data, &ctx)
	})
	if err != nil {
		ctx = gardenertypes.ProjectContext{ProjectID: projectID, Scratch: map[string]interface{}{}}
		return &ctx, nil
	}
	if ctx.Scratch == nil {
		ctx.Scratch = map[string]interface{}{}
	}
	ctx.ProjectID = projectID
	return &ctx, nil
}

// touchLocked moves projectID to the front of the LRU order.
func (m *Manager) touchLocked(projectID string) {
	for i, id := range m.order {
		if id == projectID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append([]string{projectID}, m.order...)
}

// evictOneLocked persists and drops the least-recently-used context.
func (m *Manager) evictOneLocked() error {
	if len(m.order) == 0 {
		return nil
	}
	victim := m.order[len(m.order)-1]
	m.order = m.order[:len(m.order)-1]

	ctx := m.contexts[victim]
	delete(m.contexts, victim)
	if ctx == nil {
		return nil
	}
	return m.persist(ctx)
}

func (m *Manager) persist(ctx *gardenertypes.ProjectContext) error {
	path := m.pathFor(ctx.ProjectID)
	if err := atomicfile.WriteJSON(path, func() ([]byte, error) {
		return json.MarshalIndent(ctx, "", "  ")
	}); err != nil {
		return errs.Wrap(errs.KindPersistence, "persist project context", err)
	}
	return nil
}

// AddMessage appends a message to a project's context, trimming to
// maxMessages by dropping the oldest non-system messages first (§4.6:
// system messages are always preserved).
func (m *Manager) AddMessage(projectID string, msg gardenertypes.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := m.getLocked(projectID)
	if err != nil {
		return err
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	ctx.Messages = append(ctx.Messages, msg)
	trimToCapacity(ctx, m.maxMessages)

	if err := m.persist(ctx); err != nil {
		logging.Get(logging.CategoryContext).Warn("persistence warning for %s: %v", projectID, err)
		return err
	}
	return nil
}

// trimToCapacity drops the oldest non-system messages until the total is
// at most max, preserving every system message regardless of age.
func trimToCapacity(ctx *gardenertypes.ProjectContext, max int) {
	if max <= 0 || len(ctx.Messages) <= max {
		return
	}

	var system, rest []gardenertypes.ConversationMessage
	for _, msg := range ctx.Messages {
		if msg.Role == gardenertypes.RoleSystem {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	keepRest := max - len(system)
	if keepRest < 0 {
		keepRest = 0
	}
	if keepRest < len(rest) {
		rest = rest[len(rest)-keepRest:]
	}

	merged := make([]gardenertypes.ConversationMessage, 0, len(system)+len(rest))
	merged = append(merged, system...)
	merged = append(merged, rest...)
	ctx.Messages = merged
}

// Recent returns the last n messages of a project's context (or all of
// them, if fewer than n exist).
func (m *Manager) Recent(projectID string, n int) ([]gardenertypes.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := m.getLocked(projectID)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(ctx.Messages) {
		return append([]gardenertypes.ConversationMessage{}, ctx.Messages...), nil
	}
	return append([]gardenertypes.ConversationMessage{}, ctx.Messages[len(ctx.Messages)-n:]...), nil
}

// Clear empties a project's conversation history, leaving scratch state
// intact.
func (m *Manager) Clear(projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := m.getLocked(projectID)
	if err != nil {
		return err
	}
	ctx.Messages = nil
	return m.persist(ctx)
}

// Evict forces a project's context out of memory, persisting it first.
// Used by `project cleanup` (§6).
func (m *Manager) Evict(projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.contexts[projectID]
	if !ok {
		return nil
	}
	delete(m.contexts, projectID)
	for i, id := range m.order {
		if id == projectID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return m.persist(ctx)
}

// InMemoryCount reports how many contexts are currently cached, for tests
// and the `status` command.
func (m *Manager) InMemoryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}
