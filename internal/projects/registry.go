// Package projects implements the Project Registry (§4.5): a single
// durable JSON document tracking every registered project and which one is
// active, persisted through internal/atomicfile's temp-file + rename +
// backup protocol, guarded by one in-process mutex (§5 concurrency model).
package projects

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebase-gardener/gardener/internal/atomicfile"
	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/codebase-gardener/gardener/internal/logging"
)

// Registry owns the single RegistryState document for all projects.
type Registry struct {
	mu    sync.Mutex
	path  string
	state *gardenertypes.RegistryState
}

// Open loads the registry document from path, falling back to its
// ".backup" sibling on a parse failure, and initializing empty state if
// neither is readable (§4.5 edge case: first run).
func Open(path string) (*Registry, error) {
	r := &Registry{path: path}

	var state gardenertypes.RegistryState
	usedBackup, err := atomicfile.ReadWithBackupFallback(path, func(data []byte) error {
		return json.Unmarshal(data, &state)
	})
	log := logging.Get(logging.CategoryProjects)

	switch {
	case err != nil:
		log.Warn("registry unreadable, starting empty: %v", err)
		state = gardenertypes.RegistryState{Version: 1, Projects: map[string]*gardenertypes.Project{}}
	case usedBackup:
		log.Warn("registry primary file unreadable, recovered from backup")
		if state.Projects == nil {
			state.Projects = map[string]*gardenertypes.Project{}
		}
	default:
		if state.Projects == nil {
			state.Projects = map[string]*gardenertypes.Project{}
		}
	}

	if state.Version == 0 {
		state.Version = 1
	}
	r.state = &state
	return r, nil
}

func (r *Registry) persist() error {
	if err := atomicfile.WriteJSON(r.path, func() ([]byte, error) {
		return json.MarshalIndent(r.state, "", "  ")
	}); err != nil {
		return errs.Wrap(errs.KindPersistence, "persist project registry", err)
	}
	return nil
}

// Register creates a new project entry from a source path and returns it.
func (r *Registry) Register(name, sourcePath string) (*gardenertypes.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	p := &gardenertypes.Project{
		ID:             uuid.NewString(),
		Name:           name,
		SourcePath:     sourcePath,
		CreatedAt:      now,
		LastUpdated:    now,
		TrainingStatus: gardenertypes.TrainingNotStarted,
	}
	r.state.Projects[p.ID] = p

	if err := r.persist(); err != nil {
		delete(r.state.Projects, p.ID)
		return nil, err
	}
	logging.Get(logging.CategoryProjects).Info("registered project %s (%s)", p.ID, p.Name)
	return p, nil
}

// Get returns the project with the given id.
func (r *Registry) Get(id string) (*gardenertypes.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.state.Projects[id]
	if !ok {
		return nil, errs.New(errs.KindUser, "unknown project: "+id)
	}
	return p, nil
}

// List returns every registered project.
func (r *Registry) List() []*gardenertypes.Project {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*gardenertypes.Project, 0, len(r.state.Projects))
	for _, p := range r.state.Projects {
		out = append(out, p)
	}
	return out
}

// UpdateStatus transitions a project's training status and, on failure,
// records the reason (§4.5/§4.8 state machine).
func (r *Registry) UpdateStatus(id string, status gardenertypes.TrainingStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.state.Projects[id]
	if !ok {
		return errs.New(errs.KindUser, "unknown project: "+id)
	}
	p.TrainingStatus = status
	p.TrainingReason = reason
	p.LastUpdated = time.Now().UTC()
	return r.persist()
}

// Remove deletes a project from the registry. If it was the active
// project, the active id is cleared (§4.5 invariant: the active id always
// names either nothing or a project still present in the registry).
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.Projects[id]; !ok {
		return errs.New(errs.KindUser, "unknown project: "+id)
	}
	delete(r.state.Projects, id)
	if r.state.ActiveID == id {
		r.state.ActiveID = ""
	}
	return r.persist()
}

// SetActive marks a project as the active one for the `chat` command.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.Projects[id]; !ok {
		return errs.New(errs.KindUser, "unknown project: "+id)
	}
	r.state.ActiveID = id
	return r.persist()
}

// GetActive returns the currently active project, or a user error if none
// is set.
func (r *Registry) GetActive() (*gardenertypes.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.ActiveID == "" {
		return nil, errs.New(errs.KindUser, "no active project; run `project switch <id>` first")
	}
	p, ok := r.state.Projects[r.state.ActiveID]
	if !ok {
		return nil, errs.Wrap(errs.KindInvariantViolated, "active project id does not resolve", nil)
	}
	return p, nil
}

// Validate checks the registry's internal invariants: the active id, if
// set, must name a project that still exists.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.ActiveID != "" {
		if _, ok := r.state.Projects[r.state.ActiveID]; !ok {
			return errs.New(errs.KindInvariantViolated, "active_id references a project that no longer exists")
		}
	}
	return nil
}
