// Package state is the user's persistent workspace: settings, projects and
// the context files selected per project.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/neilberkman/escriba/internal/core/models"
)

// Version is the export format version
const Version = 1

// State is everything that survives a restart and can be exported
type State struct {
	Version    int                 `json:"version"`
	ExportedAt time.Time           `json:"exported_at,omitempty"`
	Settings   models.Settings     `json:"settings"`
	Projects   []models.Project    `json:"projects"`
	Context    map[string][]string `json:"context"` // project key -> selected paths
}

// New returns an empty state
func New() *State {
	return &State{
		Version:  Version,
		Projects: []models.Project{},
		Context:  make(map[string][]string),
	}
}

// Store loads and saves a whole State
type Store interface {
	LoadState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, st *State) error
}

// Project returns the project with key, if present
func (s *State) Project(key string) (models.Project, bool) {
	for _, p := range s.Projects {
		if p.Key() == key {
			return p, true
		}
	}
	return models.Project{}, false
}

// AddProject inserts or updates p, keeping its original AddedAt
func (s *State) AddProject(p models.Project) {
	for i, existing := range s.Projects {
		if existing.Key() == p.Key() {
			if p.AddedAt.IsZero() {
				p.AddedAt = existing.AddedAt
			}
			s.Projects[i] = p
			return
		}
	}
	if p.AddedAt.IsZero() {
		p.AddedAt = time.Now().UTC()
	}
	s.Projects = append(s.Projects, p)
}

// RemoveProject drops the project and its context selection
func (s *State) RemoveProject(key string) bool {
	for i, p := range s.Projects {
		if p.Key() == key {
			s.Projects = append(s.Projects[:i], s.Projects[i+1:]...)
			delete(s.Context, key)
			return true
		}
	}
	return false
}

// ToggleContext flips path in the project's selection
func (s *State) ToggleContext(key, path string) bool {
	sel := models.NewContextSelection(s.Context[key]...)
	selected := sel.Toggle(path)
	s.setContext(key, sel)
	return selected
}

// UnknownProjectError reports a context change for a project that was never added
type UnknownProjectError struct {
	Key string
}

func (e *UnknownProjectError) Error() string {
	return e.Key + " is not a project; add it first"
}

// ToggleProjectContext is ToggleContext restricted to added projects. The
// SQLite store keeps selections per project row, so a selection for anything
// else would not survive a save.
func (s *State) ToggleProjectContext(key, path string) (bool, error) {
	if _, ok := s.Project(key); !ok {
		return false, &UnknownProjectError{Key: key}
	}
	return s.ToggleContext(key, path), nil
}

func (s *State) setContext(key string, sel *models.ContextSelection) {
	if s.Context == nil {
		s.Context = make(map[string][]string)
	}
	if sel.Len() == 0 {
		delete(s.Context, key)
		return
	}
	s.Context[key] = sel.Paths()
}

// normalize fills nil collections and sorts for stable output
func (s *State) normalize() {
	if s.Version == 0 {
		s.Version = Version
	}
	if s.Projects == nil {
		s.Projects = []models.Project{}
	}
	sort.SliceStable(s.Projects, func(i, j int) bool {
		return s.Projects[i].AddedAt.Before(s.Projects[j].AddedAt)
	})
	selected := s.Context
	s.Context = make(map[string][]string, len(selected))
	for key, paths := range selected {
		s.setContext(key, models.NewContextSelection(paths...))
	}
}

// Export writes st as indented JSON
func Export(w io.Writer, st *State) error {
	out := *st
	out.Version = Version
	out.ExportedAt = time.Now().UTC()
	out.normalize()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return nil
}

// Import reads an exported state and validates it
func Import(r io.Reader) (*State, error) {
	var st State
	dec := json.NewDecoder(r)
	if err := dec.Decode(&st); err != nil {
		return nil, fmt.Errorf("invalid settings file: %w", err)
	}
	if st.Version > Version {
		return nil, fmt.Errorf("settings file version %d is newer than supported version %d", st.Version, Version)
	}
	for i := range st.Projects {
		if err := st.Projects[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid project in settings file: %w", err)
		}
	}
	st.normalize()
	return &st, nil
}

// Guarded serializes read-modify-write cycles on a Store
type Guarded struct {
	mu    sync.Mutex
	store Store
}

// NewGuarded wraps store
func NewGuarded(store Store) *Guarded {
	return &Guarded{store: store}
}

// Load returns the current state
func (g *Guarded) Load(ctx context.Context) (*State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.LoadState(ctx)
}

// Update loads the state, applies fn and saves it unless fn fails
func (g *Guarded) Update(ctx context.Context, fn func(*State) error) (*State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, err := g.store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	st.normalize()
	if err := g.store.SaveState(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
