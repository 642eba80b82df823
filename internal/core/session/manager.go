package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Manager keeps one Session per user
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty manager
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the user's session, creating it on first use
func (m *Manager) Get(user string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[user]; ok {
		return s
	}
	s := New(nil)
	m.sessions[user] = s
	return s
}

// Drop forgets the user's session
func (m *Manager) Drop(user string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, user)
}

// Registry tracks in-flight completions so they can be cancelled by ID
type Registry struct {
	mu      sync.Mutex
	pending map[string]pending
}

type pending struct {
	owner  string
	cancel context.CancelFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]pending)}
}

// Track derives a cancellable context for owner's request. An empty id gets
// a generated one. Call done when the request finishes.
func (r *Registry) Track(parent context.Context, owner, id string) (context.Context, string, func(), error) {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	if _, exists := r.pending[id]; exists {
		r.mu.Unlock()
		return nil, "", nil, fmt.Errorf("request %s is already running", id)
	}
	ctx, cancel := context.WithCancel(parent)
	r.pending[id] = pending{owner: owner, cancel: cancel}
	r.mu.Unlock()

	return ctx, id, func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
		cancel()
	}, nil
}

// Cancel stops request id if owner started it. Reports whether it was running.
func (r *Registry) Cancel(owner, id string) bool {
	r.mu.Lock()
	p, ok := r.pending[id]
	if ok && p.owner == owner {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok || p.owner != owner {
		return false
	}
	p.cancel()
	return true
}

// CancelAll stops every request of owner
func (r *Registry) CancelAll(owner string) int {
	r.mu.Lock()
	var cancels []context.CancelFunc
	for id, p := range r.pending {
		if p.owner == owner {
			cancels = append(cancels, p.cancel)
			delete(r.pending, id)
		}
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// Pending returns the number of in-flight requests
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
