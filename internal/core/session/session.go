// Package session holds the per-user edit state: the open file handle, its
// dirty flag, the context selection and the single in-flight operation.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/neilberkman/escriba/internal/core/models"
)

var (
	// ErrBusy is returned when a save or generation is already running
	ErrBusy = errors.New("another operation is in progress")

	// ErrNoFile is returned when no file is open
	ErrNoFile = errors.New("no file is open")
)

// Op names a long-running operation on the handle
type Op string

const (
	OpSave     Op = "save"
	OpComplete Op = "complete"
)

// Session is one user's editor state. All methods are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	handle   *models.FileHandle
	baseline uint64 // hash of the content as last read from or saved to GitHub
	busy     Op
	context  *models.ContextSelection
}

// New creates an empty session with the given context selection
func New(selected []string) *Session {
	return &Session{context: models.NewContextSelection(selected...)}
}

// Open replaces the handle with a freshly read file
func (s *Session) Open(h models.FileHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != "" {
		return ErrBusy
	}
	h.Dirty = false
	s.handle = &h
	s.baseline = xxh3.HashString(h.Content)
	return nil
}

// Close drops the handle
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != "" {
		return ErrBusy
	}
	s.handle = nil
	return nil
}

// Handle returns a snapshot of the open handle
func (s *Session) Handle() (models.FileHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return models.FileHandle{}, ErrNoFile
	}
	return *s.handle, nil
}

// Edit replaces the content from the editor
func (s *Session) Edit(content string) (models.FileHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return models.FileHandle{}, ErrNoFile
	}
	s.setContentLocked(content)
	return *s.handle, nil
}

func (s *Session) setContentLocked(content string) {
	s.handle.Content = content
	s.handle.Dirty = xxh3.HashString(content) != s.baseline
}

// Begin marks op as running. The returned func ends it and must be called
// exactly once. A second Begin before that fails with ErrBusy.
func (s *Session) Begin(op Op) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, ErrNoFile
	}
	if s.busy != "" {
		return nil, ErrBusy
	}
	s.busy = op
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy = ""
			s.mu.Unlock()
		})
	}, nil
}

// Busy returns the running operation, or ""
func (s *Session) Busy() Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// ApplySave adopts the outcome of saving saved. A direct save moves the
// handle to the returned SHA; a review save leaves branch and SHA alone.
func (s *Session) ApplySave(saved models.FileHandle, res *models.SyncResult) models.FileHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil || s.handle.Path != saved.Path || s.handle.Project.Key() != saved.Project.Key() {
		return saved
	}
	if res.Mode == models.SaveDirect {
		s.handle.SHA = res.SHA
		s.baseline = xxh3.HashString(saved.Content)
		s.handle.Dirty = xxh3.HashString(s.handle.Content) != s.baseline
	}
	return *s.handle
}

// ApplyCompletion appends (continue) or replaces (revise) the content
func (s *Session) ApplyCompletion(task models.TaskKind, text string) (models.FileHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return models.FileHandle{}, ErrNoFile
	}
	switch task {
	case models.TaskRevise:
		s.setContentLocked(text)
	default:
		s.setContentLocked(AppendContinuation(s.handle.Content, text))
	}
	return *s.handle, nil
}

// AppendContinuation joins generated text to content with a blank line
func AppendContinuation(content, text string) string {
	if text == "" {
		return content
	}
	trimmed := strings.TrimRight(content, "\n")
	if trimmed == "" {
		return text
	}
	return trimmed + "\n\n" + text
}

// ToggleContext flips path in the context selection
func (s *Session) ToggleContext(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context.Toggle(path)
}

// ContextPaths returns the selected context files, sorted
func (s *Session) ContextPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context.Paths()
}

// SetContext replaces the selection
func (s *Session) SetContext(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = models.NewContextSelection(paths...)
}
