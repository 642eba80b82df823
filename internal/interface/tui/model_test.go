package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/github/githubtest"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

func newTestModel(t *testing.T) (Model, *state.Guarded, *githubtest.Server) {
	t.Helper()
	srv := githubtest.NewServer(t)
	srv.AddRepo("octo", "novel", "main")
	srv.PutFile("octo", "novel", "main", "books/one.md", "---\ntitle: The Start\ntags: [draft]\n---\n# One\n\nIt was a dark night.\n")
	srv.PutFile("octo", "novel", "main", "references/people.md", "Ada is the detective.")

	store := state.NewGuarded(state.NewFileStore(filepath.Join(t.TempDir(), "state.json")))
	client := github.NewClient("", github.WithBaseURL(srv.URL))
	p := models.Project{Owner: "octo", Repo: "novel", DefaultBranch: "main"}
	if _, err := store.Update(context.Background(), func(st *state.State) error {
		st.AddProject(p)
		return nil
	}); err != nil {
		t.Fatalf("failed to add project: %v", err)
	}
	m, _ := New(client, store, p, "main").Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(Model), store, srv
}

// run executes a command and feeds its message back into the model
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLoadLibrary(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = run(t, m, loadLibrary(m.remote, m.store, m.project, m.ref))
	if m.err != nil {
		t.Fatalf("load error = %v", m.err)
	}
	if len(m.files) != 2 {
		t.Fatalf("files = %d, want 2", len(m.files))
	}
	if m.files[0].File.Path != "books/one.md" || m.files[1].File.Path != "references/people.md" {
		t.Errorf("unexpected order: %+v", m.files)
	}
	if !strings.Contains(m.View(), "octo/novel@main") {
		t.Errorf("list view missing header:\n%s", m.View())
	}
}

func TestToggleContextPersists(t *testing.T) {
	m, store, _ := newTestModel(t)
	m = run(t, m, loadLibrary(m.remote, m.store, m.project, m.ref))

	// move to references/people.md and toggle it
	next, _ := m.Update(key("j"))
	m = next.(Model)
	next, cmd := m.Update(key(" "))
	m = run(t, next.(Model), cmd)

	if !m.files[1].Context {
		t.Fatalf("references/people.md not marked as context")
	}
	if m.files[0].Context {
		t.Errorf("books/one.md should not be in context")
	}

	st, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := st.Context["octo/novel"]; len(got) != 1 || got[0] != "references/people.md" {
		t.Errorf("persisted context = %v", got)
	}

	// toggling again removes it
	next, cmd = m.Update(key(" "))
	m = run(t, next.(Model), cmd)
	if m.selected.Len() != 0 {
		t.Errorf("context = %v, want empty", m.ContextPaths())
	}
}

func TestPreview(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = run(t, m, loadLibrary(m.remote, m.store, m.project, m.ref))

	next, cmd := m.Update(key("enter"))
	m = next.(Model)
	if !m.loading {
		t.Errorf("expected loading while the preview is fetched")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) == 0 {
		t.Fatalf("expected a batch command")
	}
	m = run(t, m, batch[0])

	if m.mode != previewView {
		t.Fatalf("mode = %v, want preview", m.mode)
	}
	if m.preview.Metadata.Title != "The Start" {
		t.Errorf("title = %q", m.preview.Metadata.Title)
	}
	view := m.View()
	if !strings.Contains(view, "The Start") || !strings.Contains(view, "It was a dark night.") {
		t.Errorf("preview missing content:\n%s", view)
	}

	next, _ = m.Update(key("esc"))
	if next.(Model).mode != listView {
		t.Errorf("esc should return to the list")
	}
}

func TestRenderPreviewMarksContext(t *testing.T) {
	doc := previewDoc{Path: "references/people.md", Content: "Ada is the detective."}
	if strings.Contains(renderPreview(doc, false, 40), "in completion context") {
		t.Errorf("unexpected context marker")
	}
	if !strings.Contains(renderPreview(doc, true, 40), "in completion context") {
		t.Errorf("missing context marker")
	}
}

func TestLoadError(t *testing.T) {
	m, _, srv := newTestModel(t)
	srv.FailNext("GET", "/contents/books", 500, "boom")
	m = run(t, m, loadLibrary(m.remote, m.store, m.project, m.ref))
	if m.err == nil {
		t.Fatal("expected an error when listing fails")
	}
	if !strings.Contains(m.View(), "Error:") {
		t.Errorf("view should show the error")
	}
}
