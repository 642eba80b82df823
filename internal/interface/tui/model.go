// Package tui is the terminal library browser: pick files from books/ and
// references/, preview them and choose the completion context.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/library"
	"github.com/neilberkman/escriba/internal/core/metadata"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

type viewMode int

const (
	listView viewMode = iota
	previewView
	helpView
)

// Remote is the GitHub access the browser needs
type Remote interface {
	library.Lister
	ReadFile(ctx context.Context, owner, repo, path, ref string) (*github.FileReadResult, error)
}

type Model struct {
	remote  Remote
	store   *state.Guarded
	project models.Project
	ref     string

	mode     viewMode
	list     list.Model
	viewport viewport.Model
	spinner  spinner.Model
	loading  bool
	width    int
	height   int
	err      error
	status   string

	files    []fileItem
	selected *models.ContextSelection
	preview  *previewDoc
}

type fileItem struct {
	File    library.File
	Context bool
}

type previewDoc struct {
	Path     string
	SHA      string
	Content  string
	Metadata metadata.Metadata
}

// New creates a browser for project at ref
func New(remote Remote, store *state.Guarded, project models.Project, ref string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		remote:   remote,
		store:    store,
		project:  project,
		ref:      ref,
		mode:     listView,
		spinner:  sp,
		loading:  true,
		selected: models.NewContextSelection(),
	}
}

// ContextPaths returns the selection as it was when the browser closed
func (m Model) ContextPaths() []string {
	return m.selected.Paths()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadLibrary(m.remote, m.store, m.project, m.ref), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.files != nil {
			m.list.SetSize(msg.Width, msg.Height-2)
		}
		if m.preview != nil {
			m.viewport = createViewport(*m.preview, m.selected.Contains(m.preview.Path), m.width, m.height)
		}
		return m, nil

	case tea.KeyMsg:
		// Don't steal keys while the list filter is being typed
		filtering := m.mode == listView && m.files != nil && m.list.FilterState() == list.Filtering
		if !filtering {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "q":
				if m.mode == listView {
					return m, tea.Quit
				}
				m.mode = listView
				return m, nil
			case "?":
				m.mode = helpView
				return m, nil
			}
		}

		switch m.mode {
		case listView:
			return m.updateList(msg)
		case previewView:
			return m.updatePreview(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case libraryLoadedMsg:
		m.loading = false
		m.err = nil
		m.selected = models.NewContextSelection(msg.context...)
		m.files = buildItems(msg.listing, m.selected)
		m.list = createFileList(m.files, m.width, m.height)
		return m, nil

	case previewLoadedMsg:
		m.loading = false
		m.preview = &msg.doc
		m.viewport = createViewport(msg.doc, m.selected.Contains(msg.doc.Path), m.width, m.height)
		m.mode = previewView
		return m, nil

	case contextToggledMsg:
		m.selected = models.NewContextSelection(msg.context...)
		m.files = markContext(m.files, m.selected)
		if m.list.Items() != nil {
			m.list.SetItems(listItems(m.files))
		}
		if msg.selected {
			m.status = "Added " + msg.path + " to context"
		} else {
			m.status = "Removed " + msg.path + " from context"
		}
		if m.preview != nil && m.preview.Path == msg.path {
			m.viewport = createViewport(*m.preview, msg.selected, m.width, m.height)
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.err != nil && m.files == nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n\nPress q to quit"
	}
	if m.loading && m.files == nil {
		return m.spinner.View() + " Loading " + m.project.Key() + "@" + m.ref + "..."
	}

	switch m.mode {
	case listView:
		return m.viewList()
	case previewView:
		return m.viewPreview()
	case helpView:
		return m.viewHelp()
	}

	return ""
}
