package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/escriba/internal/core/library"
	"github.com/neilberkman/escriba/internal/core/metadata"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

type errMsg struct {
	err error
}

type statusMsg string

type libraryLoadedMsg struct {
	listing *library.Listing
	context []string
}

type previewLoadedMsg struct {
	doc previewDoc
}

type contextToggledMsg struct {
	path     string
	selected bool
	context  []string
}

func loadLibrary(remote Remote, store *state.Guarded, p models.Project, ref string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		listing, err := library.List(ctx, remote, p.Owner, p.Repo, ref)
		if err != nil {
			return errMsg{err}
		}
		st, err := store.Load(ctx)
		if err != nil {
			return errMsg{err}
		}
		return libraryLoadedMsg{listing: listing, context: st.Context[p.Key()]}
	}
}

func loadPreview(remote Remote, p models.Project, ref, path string) tea.Cmd {
	return func() tea.Msg {
		file, err := remote.ReadFile(context.Background(), p.Owner, p.Repo, path, ref)
		if err != nil {
			return errMsg{fmt.Errorf("failed to read %s: %w", path, err)}
		}
		return previewLoadedMsg{doc: previewDoc{
			Path:     path,
			SHA:      file.SHA,
			Content:  file.Content,
			Metadata: metadata.Extract(file.Content),
		}}
	}
}

// toggleContext flips path in the persisted selection
func toggleContext(store *state.Guarded, p models.Project, path string) tea.Cmd {
	return func() tea.Msg {
		var selected bool
		st, err := store.Update(context.Background(), func(st *state.State) error {
			var err error
			selected, err = st.ToggleProjectContext(p.Key(), path)
			return err
		})
		if err != nil {
			return errMsg{err}
		}
		return contextToggledMsg{path: path, selected: selected, context: st.Context[p.Key()]}
	}
}
