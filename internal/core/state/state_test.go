package state

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilberkman/escriba/internal/core/models"
)

func sample() *State {
	st := New()
	temp := 0.5
	st.Settings = models.Settings{LLMAPIKey: "sk-1234", Model: "m", Temperature: &temp}
	st.AddProject(models.Project{Owner: "alice", Repo: "novel", DefaultBranch: "main", AddedAt: time.Unix(100, 0).UTC()})
	st.AddProject(models.Project{Owner: "alice", Repo: "poems", DefaultBranch: "trunk", AddedAt: time.Unix(200, 0).UTC()})
	st.ToggleContext("alice/novel", "references/world.md")
	return st
}

func TestExportImport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sample()))
	assert.Contains(t, buf.String(), `"exported_at"`)

	got, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, "sk-1234", got.Settings.LLMAPIKey)
	require.Len(t, got.Projects, 2)
	assert.Equal(t, "alice/novel", got.Projects[0].Key())
	assert.Equal(t, []string{"references/world.md"}, got.Context["alice/novel"])
}

func TestImportRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "settings!"},
		{"future version", `{"version": 99}`},
		{"bad project", `{"version": 1, "projects": [{"owner": "", "repo": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestImportFillsDefaults(t *testing.T) {
	st, err := Import(strings.NewReader(`{"settings": {"model": "x"}}`))
	require.NoError(t, err)
	assert.Equal(t, Version, st.Version)
	assert.NotNil(t, st.Projects)
	assert.NotNil(t, st.Context)
}

func TestProjectsAndContext(t *testing.T) {
	st := sample()

	added := st.Projects[0].AddedAt
	st.AddProject(models.Project{Owner: "alice", Repo: "novel", DefaultBranch: "develop"})
	p, ok := st.Project("alice/novel")
	require.True(t, ok)
	assert.Equal(t, "develop", p.DefaultBranch)
	assert.Equal(t, added, p.AddedAt)

	// toggling twice restores the selection
	before := append([]string(nil), st.Context["alice/novel"]...)
	assert.True(t, st.ToggleContext("alice/novel", "references/people.md"))
	assert.False(t, st.ToggleContext("alice/novel", "references/people.md"))
	assert.Equal(t, before, st.Context["alice/novel"])

	selected, err := st.ToggleProjectContext("alice/novel", "references/places.md")
	require.NoError(t, err)
	assert.True(t, selected)

	_, err = st.ToggleProjectContext("bob/diary", "references/places.md")
	var unknown *UnknownProjectError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "bob/diary", unknown.Key)
	_, ok = st.Context["bob/diary"]
	assert.False(t, ok)

	assert.True(t, st.RemoveProject("alice/novel"))
	assert.False(t, st.RemoveProject("alice/novel"))
	_, ok = st.Context["alice/novel"]
	assert.False(t, ok)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json"))

	empty, err := fs.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Projects)

	require.NoError(t, fs.SaveState(ctx, sample()))
	got, err := fs.LoadState(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Projects, 2)
	assert.Equal(t, "m", got.Settings.Model)
}

func TestGuardedUpdate(t *testing.T) {
	ctx := context.Background()
	g := NewGuarded(NewFileStore(filepath.Join(t.TempDir(), "state.json")))

	_, err := g.Update(ctx, func(st *State) error {
		st.AddProject(models.Project{Owner: "bob", Repo: "essays"})
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = g.Update(ctx, func(st *State) error {
		st.RemoveProject("bob/essays")
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, err := g.Load(ctx)
	require.NoError(t, err)
	_, ok := st.Project("bob/essays")
	assert.True(t, ok, "failed update must not be saved")
}
