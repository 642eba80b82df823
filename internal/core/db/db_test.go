package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestNew(t *testing.T) {
	database := newTestDB(t)

	var count int
	err := database.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema: %v", err)
	}

	// projects, settings, context_files, sync_log, drafts, auth_sessions (+ sqlite_sequence)
	if count < 6 {
		t.Errorf("Expected at least 6 tables, got %d", count)
	}

	has, err := database.hasColumn("sync_log", "commit_sha")
	if err != nil || !has {
		t.Errorf("expected commit_sha column after migrations (err=%v)", err)
	}
}

func TestNew_WALMode(t *testing.T) {
	database := newTestDB(t)

	var journalMode string
	err := database.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected WAL mode, got %s", journalMode)
	}
}

func TestNew_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	first, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := first.AddProject(models.Project{Owner: "alice", Repo: "novel"}); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = second.Close() }()

	p, err := second.GetProject("alice", "novel")
	if err != nil || p == nil {
		t.Fatalf("project lost across reopen: %v", err)
	}
}

func TestProjects(t *testing.T) {
	database := newTestDB(t)

	if err := database.AddProject(models.Project{Owner: "alice", Repo: "novel", DefaultBranch: "main"}); err != nil {
		t.Fatalf("AddProject failed: %v", err)
	}
	if err := database.AddProject(models.Project{Owner: "alice", Repo: "poems", DefaultBranch: "main"}); err != nil {
		t.Fatalf("AddProject failed: %v", err)
	}
	// re-adding updates the branch only
	if err := database.AddProject(models.Project{Owner: "alice", Repo: "novel", DefaultBranch: "trunk"}); err != nil {
		t.Fatalf("AddProject failed: %v", err)
	}
	if err := database.AddProject(models.Project{Owner: "", Repo: "x"}); err == nil {
		t.Error("expected validation error")
	}

	projects, err := database.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects", len(projects))
	}
	if projects[0].Repo != "novel" || projects[0].DefaultBranch != "trunk" {
		t.Errorf("unexpected first project %+v", projects[0])
	}

	missing, err := database.GetProject("bob", "none")
	if err != nil || missing != nil {
		t.Errorf("GetProject(missing) = %v, %v", missing, err)
	}

	removed, err := database.RemoveProject("alice", "poems")
	if err != nil || !removed {
		t.Errorf("RemoveProject = %v, %v", removed, err)
	}
	removed, _ = database.RemoveProject("alice", "poems")
	if removed {
		t.Error("second remove should report false")
	}
}

func TestToggleContext(t *testing.T) {
	database := newTestDB(t)
	if err := database.AddProject(models.Project{Owner: "alice", Repo: "novel"}); err != nil {
		t.Fatal(err)
	}

	selected, err := database.ToggleContext("alice", "novel", "references/world.md")
	if err != nil || !selected {
		t.Fatalf("first toggle = %v, %v", selected, err)
	}
	database.ToggleContext("alice", "novel", "references/people.md")

	paths, _ := database.ListContext("alice", "novel")
	if len(paths) != 2 || paths[0] != "references/people.md" {
		t.Errorf("paths = %v", paths)
	}

	selected, _ = database.ToggleContext("alice", "novel", "references/world.md")
	if selected {
		t.Error("second toggle should unselect")
	}
	paths, _ = database.ListContext("alice", "novel")
	if len(paths) != 1 {
		t.Errorf("paths after untoggle = %v", paths)
	}

	if _, err := database.ToggleContext("bob", "none", "x.md"); err == nil {
		t.Error("expected error for unknown project")
	}

	// removing the project drops its selection
	database.RemoveProject("alice", "novel")
	database.AddProject(models.Project{Owner: "alice", Repo: "novel"})
	paths, _ = database.ListContext("alice", "novel")
	if len(paths) != 0 {
		t.Errorf("context survived project removal: %v", paths)
	}
}

func TestSettings(t *testing.T) {
	database := newTestDB(t)

	empty, err := database.LoadSettings()
	if err != nil || empty.Model != "" {
		t.Fatalf("LoadSettings on empty db = %+v, %v", empty, err)
	}

	temp := 0.3
	if err := database.SaveSettings(models.Settings{Model: "m", Temperature: &temp}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got, err := database.LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if got.Model != "m" || got.Temperature == nil || *got.Temperature != 0.3 {
		t.Errorf("settings = %+v", got)
	}
}

func TestHistory(t *testing.T) {
	database := newTestDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []models.HistoryEntry{
		{Project: "alice/novel", Path: "books/one.md", Mode: models.SaveDirect, NewSHA: "a", CreatedAt: base},
		{Project: "alice/novel", Path: "books/one.md", Mode: models.SaveReview, NewSHA: "b", PRNumber: 3, PRURL: "u", CreatedAt: base.Add(time.Hour)},
		{Project: "alice/poems", Path: "books/p.md", Mode: models.SaveDirect, NewSHA: "c", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		if _, err := database.RecordSync(e, "commit"); err != nil {
			t.Fatalf("RecordSync failed: %v", err)
		}
	}

	all, err := database.ListHistory(HistoryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].NewSHA != "c" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if !all[2].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", all[2].CreatedAt, base)
	}

	recent, _ := database.ListHistory(HistoryFilter{Since: base.Add(30 * time.Minute)})
	if len(recent) != 2 {
		t.Errorf("since filter returned %d entries", len(recent))
	}

	novel, _ := database.ListHistory(HistoryFilter{Project: "alice/novel", Limit: 1})
	if len(novel) != 1 || novel[0].PRNumber != 3 || novel[0].Mode != models.SaveReview {
		t.Errorf("project filter = %+v", novel)
	}

	stats, err := database.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalSaves != 3 || stats.DirectSaves != 2 || stats.PullRequests != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.MostEditedPath != "alice/novel:books/one.md" || stats.MostEditedCount != 2 {
		t.Errorf("most edited = %q (%d)", stats.MostEditedPath, stats.MostEditedCount)
	}
}

func TestDrafts(t *testing.T) {
	database := newTestDB(t)
	d := models.Draft{
		LocalPath: "/tmp/one.md",
		Project:   models.Project{Owner: "alice", Repo: "novel"},
		Path:      "books/one.md",
		Branch:    "main",
		SHA:       "abc",
	}
	if err := database.SaveDraft(d); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}
	d.SHA = "def"
	if err := database.SaveDraft(d); err != nil {
		t.Fatalf("SaveDraft update failed: %v", err)
	}

	got, err := database.GetDraft("/tmp/one.md")
	if err != nil || got == nil {
		t.Fatalf("GetDraft = %v, %v", got, err)
	}
	if got.SHA != "def" || got.Project.Repo != "novel" || got.PulledAt.IsZero() {
		t.Errorf("draft = %+v", got)
	}

	if err := database.DeleteDraft("/tmp/one.md"); err != nil {
		t.Fatal(err)
	}
	got, _ = database.GetDraft("/tmp/one.md")
	if got != nil {
		t.Error("draft not deleted")
	}
}

func TestAuthSessions(t *testing.T) {
	database := newTestDB(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	database.now = func() time.Time { return now }

	database.CreateAuthSession(AuthSession{ID: "live", Token: "t1", Login: "alice", ExpiresAt: now.Add(time.Hour)})
	database.CreateAuthSession(AuthSession{ID: "old", Token: "t2", ExpiresAt: now.Add(-time.Hour)})

	s, err := database.GetAuthSession("live")
	if err != nil || s == nil || s.Token != "t1" || s.Login != "alice" {
		t.Fatalf("GetAuthSession(live) = %+v, %v", s, err)
	}
	s, _ = database.GetAuthSession("old")
	if s != nil {
		t.Error("expired session returned")
	}

	n, err := database.PurgeExpiredAuthSessions()
	if err != nil || n != 1 {
		t.Errorf("purged %d, %v", n, err)
	}

	database.DeleteAuthSession("live")
	s, _ = database.GetAuthSession("live")
	if s != nil {
		t.Error("deleted session returned")
	}
}

func TestStateRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	st := state.New()
	st.Settings.Model = "m"
	st.AddProject(models.Project{Owner: "alice", Repo: "novel", DefaultBranch: "main"})
	st.AddProject(models.Project{Owner: "alice", Repo: "poems", DefaultBranch: "main"})
	st.ToggleContext("alice/novel", "references/world.md")
	if err := database.SaveState(ctx, st); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	// a second save drops a project and replaces the selection
	st.RemoveProject("alice/poems")
	st.ToggleContext("alice/novel", "references/world.md")
	st.ToggleContext("alice/novel", "references/people.md")
	if err := database.SaveState(ctx, st); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	got, err := database.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if got.Settings.Model != "m" {
		t.Errorf("settings = %+v", got.Settings)
	}
	if len(got.Projects) != 1 || got.Projects[0].Key() != "alice/novel" {
		t.Fatalf("projects = %+v", got.Projects)
	}
	ctxPaths := got.Context["alice/novel"]
	if len(ctxPaths) != 1 || ctxPaths[0] != "references/people.md" {
		t.Errorf("context = %v", ctxPaths)
	}
}
