package models

import (
	"reflect"
	"testing"
)

func TestProjectValidation(t *testing.T) {
	tests := []struct {
		name    string
		project Project
		wantErr bool
	}{
		{
			name:    "valid project",
			project: Project{Owner: "octo", Repo: "novel"},
			wantErr: false,
		},
		{
			name:    "missing owner",
			project: Project{Repo: "novel"},
			wantErr: true,
		},
		{
			name:    "missing repo",
			project: Project{Owner: "octo"},
			wantErr: true,
		},
		{
			name:    "slash in repo",
			project: Project{Owner: "octo", Repo: "a/b"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.project.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseProject(t *testing.T) {
	p, err := ParseProject("octo/novel.git")
	if err != nil {
		t.Fatalf("ParseProject() error = %v", err)
	}
	if p.Owner != "octo" || p.Repo != "novel" {
		t.Errorf("ParseProject() = %+v", p)
	}
	if p.Key() != "octo/novel" {
		t.Errorf("Key() = %q", p.Key())
	}

	if _, err := ParseProject("novel"); err == nil {
		t.Error("expected error for missing owner")
	}
}

func TestContextSelectionToggleRoundTrip(t *testing.T) {
	sel := NewContextSelection("books/a.md", "references/b.md")
	before := sel.Paths()

	if !sel.Toggle("books/c.md") {
		t.Error("first toggle should select")
	}
	if sel.Toggle("books/c.md") {
		t.Error("second toggle should deselect")
	}
	if !reflect.DeepEqual(sel.Paths(), before) {
		t.Errorf("Paths() = %v, want %v", sel.Paths(), before)
	}

	// Same for a path that starts selected
	sel.Toggle("books/a.md")
	if sel.Contains("books/a.md") {
		t.Error("books/a.md should be deselected")
	}
	sel.Toggle("books/a.md")
	if !reflect.DeepEqual(sel.Paths(), before) {
		t.Errorf("Paths() = %v, want %v", sel.Paths(), before)
	}
}

func TestContextSelectionZeroValue(t *testing.T) {
	var sel ContextSelection
	if sel.Contains("x") || sel.Len() != 0 {
		t.Error("zero value should be empty")
	}
	sel.Toggle("x")
	if !sel.Contains("x") {
		t.Error("toggle on zero value should select")
	}
}

func TestParseModes(t *testing.T) {
	if m, err := ParseSaveMode(""); err != nil || m != SaveDirect {
		t.Errorf("ParseSaveMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseSaveMode("review"); err != nil || m != SaveReview {
		t.Errorf("ParseSaveMode(review) = %v, %v", m, err)
	}
	if _, err := ParseSaveMode("force"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if k, err := ParseTaskKind("revise"); err != nil || k != TaskRevise {
		t.Errorf("ParseTaskKind(revise) = %v, %v", k, err)
	}
	if _, err := ParseTaskKind("summarize"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestSettingsMerge(t *testing.T) {
	temp := 0.7
	fallback := Settings{Model: "base-model", LLMAPIKey: "k", Temperature: &temp}
	got := Settings{Model: "user-model"}.Merge(fallback)

	if got.Model != "user-model" {
		t.Errorf("Model = %q, want user-model", got.Model)
	}
	if got.LLMAPIKey != "k" {
		t.Errorf("LLMAPIKey = %q, want k", got.LLMAPIKey)
	}
	if got.Temperature == nil || *got.Temperature != 0.7 {
		t.Errorf("Temperature = %v", got.Temperature)
	}
}

func TestSettingsRedacted(t *testing.T) {
	s := Settings{LLMAPIKey: "sk-or-123456789"}.Redacted()
	if s.LLMAPIKey != "****6789" {
		t.Errorf("LLMAPIKey = %q", s.LLMAPIKey)
	}
}

func TestHistoryEntryFor(t *testing.T) {
	h := FileHandle{
		Project: Project{Owner: "octo", Repo: "novel"},
		Path:    "books/one.md",
		SHA:     "old",
		Branch:  "main",
	}

	direct := HistoryEntryFor(h, &SyncResult{Mode: SaveDirect, SHA: "new", Branch: "main", Message: "Update books/one.md"})
	want := HistoryEntry{
		Project: "octo/novel",
		Path:    "books/one.md",
		Branch:  "main",
		Mode:    SaveDirect,
		OldSHA:  "old",
		NewSHA:  "new",
		Message: "Update books/one.md",
	}
	if !reflect.DeepEqual(direct, want) {
		t.Errorf("direct entry = %+v, want %+v", direct, want)
	}

	review := HistoryEntryFor(h, &SyncResult{
		Mode:        SaveReview,
		SHA:         "new",
		Branch:      "escriba/edit-1",
		PullRequest: &PullRequestRef{Number: 7, URL: "https://github.com/octo/novel/pull/7"},
	})
	if review.Branch != "escriba/edit-1" || review.OldSHA != "old" {
		t.Errorf("review entry = %+v", review)
	}
	if review.PRNumber != 7 || review.PRURL != "https://github.com/octo/novel/pull/7" {
		t.Errorf("review entry lost the pull request: %+v", review)
	}
}
