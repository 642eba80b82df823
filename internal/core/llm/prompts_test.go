package llm

import (
	"strings"
	"testing"

	"github.com/neilberkman/escriba/internal/core/config"
	"github.com/neilberkman/escriba/internal/core/models"
)

func TestBuildCompletionPromptLayout(t *testing.T) {
	req := CompletionRequest{
		SystemPrompt:   "S",
		ContextDocs:    []ContextDoc{{Path: "a.md", Content: "A"}},
		CurrentContent: "B",
		Task:           models.TaskContinue,
	}
	got := BuildCompletionPrompt(req, "CONTINUE")
	want := "S\n\n--- a.md ---\nA\n\nB\n\nCONTINUE"
	if got != want {
		t.Errorf("prompt mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestBuildCompletionPromptOmitsEmptyParts(t *testing.T) {
	tests := []struct {
		name string
		req  CompletionRequest
		inst string
		want string
	}{
		{
			name: "no system prompt",
			req:  CompletionRequest{CurrentContent: "B"},
			inst: "I",
			want: "B\n\nI",
		},
		{
			name: "user prompt last",
			req:  CompletionRequest{SystemPrompt: "S", CurrentContent: "B", UserPrompt: "make it sad"},
			inst: "I",
			want: "S\n\nB\n\nI\n\nmake it sad",
		},
		{
			name: "empty document and empty content",
			req: CompletionRequest{
				SystemPrompt: "S",
				ContextDocs:  []ContextDoc{{Path: "gone.md"}, {Path: "b.md", Content: "X"}},
			},
			inst: "I",
			want: "S\n\n--- b.md ---\nX\n\nI",
		},
		{
			name: "everything empty",
			req:  CompletionRequest{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildCompletionPrompt(tt.req, tt.inst); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTaskInstruction(t *testing.T) {
	tmpl := Templates{
		Continue: "Continue {{{title}}}{{#has_context}} using {{context_count}} notes{{/has_context}}.",
		Revise:   "Revise {{{path}}}.",
	}

	got, err := tmpl.TaskInstruction(CompletionRequest{
		Task:        models.TaskContinue,
		Title:       "Tom & Jerry",
		ContextDocs: []ContextDoc{{Path: "x"}, {Path: "y"}},
	})
	if err != nil {
		t.Fatalf("TaskInstruction failed: %v", err)
	}
	if got != "Continue Tom & Jerry using 2 notes." {
		t.Errorf("continue = %q", got)
	}

	got, err = tmpl.TaskInstruction(CompletionRequest{Task: models.TaskRevise, Path: "books/a.md"})
	if err != nil {
		t.Fatalf("TaskInstruction failed: %v", err)
	}
	if got != "Revise books/a.md." {
		t.Errorf("revise = %q", got)
	}

	if _, err := tmpl.TaskInstruction(CompletionRequest{Task: "summarize"}); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestTemplatesFrom(t *testing.T) {
	cfg := config.PromptConfig{System: "file system", Continue: "file continue"}
	settings := models.Settings{ContinuePrompt: "user continue"}

	got := TemplatesFrom(cfg, settings)
	if got.System != "file system" {
		t.Errorf("System = %q", got.System)
	}
	if got.Continue != "user continue" {
		t.Errorf("Continue = %q", got.Continue)
	}
	if !strings.HasPrefix(got.Revise, "Revise the document") {
		t.Errorf("Revise should fall back to the default, got %q", got.Revise)
	}
}
