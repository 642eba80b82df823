package llm

import (
	"fmt"
	"strings"

	"github.com/cbroglie/mustache"

	"github.com/neilberkman/escriba/internal/core/config"
	"github.com/neilberkman/escriba/internal/core/models"
)

// ContextDoc is a reference document sent along with a completion
type ContextDoc struct {
	Path    string
	Content string
}

// CompletionRequest is everything that goes into one completion
type CompletionRequest struct {
	SystemPrompt   string
	ContextDocs    []ContextDoc
	CurrentContent string
	Task           models.TaskKind
	UserPrompt     string

	// Path and Title are available to instruction templates
	Path  string
	Title string
}

// Templates holds the mustache task instructions
type Templates struct {
	System   string
	Continue string
	Revise   string
}

// DefaultTemplates returns the built-in prompts
func DefaultTemplates() Templates {
	return Templates{
		System:   config.DefaultSystemPrompt,
		Continue: config.DefaultContinuePrompt,
		Revise:   config.DefaultRevisePrompt,
	}
}

// TemplatesFrom layers the config file and then the user's settings over the defaults
func TemplatesFrom(cfg config.PromptConfig, s models.Settings) Templates {
	t := DefaultTemplates()
	for _, src := range []Templates{
		{System: cfg.System, Continue: cfg.Continue, Revise: cfg.Revise},
		{System: s.SystemPrompt, Continue: s.ContinuePrompt, Revise: s.RevisePrompt},
	} {
		if src.System != "" {
			t.System = src.System
		}
		if src.Continue != "" {
			t.Continue = src.Continue
		}
		if src.Revise != "" {
			t.Revise = src.Revise
		}
	}
	return t
}

// TaskInstruction renders the instruction for task
func (t Templates) TaskInstruction(req CompletionRequest) (string, error) {
	var tmpl string
	switch req.Task {
	case models.TaskContinue:
		tmpl = t.Continue
	case models.TaskRevise:
		tmpl = t.Revise
	default:
		return "", fmt.Errorf("unknown task %q", req.Task)
	}

	data := map[string]interface{}{
		"path":          req.Path,
		"title":         req.Title,
		"context_count": len(req.ContextDocs),
		"has_context":   len(req.ContextDocs) > 0,
	}
	out, err := mustache.Render(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("failed to render %s instruction: %w", req.Task, err)
	}
	return out, nil
}

// BuildCompletionPrompt lays out the single user message: system prompt,
// each context document, the current content, the instruction and the
// user's prompt, separated by blank lines. Empty parts are left out.
func BuildCompletionPrompt(req CompletionRequest, instruction string) string {
	parts := make([]string, 0, len(req.ContextDocs)+4)
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	add(req.SystemPrompt)
	for _, doc := range req.ContextDocs {
		if doc.Content == "" {
			continue
		}
		add("--- " + doc.Path + " ---\n" + doc.Content)
	}
	add(req.CurrentContent)
	add(instruction)
	add(req.UserPrompt)

	return strings.Join(parts, "\n\n")
}
