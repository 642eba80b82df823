package llm

import (
	"context"
	"log"
	"strings"

	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/models"
)

// FileReader fetches context documents
type FileReader interface {
	ReadFile(ctx context.Context, owner, repo, path, ref string) (*github.FileReadResult, error)
}

// Completer turns a CompletionRequest into text
type Completer struct {
	provider  Provider
	templates Templates
}

// NewCompleter creates a completer. A zero Templates uses the defaults.
func NewCompleter(provider Provider, templates Templates) *Completer {
	def := DefaultTemplates()
	if templates.System == "" {
		templates.System = def.System
	}
	if templates.Continue == "" {
		templates.Continue = def.Continue
	}
	if templates.Revise == "" {
		templates.Revise = def.Revise
	}
	return &Completer{provider: provider, templates: templates}
}

// Templates returns the prompts in use
func (c *Completer) Templates() Templates {
	return c.templates
}

// Prompt renders the message Complete would send
func (c *Completer) Prompt(req CompletionRequest) (string, error) {
	if req.SystemPrompt == "" {
		req.SystemPrompt = c.templates.System
	}
	if req.Task == "" {
		req.Task = models.TaskContinue
	}
	instruction, err := c.templates.TaskInstruction(req)
	if err != nil {
		return "", err
	}
	return BuildCompletionPrompt(req, instruction), nil
}

// Complete sends one completion. Cancelling ctx returns ctx.Err() and no text.
func (c *Completer) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	prompt, err := c.Prompt(req)
	if err != nil {
		return "", err
	}

	text, err := c.provider.GenerateText(ctx, prompt)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// LoadContextDocs reads each path at ref in order. A document that cannot be
// read is logged and sent as empty content.
func LoadContextDocs(ctx context.Context, reader FileReader, project models.Project, ref string, paths []string) []ContextDoc {
	docs := make([]ContextDoc, 0, len(paths))
	for _, p := range paths {
		doc := ContextDoc{Path: p}
		res, err := reader.ReadFile(ctx, project.Owner, project.Repo, p, ref)
		if err != nil {
			log.Printf("Warning: failed to load context file %s from %s: %v", p, project.Key(), err)
		} else {
			doc.Content = res.Content
		}
		docs = append(docs, doc)
	}
	return docs
}
