package syncflow

import (
	"log"

	"github.com/cbroglie/mustache"

	"github.com/neilberkman/escriba/internal/core/config"
)

// Templates render commit messages and pull request text.
// Available variables: message, path, branch, base, owner, repo.
type Templates struct {
	CommitMessage string
	PRTitle       string
	PRBody        string
}

// DefaultTemplates returns the built-in templates
func DefaultTemplates() Templates {
	return Templates{
		CommitMessage: config.DefaultCommitMessage,
		PRTitle:       config.DefaultPRTitle,
		PRBody:        config.DefaultPRBody,
	}
}

// TemplatesFrom fills unset templates with the defaults
func TemplatesFrom(cfg config.PromptConfig) Templates {
	t := DefaultTemplates()
	if cfg.CommitMessage != "" {
		t.CommitMessage = cfg.CommitMessage
	}
	if cfg.PRTitle != "" {
		t.PRTitle = cfg.PRTitle
	}
	if cfg.PRBody != "" {
		t.PRBody = cfg.PRBody
	}
	return t
}

func render(name, tmpl string, data map[string]interface{}, fallback string) string {
	out, err := mustache.Render(tmpl, data)
	if err != nil || out == "" {
		if err != nil {
			log.Printf("Warning: %s template failed: %v", name, err)
		}
		return fallback
	}
	return out
}
