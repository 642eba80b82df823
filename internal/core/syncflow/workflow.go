// Package syncflow persists an edited file to GitHub, either as a direct
// commit or as a branch, commit and pull request.
package syncflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/neilberkman/escriba/internal/core/errs"
	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/models"
)

// DefaultMaxBranchAttempts bounds branch name collision retries
const DefaultMaxBranchAttempts = 3

// Remote is the subset of the GitHub client a save uses
type Remote interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error)
	GetRef(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) error
	WriteFile(ctx context.Context, owner, repo string, in github.WriteRequest) (*github.WriteResult, error)
	CreatePullRequest(ctx context.Context, owner, repo string, in github.PullRequestInput) (*github.PullRequest, error)
}

// Workflow runs saves. Provider calls of one save are strictly sequential and
// only a branch name collision is retried.
type Workflow struct {
	remote      Remote
	namer       *BranchNamer
	templates   Templates
	maxAttempts int
}

// Option configures a Workflow
type Option func(*Workflow)

// WithBranchNamer replaces the default namer
func WithBranchNamer(n *BranchNamer) Option {
	return func(w *Workflow) { w.namer = n }
}

// WithTemplates sets commit and pull request templates
func WithTemplates(t Templates) Option {
	return func(w *Workflow) { w.templates = t }
}

// WithMaxBranchAttempts bounds branch creation attempts
func WithMaxBranchAttempts(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// New creates a workflow over remote
func New(remote Remote, opts ...Option) *Workflow {
	w := &Workflow{
		remote:      remote,
		namer:       NewBranchNamer(DefaultBranchPrefix, nil),
		templates:   DefaultTemplates(),
		maxAttempts: DefaultMaxBranchAttempts,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Save persists h.Content with h.SHA as the precondition. In direct mode the
// caller must adopt the returned SHA. In review mode the handle's branch and
// SHA stay as they were. The save is not cancelled when ctx is.
func (w *Workflow) Save(ctx context.Context, h models.FileHandle, mode models.SaveMode, message string) (*models.SyncResult, error) {
	ctx = context.WithoutCancel(ctx)

	if err := h.Project.Validate(); err != nil {
		return nil, err
	}
	if h.Path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	data := map[string]interface{}{
		"message": message,
		"path":    h.Path,
		"owner":   h.Project.Owner,
		"repo":    h.Project.Repo,
		"branch":  h.Branch,
	}
	if message == "" {
		message = render("commit message", w.templates.CommitMessage, data, "Update "+h.Path)
		data["message"] = message
	}

	switch mode {
	case models.SaveDirect, "":
		return w.saveDirect(ctx, h, message)
	case models.SaveReview:
		return w.saveReview(ctx, h, message, data)
	default:
		return nil, &models.InvalidValueError{Field: "mode", Value: string(mode)}
	}
}

func (w *Workflow) saveDirect(ctx context.Context, h models.FileHandle, message string) (*models.SyncResult, error) {
	res, err := w.remote.WriteFile(ctx, h.Project.Owner, h.Project.Repo, github.WriteRequest{
		Path:    h.Path,
		Content: h.Content,
		SHA:     h.SHA,
		Branch:  h.Branch,
		Message: message,
	})
	if err != nil {
		return nil, fmt.Errorf("direct save of %s: %w", h.Path, err)
	}
	return &models.SyncResult{
		Mode:      models.SaveDirect,
		SHA:       res.SHA,
		CommitSHA: res.CommitSHA,
		Branch:    h.Branch,
		Message:   message,
	}, nil
}

func (w *Workflow) saveReview(ctx context.Context, h models.FileHandle, message string, data map[string]interface{}) (*models.SyncResult, error) {
	owner, repo := h.Project.Owner, h.Project.Repo

	info, err := w.remote.GetRepository(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("review save: failed to resolve default branch: %w", err)
	}
	base := info.DefaultBranch

	tip, err := w.remote.GetRef(ctx, owner, repo, base)
	if err != nil {
		return nil, fmt.Errorf("review save: failed to resolve %s: %w", base, err)
	}

	branch, err := w.createBranch(ctx, owner, repo, tip)
	if err != nil {
		return nil, err
	}

	res, err := w.remote.WriteFile(ctx, owner, repo, github.WriteRequest{
		Path:    h.Path,
		Content: h.Content,
		SHA:     h.SHA,
		Branch:  branch,
		Message: message,
	})
	if err != nil {
		log.Printf("Warning: branch %s left without changes after failed write: %v", branch, err)
		return nil, fmt.Errorf("review save of %s on %s: %w", h.Path, branch, err)
	}

	data["branch"] = branch
	data["base"] = base
	pr, err := w.remote.CreatePullRequest(ctx, owner, repo, github.PullRequestInput{
		Head:  branch,
		Base:  base,
		Title: render("pull request title", w.templates.PRTitle, data, message),
		Body:  render("pull request body", w.templates.PRBody, data, message),
	})
	if err != nil {
		log.Printf("Warning: branch %s committed but no pull request opened: %v", branch, err)
		return nil, fmt.Errorf("review save: failed to open pull request from %s: %w", branch, err)
	}

	return &models.SyncResult{
		Mode:        models.SaveReview,
		SHA:         res.SHA,
		CommitSHA:   res.CommitSHA,
		Branch:      branch,
		Message:     message,
		PullRequest: &models.PullRequestRef{Number: pr.Number, URL: pr.URL},
	}, nil
}

// createBranch retries only on name collisions
func (w *Workflow) createBranch(ctx context.Context, owner, repo, tip string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		name := w.namer.Next()
		err := w.remote.CreateBranch(ctx, owner, repo, name, tip)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, errs.ErrConflict) {
			return "", fmt.Errorf("review save: failed to create branch %s: %w", name, err)
		}
		log.Printf("Branch %s already exists (attempt %d/%d)", name, attempt, w.maxAttempts)
		lastErr = err
	}
	return "", fmt.Errorf("review save: no free branch name after %d attempts: %w", w.maxAttempts, lastErr)
}
