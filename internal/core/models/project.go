package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Project is one GitHub repository the user writes in
type Project struct {
	Owner         string    `json:"owner"`
	Repo          string    `json:"repo"`
	DefaultBranch string    `json:"default_branch"`
	AddedAt       time.Time `json:"added_at"`
}

// Key returns "owner/repo"
func (p Project) Key() string {
	return p.Owner + "/" + p.Repo
}

// Validate checks if the project has required fields
func (p *Project) Validate() error {
	if p.Owner == "" {
		return errors.New("owner is required")
	}
	if p.Repo == "" {
		return errors.New("repo is required")
	}
	if strings.ContainsAny(p.Owner+p.Repo, "/ ") {
		return fmt.Errorf("invalid project %q", p.Key())
	}
	return nil
}

// ParseProject parses "owner/repo"
func ParseProject(s string) (Project, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	p := Project{Owner: owner, Repo: strings.TrimSuffix(repo, ".git")}
	if !ok {
		return p, fmt.Errorf("expected owner/repo, got %q", s)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
