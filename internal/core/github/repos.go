package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/neilberkman/escriba/internal/core/errs"
)

type repoJSON struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
	DefaultBranch string    `json:"default_branch"`
	Private       bool      `json:"private"`
	Description   string    `json:"description"`
	HTMLURL       string    `json:"html_url"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type branchJSON struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

func (r repoJSON) toRepository() Repository {
	return Repository{
		Owner:         r.Owner.Login,
		Name:          r.Name,
		FullName:      r.FullName,
		DefaultBranch: r.DefaultBranch,
		Private:       r.Private,
		Description:   r.Description,
		HTMLURL:       r.HTMLURL,
		UpdatedAt:     r.UpdatedAt,
	}
}

// GetUser returns the account the token belongs to
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, "github.get_user", "GET", "/user", nil, &u); err != nil {
		return nil, err
	}
	if u.Login == "" {
		return nil, errs.New(errs.KindProviderError, "github.get_user", 200, "response has no login")
	}
	return &u, nil
}

// GetRepository returns repository metadata, including its default branch
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var r repoJSON
	if err := c.do(ctx, "github.get_repository", "GET", repoPath(owner, repo), nil, &r); err != nil {
		return nil, err
	}
	if r.DefaultBranch == "" {
		return nil, errs.New(errs.KindProviderError, "github.get_repository", 200, "response has no default branch")
	}
	out := r.toRepository()
	return &out, nil
}

// ListRepos lists repositories of the authenticated user, most recently updated first
func (c *Client) ListRepos(ctx context.Context) ([]Repository, error) {
	repos := []Repository{}
	path := "/user/repos?per_page=100&sort=updated&affiliation=owner,collaborator"
	err := c.getAll(ctx, "github.list_repos", path,
		func() interface{} { return &[]repoJSON{} },
		func(page interface{}) {
			for _, r := range *page.(*[]repoJSON) {
				repos = append(repos, r.toRepository())
			}
		})
	if err != nil {
		return nil, err
	}
	return repos, nil
}

// CreateRepo creates a repository for the user, initialized with a README
// so it has a default branch to write to
func (c *Client) CreateRepo(ctx context.Context, in NewRepo) (*Repository, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("github.create_repo: name is required")
	}
	payload := struct {
		NewRepo
		AutoInit bool `json:"auto_init"`
	}{NewRepo: in, AutoInit: true}

	var r repoJSON
	err := c.do(ctx, "github.create_repo", "POST", "/user/repos", payload, &r)
	if err != nil {
		return nil, reclassify(err, errs.KindConflict, "already exists")
	}
	out := r.toRepository()
	return &out, nil
}

// ListBranches lists the branches of a repository
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]Branch, error) {
	branches := []Branch{}
	path := repoPath(owner, repo) + "/branches?per_page=100"
	err := c.getAll(ctx, "github.list_branches", path,
		func() interface{} { return &[]branchJSON{} },
		func(page interface{}) {
			for _, b := range *page.(*[]branchJSON) {
				branches = append(branches, Branch{Name: b.Name, SHA: b.Commit.SHA})
			}
		})
	if err != nil {
		return nil, err
	}
	return branches, nil
}

// GetRef returns the commit SHA a branch points at
func (c *Client) GetRef(ctx context.Context, owner, repo, branch string) (string, error) {
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := repoPath(owner, repo) + "/git/ref/heads/" + escapePath(branch)
	if err := c.do(ctx, "github.get_ref", "GET", path, nil, &ref); err != nil {
		return "", err
	}
	if ref.Object.SHA == "" {
		return "", errs.New(errs.KindProviderError, "github.get_ref", 200, "response has no object sha")
	}
	return ref.Object.SHA, nil
}

// CreateBranch creates refs/heads/name at fromSHA. An existing name is a Conflict.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) error {
	payload := map[string]string{
		"ref": "refs/heads/" + name,
		"sha": fromSHA,
	}
	err := c.do(ctx, "github.create_branch", "POST", repoPath(owner, repo)+"/git/refs", payload, nil)
	return reclassify(err, errs.KindConflict, "already exists")
}

// CreatePullRequest opens a pull request from in.Head into in.Base
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, in PullRequestInput) (*PullRequest, error) {
	payload := map[string]string{
		"head":  in.Head,
		"base":  in.Base,
		"title": in.Title,
		"body":  in.Body,
	}
	var pr struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
		State   string `json:"state"`
	}
	err := c.do(ctx, "github.create_pull_request", "POST", repoPath(owner, repo)+"/pulls", payload, &pr)
	if err != nil {
		return nil, reclassify(err, errs.KindConflict, "already exists")
	}
	return &PullRequest{Number: pr.Number, URL: pr.HTMLURL, State: pr.State}, nil
}

// refQuery renders "?ref=..." or ""
func refQuery(ref string) string {
	if ref == "" {
		return ""
	}
	return "?ref=" + url.QueryEscape(ref)
}

// IsNotFound reports whether err is a NotFound from GitHub
func IsNotFound(err error) bool {
	return errors.Is(err, errs.ErrNotFound)
}
