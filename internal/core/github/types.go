package github

import "time"

// User is the authenticated account
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Repository is a repository the user can access
type Repository struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	DefaultBranch string    `json:"default_branch"`
	Private       bool      `json:"private"`
	Description   string    `json:"description"`
	HTMLURL       string    `json:"html_url"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Branch is a branch name and its tip commit
type Branch struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// Entry is one item of a directory listing
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file" or "dir"
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

// FileReadResult is a decoded file and its blob SHA
type FileReadResult struct {
	Path    string
	Ref     string
	Content string
	SHA     string
}

// WriteRequest creates or updates one file. An empty SHA creates the file.
type WriteRequest struct {
	Path    string
	Content string
	SHA     string
	Branch  string
	Message string
}

// WriteResult carries the new blob SHA; callers must adopt it
type WriteResult struct {
	SHA       string
	CommitSHA string
	CommitURL string
}

// PullRequestInput opens a pull request
type PullRequestInput struct {
	Head  string
	Base  string
	Title string
	Body  string
}

// PullRequest is an opened pull request
type PullRequest struct {
	Number int
	URL    string
	State  string
}

// NewRepo describes a repository to create for the user
type NewRepo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
}
