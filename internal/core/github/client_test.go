package github_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilberkman/escriba/internal/core/errs"
	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/github/githubtest"
)

func newFixture(t *testing.T) (*githubtest.Server, *github.Client) {
	t.Helper()
	srv := githubtest.NewServer(t)
	srv.Token = "tok"
	srv.AddRepo("alice", "novel", "main")
	return srv, github.NewClient("tok", github.WithBaseURL(srv.URL))
}

func TestReadFile(t *testing.T) {
	srv, c := newFixture(t)
	// long enough to be wrapped across several base64 lines
	content := "# Chapter One\n\nIt was a dark and stormy night. ¿Qué pasó? The rain fell in torrents.\n"
	sha := srv.PutFile("alice", "novel", "main", "books/one.md", content)

	got, err := c.ReadFile(context.Background(), "alice", "novel", "books/one.md", "")
	require.NoError(t, err)
	assert.Equal(t, content, got.Content)
	assert.Equal(t, sha, got.SHA)
	assert.Equal(t, "books/one.md", got.Path)
}

func TestReadFileErrors(t *testing.T) {
	srv, c := newFixture(t)
	srv.PutFile("alice", "novel", "main", "books/one.md", "x")
	ctx := context.Background()

	_, err := c.ReadFile(ctx, "alice", "novel", "books/missing.md", "")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = c.ReadFile(ctx, "alice", "novel", "books", "")
	assert.ErrorIs(t, err, errs.ErrNotFound, "directory should not read as a file")

	_, err = c.ReadFile(ctx, "alice", "novel", "books/one.md", "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	bad := github.NewClient("wrong", github.WithBaseURL(srv.URL))
	_, err = bad.ReadFile(ctx, "alice", "novel", "books/one.md", "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusUnauthorized, e.Status)
	assert.Contains(t, e.Message, "Bad credentials")
}

func TestWriteFileCreateAndUpdate(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()

	created, err := c.WriteFile(ctx, "alice", "novel", github.WriteRequest{
		Path:    "books/new.md",
		Content: "first",
		Message: "create",
	})
	require.NoError(t, err)
	assert.Equal(t, githubtest.BlobSHA("first"), created.SHA)
	assert.NotEmpty(t, created.CommitSHA)

	updated, err := c.WriteFile(ctx, "alice", "novel", github.WriteRequest{
		Path:    "books/new.md",
		Content: "second",
		SHA:     created.SHA,
		Message: "update",
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.SHA, updated.SHA)

	content, sha, ok := srv.File("alice", "novel", "main", "books/new.md")
	require.True(t, ok)
	assert.Equal(t, "second", content)
	assert.Equal(t, updated.SHA, sha)

	commit, ok := srv.Commit("alice", "novel", updated.CommitSHA)
	require.True(t, ok)
	assert.Equal(t, "update", commit.Message)
	assert.Equal(t, []string{"books/new.md"}, commit.Changed)
}

func TestWriteFileStaleSHAIsConflict(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()
	old := srv.PutFile("alice", "novel", "main", "books/one.md", "v1")
	srv.PutFile("alice", "novel", "main", "books/one.md", "v2")

	_, err := c.WriteFile(ctx, "alice", "novel", github.WriteRequest{
		Path: "books/one.md", Content: "mine", SHA: old, Message: "m",
	})
	assert.ErrorIs(t, err, errs.ErrConflict)

	// omitting the sha for an existing file is the same failure
	_, err = c.WriteFile(ctx, "alice", "novel", github.WriteRequest{
		Path: "books/one.md", Content: "mine", Message: "m",
	})
	assert.ErrorIs(t, err, errs.ErrConflict)

	content, _, _ := srv.File("alice", "novel", "main", "books/one.md")
	assert.Equal(t, "v2", content)
}

func TestWriteFileUnknownBranch(t *testing.T) {
	_, c := newFixture(t)
	_, err := c.WriteFile(context.Background(), "alice", "novel", github.WriteRequest{
		Path: "a.md", Content: "x", Branch: "ghost", Message: "m",
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBranchesAndPullRequests(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()

	tip, err := c.GetRef(ctx, "alice", "novel", "main")
	require.NoError(t, err)
	want, _ := srv.BranchSHA("alice", "novel", "main")
	assert.Equal(t, want, tip)

	require.NoError(t, c.CreateBranch(ctx, "alice", "novel", "escriba/edit-1", tip))
	err = c.CreateBranch(ctx, "alice", "novel", "escriba/edit-1", tip)
	assert.ErrorIs(t, err, errs.ErrConflict)

	branches, err := c.ListBranches(ctx, "alice", "novel")
	require.NoError(t, err)
	var names []string
	for _, b := range branches {
		names = append(names, b.Name)
	}
	assert.ElementsMatch(t, []string{"main", "escriba/edit-1"}, names)

	// slash in branch name survives the ref lookup
	got, err := c.GetRef(ctx, "alice", "novel", "escriba/edit-1")
	require.NoError(t, err)
	assert.Equal(t, tip, got)

	pr, err := c.CreatePullRequest(ctx, "alice", "novel", github.PullRequestInput{
		Head: "escriba/edit-1", Base: "main", Title: "t", Body: "b",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pr.Number)
	assert.Equal(t, "https://github.com/alice/novel/pull/1", pr.URL)

	prs := srv.PullRequests("alice", "novel")
	require.Len(t, prs, 1)
	assert.Equal(t, "escriba/edit-1", prs[0].Head)
	assert.Equal(t, "main", prs[0].Base)
}

func TestRepositories(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()

	u, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.Login, u.Login)

	repo, err := c.GetRepository(ctx, "alice", "novel")
	require.NoError(t, err)
	assert.Equal(t, "main", repo.DefaultBranch)
	assert.Equal(t, "alice", repo.Owner)

	_, err = c.GetRepository(ctx, "alice", "missing")
	assert.True(t, github.IsNotFound(err))

	created, err := c.CreateRepo(ctx, github.NewRepo{Name: "poems", Private: true})
	require.NoError(t, err)
	assert.Equal(t, srv.Login+"/poems", created.FullName)

	_, err = c.CreateRepo(ctx, github.NewRepo{Name: "poems"})
	assert.ErrorIs(t, err, errs.ErrConflict)

	repos, err := c.ListRepos(ctx)
	require.NoError(t, err)
	assert.Len(t, repos, 2)
}

func TestListFollowsPages(t *testing.T) {
	srv, c := newFixture(t)
	srv.PageSize = 2
	for _, name := range []string{"b", "c", "d", "e"} {
		srv.AddRepo("alice", name, "main")
		srv.CreateBranch("alice", "novel", "draft-"+name, "main")
	}
	ctx := context.Background()

	repos, err := c.ListRepos(ctx)
	require.NoError(t, err)
	assert.Len(t, repos, 5)

	branches, err := c.ListBranches(ctx, "alice", "novel")
	require.NoError(t, err)
	assert.Len(t, branches, 5)

	var pages int
	for _, call := range srv.Calls() {
		if call == "GET /user/repos" {
			pages++
		}
	}
	assert.Equal(t, 3, pages)
}

func TestListFollowsPagesError(t *testing.T) {
	srv, c := newFixture(t)
	srv.PageSize = 1
	srv.AddRepo("alice", "poems", "main")
	srv.FailNext("GET", "/user/repos", http.StatusInternalServerError, "boom")

	_, err := c.ListRepos(context.Background())
	require.Error(t, err)
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusInternalServerError, e.Status)
}

func TestUserAgent(t *testing.T) {
	srv := githubtest.NewServer(t)
	_, err := github.NewClient("", github.WithBaseURL(srv.URL)).GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "escriba", srv.UserAgent())

	c := github.NewClient("", github.WithBaseURL(srv.URL), github.WithUserAgent("escriba/1.2.3"))
	_, err = c.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "escriba/1.2.3", srv.UserAgent())
}

func TestListDir(t *testing.T) {
	srv, c := newFixture(t)
	srv.PutFile("alice", "novel", "main", "books/one.md", "1")
	srv.PutFile("alice", "novel", "main", "books/part2/two.md", "2")

	entries, err := c.ListDir(context.Background(), "alice", "novel", "books", "main")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "file", entries[0].Type)
	assert.Equal(t, "books/one.md", entries[0].Path)
	assert.Equal(t, "dir", entries[1].Type)
	assert.Equal(t, "books/part2", entries[1].Path)

	_, err = c.ListDir(context.Background(), "alice", "novel", "references", "main")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestServerErrorKeepsStatusAndMessage(t *testing.T) {
	srv, c := newFixture(t)
	srv.FailNext("GET", "/contents/", http.StatusBadGateway, "upstream exploded")

	_, err := c.ReadFile(context.Background(), "alice", "novel", "README.md", "")
	require.ErrorIs(t, err, errs.ErrProviderError)
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusBadGateway, e.Status)
	assert.Equal(t, "upstream exploded", e.Message)
}

func TestNetworkError(t *testing.T) {
	srv, _ := newFixture(t)
	url := srv.URL
	srv.Close()

	c := github.NewClient("tok", github.WithBaseURL(url), github.WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err := c.GetUser(context.Background())
	assert.ErrorIs(t, err, errs.ErrNetworkError)
}

func TestCanceledContext(t *testing.T) {
	_, c := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetUser(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errs.ErrNetworkError)
}
