package library

import (
	"context"
	"testing"

	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/github/githubtest"
)

func TestList(t *testing.T) {
	srv := githubtest.NewServer(t)
	srv.AddRepo("alice", "novel", "main")
	srv.PutFile("alice", "novel", "main", "books/b.md", "b")
	srv.PutFile("alice", "novel", "main", "books/a.markdown", "a")
	srv.PutFile("alice", "novel", "main", "books/cover.png", "png")
	srv.PutFile("alice", "novel", "main", "books/part1/ch1.md", "ch1")
	srv.PutFile("alice", "novel", "main", "notes/todo.md", "ignored")

	c := github.NewClient("", github.WithBaseURL(srv.URL))
	listing, err := List(context.Background(), c, "alice", "novel", "main")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{"books/a.markdown", "books/b.md", "books/part1/ch1.md"}
	if len(listing.Books) != len(want) {
		t.Fatalf("got %d books, want %d: %+v", len(listing.Books), len(want), listing.Books)
	}
	for i, f := range listing.Books {
		if f.Path != want[i] {
			t.Errorf("book %d = %q, want %q", i, f.Path, want[i])
		}
		if f.Root != "books" {
			t.Errorf("book %q root = %q", f.Path, f.Root)
		}
	}

	// references/ does not exist
	if listing.References == nil || len(listing.References) != 0 {
		t.Errorf("expected empty non-nil references, got %#v", listing.References)
	}
	if len(listing.All()) != 3 {
		t.Errorf("All() = %d files", len(listing.All()))
	}
}

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"books/a.md", true},
		{"books/a.MD", true},
		{"references/b.markdown", true},
		{"books/a.txt", false},
		{"books/md", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMarkdown(tt.path); got != tt.want {
			t.Errorf("IsMarkdown(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestInLibrary(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"books/a.md", true},
		{"/references/x/y.md", true},
		{"books", false},
		{"bookshelf/a.md", false},
		{"books/../secrets.md", false},
	}
	for _, tt := range tests {
		if got := InLibrary(tt.path); got != tt.want {
			t.Errorf("InLibrary(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
