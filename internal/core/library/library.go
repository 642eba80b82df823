// Package library lists the markdown files of a writing project.
// Books live under books/ and research material under references/.
package library

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/neilberkman/escriba/internal/core/github"
)

// Roots are the folders scanned for markdown files
var Roots = []string{"books", "references"}

// Lister is the part of the GitHub client a listing needs
type Lister interface {
	ListDir(ctx context.Context, owner, repo, path, ref string) ([]github.Entry, error)
}

// File is one markdown file in the library
type File struct {
	Root string `json:"root"` // "books" or "references"
	Path string `json:"path"`
	Name string `json:"name"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

// Listing groups files by root folder
type Listing struct {
	Books      []File `json:"books"`
	References []File `json:"references"`
}

// All returns books followed by references
func (l Listing) All() []File {
	out := make([]File, 0, len(l.Books)+len(l.References))
	out = append(out, l.Books...)
	return append(out, l.References...)
}

// List walks books/ and references/ at ref. A missing root is an empty list.
func List(ctx context.Context, lister Lister, owner, repo, ref string) (*Listing, error) {
	listing := &Listing{Books: []File{}, References: []File{}}
	for _, root := range Roots {
		files, err := walk(ctx, lister, owner, repo, ref, root, root)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", root, err)
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		if root == "books" {
			listing.Books = files
		} else {
			listing.References = files
		}
	}
	return listing, nil
}

func walk(ctx context.Context, lister Lister, owner, repo, ref, root, dir string) ([]File, error) {
	entries, err := lister.ListDir(ctx, owner, repo, dir, ref)
	if err != nil {
		if github.IsNotFound(err) {
			return []File{}, nil
		}
		return nil, err
	}

	files := []File{}
	for _, e := range entries {
		switch e.Type {
		case "dir":
			sub, err := walk(ctx, lister, owner, repo, ref, root, e.Path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		case "file":
			if !IsMarkdown(e.Path) {
				continue
			}
			files = append(files, File{Root: root, Path: e.Path, Name: e.Name, SHA: e.SHA, Size: e.Size})
		}
	}
	return files, nil
}

// IsMarkdown reports whether p has a .md or .markdown extension
func IsMarkdown(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// InLibrary reports whether p sits under one of the library roots
func InLibrary(p string) bool {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	for _, root := range Roots {
		if strings.HasPrefix(p, root+"/") {
			return true
		}
	}
	return false
}
