package metadata

import (
	"reflect"
	"testing"
)

func TestExtractFrontMatter(t *testing.T) {
	content := "---\ntitle: The Long Road\nauthor: Ana\nstatus: draft\ntags: [fantasy, \"book one\"]\n---\n# Chapter 1\n\nShe walked.\n"

	md := Extract(content)
	if !md.HasFront {
		t.Fatal("expected front matter")
	}
	if md.Title != "The Long Road" {
		t.Errorf("Title = %q", md.Title)
	}
	if md.Author != "Ana" || md.Status != "draft" {
		t.Errorf("Author/Status = %q/%q", md.Author, md.Status)
	}
	if !reflect.DeepEqual(md.Tags, []string{"fantasy", "book one"}) {
		t.Errorf("Tags = %#v", md.Tags)
	}
	// "Chapter 1" and "She walked." but nothing from the front matter
	if md.Words != 4 {
		t.Errorf("Words = %d, want 4", md.Words)
	}
	if content[md.BodyStart:] != "# Chapter 1\n\nShe walked.\n" {
		t.Errorf("BodyStart points at %q", content[md.BodyStart:])
	}
}

func TestExtractTitleFallback(t *testing.T) {
	tests := []struct {
		name    string
		content string
		title   string
	}{
		{"first h1", "intro\n# Real Title\n## Sub\n# Second", "Real Title"},
		{"h2 only", "## Not a title\ntext", ""},
		{"closing hashes", "# Title #\n", "Title"},
		{"heading in fence", "```\n# code comment\n```\n# Outside", "Outside"},
		{"malformed yaml", "---\ntitle: [unclosed\n---\n# Fallback", "Fallback"},
		{"unterminated front matter", "---\ntitle: X\n# Body", "Body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := Extract(tt.content)
			if md.Title != tt.title {
				t.Errorf("Title = %q, want %q", md.Title, tt.title)
			}
		})
	}
}

func TestExtractCommaTags(t *testing.T) {
	md := Extract("---\ntags: one, two ,, three\n---\n")
	if !reflect.DeepEqual(md.Tags, []string{"one", "two", "three"}) {
		t.Errorf("Tags = %#v", md.Tags)
	}
	if md.Words != 0 {
		t.Errorf("Words = %d, want 0", md.Words)
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"  two   words\n", 2},
		{"¿Qué pasó? — nada.", 3},
		{"- * ---", 0},
		{"año 2024", 2},
	}
	for _, tt := range tests {
		if got := CountWords(tt.text); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
