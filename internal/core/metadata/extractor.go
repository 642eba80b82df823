package metadata

import (
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Metadata describes a markdown document
type Metadata struct {
	Title     string   `json:"title,omitempty"`
	Author    string   `json:"author,omitempty"`
	Status    string   `json:"status,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Words     int      `json:"words"`
	Headings  []string `json:"headings,omitempty"`
	HasFront  bool     `json:"has_front_matter"`
	BodyStart int      `json:"-"` // byte offset of the body after front matter
}

// frontMatter is the YAML block between leading "---" lines
type frontMatter struct {
	Title  string      `yaml:"title"`
	Author string      `yaml:"author"`
	Status string      `yaml:"status"`
	Tags   interface{} `yaml:"tags"` // list or comma separated string
}

// Extractor pulls metadata out of markdown documents
type Extractor struct {
	headingPattern *regexp.Regexp
	fencePattern   *regexp.Regexp
}

// NewExtractor creates a new metadata extractor
func NewExtractor() *Extractor {
	return &Extractor{
		headingPattern: regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`),
		fencePattern:   regexp.MustCompile("^(```|~~~)"),
	}
}

var defaultExtractor = NewExtractor()

// Extract uses the default extractor
func Extract(content string) Metadata {
	return defaultExtractor.Extract(content)
}

// Extract reads front matter, headings and a word count from content.
// Malformed front matter is treated as body text.
func (e *Extractor) Extract(content string) Metadata {
	var md Metadata

	body := content
	if fm, rest, ok := splitFrontMatter(content); ok {
		var parsed frontMatter
		if err := yaml.Unmarshal([]byte(fm), &parsed); err == nil {
			md.HasFront = true
			md.Title = strings.TrimSpace(parsed.Title)
			md.Author = strings.TrimSpace(parsed.Author)
			md.Status = strings.TrimSpace(parsed.Status)
			md.Tags = normalizeTags(parsed.Tags)
			md.BodyStart = len(content) - len(rest)
			body = rest
		}
	}

	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if e.fencePattern.MatchString(trimmed) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := e.headingPattern.FindStringSubmatch(trimmed); m != nil {
			md.Headings = append(md.Headings, m[2])
			if md.Title == "" && len(m[1]) == 1 {
				md.Title = m[2]
			}
		}
	}

	md.Words = CountWords(body)
	return md
}

// splitFrontMatter returns the YAML between a leading "---" line and the next
// "---" or "..." line, and the remaining body
func splitFrontMatter(content string) (string, string, bool) {
	text := strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return "", "", false
	}
	start := strings.Index(text, "\n") + 1
	offset := start
	for offset < len(text) {
		end := strings.Index(text[offset:], "\n")
		var line string
		next := len(text)
		if end < 0 {
			line = text[offset:]
		} else {
			line = text[offset : offset+end]
			next = offset + end + 1
		}
		switch strings.TrimRight(line, "\r") {
		case "---", "...":
			return text[start:offset], text[next:], true
		}
		offset = next
	}
	return "", "", false
}

func normalizeTags(raw interface{}) []string {
	var tags []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			tags = append(tags, s)
		}
	}
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			add(part)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	return tags
}

// CountWords counts whitespace separated runs containing a letter or digit
func CountWords(text string) int {
	count := 0
	for _, field := range strings.FieldsFunc(text, unicode.IsSpace) {
		if strings.IndexFunc(field, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }) >= 0 {
			count++
		}
	}
	return count
}
