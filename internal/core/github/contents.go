package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neilberkman/escriba/internal/core/errs"
)

type contentJSON struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// ReadFile fetches path at ref (empty ref = default branch) and decodes it as UTF-8 text
func (c *Client) ReadFile(ctx context.Context, owner, repo, path, ref string) (*FileReadResult, error) {
	const op = "github.read_file"

	var raw json.RawMessage
	apiPath := repoPath(owner, repo) + "/contents/" + escapePath(path) + refQuery(ref)
	if err := c.do(ctx, op, "GET", apiPath, nil, &raw); err != nil {
		return nil, err
	}

	// Directories come back as arrays
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		return nil, errs.New(errs.KindNotFound, op, 200, path+" is a directory")
	}

	var item contentJSON
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, errs.New(errs.KindProviderError, op, 200, "unexpected response: "+err.Error())
	}
	if item.Type != "" && item.Type != "file" {
		return nil, errs.New(errs.KindNotFound, op, 200, fmt.Sprintf("%s is a %s, not a file", path, item.Type))
	}

	content, err := decodeContent(item.Encoding, item.Content)
	if err != nil {
		return nil, errs.New(errs.KindProviderError, op, 200, err.Error())
	}

	return &FileReadResult{
		Path:    item.Path,
		Ref:     ref,
		Content: content,
		SHA:     item.SHA,
	}, nil
}

// decodeContent reverses GitHub's transport encoding. Base64 payloads are
// wrapped at 60 columns, so whitespace is stripped before decoding.
func decodeContent(encoding, payload string) (string, error) {
	var data []byte
	switch encoding {
	case "base64":
		compact := strings.Map(func(r rune) rune {
			switch r {
			case '\n', '\r', ' ', '\t':
				return -1
			}
			return r
		}, payload)
		decoded, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return "", fmt.Errorf("invalid base64 content: %w", err)
		}
		data = decoded
	case "", "utf-8":
		data = []byte(payload)
	case "none":
		return "", fmt.Errorf("file too large for the contents API")
	default:
		return "", fmt.Errorf("unsupported content encoding %q", encoding)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8 text")
	}
	return string(data), nil
}

// WriteFile creates or updates one file in a single commit.
// A SHA that no longer matches the file is a Conflict; a missing branch is NotFound.
func (c *Client) WriteFile(ctx context.Context, owner, repo string, in WriteRequest) (*WriteResult, error) {
	const op = "github.write_file"

	payload := map[string]string{
		"message": in.Message,
		"content": base64.StdEncoding.EncodeToString([]byte(in.Content)),
	}
	if in.SHA != "" {
		payload["sha"] = in.SHA
	}
	if in.Branch != "" {
		payload["branch"] = in.Branch
	}

	var resp struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
		Commit struct {
			SHA     string `json:"sha"`
			HTMLURL string `json:"html_url"`
		} `json:"commit"`
	}
	apiPath := repoPath(owner, repo) + "/contents/" + escapePath(in.Path)
	if err := c.do(ctx, op, "PUT", apiPath, payload, &resp); err != nil {
		// 422 is used both for "sha wasn't supplied" on an existing file and
		// for unknown branches
		err = reclassify(err, errs.KindConflict, "sha")
		return nil, reclassify(err, errs.KindNotFound, "branch", "no commit found")
	}
	if resp.Content.SHA == "" {
		return nil, errs.New(errs.KindProviderError, op, 200, "response has no content sha")
	}

	return &WriteResult{
		SHA:       resp.Content.SHA,
		CommitSHA: resp.Commit.SHA,
		CommitURL: resp.Commit.HTMLURL,
	}, nil
}

// ListDir lists a directory at ref
func (c *Client) ListDir(ctx context.Context, owner, repo, path, ref string) ([]Entry, error) {
	const op = "github.list_dir"

	var raw json.RawMessage
	apiPath := repoPath(owner, repo) + "/contents/" + escapePath(path) + refQuery(ref)
	if err := c.do(ctx, op, "GET", apiPath, nil, &raw); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		return nil, errs.New(errs.KindNotFound, op, 200, path+" is not a directory")
	}

	var items []contentJSON
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errs.New(errs.KindProviderError, op, 200, "unexpected response: "+err.Error())
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{Name: it.Name, Path: it.Path, Type: it.Type, SHA: it.SHA, Size: it.Size})
	}
	return entries, nil
}
