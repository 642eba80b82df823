package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neilberkman/escriba/internal/core/errs"
)

const (
	DefaultAPIURL  = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	apiVersion     = "2022-11-28"
)

// Client talks to the GitHub REST API on behalf of one token.
// No call is ever retried: branch and pull request creation are not idempotent.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at GitHub Enterprise or a test server
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client authenticated with token
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultAPIURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "escriba",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is GitHub's error body
type apiError struct {
	Message string `json:"message"`
	Errors  []struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Field   string `json:"field"`
	} `json:"errors"`
}

func (e apiError) text() string {
	msg := e.Message
	for _, detail := range e.Errors {
		if detail.Message != "" {
			msg += "; " + detail.Message
		} else if detail.Code != "" {
			msg += "; " + detail.Field + " " + detail.Code
		}
	}
	return msg
}

// do sends one request. A nil out discards the body. The returned *errs.Error
// keeps GitHub's status and message verbatim.
func (c *Client) do(ctx context.Context, op, method, path string, payload, out interface{}) error {
	_, err := c.send(ctx, op, method, c.baseURL+path, payload, out)
	return err
}

// getAll follows rel="next" links from path until the last page. Each page is
// decoded into a fresh value from newPage and handed to collect.
func (c *Client) getAll(ctx context.Context, op, path string, newPage func() interface{}, collect func(page interface{})) error {
	next := c.baseURL + path
	for next != "" {
		page := newPage()
		header, err := c.send(ctx, op, "GET", next, nil, page)
		if err != nil {
			return err
		}
		collect(page)
		next = nextLink(header.Get("Link"))
	}
	return nil
}

// nextLink extracts the rel="next" target of a Link header
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		if len(fields) < 2 {
			continue
		}
		target := strings.TrimSpace(fields[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range fields[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

func (c *Client) send(ctx context.Context, op, method, target string, payload, out interface{}) (http.Header, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal payload: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, errs.Network(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Network(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &ae) == nil && ae.Message != "" {
			msg = ae.text()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, errs.FromStatus(op, resp.StatusCode, msg)
	}

	if out == nil || len(data) == 0 {
		return resp.Header, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errs.New(errs.KindProviderError, op, resp.StatusCode, "unexpected response: "+err.Error())
	}
	return resp.Header, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// reclassify turns a 422 whose message matches into kind
func reclassify(err error, kind errs.Kind, needles ...string) error {
	var e *errs.Error
	if !errors.As(err, &e) || e.Status != http.StatusUnprocessableEntity {
		return err
	}
	msg := strings.ToLower(e.Message)
	for _, n := range needles {
		if strings.Contains(msg, n) {
			e.Kind = kind
			return e
		}
	}
	return err
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

// escapePath escapes each segment of a repository file path
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
