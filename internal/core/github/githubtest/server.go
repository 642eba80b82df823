// Package githubtest is an in-memory stand-in for the parts of the GitHub
// REST API escriba uses: contents, refs, branches, repositories and pulls.
package githubtest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// PullRequest is a pull request opened against the fake
type PullRequest struct {
	Number int
	Head   string
	Base   string
	Title  string
	Body   string
}

// Commit is one commit in a fake repository
type Commit struct {
	SHA     string
	Parent  string
	Message string
	Files   map[string]string // path -> content, full tree
	Changed []string          // paths this commit touched
}

type repo struct {
	owner, name   string
	defaultBranch string
	private       bool
	branches      map[string]string // name -> commit sha
	commits       map[string]*Commit
	pulls         []PullRequest
}

type failure struct {
	method  string
	path    string
	status  int
	message string
}

// Server is an httptest.Server speaking a subset of the GitHub API
type Server struct {
	*httptest.Server

	// Token, if set, is the only bearer token accepted
	Token string
	Login string

	// PageSize, if set, caps list responses below the requested per_page
	PageSize int

	mu        sync.Mutex
	repos     map[string]*repo
	calls     []string
	userAgent string
	failures  []failure
	seq       int
}

// NewServer starts a fake GitHub that is closed when the test ends
func NewServer(t testing.TB) *Server {
	s := &Server{
		Login: "octo",
		repos: make(map[string]*repo),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", s.handleUser)
	mux.HandleFunc("GET /user/repos", s.handleListRepos)
	mux.HandleFunc("POST /user/repos", s.handleCreateRepo)
	mux.HandleFunc("GET /repos/{owner}/{repo}", s.handleGetRepo)
	mux.HandleFunc("GET /repos/{owner}/{repo}/branches", s.handleBranches)
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/ref/heads/{branch...}", s.handleGetRef)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/refs", s.handleCreateRef)
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", s.handleGetContents)
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", s.handlePutContents)
	mux.HandleFunc("POST /repos/{owner}/{repo}/pulls", s.handleCreatePull)

	s.Server = httptest.NewServer(s.middleware(mux))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.userAgent = r.Header.Get("User-Agent")
		for i, f := range s.failures {
			if f.method == r.Method && strings.Contains(r.URL.Path, f.path) {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				s.mu.Unlock()
				writeError(w, f.status, f.message)
				return
			}
		}
		s.mu.Unlock()

		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next request with method whose path contains pathPart
// fail with status and message
func (s *Server) FailNext(method, pathPart string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: pathPart, status: status, message: message})
}

// Calls returns "METHOD /path" for every request received so far
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// UserAgent returns the User-Agent of the last request
func (s *Server) UserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgent
}

// AddRepo creates a repository with an initial commit holding README.md
func (s *Server) AddRepo(owner, name, defaultBranch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addRepoLocked(owner, name, defaultBranch, false)
}

func (s *Server) addRepoLocked(owner, name, defaultBranch string, private bool) *repo {
	r := &repo{
		owner:         owner,
		name:          name,
		defaultBranch: defaultBranch,
		private:       private,
		branches:      make(map[string]string),
		commits:       make(map[string]*Commit),
	}
	root := s.newCommitLocked(r, "", "Initial commit", map[string]string{"README.md": "# " + name + "\n"}, []string{"README.md"})
	r.branches[defaultBranch] = root.SHA
	s.repos[owner+"/"+name] = r
	return r
}

// PutFile commits content at path on branch and returns the blob SHA
func (s *Server) PutFile(owner, name, branch, path, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+name]
	if r == nil {
		panic("githubtest: unknown repo " + owner + "/" + name)
	}
	s.writeLocked(r, branch, path, content, "Update "+path)
	return BlobSHA(content)
}

// CreateBranch points a new branch at the tip of from
func (s *Server) CreateBranch(owner, name, branch, from string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+name]
	r.branches[branch] = r.branches[from]
}

// File returns the content and blob SHA of path on branch
func (s *Server) File(owner, name, branch, path string) (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+name]
	if r == nil {
		return "", "", false
	}
	tip, ok := r.branches[branch]
	if !ok {
		return "", "", false
	}
	content, ok := r.commits[tip].Files[path]
	if !ok {
		return "", "", false
	}
	return content, BlobSHA(content), true
}

// BranchSHA returns the commit a branch points at
func (s *Server) BranchSHA(owner, name, branch string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+name]
	if r == nil {
		return "", false
	}
	sha, ok := r.branches[branch]
	return sha, ok
}

// Branches returns the branch names of a repository, sorted
func (s *Server) Branches(owner, name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+name]
	var names []string
	for b := range r.branches {
		names = append(names, b)
	}
	sort.Strings(names)
	return names
}

// Commit returns a commit by SHA
func (s *Server) Commit(owner, name, sha string) (*Commit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+name]
	if r == nil {
		return nil, false
	}
	c, ok := r.commits[sha]
	return c, ok
}

// PullRequests returns the pull requests opened so far
func (s *Server) PullRequests(owner, name string) []PullRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+name]
	return append([]PullRequest(nil), r.pulls...)
}

// BlobSHA computes the git blob hash of content, as GitHub reports it
func BlobSHA(content string) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Server) newCommitLocked(r *repo, parent, message string, files map[string]string, changed []string) *Commit {
	s.seq++
	h := sha1.New()
	fmt.Fprintf(h, "commit %d %s %s", s.seq, parent, message)
	c := &Commit{
		SHA:     hex.EncodeToString(h.Sum(nil)),
		Parent:  parent,
		Message: message,
		Files:   files,
		Changed: changed,
	}
	r.commits[c.SHA] = c
	return c
}

func (s *Server) writeLocked(r *repo, branch, path, content, message string) *Commit {
	parent := r.commits[r.branches[branch]]
	files := make(map[string]string, len(parent.Files)+1)
	for k, v := range parent.Files {
		files[k] = v
	}
	files[path] = content
	c := s.newCommitLocked(r, parent.SHA, message, files, []string{path})
	r.branches[branch] = c.SHA
	return c
}

func (s *Server) lookup(w http.ResponseWriter, req *http.Request) *repo {
	r := s.repos[req.PathValue("owner")+"/"+req.PathValue("repo")]
	if r == nil {
		writeError(w, http.StatusNotFound, "Not Found")
	}
	return r
}

func (s *Server) handleUser(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"login": s.Login, "name": "The Octocat"})
}

func (s *Server) repoJSON(r *repo) map[string]interface{} {
	return map[string]interface{}{
		"name":           r.name,
		"full_name":      r.owner + "/" + r.name,
		"owner":          map[string]string{"login": r.owner},
		"default_branch": r.defaultBranch,
		"private":        r.private,
		"html_url":       "https://github.com/" + r.owner + "/" + r.name,
	}
}

func (s *Server) handleListRepos(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.repos))
	for k := range s.repos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.repoJSON(s.repos[k]))
	}
	s.writePage(w, req, out)
}

func (s *Server) handleCreateRepo(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Private bool   `json:"private"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "Repository creation failed.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[s.Login+"/"+body.Name]; ok {
		writeError(w, http.StatusUnprocessableEntity, "Repository creation failed.; name already exists on this account")
		return
	}
	r := s.addRepoLocked(s.Login, body.Name, "main", body.Private)
	writeJSON(w, http.StatusCreated, s.repoJSON(r))
}

func (s *Server) handleGetRepo(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.lookup(w, req); r != nil {
		writeJSON(w, http.StatusOK, s.repoJSON(r))
	}
}

func (s *Server) handleBranches(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.lookup(w, req)
	if r == nil {
		return
	}
	names := make([]string, 0, len(r.branches))
	for b := range r.branches {
		names = append(names, b)
	}
	sort.Strings(names)
	out := make([]map[string]interface{}, 0, len(names))
	for _, b := range names {
		out = append(out, map[string]interface{}{"name": b, "commit": map[string]string{"sha": r.branches[b]}})
	}
	s.writePage(w, req, out)
}

func (s *Server) handleGetRef(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.lookup(w, req)
	if r == nil {
		return
	}
	branch := req.PathValue("branch")
	sha, ok := r.branches[branch]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ref":    "refs/heads/" + branch,
		"object": map[string]string{"sha": sha, "type": "commit"},
	})
}

func (s *Server) handleCreateRef(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Problems parsing JSON")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.lookup(w, req)
	if r == nil {
		return
	}
	name, ok := strings.CutPrefix(body.Ref, "refs/heads/")
	if !ok || name == "" {
		writeError(w, http.StatusUnprocessableEntity, "Reference name must start with 'refs/heads/'")
		return
	}
	if _, exists := r.branches[name]; exists {
		writeError(w, http.StatusUnprocessableEntity, "Reference already exists")
		return
	}
	if _, ok := r.commits[body.SHA]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "Object does not exist")
		return
	}
	r.branches[name] = body.SHA
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ref":    body.Ref,
		"object": map[string]string{"sha": body.SHA, "type": "commit"},
	})
}

func (s *Server) handleGetContents(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.lookup(w, req)
	if r == nil {
		return
	}
	branch := req.URL.Query().Get("ref")
	if branch == "" {
		branch = r.defaultBranch
	}
	tip, ok := r.branches[branch]
	if !ok {
		writeError(w, http.StatusNotFound, "No commit found for the ref "+branch)
		return
	}
	files := r.commits[tip].Files
	path := strings.Trim(req.PathValue("path"), "/")

	if content, ok := files[path]; ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"type":     "file",
			"name":     path[strings.LastIndex(path, "/")+1:],
			"path":     path,
			"sha":      BlobSHA(content),
			"size":     len(content),
			"encoding": "base64",
			"content":  wrap(base64.StdEncoding.EncodeToString([]byte(content)), 60),
		})
		return
	}

	// Directory listing of immediate children
	prefix := path + "/"
	if path == "" {
		prefix = ""
	}
	seen := make(map[string]map[string]interface{})
	for p, content := range files {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		name, _, isDir := strings.Cut(rest, "/")
		if isDir {
			seen[name] = map[string]interface{}{"type": "dir", "name": name, "path": prefix + name, "sha": "", "size": 0}
		} else {
			seen[name] = map[string]interface{}{"type": "file", "name": name, "path": p, "sha": BlobSHA(content), "size": len(content)}
		}
	}
	if len(seen) == 0 {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]map[string]interface{}, 0, len(names))
	for _, n := range names {
		out = append(out, seen[n])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutContents(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
		Branch  string `json:"branch"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Problems parsing JSON")
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "content is not valid Base64")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.lookup(w, req)
	if r == nil {
		return
	}
	branch := body.Branch
	if branch == "" {
		branch = r.defaultBranch
	}
	tip, ok := r.branches[branch]
	if !ok {
		writeError(w, http.StatusNotFound, "Branch "+branch+" not found")
		return
	}
	path := strings.Trim(req.PathValue("path"), "/")
	current, exists := r.commits[tip].Files[path]
	switch {
	case exists && body.SHA == "":
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.\n\n\"sha\" wasn't supplied.")
		return
	case exists && body.SHA != BlobSHA(current):
		writeError(w, http.StatusConflict, path+" does not match "+body.SHA)
		return
	case !exists && body.SHA != "":
		writeError(w, http.StatusConflict, path+" does not match "+body.SHA)
		return
	}

	c := s.writeLocked(r, branch, path, string(decoded), body.Message)
	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{
		"content": map[string]interface{}{"path": path, "sha": BlobSHA(string(decoded))},
		"commit": map[string]interface{}{
			"sha":      c.SHA,
			"html_url": "https://github.com/" + r.owner + "/" + r.name + "/commit/" + c.SHA,
		},
	})
}

func (s *Server) handleCreatePull(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Head  string `json:"head"`
		Base  string `json:"base"`
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Problems parsing JSON")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.lookup(w, req)
	if r == nil {
		return
	}
	if _, ok := r.branches[body.Head]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "Validation Failed; head invalid")
		return
	}
	if _, ok := r.branches[body.Base]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "Validation Failed; base invalid")
		return
	}
	for _, pr := range r.pulls {
		if pr.Head == body.Head {
			writeError(w, http.StatusUnprocessableEntity, "Validation Failed; A pull request already exists for "+r.owner+":"+body.Head+".")
			return
		}
	}
	pr := PullRequest{Number: len(r.pulls) + 1, Head: body.Head, Base: body.Base, Title: body.Title, Body: body.Body}
	r.pulls = append(r.pulls, pr)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"number":   pr.Number,
		"state":    "open",
		"html_url": fmt.Sprintf("https://github.com/%s/%s/pull/%d", r.owner, r.name, pr.Number),
	})
}

// writePage serves one page of items with a Link header pointing at the next
func (s *Server) writePage(w http.ResponseWriter, req *http.Request, items []map[string]interface{}) {
	size, _ := strconv.Atoi(req.URL.Query().Get("per_page"))
	if size <= 0 {
		size = 30
	}
	if s.PageSize > 0 && s.PageSize < size {
		size = s.PageSize
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	if end < len(items) {
		next := *req.URL
		q := next.Query()
		q.Set("page", strconv.Itoa(page+1))
		next.RawQuery = q.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<%s%s>; rel="next", <%s%s>; rel="first"`, s.URL, next.RequestURI(), s.URL, req.URL.Path))
	}
	writeJSON(w, http.StatusOK, items[start:end])
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	b.WriteByte('\n')
	return b.String()
}
