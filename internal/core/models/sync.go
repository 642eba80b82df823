package models

import "time"

// SaveMode selects how an edit is persisted
type SaveMode string

const (
	// SaveDirect commits straight to the handle's branch
	SaveDirect SaveMode = "direct"
	// SaveReview commits to a fresh branch and opens a pull request
	SaveReview SaveMode = "review"
)

// ParseSaveMode accepts "direct" or "review"; empty means direct
func ParseSaveMode(s string) (SaveMode, error) {
	switch SaveMode(s) {
	case "", SaveDirect:
		return SaveDirect, nil
	case SaveReview, "pr", "pull-request":
		return SaveReview, nil
	}
	return "", &InvalidValueError{Field: "mode", Value: s}
}

// PullRequestRef identifies an opened pull request
type PullRequestRef struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// SyncResult is the outcome of one save
type SyncResult struct {
	Mode        SaveMode        `json:"mode"`
	SHA         string          `json:"sha"`
	CommitSHA   string          `json:"commit_sha,omitempty"`
	Branch      string          `json:"branch"`
	Message     string          `json:"message"` // commit message actually used
	PullRequest *PullRequestRef `json:"pull_request,omitempty"`
}

// HistoryEntry is a recorded save
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Project   string    `json:"project"`
	Path      string    `json:"path"`
	Branch    string    `json:"branch"`
	Mode      SaveMode  `json:"mode"`
	OldSHA    string    `json:"old_sha"`
	NewSHA    string    `json:"new_sha"`
	PRNumber  int       `json:"pr_number,omitempty"`
	PRURL     string    `json:"pr_url,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntryFor describes the save of h that produced res. OldSHA is the
// blob the edit started from.
func HistoryEntryFor(h FileHandle, res *SyncResult) HistoryEntry {
	entry := HistoryEntry{
		Project: h.Project.Key(),
		Path:    h.Path,
		Branch:  res.Branch,
		Mode:    res.Mode,
		OldSHA:  h.SHA,
		NewSHA:  res.SHA,
		Message: res.Message,
	}
	if res.PullRequest != nil {
		entry.PRNumber = res.PullRequest.Number
		entry.PRURL = res.PullRequest.URL
	}
	return entry
}

// Draft remembers where a locally pulled file came from
type Draft struct {
	LocalPath string
	Project   Project
	Path      string
	Branch    string
	SHA       string
	PulledAt  time.Time
}
