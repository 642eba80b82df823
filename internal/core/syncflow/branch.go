package syncflow

import (
	"strconv"
	"sync"
	"time"
)

// DefaultBranchPrefix is prepended to review branch names
const DefaultBranchPrefix = "escriba/edit-"

// BranchNamer hands out "<prefix><unix-ms>" names from a clock that never
// repeats or goes backwards within one process
type BranchNamer struct {
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

// NewBranchNamer creates a namer. A nil now uses time.Now.
func NewBranchNamer(prefix string, now func() time.Time) *BranchNamer {
	if prefix == "" {
		prefix = DefaultBranchPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &BranchNamer{prefix: prefix, now: now}
}

// Next returns a name strictly later than any returned before
func (n *BranchNamer) Next() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return n.prefix + strconv.FormatInt(ms, 10)
}
