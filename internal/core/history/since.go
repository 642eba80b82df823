// Package history parses filters for the save history.
package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Filter narrows a history listing
type Filter struct {
	Project string    // "owner/repo"
	Since   time.Time // zero means no bound
	Mode    string    // "direct", "review" or ""
}

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseSince understands "yesterday", "last week", "3 days ago", short
// durations such as "36h" or "7d", and plain dates
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if d, ok := parseShortDuration(s); ok {
		return now.Add(-d), nil
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006/01/02",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, nil
		}
	}

	// "last-week" reads the same as "last week"
	text := strings.ToLower(strings.ReplaceAll(s, "-", " "))
	switch text {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case "last week":
		return now.AddDate(0, 0, -7), nil
	case "last month":
		return now.AddDate(0, -1, 0), nil
	case "last year":
		return now.AddDate(-1, 0, 0), nil
	}

	result, err := newParser().Parse(text, now)
	if err == nil && result != nil {
		return result.Time, nil
	}
	return time.Time{}, fmt.Errorf("cannot understand date %q", s)
}

// parseShortDuration accepts Go durations plus a "d" suffix for days
func parseShortDuration(s string) (time.Duration, bool) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// ParseQuery reads "project:<owner/repo> since:<when> mode:<mode>" tokens.
// Words that are not filters are joined into the since expression, so
// "since last week" and "last week" both work.
func ParseQuery(query string, now time.Time) (Filter, error) {
	var f Filter
	var rest []string

	for _, token := range strings.Fields(query) {
		switch {
		case strings.HasPrefix(token, "project:"):
			f.Project = strings.TrimPrefix(token, "project:")
		case strings.HasPrefix(token, "mode:"):
			f.Mode = strings.TrimPrefix(token, "mode:")
		case strings.HasPrefix(token, "since:"):
			rest = append(rest, strings.TrimPrefix(token, "since:"))
		case strings.HasPrefix(token, "after:"):
			rest = append(rest, strings.TrimPrefix(token, "after:"))
		case token == "since":
		default:
			rest = append(rest, token)
		}
	}

	if len(rest) > 0 {
		since, err := ParseSince(strings.Join(rest, " "), now)
		if err != nil {
			return f, err
		}
		f.Since = since
	}
	return f, nil
}
