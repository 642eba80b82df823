package models

import "sort"

// ContextSelection is the set of file paths attached to completion requests
type ContextSelection struct {
	paths map[string]struct{}
}

// NewContextSelection builds a selection from paths
func NewContextSelection(paths ...string) *ContextSelection {
	c := &ContextSelection{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		c.paths[p] = struct{}{}
	}
	return c
}

// Toggle adds path if absent, removes it if present.
// Returns true if path is selected afterwards.
func (c *ContextSelection) Toggle(path string) bool {
	if c.paths == nil {
		c.paths = make(map[string]struct{})
	}
	if _, ok := c.paths[path]; ok {
		delete(c.paths, path)
		return false
	}
	c.paths[path] = struct{}{}
	return true
}

// Contains reports whether path is selected
func (c *ContextSelection) Contains(path string) bool {
	_, ok := c.paths[path]
	return ok
}

// Len returns the number of selected paths
func (c *ContextSelection) Len() int {
	return len(c.paths)
}

// Paths returns the selected paths in sorted order
func (c *ContextSelection) Paths() []string {
	out := make([]string, 0, len(c.paths))
	for p := range c.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
