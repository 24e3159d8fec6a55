// Package selection defines the page context captured with a text selection.
//
// A Context is built by the extension shell at selection time and travels with
// the request through templating, the provider call, and (when history is
// enabled) into the stored history entry. It is never persisted on its own.
package selection

import (
	"fmt"
	"strings"
	"time"
)

// Context describes the page a selection was made on.
type Context struct {
	Title     string            `json:"title"`
	URL       string            `json:"url"`
	Hostname  string            `json:"hostname,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Language  string            `json:"language,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"` // dynamic keys resolvable by templates
}

// Render returns a human-readable multi-line summary for the {context}
// placeholder. Empty fields are omitted.
func (c Context) Render() string {
	var lines []string
	if c.Title != "" {
		lines = append(lines, fmt.Sprintf("Page: %s", c.Title))
	}
	if c.URL != "" {
		lines = append(lines, fmt.Sprintf("URL: %s", c.URL))
	}
	if c.Hostname != "" {
		lines = append(lines, fmt.Sprintf("Site: %s", c.Hostname))
	}
	if !c.Timestamp.IsZero() {
		lines = append(lines, fmt.Sprintf("Captured: %s", c.Timestamp.Format(time.RFC3339)))
	}
	if c.Language != "" {
		lines = append(lines, fmt.Sprintf("Language: %s", c.Language))
	}
	return strings.Join(lines, "\n")
}

// Field resolves a context field by name. Built-in fields are checked first,
// then the dynamic Extra map. The second return reports whether the field
// exists.
func (c Context) Field(name string) (string, bool) {
	switch name {
	case "title":
		return c.Title, true
	case "url":
		return c.URL, true
	case "hostname":
		return c.Hostname, true
	case "language":
		return c.Language, true
	case "timestamp":
		if c.Timestamp.IsZero() {
			return "", true
		}
		return c.Timestamp.Format(time.RFC3339), true
	}
	if v, ok := c.Extra[name]; ok {
		return v, true
	}
	return "", false
}
