// Package template resolves prompt templates against a text selection and its
// page context.
//
// DESIGN: Templates use single-brace {placeholder} syntax. Resolution runs in
// two passes:
//  1. Built-in placeholders ({text}, {context}, {context.title}, {time}, ...)
//  2. Generic pass: any remaining {name} is looked up as a dynamic context
//     field; unknown placeholders stay in the output as literal text.
//
// Unknown placeholders never fail a render. The {text} requirement is enforced
// at save time via Validate, not at render time.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pagelens/pagelens/internal/selection"
)

// ErrInvalidTemplate is returned when a template cannot be rendered at all
// (empty template). Missing variables are not an error.
var ErrInvalidTemplate = fmt.Errorf("invalid prompt template")

// textAliases are the placeholders that must appear (one of them) in a valid
// template. All resolve to the selected text.
var textAliases = []string{"{text}", "{selected_text}", "{selection}"}

// placeholderRe matches {name} and {context.field} placeholders.
var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)?)\}`)

// Validate checks that a template contains the selection-text placeholder.
// Called on save, so broken templates are rejected before they are ever used.
func Validate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return fmt.Errorf("%w: template is empty", ErrInvalidTemplate)
	}
	for _, alias := range textAliases {
		if strings.Contains(tmpl, alias) {
			return nil
		}
	}
	return fmt.Errorf("%w: template must contain the {text} placeholder", ErrInvalidTemplate)
}

// Apply renders tmpl with the selected text and page context, then normalizes
// whitespace: each line is trimmed and empty lines are dropped.
func Apply(tmpl, text string, ctx selection.Context) (string, error) {
	return applyAt(tmpl, text, ctx, time.Now())
}

func applyAt(tmpl, text string, ctx selection.Context, now time.Time) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("%w: template is empty", ErrInvalidTemplate)
	}

	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := resolve(name, text, ctx, now); ok {
			return v
		}
		// Unresolved placeholders are harmless literal text.
		return match
	})

	return normalize(out), nil
}

// resolve maps a placeholder name to its value. Built-ins win over dynamic
// context keys so a page cannot shadow {text}.
func resolve(name, text string, ctx selection.Context, now time.Time) (string, bool) {
	switch name {
	case "text", "selected_text", "selection":
		return text, true
	case "context":
		return ctx.Render(), true
	case "title":
		return ctx.Title, true
	case "url":
		return ctx.URL, true
	case "hostname":
		return ctx.Hostname, true
	case "language":
		return ctx.Language, true
	case "time":
		// Locale-style formatting of the selection's capture time.
		if ctx.Timestamp.IsZero() {
			return "", true
		}
		return ctx.Timestamp.Format("3:04 PM"), true
	case "date":
		if ctx.Timestamp.IsZero() {
			return "", true
		}
		return ctx.Timestamp.Format("January 2, 2006"), true
	case "timestamp":
		// Wall-clock at render time, distinct from the capture time
		// available via {context.timestamp}.
		return now.Format(time.RFC3339), true
	case "date_iso":
		return now.Format("2006-01-02"), true
	case "time_iso":
		return now.Format("15:04:05"), true
	}

	if field, ok := strings.CutPrefix(name, "context."); ok {
		if v, found := ctx.Field(field); found {
			return v, true
		}
		return "", false
	}

	// Generic second pass: dynamic context keys.
	if v, found := ctx.Field(name); found {
		return v, true
	}
	return "", false
}

// normalize trims every line and drops empty ones so the final prompt is
// deterministic regardless of template formatting.
func normalize(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
