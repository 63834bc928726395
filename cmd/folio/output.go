package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/folio/internal/annotation"
	"github.com/matsen/folio/internal/binder"
	"github.com/matsen/folio/internal/source"
)

// Title truncation lengths by context
const (
	ListTitleMaxLen   = 50 // Used in list command output
	DetailTitleMaxLen = 70 // Used in get command detail view
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	ID     string `json:"id,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CiteResponse is the response for the cite command.
type CiteResponse struct {
	NotebookID string           `json:"notebook_id"`
	Rendering  binder.Rendering `json:"rendering"`
	Citations  int              `json:"citations"`
}

// ImportResponse is the response for source import.
type ImportResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// RenderResponse is the response for notebook render.
type RenderResponse struct {
	NotebookID string             `json:"notebook_id"`
	Format     string             `json:"format"`
	Citations  []binder.Rendering `json:"citations"`
	Dangling   []string           `json:"dangling"`
}

// truncateString shortens s to maxLen runes, adding "..." when cut.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// formatAuthorsShort renders an author list as "First et al." for list views.
func formatAuthorsShort(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	default:
		return authors[0] + " et al."
	}
}

// formatSourceLine renders a source as a single list line.
func formatSourceLine(src source.Source) string {
	line := fmt.Sprintf("%s  %-8s %s", src.ID, src.Type, truncateString(src.Title, ListTitleMaxLen))
	if a := formatAuthorsShort(src.Authors); a != "" {
		line += "  (" + a
		if y := src.Year(); y != "" {
			line += ", " + y
		}
		line += ")"
	}
	return line
}

// formatSourceDetail renders a source for the get command.
func formatSourceDetail(src source.Source) string {
	var sb strings.Builder
	sb.WriteString(src.ID + "\n")
	sb.WriteString(fmt.Sprintf("  Title: %s\n", truncateString(src.Title, DetailTitleMaxLen)))
	sb.WriteString(fmt.Sprintf("  Type: %s\n", src.Type))
	if len(src.Authors) > 0 {
		sb.WriteString(fmt.Sprintf("  Authors: %s\n", strings.Join(src.Authors, "; ")))
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"Publication", src.Publication},
		{"Date", src.PublicationDate},
		{"URL", src.URL},
		{"DOI", src.DOI},
		{"Paper", src.PaperID},
	} {
		if v := source.Value(f.v); v != "" {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", f.name, v))
		}
	}
	return sb.String()
}

// formatHighlightLine renders a highlight as a single list line.
func formatHighlightLine(h annotation.Highlight) string {
	what := truncateString(h.Content.Text, ListTitleMaxLen)
	if h.Content.IsImage() {
		what = "[image]"
	}
	line := fmt.Sprintf("%s  p.%d  %s", h.ID, h.Position.PageNumber, what)
	if h.Comment != nil && h.Comment.Text != "" {
		line += "  // " + strings.TrimSpace(h.Comment.Emoji+" "+h.Comment.Text)
	}
	return line
}
