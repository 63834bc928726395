// Package citation renders sources as inline labels and full reference text.
//
// All formatting functions are pure and total: they never panic and never
// return an error. Anything unexpected degrades to a fixed placeholder.
package citation

import "strings"

// Format selects the style used for short inline labels.
type Format string

const (
	Simple  Format = "simple"
	APA     Format = "apa"
	MLA     Format = "mla"
	Chicago Format = "chicago"
)

// DefaultFormat is used when no format has been chosen.
const DefaultFormat = Simple

// Placeholders returned when nothing better can be rendered.
const (
	ShortPlaceholder = "[?]"
	FullPlaceholder  = "Unknown source"
)

// Info describes a format for style pickers.
type Info struct {
	Key         Format `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// template is the per-style formatting record. Every style shares the same
// fallback chain (surname+year, surname, title, placeholder); only the
// punctuation and limits differ.
type template struct {
	info        Info
	open, close string
	yearSep     string
	withYear    bool
	titleMax    int
	quoteTitle  bool
}

var templates = map[Format]template{
	Simple: {
		info:     Info{Key: Simple, Name: "Simple", Description: "[Author, Year]"},
		open:     "[",
		close:    "]",
		yearSep:  ", ",
		withYear: true,
		titleMax: 20,
	},
	APA: {
		info:       Info{Key: APA, Name: "APA", Description: "American Psychological Association"},
		open:       "(",
		close:      ")",
		yearSep:    ", ",
		withYear:   true,
		titleMax:   25,
		quoteTitle: true,
	},
	MLA: {
		info:       Info{Key: MLA, Name: "MLA", Description: "Modern Language Association"},
		open:       "(",
		close:      ")",
		titleMax:   25,
		quoteTitle: true,
	},
	Chicago: {
		info:       Info{Key: Chicago, Name: "Chicago", Description: "Chicago Manual of Style"},
		open:       "(",
		close:      ")",
		yearSep:    " ",
		withYear:   true,
		titleMax:   25,
		quoteTitle: true,
	},
}

// order is the display order of the format catalog.
var order = []Format{Simple, APA, MLA, Chicago}

// Formats returns the format catalog in display order.
func Formats() []Info {
	infos := make([]Info, 0, len(order))
	for _, f := range order {
		infos = append(infos, templates[f].info)
	}
	return infos
}

// ParseFormat resolves a format key. Unknown keys yield DefaultFormat and false.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := templates[f]; ok {
		return f, true
	}
	return DefaultFormat, false
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	_, ok := templates[f]
	return ok
}

func lookup(f Format) template {
	if t, ok := templates[f]; ok {
		return t
	}
	return templates[DefaultFormat]
}

func (t template) placeholder() string {
	return t.open + "?" + t.close
}

func (t template) author(surname, year string) string {
	if t.withYear && year != "" {
		return t.open + surname + t.yearSep + year + t.close
	}
	return t.open + surname + t.close
}

func (t template) title(title string) string {
	short := truncate(title, t.titleMax)
	if t.quoteTitle {
		short = `"` + short + `"`
	}
	return t.open + short + t.close
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// surname returns the last whitespace-separated token of an author name.
func surname(author string) string {
	fields := strings.Fields(author)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
