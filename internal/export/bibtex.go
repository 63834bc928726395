// Package export renders notebook sources in bibliography formats.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matsen/folio/internal/source"
)

// ToBibTeX converts a source to a BibTeX entry keyed by CitationKey.
func ToBibTeX(src source.Source) string {
	return toBibTeX(src, CitationKey(src))
}

func toBibTeX(src source.Source, key string) string {
	entryType := EntryType(src.Type)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, key))

	if authors := formatAuthors(src.Authors); authors != "" {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", authors))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(src.Title)))

	if pub := strings.TrimSpace(source.Value(src.Publication)); pub != "" {
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", venueField(entryType), escapeLatex(pub)))
	}

	if year := src.Year(); year != "" {
		b.WriteString(fmt.Sprintf("  year = {%s},\n", year))
	}
	if month := month(src); month != "" {
		b.WriteString(fmt.Sprintf("  month = {%s},\n", month))
	}

	if doi := strings.TrimSpace(source.Value(src.DOI)); doi != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", doi))
	}
	if url := strings.TrimSpace(source.Value(src.URL)); url != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", url))
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple sources. Clashing citation keys get a
// numeric suffix.
func ToBibTeXList(srcs []source.Source) string {
	used := map[string]bool{}
	var entries []string
	for _, src := range srcs {
		key := uniqueKey(used, CitationKey(src))
		used[key] = true
		entries = append(entries, toBibTeX(src, key))
	}
	return strings.Join(entries, "\n")
}

// EntryType returns the BibTeX entry type for a source type.
func EntryType(t source.Type) string {
	switch t {
	case source.TypeBook:
		return "book"
	case source.TypeArticle, source.TypePaper:
		return "article"
	default:
		return "misc"
	}
}

func venueField(entryType string) string {
	switch entryType {
	case "article":
		return "journal"
	case "book":
		return "publisher"
	default:
		return "howpublished"
	}
}

var nonKeyChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// CitationKey builds a key like "Lovelace1843" from the first author's
// surname and the year. Sources without an author fall back to the id.
func CitationKey(src source.Source) string {
	var surname string
	if fields := strings.Fields(src.FirstAuthor()); len(fields) > 0 {
		surname = nonKeyChars.ReplaceAllString(fields[len(fields)-1], "")
	}
	if surname == "" {
		return src.ID
	}
	return surname + src.Year()
}

// uniqueKey returns key, or key-2, key-3... if taken.
func uniqueKey(used map[string]bool, key string) string {
	if !used[key] {
		return key
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", key, i)
		if !used[candidate] {
			return candidate
		}
	}
}

// month returns the month component of the publication date, if any.
func month(src source.Source) string {
	parts := strings.Split(source.Value(src.PublicationDate), "-")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimLeft(strings.TrimSpace(parts[1]), "0")
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First".
// The last whitespace-separated word is taken as the surname.
func formatAuthors(authors []string) string {
	var formatted []string
	for _, a := range authors {
		fields := strings.Fields(a)
		switch len(fields) {
		case 0:
			continue
		case 1:
			formatted = append(formatted, escapeLatex(fields[0]))
		default:
			last := fields[len(fields)-1]
			first := strings.Join(fields[:len(fields)-1], " ")
			formatted = append(formatted, escapeLatex(last+", "+first))
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
