package citation

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/matsen/folio/internal/source"
)

// FormatShort renders the inline label for src in format f.
// A nil source renders as ShortPlaceholder in every format.
func FormatShort(src *source.Source, f Format) (label string) {
	if src == nil {
		return ShortPlaceholder
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("source", src.ID).Warnf("formatting short citation: %v", r)
			label = ShortPlaceholder
		}
	}()

	t := lookup(f)

	if name := surname(src.FirstAuthor()); name != "" {
		return t.author(name, src.Year())
	}
	if src.Title != "" {
		return t.title(src.Title)
	}
	return t.placeholder()
}

// FormatFull renders the reference-list form of src. The output does not
// depend on the selected format.
func FormatFull(src *source.Source) (citation string) {
	if src == nil {
		return FullPlaceholder
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("source", src.ID).Warnf("formatting full citation: %v", r)
			citation = FullPlaceholder
		}
	}()

	var parts []string

	if authors := authorClause(src.Authors); authors != "" {
		parts = append(parts, sentence(authors))
	}
	if year := src.Year(); year != "" {
		parts = append(parts, "("+year+").")
	}
	if title := strings.TrimSpace(src.Title); title != "" {
		parts = append(parts, sentence(title))
	}
	if pub := strings.TrimSpace(source.Value(src.Publication)); pub != "" {
		parts = append(parts, sentence(pub))
	}

	if doi := strings.TrimSpace(source.Value(src.DOI)); doi != "" {
		parts = append(parts, "https://doi.org/"+doi)
	} else if url := strings.TrimSpace(source.Value(src.URL)); url != "" {
		parts = append(parts, url)
	}

	if len(parts) == 0 {
		return FullPlaceholder
	}
	return strings.Join(parts, " ")
}

// EditorLabel is the bracketless label shown in plain-text listings,
// e.g. "Lovelace, 1843".
func EditorLabel(src *source.Source) string {
	if src == nil {
		return FullPlaceholder
	}
	if name := surname(src.FirstAuthor()); name != "" {
		if year := src.Year(); year != "" {
			return name + ", " + year
		}
		return name
	}
	if src.Title != "" {
		return truncate(src.Title, 30)
	}
	return FullPlaceholder
}

// sentence terminates s with a period unless it already ends with one.
func sentence(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}

// authorClause joins the non-blank authors: one verbatim, two with "&",
// three or more as "first et al.".
func authorClause(authors []string) string {
	var valid []string
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			valid = append(valid, a)
		}
	}

	switch len(valid) {
	case 0:
		return ""
	case 1:
		return valid[0]
	case 2:
		return valid[0] + " & " + valid[1]
	default:
		return valid[0] + " et al."
	}
}
