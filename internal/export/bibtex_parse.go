package export

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/matsen/folio/internal/source"
)

// BibTeXIndex indexes the entries of an existing .bib file so an export
// can skip sources already present.
type BibTeXIndex struct {
	// Keys holds the citation keys seen.
	Keys map[string]bool
	// DOIs maps normalized DOIs to citation keys.
	DOIs map[string]string
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// Has reports whether src is already in the index. A DOI match wins; the
// citation key is the fallback for sources without a DOI.
func (idx *BibTeXIndex) Has(src source.Source) bool {
	if doi := source.Value(src.DOI); doi != "" {
		if _, exists := idx.DOIs[normalizeDOI(doi)]; exists {
			return true
		}
	}
	return idx.Keys[CitationKey(src)]
}

// Missing returns the sources not yet in the index, in order.
func (idx *BibTeXIndex) Missing(srcs []source.Source) []source.Source {
	var out []source.Source
	for _, s := range srcs {
		if !idx.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

var (
	entryStart = regexp.MustCompile(`@\w+\{([^,]+),`)
	doiField   = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// ParseBibTeX builds an index from BibTeX text.
func ParseBibTeX(r io.Reader) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()
	scanner := bufio.NewScanner(r)
	var currentKey string

	for scanner.Scan() {
		line := scanner.Text()

		if m := entryStart.FindStringSubmatch(line); len(m) > 1 {
			currentKey = strings.TrimSpace(m[1])
			idx.Keys[currentKey] = true
		}
		if m := doiField.FindStringSubmatch(line); len(m) > 1 {
			if doi := normalizeDOI(m[1]); doi != "" && currentKey != "" {
				idx.DOIs[doi] = currentKey
			}
		}
	}

	return idx, scanner.Err()
}

// ParseBibTeXFile indexes an existing .bib file. A missing file yields an
// empty index.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewBibTeXIndex(), nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseBibTeX(f)
}

// normalizeDOI strips resolver prefixes and lowercases a DOI.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "DOI:", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return strings.ToLower(doi)
}

// AppendToBibFile appends BibTeX content to a file.
func AppendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString("\n" + content)
	return err
}
