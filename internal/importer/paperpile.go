// Package importer converts reference-manager exports into sources.
package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/matsen/folio/internal/source"
)

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*f = ""
		return nil
	}
	switch v.(type) {
	case string, float64:
	default:
		return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Errorf("cannot unmarshal %s into FlexibleString: %w", string(data), err)
	}
	*f = FlexibleString(s)
	return nil
}

func (f FlexibleString) String() string {
	return string(f)
}

// PaperpileEntry represents a single entry from a Paperpile JSON export.
type PaperpileEntry struct {
	ID        string   `json:"_id"`
	Citekey   string   `json:"citekey"`
	PubType   string   `json:"pubtype"`
	DOI       string   `json:"doi"`
	Title     string   `json:"title"`
	Journal   string   `json:"journal"`
	URL       []string `json:"url"`
	Published struct {
		Year  FlexibleString `json:"year"`
		Month FlexibleString `json:"month"`
		Day   FlexibleString `json:"day"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"author"`
}

// ParsePaperpile parses a Paperpile JSON export into create requests.
// Entries that cannot be converted are reported and skipped.
func ParsePaperpile(data []byte) ([]source.Partial, []error) {
	var entries []PaperpileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, []error{fmt.Errorf("parsing Paperpile JSON: %w", err)}
	}

	var out []source.Partial
	var errs []error

	for i, entry := range entries {
		p, err := paperpileEntryToPartial(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, entry.Citekey, err))
			continue
		}
		out = append(out, p)
	}

	return out, errs
}

// pubTypes maps Paperpile's RIS-style publication types onto source types.
var pubTypes = map[string]source.Type{
	"JOUR":   source.TypeArticle,
	"MGZN":   source.TypeArticle,
	"NEWS":   source.TypeArticle,
	"BOOK":   source.TypeBook,
	"CHAP":   source.TypeBook,
	"EDBOOK": source.TypeBook,
	"ELEC":   source.TypeWebsite,
	"WEB":    source.TypeWebsite,
	"VIDEO":  source.TypeVideo,
	"SOUND":  source.TypePodcast,
	"CONF":   source.TypePaper,
	"CPAPER": source.TypePaper,
	"RPRT":   source.TypePaper,
	"THES":   source.TypePaper,
	"UNPB":   source.TypePaper,
}

func paperpileEntryToPartial(entry PaperpileEntry) (source.Partial, error) {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return source.Partial{}, fmt.Errorf("missing required field 'title'")
	}

	authors := make([]string, 0, len(entry.Author))
	for _, a := range entry.Author {
		if name := strings.TrimSpace(a.First + " " + a.Last); name != "" {
			authors = append(authors, name)
		}
	}

	typ, ok := pubTypes[strings.ToUpper(entry.PubType)]
	if !ok {
		typ = source.TypeOther
		if entry.Journal != "" {
			typ = source.TypeArticle
		}
	}

	p := source.Partial{
		Title:           &title,
		Authors:         &authors,
		Type:            &typ,
		Publication:     source.String(entry.Journal),
		PublicationDate: source.String(publicationDate(entry)),
		DOI:             source.String(entry.DOI),
	}
	if len(entry.URL) > 0 {
		p.URL = source.String(entry.URL[0])
	}
	return p, nil
}

// publicationDate builds YYYY, YYYY-MM or YYYY-MM-DD from the parts that
// parse. An unusable year yields "".
func publicationDate(entry PaperpileEntry) string {
	year, err := strconv.Atoi(entry.Published.Year.String())
	if err != nil || year <= 0 {
		return ""
	}
	date := fmt.Sprintf("%04d", year)

	month, err := strconv.Atoi(entry.Published.Month.String())
	if err != nil || month < 1 || month > 12 {
		return date
	}
	date += fmt.Sprintf("-%02d", month)

	day, err := strconv.Atoi(entry.Published.Day.String())
	if err != nil || day < 1 || day > 31 {
		return date
	}
	return date + fmt.Sprintf("-%02d", day)
}
