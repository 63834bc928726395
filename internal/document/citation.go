package document

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/matsen/folio/internal/source"
)

// CitationMarkType is the mark type of inline citations.
const CitationMarkType = "citation"

// Citation is the typed view of a citation mark's attributes.
//
// ID is a weak reference to a catalog source. Type and Label are copies
// taken at insertion time and are never refreshed.
type Citation struct {
	ID    string      `json:"id"`
	Type  source.Type `json:"type"`
	Label *string     `json:"label"`
}

// LabelOr returns the stored label, or fallback when none was stored.
func (c Citation) LabelOr(fallback string) string {
	if c.Label == nil || *c.Label == "" {
		return fallback
	}
	return *c.Label
}

// NewCitationMark builds a citation mark from c.
func NewCitationMark(c Citation) Mark {
	typ := c.Type
	if typ == "" {
		typ = source.DefaultType
	}
	attrs := map[string]any{
		"id":    c.ID,
		"type":  string(typ),
		"label": nil,
	}
	if c.Label != nil {
		attrs["label"] = *c.Label
	}
	return Mark{Type: CitationMarkType, Attrs: attrs}
}

// CitationFromMark reads a citation out of a mark. It reports false for
// marks of another type and for citations without an id.
func CitationFromMark(m Mark) (Citation, bool) {
	if m.Type != CitationMarkType {
		return Citation{}, false
	}
	id := strings.TrimSpace(cast.ToString(m.Attrs["id"]))
	if id == "" {
		return Citation{}, false
	}

	c := Citation{ID: id, Type: source.DefaultType}
	if raw := strings.TrimSpace(cast.ToString(m.Attrs["type"])); raw != "" {
		c.Type, _ = source.ParseType(raw)
	}
	if v, ok := m.Attrs["label"]; ok && v != nil {
		label := cast.ToString(v)
		c.Label = &label
	}
	return c, true
}

// CitationRun is a citation mark found in a document.
type CitationRun struct {
	Citation Citation
	Mark     Mark
	Text     string
	Offset   int
}

// Citations lists the citation marks in document order. Marks without a
// usable id are skipped.
func (d *Doc) Citations() []CitationRun {
	var out []CitationRun
	for _, run := range d.MarkedRuns(CitationMarkType) {
		c, ok := CitationFromMark(run.Mark)
		if !ok {
			continue
		}
		out = append(out, CitationRun{Citation: c, Mark: run.Mark, Text: run.Text, Offset: run.Offset})
	}
	return out
}
