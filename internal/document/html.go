package document

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/matsen/folio/internal/source"
)

// RenderCitationSpan renders a citation the way the editor serializes it
// to HTML. The span text is the stored label.
func RenderCitationSpan(c Citation) string {
	var b strings.Builder
	b.WriteString(`<span class="citation"`)
	if c.ID != "" {
		fmt.Fprintf(&b, ` data-citation-id="%s"`, html.EscapeString(c.ID))
	}
	if c.Type != "" {
		fmt.Fprintf(&b, ` data-citation-type="%s"`, html.EscapeString(string(c.Type)))
	}
	label := c.LabelOr("")
	if label != "" {
		fmt.Fprintf(&b, ` data-citation-label="%s"`, html.EscapeString(label))
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(label))
	b.WriteString("</span>")
	return b.String()
}

// ParseCitationSpans extracts the citations from editor HTML. Only
// span[data-citation-id] elements count; the type defaults to website and
// a missing label attribute falls back to the span text.
func ParseCitationSpans(markup string) ([]Citation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var out []Citation
	doc.Find("span[data-citation-id]").Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr("data-citation-id", ""))
		if id == "" {
			return
		}
		c := Citation{ID: id, Type: source.DefaultType}
		if raw := strings.TrimSpace(s.AttrOr("data-citation-type", "")); raw != "" {
			c.Type, _ = source.ParseType(raw)
		}
		if label, ok := s.Attr("data-citation-label"); ok {
			c.Label = &label
		} else if text := strings.TrimSpace(s.Text()); text != "" {
			c.Label = &text
		}
		out = append(out, c)
	})
	return out, nil
}
