package document

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/matsen/folio/internal/source"
)

func docWith(texts ...string) *Doc {
	para := &Node{Type: TypeParagraph}
	for _, t := range texts {
		para.Content = append(para.Content, &Node{Type: TypeText, Text: t})
	}
	return &Doc{Root: &Node{Type: TypeDoc, Content: []*Node{para}}}
}

func strp(s string) *string { return &s }

func citeMark(id, label string) Mark {
	return NewCitationMark(Citation{ID: id, Type: source.TypeBook, Label: strp(label)})
}

func TestSetMark_Selection(t *testing.T) {
	d := docWith("hello world")
	d.Selection = Selection{From: 6, To: 11}

	if err := d.SetMark(citeMark("s1", "[Lovelace, 1843]")); err != nil {
		t.Fatalf("SetMark() error = %v", err)
	}

	para := d.Root.Content[0]
	if len(para.Content) != 2 {
		t.Fatalf("got %d text nodes, want 2", len(para.Content))
	}
	if para.Content[0].Text != "hello " || len(para.Content[0].Marks) != 0 {
		t.Errorf("first run = %+v", para.Content[0])
	}
	if para.Content[1].Text != "world" || len(para.Content[1].Marks) != 1 {
		t.Errorf("second run = %+v", para.Content[1])
	}
	if d.Text() != "hello world" {
		t.Errorf("Text() = %q", d.Text())
	}
}

func TestSetMark_SpansNodes(t *testing.T) {
	d := docWith("abc", "def")
	d.Selection = Selection{From: 2, To: 4}

	if err := d.SetMark(citeMark("s1", "x")); err != nil {
		t.Fatalf("SetMark() error = %v", err)
	}

	runs := d.MarkedRuns(CitationMarkType)
	if len(runs) != 2 || runs[0].Text != "c" || runs[1].Text != "d" {
		t.Fatalf("marked runs = %+v", runs)
	}
	if runs[0].Offset != 2 || runs[1].Offset != 3 {
		t.Errorf("offsets = %d, %d", runs[0].Offset, runs[1].Offset)
	}
}

func TestSetMark_ReplacesSameType(t *testing.T) {
	d := docWith("word")
	d.Selection = Selection{From: 0, To: 4}
	d.SetMark(citeMark("old", "a"))
	d.SetMark(citeMark("new", "b"))

	marks := d.Root.Content[0].Content[0].Marks
	if len(marks) != 1 {
		t.Fatalf("got %d marks, want 1", len(marks))
	}
	if c, _ := CitationFromMark(marks[0]); c.ID != "new" {
		t.Errorf("mark id = %q, want new", c.ID)
	}
}

func TestSetMark_CursorInsertsLabel(t *testing.T) {
	d := docWith("see  here")
	d.Selection = Selection{From: 4, To: 4}

	if err := d.SetMark(citeMark("s1", "[Aho, 1986]")); err != nil {
		t.Fatalf("SetMark() error = %v", err)
	}
	if got := d.Text(); got != "see [Aho, 1986] here" {
		t.Errorf("Text() = %q", got)
	}
	if d.Selection != (Selection{From: 15, To: 15}) {
		t.Errorf("Selection = %+v", d.Selection)
	}
	cites := d.Citations()
	if len(cites) != 1 || cites[0].Text != "[Aho, 1986]" || cites[0].Offset != 4 {
		t.Errorf("Citations() = %+v", cites)
	}
}

func TestSetMark_EmptyDocument(t *testing.T) {
	d := New()
	if err := d.SetMark(citeMark("s1", "[?]")); err != nil {
		t.Fatalf("SetMark() error = %v", err)
	}
	if d.Text() != "[?]" {
		t.Errorf("Text() = %q", d.Text())
	}
}

func TestSetMark_OutOfRange(t *testing.T) {
	tests := []Selection{
		{From: -1, To: 0},
		{From: 3, To: 2},
		{From: 0, To: 99},
	}
	for _, sel := range tests {
		d := docWith("short")
		before, _ := json.Marshal(d)
		d.Selection = sel

		err := d.SetMark(citeMark("s1", "x"))
		if !errors.Is(err, ErrSelectionOutOfRange) {
			t.Errorf("SetMark(%+v) error = %v, want ErrSelectionOutOfRange", sel, err)
		}
		after, _ := json.Marshal(d)
		if string(before) != string(after) {
			t.Errorf("tree changed on failed SetMark(%+v)", sel)
		}
	}
}

func TestSetMark_CursorWithoutLabel(t *testing.T) {
	d := docWith("x")
	err := d.SetMark(Mark{Type: CitationMarkType, Attrs: map[string]any{"id": "s1"}})
	if !errors.Is(err, ErrEmptyInsertion) {
		t.Errorf("error = %v, want ErrEmptyInsertion", err)
	}
}

func TestUnsetMark(t *testing.T) {
	d := docWith("abcdef")
	d.Selection = Selection{From: 0, To: 6}
	d.SetMark(citeMark("s1", "x"))
	d.Selection = Selection{From: 2, To: 4}

	if err := d.UnsetMark(CitationMarkType); err != nil {
		t.Fatalf("UnsetMark() error = %v", err)
	}
	runs := d.MarkedRuns(CitationMarkType)
	if len(runs) != 2 || runs[0].Text != "ab" || runs[1].Text != "ef" {
		t.Errorf("marked runs = %+v", runs)
	}
}

func TestInsertText(t *testing.T) {
	d := docWith("ac")
	d.Selection = Selection{From: 1, To: 1}
	if err := d.InsertText("b"); err != nil {
		t.Fatalf("InsertText() error = %v", err)
	}
	if d.Text() != "abc" {
		t.Errorf("Text() = %q", d.Text())
	}
}

func TestParseRoundTrip(t *testing.T) {
	input := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"As shown ","marks":[{"type":"bold"}]},{"type":"text","text":"[Aho, 1986]","marks":[{"type":"citation","attrs":{"id":"s1","label":"[Aho, 1986]","type":"book"}}]}]},{"type":"horizontalRule"}]}`

	d, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := d.Text(); got != "As shown [Aho, 1986]" {
		t.Errorf("Text() = %q", got)
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != input {
		t.Errorf("round trip changed document:\n got %s\nwant %s", out, input)
	}
}

func TestParse_Empty(t *testing.T) {
	d, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.TextLen() != 0 {
		t.Errorf("TextLen() = %d", d.TextLen())
	}
}

func TestCitationFromMark(t *testing.T) {
	tests := []struct {
		name      string
		mark      Mark
		ok        bool
		wantID    string
		wantType  source.Type
		wantLabel *string
	}{
		{"full", Mark{Type: "citation", Attrs: map[string]any{"id": "s1", "type": "book", "label": "[A]"}}, true, "s1", source.TypeBook, strp("[A]")},
		{"default type", Mark{Type: "citation", Attrs: map[string]any{"id": "s1", "type": nil}}, true, "s1", source.TypeWebsite, nil},
		{"numeric id", Mark{Type: "citation", Attrs: map[string]any{"id": 42}}, true, "42", source.TypeWebsite, nil},
		{"unknown type", Mark{Type: "citation", Attrs: map[string]any{"id": "s1", "type": "zine"}}, true, "s1", source.TypeOther, nil},
		{"no id", Mark{Type: "citation", Attrs: map[string]any{"label": "x"}}, false, "", "", nil},
		{"other mark", Mark{Type: "bold"}, false, "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := CitationFromMark(tt.mark)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if c.ID != tt.wantID || c.Type != tt.wantType {
				t.Errorf("got %+v", c)
			}
			if source.Value(c.Label) != source.Value(tt.wantLabel) || (c.Label == nil) != (tt.wantLabel == nil) {
				t.Errorf("Label = %v, want %v", c.Label, tt.wantLabel)
			}
		})
	}
}

func TestRenderAndParseCitationSpans(t *testing.T) {
	c := Citation{ID: "s&1", Type: source.TypeArticle, Label: strp(`(Smith, 2020) <b>`)}
	span := RenderCitationSpan(c)

	if !strings.Contains(span, `class="citation"`) || !strings.Contains(span, `data-citation-id="s&amp;1"`) {
		t.Errorf("RenderCitationSpan() = %s", span)
	}

	markup := "<p>Intro " + span + ` and <span data-citation-id="s2">[Doe]</span><span class="citation">no id</span></p>`
	got, err := ParseCitationSpans(markup)
	if err != nil {
		t.Fatalf("ParseCitationSpans() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d citations, want 2", len(got))
	}
	if got[0].ID != "s&1" || got[0].Type != source.TypeArticle || source.Value(got[0].Label) != `(Smith, 2020) <b>` {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].ID != "s2" || got[1].Type != source.TypeWebsite || source.Value(got[1].Label) != "[Doe]" {
		t.Errorf("second = %+v", got[1])
	}
}
