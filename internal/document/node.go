// Package document models the notebook's rich-text tree.
//
// The JSON form matches the TipTap/ProseMirror document format, so
// notebooks saved by the editor load unchanged. Text positions used by
// Selection count runes of text content in document order; block
// boundaries do not occupy a position.
package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node types used by the engine. Other types round-trip untouched.
const (
	TypeDoc       = "doc"
	TypeParagraph = "paragraph"
	TypeText      = "text"
)

// Node is one element of the document tree.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is an inline annotation on a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Selection is a range of text positions. From == To is a cursor.
type Selection struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Empty reports whether the selection is a cursor.
func (s Selection) Empty() bool {
	return s.From == s.To
}

// Doc is an open document plus the editor selection.
type Doc struct {
	Root      *Node
	Selection Selection
}

// New returns a document holding one empty paragraph.
func New() *Doc {
	return &Doc{Root: &Node{
		Type:    TypeDoc,
		Content: []*Node{{Type: TypeParagraph}},
	}}
}

// Parse decodes a TipTap JSON document. Empty input yields New().
func Parse(data []byte) (*Doc, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return New(), nil
	}
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if root.Type == "" {
		root.Type = TypeDoc
	}
	return &Doc{Root: &root}, nil
}

// MarshalJSON encodes the document tree. The selection is not persisted.
func (d *Doc) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Root)
}

// Text returns the concatenated text content. Blocks are separated by
// newlines.
func (d *Doc) Text() string {
	var b strings.Builder
	writeText(&b, d.Root)
	return strings.TrimRight(b.String(), "\n")
}

func writeText(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	if n.Type == TypeText {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Content {
		writeText(b, c)
	}
	if n.Type != TypeDoc && isBlock(n) {
		b.WriteByte('\n')
	}
}

func isBlock(n *Node) bool {
	for _, c := range n.Content {
		if c.Type == TypeText {
			return true
		}
	}
	return n.Type == TypeParagraph
}

// TextLen returns the number of text positions in the document.
func (d *Doc) TextLen() int {
	n := 0
	d.walkText(func(t *Node, _ int) {
		n += len([]rune(t.Text))
	})
	return n
}

// walkText visits text nodes in document order with their start offset.
func (d *Doc) walkText(fn func(t *Node, offset int)) {
	pos := 0
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Type == TypeText {
			fn(n, pos)
			pos += len([]rune(n.Text))
			return
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(d.Root)
}

// MarkedRun is a text node carrying a given mark.
type MarkedRun struct {
	Mark   Mark
	Text   string
	Offset int
}

// MarkedRuns lists every text run carrying a mark of markType, in
// document order.
func (d *Doc) MarkedRuns(markType string) []MarkedRun {
	var runs []MarkedRun
	d.walkText(func(t *Node, offset int) {
		for _, m := range t.Marks {
			if m.Type == markType {
				runs = append(runs, MarkedRun{Mark: m, Text: t.Text, Offset: offset})
			}
		}
	})
	return runs
}

func (n *Node) withText(text string) *Node {
	c := *n
	c.Text = text
	c.Marks = append([]Mark(nil), n.Marks...)
	return &c
}

// withMark returns marks with m added, replacing any mark of the same type.
func withMark(marks []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(marks)+1)
	for _, existing := range marks {
		if existing.Type != m.Type {
			out = append(out, existing)
		}
	}
	return append(out, m)
}

func withoutMark(marks []Mark, markType string) []Mark {
	var out []Mark
	for _, existing := range marks {
		if existing.Type != markType {
			out = append(out, existing)
		}
	}
	return out
}
