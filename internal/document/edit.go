package document

import (
	"errors"
	"fmt"

	"github.com/spf13/cast"
)

// ErrSelectionOutOfRange is returned when the selection does not fit the
// document. The tree is left unchanged.
var ErrSelectionOutOfRange = errors.New("selection out of range")

// ErrEmptyInsertion is returned when a mark is set on a cursor but carries
// no label to insert.
var ErrEmptyInsertion = errors.New("nothing to insert at cursor")

func (d *Doc) checkSelection() error {
	if d.Root == nil {
		d.Root = &Node{Type: TypeDoc}
	}
	n := d.TextLen()
	s := d.Selection
	if s.From < 0 || s.To < s.From || s.To > n {
		return fmt.Errorf("%w: [%d, %d] in document of length %d", ErrSelectionOutOfRange, s.From, s.To, n)
	}
	return nil
}

// SetMark applies m to the selected text. On an empty selection the mark's
// label attribute is inserted at the cursor as a new marked run and the
// cursor moves past it.
func (d *Doc) SetMark(m Mark) error {
	if err := d.checkSelection(); err != nil {
		return err
	}
	if d.Selection.Empty() {
		return d.insertMarked(m)
	}

	pos := 0
	rewriteText(d.Root, &pos, func(t *Node, start int) []*Node {
		return splitApply(t, start, d.Selection.From, d.Selection.To, func(mid *Node) {
			mid.Marks = withMark(mid.Marks, m)
		})
	})
	return nil
}

// UnsetMark removes marks of markType from the selected text.
func (d *Doc) UnsetMark(markType string) error {
	if err := d.checkSelection(); err != nil {
		return err
	}
	if d.Selection.Empty() {
		return nil
	}
	pos := 0
	rewriteText(d.Root, &pos, func(t *Node, start int) []*Node {
		return splitApply(t, start, d.Selection.From, d.Selection.To, func(mid *Node) {
			mid.Marks = withoutMark(mid.Marks, markType)
		})
	})
	return nil
}

// InsertText inserts plain text at the cursor and moves the cursor past it.
func (d *Doc) InsertText(text string) error {
	if err := d.checkSelection(); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return d.insertNode(&Node{Type: TypeText, Text: text})
}

func (d *Doc) insertMarked(m Mark) error {
	label := cast.ToString(m.Attrs["label"])
	if label == "" {
		return ErrEmptyInsertion
	}
	return d.insertNode(&Node{Type: TypeText, Text: label, Marks: []Mark{m}})
}

func (d *Doc) insertNode(node *Node) error {
	at := d.Selection.From
	inserted := false

	pos := 0
	rewriteText(d.Root, &pos, func(t *Node, start int) []*Node {
		runes := []rune(t.Text)
		end := start + len(runes)
		if inserted || at < start || at > end {
			return []*Node{t}
		}
		inserted = true
		var out []*Node
		if at > start {
			out = append(out, t.withText(string(runes[:at-start])))
		}
		out = append(out, node)
		if at < end {
			out = append(out, t.withText(string(runes[at-start:])))
		}
		return out
	})

	if !inserted {
		block := lastTextBlock(d.Root)
		if block == nil {
			block = &Node{Type: TypeParagraph}
			d.Root.Content = append(d.Root.Content, block)
		}
		block.Content = append(block.Content, node)
	}

	n := len([]rune(node.Text))
	d.Selection = Selection{From: at + n, To: at + n}
	return nil
}

// rewriteText replaces every text node with the nodes fn returns.
func rewriteText(n *Node, pos *int, fn func(t *Node, start int) []*Node) {
	if n == nil || len(n.Content) == 0 {
		return
	}
	out := make([]*Node, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Type != TypeText {
			rewriteText(c, pos, fn)
			out = append(out, c)
			continue
		}
		start := *pos
		*pos += len([]rune(c.Text))
		out = append(out, fn(c, start)...)
	}
	n.Content = out
}

// splitApply splits t around [from, to) and calls apply on the overlap.
func splitApply(t *Node, start, from, to int, apply func(mid *Node)) []*Node {
	runes := []rune(t.Text)
	end := start + len(runes)
	lo, hi := max(from, start), min(to, end)
	if lo >= hi {
		return []*Node{t}
	}

	var out []*Node
	if lo > start {
		out = append(out, t.withText(string(runes[:lo-start])))
	}
	mid := t.withText(string(runes[lo-start : hi-start]))
	apply(mid)
	out = append(out, mid)
	if hi < end {
		out = append(out, t.withText(string(runes[hi-start:])))
	}
	return out
}

// lastTextBlock finds the last node that can hold inline text.
func lastTextBlock(n *Node) *Node {
	if n == nil {
		return nil
	}
	for i := len(n.Content) - 1; i >= 0; i-- {
		if found := lastTextBlock(n.Content[i]); found != nil {
			return found
		}
	}
	if n.Type == TypeParagraph || n.Type == "heading" {
		return n
	}
	return nil
}
