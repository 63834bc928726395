// Package binder inserts and renders inline citation marks.
//
// A citation mark holds only a weak reference to a catalog source. The
// binder resolves it on every render, so edits to a source show up in
// existing citations and deleted sources degrade to the label stored on
// the mark.
package binder

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/matsen/folio/internal/catalog"
	"github.com/matsen/folio/internal/citation"
	"github.com/matsen/folio/internal/document"
	"github.com/matsen/folio/internal/source"
)

// ErrSourceNotFound is returned by Insert when the id is not in the catalog.
var ErrSourceNotFound = errors.New("source not found in catalog")

// ErrorLabel is shown in place of a citation whose rendering failed.
const ErrorLabel = "[Citation Error]"

// Editor applies marks to the current selection.
type Editor interface {
	SetMark(m document.Mark) error
}

// State is how a citation mark resolved.
type State int

const (
	Bound State = iota
	Dangling
	Failed
)

func (s State) String() string {
	switch s {
	case Bound:
		return "bound"
	case Dangling:
		return "dangling"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Rendering is the display form of one citation mark.
type Rendering struct {
	SourceID string      `json:"source_id"`
	Type     source.Type `json:"type,omitempty"` // as stored on the mark, for styling
	Label    string      `json:"label"`
	Tooltip  string      `json:"tooltip"`
	State    State       `json:"state"`
}

// Binder connects a document's citation marks to a catalog.
type Binder struct {
	lookup catalog.Lookup

	mu     sync.RWMutex
	format citation.Format
}

// New creates a binder resolving against lookup. An invalid format falls
// back to the default.
func New(lookup catalog.Lookup, f citation.Format) *Binder {
	if !f.Valid() {
		f = citation.DefaultFormat
	}
	return &Binder{lookup: lookup, format: f}
}

// Format returns the format used for new insertions and live labels.
func (b *Binder) Format() citation.Format {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.format
}

// SetFormat changes the session format. Labels already stored on marks
// are not rewritten.
func (b *Binder) SetFormat(f citation.Format) {
	if !f.Valid() {
		f = citation.DefaultFormat
	}
	b.mu.Lock()
	b.format = f
	b.mu.Unlock()
}

// Insert creates a citation mark for sourceID and hands it to the editor.
// Nothing is inserted when the source is unknown or the editor fails.
func (b *Binder) Insert(ed Editor, sourceID string) (document.Mark, error) {
	src, ok := b.lookup.GetByID(sourceID)
	if !ok {
		return document.Mark{}, errors.Wrapf(ErrSourceNotFound, "inserting citation %q", sourceID)
	}

	label := citation.FormatShort(&src, b.Format())
	mark := document.NewCitationMark(document.Citation{
		ID:    src.ID,
		Type:  src.Type,
		Label: &label,
	})

	if err := ed.SetMark(mark); err != nil {
		return document.Mark{}, errors.Wrap(err, "inserting citation")
	}
	return mark, nil
}

// Render resolves a citation mark against the current catalog snapshot.
// It never panics; a failure yields State Failed and ErrorLabel.
func (b *Binder) Render(m document.Mark) (r Rendering) {
	defer func() {
		if p := recover(); p != nil {
			logrus.WithField("mark", m.Attrs).Errorf("rendering citation: %v", p)
			r = Rendering{SourceID: r.SourceID, Type: r.Type, Label: ErrorLabel, Tooltip: citation.FullPlaceholder, State: Failed}
		}
	}()

	c, ok := document.CitationFromMark(m)
	if !ok {
		return Rendering{
			Label:   citation.ShortPlaceholder,
			Tooltip: citation.FullPlaceholder,
			State:   Dangling,
		}
	}
	r.SourceID, r.Type = c.ID, c.Type

	src, found := b.lookup.GetByID(c.ID)
	if !found {
		return Rendering{
			SourceID: c.ID,
			Type:     c.Type,
			Label:    c.LabelOr(citation.ShortPlaceholder),
			Tooltip:  citation.FullPlaceholder,
			State:    Dangling,
		}
	}

	return Rendering{
		SourceID: c.ID,
		Type:     c.Type,
		Label:    citation.FormatShort(&src, b.Format()),
		Tooltip:  citation.FormatFull(&src),
		State:    Bound,
	}
}

// RenderDocument renders every citation in doc in document order. A
// failing citation does not affect the others. It stops with ctx's error
// once ctx is done.
func (b *Binder) RenderDocument(ctx context.Context, doc *document.Doc) ([]Rendering, error) {
	runs := doc.Citations()
	out := make([]Rendering, 0, len(runs))
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, b.Render(run.Mark))
	}
	return out, nil
}

// Citations lists the citations in doc in document order.
func Citations(doc *document.Doc) []document.Citation {
	runs := doc.Citations()
	out := make([]document.Citation, len(runs))
	for i, run := range runs {
		out[i] = run.Citation
	}
	return out
}

// Dangling returns the distinct source ids cited in doc that no longer
// resolve. The marks themselves are left alone.
func (b *Binder) Dangling(doc *document.Doc) []string {
	seen := map[string]bool{}
	var ids []string
	for _, c := range Citations(doc) {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		if _, ok := b.lookup.GetByID(c.ID); !ok {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
