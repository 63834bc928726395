// Package annotation manages the PDF highlights attached to one paper.
package annotation

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/matsen/folio/internal/geometry"
)

// ErrMixedContent is returned for content carrying both text and an image.
var ErrMixedContent = errors.New("highlight content has both text and image")

// Content is what a highlight captured: selected text or an image region.
type Content struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// IsImage reports whether the highlight captured an area rather than text.
func (c Content) IsImage() bool {
	return c.Image != ""
}

// Validate checks that c holds text or an image, not both.
func (c Content) Validate() error {
	if c.Text != "" && c.Image != "" {
		return ErrMixedContent
	}
	return nil
}

// Comment is the user's note on a highlight.
type Comment struct {
	Text  string `json:"text"`
	Emoji string `json:"emoji,omitempty"`
}

// Highlight is a decoded highlight record.
type Highlight struct {
	ID        string                  `json:"id"`
	PaperID   string                  `json:"paper_id"`
	Content   Content                 `json:"content"`
	Position  geometry.ScaledPosition `json:"position"`
	Comment   *Comment                `json:"comment"`
	CreatedAt *time.Time              `json:"created_at,omitempty"`
	UpdatedAt *time.Time              `json:"updated_at,omitempty"`
}

// RawHighlight is a highlight as persisted. Position, content and comment
// may each hold an object, a JSON-encoded string of one, null, or garbage.
type RawHighlight struct {
	ID        string          `json:"id"`
	PaperID   string          `json:"paper_id"`
	Position  json.RawMessage `json:"position"`
	Content   json.RawMessage `json:"content"`
	Comment   json.RawMessage `json:"comment"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// NewHighlight is the payload for creating a highlight.
type NewHighlight struct {
	Position geometry.ScaledPosition
	Content  Content
	Comment  *Comment
}

// Update carries the fields to change on a highlight. Nil fields are left
// untouched.
type Update struct {
	Position *geometry.ScaledPosition
	Content  *Content
	Comment  *Comment
}

// Decode converts a raw record into a Highlight. Malformed fields are
// logged and replaced by their defaults.
//
// Content stored with both text and an image keeps the image.
func Decode(raw RawHighlight) Highlight {
	content := decodeField(raw.Content, raw.ID, "content", Content{})
	if err := content.Validate(); err != nil {
		logrus.WithField("highlight", raw.ID).WithError(err).Warn("dropping text of image highlight")
		content.Text = ""
	}
	return Highlight{
		ID:        raw.ID,
		PaperID:   raw.PaperID,
		Position:  decodeField(raw.Position, raw.ID, "position", geometry.ScaledPosition{}),
		Content:   content,
		Comment:   decodeField[*Comment](raw.Comment, raw.ID, "comment", nil),
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
}

// DecodeAll decodes a collection, preserving order.
func DecodeAll(raws []RawHighlight) []Highlight {
	out := make([]Highlight, len(raws))
	for i, r := range raws {
		out[i] = Decode(r)
	}
	return out
}
