// Package source defines the bibliographic source records that notebook
// citations point at.
package source

import (
	"strings"
	"time"
)

// Type is the kind of work a source describes.
type Type string

const (
	TypeBook    Type = "book"
	TypeWebsite Type = "website"
	TypeArticle Type = "article"
	TypeVideo   Type = "video"
	TypePodcast Type = "podcast"
	TypePaper   Type = "paper"
	TypeOther   Type = "other"
)

// DefaultType is the type assumed for citation marks that carry none.
const DefaultType = TypeWebsite

// ValidTypes lists the accepted source types in display order.
var ValidTypes = []Type{TypeBook, TypeWebsite, TypeArticle, TypeVideo, TypePodcast, TypePaper, TypeOther}

// ParseType maps a raw type string onto the closed set.
// Unknown values become TypeOther and ok is false.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidTypes {
		if t == v {
			return v, true
		}
	}
	return TypeOther, false
}

// Source is a bibliographic record owned by the catalog.
type Source struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Authors         []string   `json:"authors"`
	Type            Type       `json:"type"`
	Publication     *string    `json:"publication"`
	PublicationDate *string    `json:"publication_date"`
	URL             *string    `json:"url"`
	DOI             *string    `json:"doi"`
	PaperID         *string    `json:"paper_id"`
	UserID          *string    `json:"user_id"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// Partial carries the fields of a create or update request.
// Nil fields are left untouched on update.
type Partial struct {
	Title           *string   `json:"title,omitempty"`
	Authors         *[]string `json:"authors,omitempty"`
	Type            *Type     `json:"type,omitempty"`
	Publication     *string   `json:"publication,omitempty"`
	PublicationDate *string   `json:"publication_date,omitempty"`
	URL             *string   `json:"url,omitempty"`
	DOI             *string   `json:"doi,omitempty"`
	PaperID         *string   `json:"paper_id,omitempty"`
}

// Apply returns a copy of s with the non-nil fields of p applied.
func (p Partial) Apply(s Source) Source {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Authors != nil {
		s.Authors = append([]string(nil), (*p.Authors)...)
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.Publication != nil {
		s.Publication = p.Publication
	}
	if p.PublicationDate != nil {
		s.PublicationDate = p.PublicationDate
	}
	if p.URL != nil {
		s.URL = p.URL
	}
	if p.DOI != nil {
		s.DOI = p.DOI
	}
	if p.PaperID != nil {
		s.PaperID = p.PaperID
	}
	return s
}

// Year returns the publication year, taken as everything before the first
// '-' of the publication date. Empty if the date is unset.
func (s Source) Year() string {
	date := Value(s.PublicationDate)
	if date == "" {
		return ""
	}
	year, _, _ := strings.Cut(date, "-")
	return strings.TrimSpace(year)
}

// FirstAuthor returns the first author, or "" when there are none.
func (s Source) FirstAuthor() string {
	if len(s.Authors) == 0 {
		return ""
	}
	return s.Authors[0]
}

// Value dereferences an optional string field.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// String returns a pointer to s, or nil for the empty string.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
