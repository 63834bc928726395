package annotation

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/matsen/folio/internal/geometry"
	"github.com/matsen/folio/internal/query"
)

// ErrNotFound is returned for a highlight id the backend does not know.
var ErrNotFound = errors.New("highlight not found")

// HighlightBackend is the persistence surface for highlights. Payloads
// are JSON-plain maps keyed by position, content and comment.
type HighlightBackend interface {
	ListHighlights(ctx context.Context, paperID string) ([]RawHighlight, error)
	CreateHighlight(ctx context.Context, paperID string, payload map[string]any) (RawHighlight, error)
	UpdateHighlight(ctx context.Context, id string, payload map[string]any) (RawHighlight, error)
	DeleteHighlight(ctx context.Context, id string) error
}

// Store is the paper-scoped view of highlights.
type Store struct {
	paperID string
	backend HighlightBackend
	queries *query.Client

	mu         sync.RWMutex
	highlights []Highlight
}

// NewStore creates a store for paperID.
func NewStore(paperID string, backend HighlightBackend, queries *query.Client) *Store {
	if queries == nil {
		queries = query.NewClient(query.DefaultStaleTime)
	}
	return &Store{paperID: paperID, backend: backend, queries: queries}
}

func (s *Store) cacheKey() string {
	return query.Key("highlights", s.paperID)
}

// List returns the paper's highlights, decoded. Malformed fields are
// defaulted, not reported.
func (s *Store) List(ctx context.Context) ([]Highlight, error) {
	hs, err := query.Fetch(ctx, s.queries, s.cacheKey(), s.load)
	if err != nil {
		return nil, errors.Wrapf(err, "loading highlights for paper %s", s.paperID)
	}
	s.mu.Lock()
	s.highlights = hs
	s.mu.Unlock()

	out := make([]Highlight, len(hs))
	copy(out, hs)
	return out, nil
}

func (s *Store) load(ctx context.Context) ([]Highlight, error) {
	raws, err := s.backend.ListHighlights(ctx, s.paperID)
	if err != nil {
		return nil, err
	}
	return DecodeAll(raws), nil
}

// Get returns a highlight from the last listed snapshot.
func (s *Store) Get(id string) (Highlight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.highlights {
		if h.ID == id {
			return h, true
		}
	}
	return Highlight{}, false
}

// Create persists a new highlight for the paper.
func (s *Store) Create(ctx context.Context, nh NewHighlight) (Highlight, error) {
	if err := nh.Position.Validate(); err != nil {
		return Highlight{}, errors.Wrap(err, "creating highlight")
	}
	if err := nh.Content.Validate(); err != nil {
		return Highlight{}, errors.Wrap(err, "creating highlight")
	}
	payload, err := plainPayload(map[string]any{
		"position": nh.Position,
		"content":  nh.Content,
		"comment":  nh.Comment,
	})
	if err != nil {
		return Highlight{}, errors.Wrap(err, "encoding highlight")
	}

	raw, err := s.backend.CreateHighlight(ctx, s.paperID, payload)
	if err != nil {
		return Highlight{}, errors.Wrap(err, "creating highlight")
	}
	s.queries.Invalidate(s.cacheKey())
	return Decode(raw), nil
}

// Update changes the non-nil fields of u on highlight id.
func (s *Store) Update(ctx context.Context, id string, u Update) (Highlight, error) {
	fields := map[string]any{}
	if u.Position != nil {
		if err := u.Position.Validate(); err != nil {
			return Highlight{}, errors.Wrapf(err, "updating highlight %s", id)
		}
		fields["position"] = *u.Position
	}
	if u.Content != nil {
		if err := u.Content.Validate(); err != nil {
			return Highlight{}, errors.Wrapf(err, "updating highlight %s", id)
		}
		fields["content"] = *u.Content
	}
	if u.Comment != nil {
		fields["comment"] = *u.Comment
	}
	payload, err := plainPayload(fields)
	if err != nil {
		return Highlight{}, errors.Wrap(err, "encoding highlight")
	}

	raw, err := s.backend.UpdateHighlight(ctx, id, payload)
	if err != nil {
		return Highlight{}, errors.Wrapf(err, "updating highlight %s", id)
	}
	s.queries.Invalidate(s.cacheKey())
	return Decode(raw), nil
}

// Delete removes highlight id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteHighlight(ctx, id); err != nil {
		return errors.Wrapf(err, "deleting highlight %s", id)
	}
	s.queries.Invalidate(s.cacheKey())
	return nil
}

// Viewport projects a highlight's position onto the current page scale.
func Viewport(h Highlight, ctx geometry.ScaleContext) geometry.ViewportPosition {
	return geometry.ToViewport(h.Position, ctx)
}

// FromViewport converts an on-screen position back into h's stored frame.
func FromViewport(h Highlight, v geometry.ViewportPosition, ctx geometry.ScaleContext) geometry.ScaledPosition {
	return geometry.ToScaledIn(v, ctx, h.Position.Frame())
}
