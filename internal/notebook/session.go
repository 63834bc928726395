// Package notebook ties an open notebook document to its source catalog,
// citation binder and autosave.
package notebook

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/matsen/folio/internal/binder"
	"github.com/matsen/folio/internal/catalog"
	"github.com/matsen/folio/internal/citation"
	"github.com/matsen/folio/internal/document"
	"github.com/matsen/folio/internal/query"
)

// Notebook is a stored notebook.
type Notebook struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// ContentStore loads and saves notebook documents.
type ContentStore interface {
	GetNotebook(ctx context.Context, id string) (Notebook, error)
	SaveNotebookContent(ctx context.Context, id string, content []byte) error
}

// Options configures a session.
type Options struct {
	Format        citation.Format
	AutosaveDelay time.Duration
	Queries       *query.Client
}

// Session is one open notebook.
type Session struct {
	Notebook Notebook
	Catalog  *catalog.Catalog
	Binder   *binder.Binder

	store    ContentStore
	autosave *Autosaver
	ctx      context.Context
	cancel   context.CancelFunc

	mu  sync.Mutex
	doc *document.Doc
}

// Open loads notebook id and its sources.
func Open(ctx context.Context, id string, store ContentStore, sources catalog.SourceBackend, opts Options) (*Session, error) {
	nb, err := store.GetNotebook(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "opening notebook %s", id)
	}
	doc, err := document.Parse(nb.Content)
	if err != nil {
		return nil, errors.Wrapf(err, "opening notebook %s", id)
	}

	cat := catalog.New(id, sources, opts.Queries)
	if err := cat.Refresh(ctx); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		Notebook: nb,
		Catalog:  cat,
		Binder:   binder.New(cat, opts.Format),
		store:    store,
		ctx:      sctx,
		cancel:   cancel,
		doc:      doc,
	}
	s.autosave = NewAutosaver(sctx, opts.AutosaveDelay, nb.Content, s.saveContent)
	return s, nil
}

func (s *Session) saveContent(ctx context.Context, content []byte) error {
	return s.store.SaveNotebookContent(ctx, s.Notebook.ID, content)
}

// Doc returns the open document. Callers that mutate it must call Changed.
func (s *Session) Doc() *document.Doc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Autosaver returns the session's autosaver.
func (s *Session) Autosaver() *Autosaver {
	return s.autosave
}

// Changed schedules an autosave of the current document.
func (s *Session) Changed() error {
	s.mu.Lock()
	data, err := json.Marshal(s.doc)
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "encoding notebook")
	}
	s.autosave.Touch(data)
	return nil
}

// Replace swaps in a new document and schedules an autosave.
func (s *Session) Replace(doc *document.Doc) error {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return s.Changed()
}

// Select sets the editor selection.
func (s *Session) Select(from, to int) {
	s.mu.Lock()
	s.doc.Selection = document.Selection{From: from, To: to}
	s.mu.Unlock()
}

// Cite inserts a citation for sourceID at the selection.
func (s *Session) Cite(sourceID string) (document.Mark, error) {
	s.mu.Lock()
	mark, err := s.Binder.Insert(s.doc, sourceID)
	s.mu.Unlock()
	if err != nil {
		return document.Mark{}, err
	}
	return mark, s.Changed()
}

// Render renders every citation. It stops when the session is closed.
func (s *Session) Render() ([]binder.Rendering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Binder.RenderDocument(s.ctx, s.doc)
}

// Save persists the document now.
func (s *Session) Save(ctx context.Context) error {
	if err := s.Changed(); err != nil {
		return err
	}
	if err := s.autosave.SaveNow(ctx); err != nil {
		return errors.Wrapf(err, "saving notebook %s", s.Notebook.ID)
	}
	return nil
}

// Close cancels in-flight work and drops pending autosaves.
func (s *Session) Close() {
	s.cancel()
	s.autosave.Close()
}
