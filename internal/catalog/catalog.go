// Package catalog holds the sources attached to one notebook.
//
// The catalog keeps a snapshot of the notebook's sources fetched from a
// SourceBackend. Reads are served from the snapshot. Every successful
// mutation invalidates the shared query cache and refetches; nothing is
// changed optimistically.
package catalog

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/matsen/folio/internal/query"
	"github.com/matsen/folio/internal/source"
)

// ErrNotFound is returned when a mutation names a source the backend
// does not know.
var ErrNotFound = errors.New("source not found")

// SourceBackend is the persistence surface the catalog needs.
type SourceBackend interface {
	// ListNotebookSources returns the raw association rows or source
	// records for a notebook, in backend order.
	ListNotebookSources(ctx context.Context, notebookID string) ([]json.RawMessage, error)
	CreateSource(ctx context.Context, p source.Partial) (source.Source, error)
	UpdateSource(ctx context.Context, id string, p source.Partial) (source.Source, error)
	DeleteSource(ctx context.Context, id string) error
	AddSourceToNotebook(ctx context.Context, notebookID, sourceID string) error
	RemoveSourceFromNotebook(ctx context.Context, notebookID, sourceID string) error
}

// Lookup resolves a source id against the current snapshot.
type Lookup interface {
	GetByID(id string) (source.Source, bool)
}

// Catalog is the notebook-scoped view of the source catalog.
type Catalog struct {
	notebookID string
	backend    SourceBackend
	queries    *query.Client

	mu      sync.RWMutex
	sources []source.Source
	byID    map[string]int
}

// New creates a catalog for notebookID. The snapshot is empty until the
// first Refresh.
func New(notebookID string, backend SourceBackend, queries *query.Client) *Catalog {
	if queries == nil {
		queries = query.NewClient(query.DefaultStaleTime)
	}
	return &Catalog{
		notebookID: notebookID,
		backend:    backend,
		queries:    queries,
		byID:       map[string]int{},
	}
}

// NotebookID returns the notebook this catalog is scoped to.
func (c *Catalog) NotebookID() string {
	return c.notebookID
}

func (c *Catalog) cacheKey() string {
	return query.Key("notebook-sources", c.notebookID)
}

// Refresh loads the snapshot, from the query cache when it is still fresh.
func (c *Catalog) Refresh(ctx context.Context) error {
	srcs, err := query.Fetch(ctx, c.queries, c.cacheKey(), c.load)
	if err != nil {
		return errors.Wrapf(err, "loading sources for notebook %s", c.notebookID)
	}
	c.replace(srcs)
	return nil
}

func (c *Catalog) load(ctx context.Context) ([]source.Source, error) {
	raw, err := c.backend.ListNotebookSources(ctx, c.notebookID)
	if err != nil {
		return nil, err
	}
	srcs, rejected := source.Normalize(raw)
	for _, r := range rejected {
		logrus.WithFields(logrus.Fields{
			"notebook": c.notebookID,
			"index":    r.Index,
			"reason":   r.Reason,
		}).Warn("dropping invalid catalog entry")
	}
	return srcs, nil
}

func (c *Catalog) replace(srcs []source.Source) {
	index := make(map[string]int, len(srcs))
	for i, s := range srcs {
		if _, dup := index[s.ID]; dup {
			continue
		}
		index[s.ID] = i
	}

	c.mu.Lock()
	c.sources = srcs
	c.byID = index
	c.mu.Unlock()
}

// List returns a copy of the snapshot in backend order.
func (c *Catalog) List() []source.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]source.Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// GetByID looks a source up in the snapshot.
func (c *Catalog) GetByID(id string) (source.Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return source.Source{}, false
	}
	return c.sources[i], true
}

// Len returns the number of sources in the snapshot.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

// Create creates a source and attaches it to the notebook. If attaching
// fails the source record stays, unattached, and the snapshot is still
// refetched.
func (c *Catalog) Create(ctx context.Context, p source.Partial) (source.Source, error) {
	if p.Title == nil || *p.Title == "" {
		return source.Source{}, errors.New("creating source: title is required")
	}
	created, err := c.backend.CreateSource(ctx, p)
	if err != nil {
		return source.Source{}, errors.Wrap(err, "creating source")
	}
	if err := c.backend.AddSourceToNotebook(ctx, c.notebookID, created.ID); err != nil {
		c.afterMutation(ctx)
		return source.Source{}, errors.Wrapf(err, "attaching source %s", created.ID)
	}
	c.afterMutation(ctx)
	return created, nil
}

// CreateFromPaper creates a paper-type source linked to a library paper
// and attaches it to the notebook.
func (c *Catalog) CreateFromPaper(ctx context.Context, paperID, title string, authors []string, doi, publication string) (source.Source, error) {
	typ := source.TypePaper
	p := source.Partial{
		Title:       &title,
		Type:        &typ,
		PaperID:     source.String(paperID),
		DOI:         source.String(doi),
		Publication: source.String(publication),
	}
	if authors != nil {
		a := append([]string(nil), authors...)
		p.Authors = &a
	}
	return c.Create(ctx, p)
}

// Update applies p to the source with the given id.
func (c *Catalog) Update(ctx context.Context, id string, p source.Partial) (source.Source, error) {
	updated, err := c.backend.UpdateSource(ctx, id, p)
	if err != nil {
		return source.Source{}, errors.Wrapf(err, "updating source %s", id)
	}
	c.afterMutation(ctx)
	return updated, nil
}

// Delete removes the source record. Citation marks that point at it are
// left in place and render as dangling.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.backend.DeleteSource(ctx, id); err != nil {
		return errors.Wrapf(err, "deleting source %s", id)
	}
	c.afterMutation(ctx)
	return nil
}

// Attach associates an existing source with the notebook.
func (c *Catalog) Attach(ctx context.Context, id string) error {
	if err := c.backend.AddSourceToNotebook(ctx, c.notebookID, id); err != nil {
		return errors.Wrapf(err, "attaching source %s", id)
	}
	c.afterMutation(ctx)
	return nil
}

// Detach removes the association without deleting the source.
func (c *Catalog) Detach(ctx context.Context, id string) error {
	if err := c.backend.RemoveSourceFromNotebook(ctx, c.notebookID, id); err != nil {
		return errors.Wrapf(err, "detaching source %s", id)
	}
	c.afterMutation(ctx)
	return nil
}

// afterMutation invalidates the cache and refetches. A refetch failure
// keeps the previous snapshot.
func (c *Catalog) afterMutation(ctx context.Context) {
	c.queries.Invalidate(c.cacheKey())
	srcs, err := query.Refetch(ctx, c.queries, c.cacheKey(), c.load)
	if err != nil {
		logrus.WithField("notebook", c.notebookID).WithError(err).Warn("refetching sources after mutation")
		return
	}
	c.replace(srcs)
}
