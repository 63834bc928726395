package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matsen/folio/internal/query"
	"github.com/matsen/folio/internal/source"
)

// fakeBackend is an in-memory SourceBackend.
type fakeBackend struct {
	sources  map[string]source.Source
	order    []string
	attached map[string][]string
	extraRaw []json.RawMessage
	nextID   int
	lists    int

	failCreate bool
	failUpdate bool
	failDelete bool
	failList   bool
	failAttach bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sources:  map[string]source.Source{},
		attached: map[string][]string{},
	}
}

func (f *fakeBackend) seed(notebookID string, srcs ...source.Source) {
	for _, s := range srcs {
		f.sources[s.ID] = s
		f.order = append(f.order, s.ID)
		f.attached[notebookID] = append(f.attached[notebookID], s.ID)
	}
}

func (f *fakeBackend) ListNotebookSources(_ context.Context, notebookID string) ([]json.RawMessage, error) {
	f.lists++
	if f.failList {
		return nil, errors.New("list failed")
	}
	var out []json.RawMessage
	for _, id := range f.attached[notebookID] {
		s, ok := f.sources[id]
		if !ok {
			continue
		}
		data, _ := json.Marshal(map[string]any{"source": s})
		out = append(out, data)
	}
	return append(out, f.extraRaw...), nil
}

func (f *fakeBackend) CreateSource(_ context.Context, p source.Partial) (source.Source, error) {
	if f.failCreate {
		return source.Source{}, errors.New("create failed")
	}
	f.nextID++
	s := p.Apply(source.Source{ID: fmt.Sprintf("new-%d", f.nextID), Type: source.TypeWebsite})
	f.sources[s.ID] = s
	f.order = append(f.order, s.ID)
	return s, nil
}

func (f *fakeBackend) UpdateSource(_ context.Context, id string, p source.Partial) (source.Source, error) {
	if f.failUpdate {
		return source.Source{}, errors.New("update failed")
	}
	s, ok := f.sources[id]
	if !ok {
		return source.Source{}, ErrNotFound
	}
	s = p.Apply(s)
	f.sources[id] = s
	return s, nil
}

func (f *fakeBackend) DeleteSource(_ context.Context, id string) error {
	if f.failDelete {
		return errors.New("delete failed")
	}
	if _, ok := f.sources[id]; !ok {
		return ErrNotFound
	}
	delete(f.sources, id)
	return nil
}

func (f *fakeBackend) AddSourceToNotebook(_ context.Context, notebookID, sourceID string) error {
	if f.failAttach {
		return errors.New("attach failed")
	}
	for _, id := range f.attached[notebookID] {
		if id == sourceID {
			return nil
		}
	}
	f.attached[notebookID] = append(f.attached[notebookID], sourceID)
	return nil
}

func (f *fakeBackend) RemoveSourceFromNotebook(_ context.Context, notebookID, sourceID string) error {
	ids := f.attached[notebookID]
	for i, id := range ids {
		if id == sourceID {
			f.attached[notebookID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return nil
}

func strp(s string) *string { return &s }

func newTestCatalog(t *testing.T, b *fakeBackend) *Catalog {
	t.Helper()
	c := New("nb1", b, query.NewClient(time.Minute))
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return c
}

func TestRefresh_NormalizesEntries(t *testing.T) {
	b := newFakeBackend()
	b.seed("nb1",
		source.Source{ID: "a", Title: "Alpha", Type: "book"},
		source.Source{ID: "b", Title: "Beta", Type: "hologram"},
	)
	b.extraRaw = []json.RawMessage{
		json.RawMessage(`null`),
		json.RawMessage(`"junk"`),
		json.RawMessage(`{"source": {"id": "c"}}`),
		json.RawMessage(`{"id": "", "title": "No id"}`),
	}

	c := newTestCatalog(t, b)

	got := c.List()
	if len(got) != 2 {
		t.Fatalf("List() len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("List() order = %s, %s; want a, b", got[0].ID, got[1].ID)
	}
	if got[1].Type != source.TypeOther {
		t.Errorf("unknown type normalized to %q, want other", got[1].Type)
	}
}

func TestRefresh_UsesCache(t *testing.T) {
	b := newFakeBackend()
	b.seed("nb1", source.Source{ID: "a", Title: "Alpha"})
	c := newTestCatalog(t, b)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if b.lists != 1 {
		t.Errorf("backend listed %d times, want 1", b.lists)
	}
}

func TestGetByID(t *testing.T) {
	b := newFakeBackend()
	b.seed("nb1", source.Source{ID: "a", Title: "Alpha"})
	c := newTestCatalog(t, b)

	if s, ok := c.GetByID("a"); !ok || s.Title != "Alpha" {
		t.Errorf("GetByID(a) = %+v, %v", s, ok)
	}
	if _, ok := c.GetByID("zzz"); ok {
		t.Error("GetByID(zzz) should be absent")
	}
}

func TestList_ReturnsCopy(t *testing.T) {
	b := newFakeBackend()
	b.seed("nb1", source.Source{ID: "a", Title: "Alpha"})
	c := newTestCatalog(t, b)

	list := c.List()
	list[0].Title = "mutated"

	if s, _ := c.GetByID("a"); s.Title != "Alpha" {
		t.Errorf("snapshot changed through List() copy: %q", s.Title)
	}
}

func TestCreate_AttachesAndRefetches(t *testing.T) {
	b := newFakeBackend()
	c := newTestCatalog(t, b)

	created, err := c.Create(context.Background(), source.Partial{Title: strp("Gamma")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := c.GetByID(created.ID); !ok {
		t.Errorf("created source %s not in snapshot", created.ID)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCreate_AttachFailureRefetches(t *testing.T) {
	b := newFakeBackend()
	b.seed("nb1", source.Source{ID: "a", Title: "Alpha"})
	c := newTestCatalog(t, b)
	before := b.lists

	b.failAttach = true
	if _, err := c.Create(context.Background(), source.Partial{Title: strp("Gamma")}); err == nil {
		t.Fatal("Create() expected error")
	}
	if b.lists != before+1 {
		t.Errorf("backend listed %d times after failed attach, want %d", b.lists, before+1)
	}
	if _, ok := b.sources["new-1"]; !ok {
		t.Error("created record missing from backend")
	}
	if got := c.List(); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("snapshot = %+v, want only the attached source", got)
	}
}

func TestCreate_RequiresTitle(t *testing.T) {
	c := newTestCatalog(t, newFakeBackend())
	if _, err := c.Create(context.Background(), source.Partial{}); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestCreateFromPaper(t *testing.T) {
	b := newFakeBackend()
	c := newTestCatalog(t, b)

	s, err := c.CreateFromPaper(context.Background(), "paper-9", "Deep Trees", []string{"Ada Lovelace"}, "10.1/x", "")
	if err != nil {
		t.Fatalf("CreateFromPaper() error = %v", err)
	}
	if s.Type != source.TypePaper {
		t.Errorf("Type = %q, want paper", s.Type)
	}
	if source.Value(s.PaperID) != "paper-9" {
		t.Errorf("PaperID = %v", s.PaperID)
	}
	if s.Publication != nil {
		t.Errorf("Publication = %q, want nil", *s.Publication)
	}
}

func TestMutationFailures_LeaveSnapshot(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	b.seed("nb1", source.Source{ID: "a", Title: "Alpha"})
	c := newTestCatalog(t, b)

	b.failCreate, b.failUpdate, b.failDelete = true, true, true

	if _, err := c.Create(ctx, source.Partial{Title: strp("X")}); err == nil {
		t.Error("Create() expected error")
	}
	if _, err := c.Update(ctx, "a", source.Partial{Title: strp("X")}); err == nil {
		t.Error("Update() expected error")
	}
	if err := c.Delete(ctx, "a"); err == nil {
		t.Error("Delete() expected error")
	}

	got := c.List()
	if len(got) != 1 || got[0].Title != "Alpha" {
		t.Errorf("snapshot changed after failures: %+v", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	c := newTestCatalog(t, newFakeBackend())
	_, err := c.Update(context.Background(), "missing", source.Partial{Title: strp("X")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_RefreshesSnapshot(t *testing.T) {
	b := newFakeBackend()
	b.seed("nb1", source.Source{ID: "a", Title: "Alpha"})
	c := newTestCatalog(t, b)

	if _, err := c.Update(context.Background(), "a", source.Partial{Title: strp("Alpha 2")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if s, _ := c.GetByID("a"); s.Title != "Alpha 2" {
		t.Errorf("Title = %q, want Alpha 2", s.Title)
	}
}

func TestDelete_RemovesFromSnapshot(t *testing.T) {
	b := newFakeBackend()
	b.seed("nb1", source.Source{ID: "a", Title: "Alpha"}, source.Source{ID: "b", Title: "Beta"})
	c := newTestCatalog(t, b)

	if err := c.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := c.GetByID("a"); ok {
		t.Error("deleted source still resolves")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestRefetchFailure_KeepsPriorSnapshot(t *testing.T) {
	b := newFakeBackend()
	b.seed("nb1", source.Source{ID: "a", Title: "Alpha"})
	c := newTestCatalog(t, b)

	b.failList = true
	if _, err := c.Update(context.Background(), "a", source.Partial{Title: strp("Changed")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if s, _ := c.GetByID("a"); s.Title != "Alpha" {
		t.Errorf("Title = %q, want prior snapshot Alpha", s.Title)
	}
}

func TestAttachDetach(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	b.seed("other", source.Source{ID: "x", Title: "Shared"})
	c := newTestCatalog(t, b)

	if err := c.Attach(ctx, "x"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if _, ok := c.GetByID("x"); !ok {
		t.Fatal("attached source not in snapshot")
	}

	if err := c.Detach(ctx, "x"); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if _, ok := c.GetByID("x"); ok {
		t.Error("detached source still in snapshot")
	}
	if _, ok := b.sources["x"]; !ok {
		t.Error("Detach() should not delete the source")
	}
}
