package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/matsen/folio/internal/annotation"
	"github.com/matsen/folio/internal/binder"
	"github.com/matsen/folio/internal/catalog"
	"github.com/matsen/folio/internal/citation"
	"github.com/matsen/folio/internal/document"
	"github.com/matsen/folio/internal/source"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strp(s string) *string { return &s }

func createSource(t *testing.T, db *DB, title string, authors ...string) source.Source {
	t.Helper()
	p := source.Partial{Title: strp(title)}
	if authors != nil {
		p.Authors = &authors
	}
	src, err := db.CreateSource(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateSource(%q) error = %v", title, err)
	}
	return src
}

func TestCreateSource_Defaults(t *testing.T) {
	db := setupTestDB(t)
	db.SetUserID("user-1")

	src := createSource(t, db, "Sketch of the Analytical Engine", "Ada Lovelace")

	if src.ID == "" {
		t.Error("ID is empty")
	}
	if src.Type != source.TypeWebsite {
		t.Errorf("Type = %q, want website", src.Type)
	}
	if source.Value(src.UserID) != "user-1" {
		t.Errorf("UserID = %v", src.UserID)
	}
	if src.CreatedAt == nil || src.UpdatedAt == nil {
		t.Error("timestamps not set")
	}
	if len(src.Authors) != 1 || src.Authors[0] != "Ada Lovelace" {
		t.Errorf("Authors = %v", src.Authors)
	}
	if src.DOI != nil {
		t.Errorf("DOI = %q, want nil", *src.DOI)
	}
}

func TestCreateSource_RequiresTitle(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.CreateSource(context.Background(), source.Partial{Title: strp("  ")}); err == nil {
		t.Fatal("expected error for blank title")
	}
}

func TestUpdateSource(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	src := createSource(t, db, "Draft")

	typ := source.TypeBook
	got, err := db.UpdateSource(ctx, src.ID, source.Partial{
		Title:           strp("Compilers"),
		Type:            &typ,
		PublicationDate: strp("1986-01-01"),
	})
	if err != nil {
		t.Fatalf("UpdateSource() error = %v", err)
	}
	if got.Title != "Compilers" || got.Type != source.TypeBook || got.Year() != "1986" {
		t.Errorf("UpdateSource() = %+v", got)
	}

	_, err = db.UpdateSource(ctx, "missing", source.Partial{Title: strp("x")})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("UpdateSource(missing) error = %v, want ErrNotFound", err)
	}
}

func TestNotebookSources_AttachListDetach(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	a := createSource(t, db, "Alpha")
	b := createSource(t, db, "Beta")

	for _, id := range []string{a.ID, b.ID, a.ID} {
		if err := db.AddSourceToNotebook(ctx, "nb1", id); err != nil {
			t.Fatalf("AddSourceToNotebook(%s) error = %v", id, err)
		}
	}

	raw, err := db.ListNotebookSources(ctx, "nb1")
	if err != nil {
		t.Fatalf("ListNotebookSources() error = %v", err)
	}
	srcs, rejected := source.Normalize(raw)
	if len(rejected) != 0 {
		t.Errorf("rejected = %+v", rejected)
	}
	if len(srcs) != 2 || srcs[0].ID != a.ID || srcs[1].ID != b.ID {
		t.Fatalf("sources = %+v", srcs)
	}

	if err := db.RemoveSourceFromNotebook(ctx, "nb1", a.ID); err != nil {
		t.Fatalf("RemoveSourceFromNotebook() error = %v", err)
	}
	raw, _ = db.ListNotebookSources(ctx, "nb1")
	if len(raw) != 1 {
		t.Errorf("after detach got %d rows, want 1", len(raw))
	}
	if _, err := db.GetSource(ctx, a.ID); err != nil {
		t.Errorf("detached source was deleted: %v", err)
	}
}

func TestAddSourceToNotebook_UnknownSource(t *testing.T) {
	db := setupTestDB(t)
	err := db.AddSourceToNotebook(context.Background(), "nb1", "ghost")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSource_CascadesAssociations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	a := createSource(t, db, "Alpha")
	db.AddSourceToNotebook(ctx, "nb1", a.ID)

	if err := db.DeleteSource(ctx, a.ID); err != nil {
		t.Fatalf("DeleteSource() error = %v", err)
	}
	raw, _ := db.ListNotebookSources(ctx, "nb1")
	if len(raw) != 0 {
		t.Errorf("association survived delete: %s", raw)
	}
	var n int
	db.db.QueryRow("SELECT COUNT(*) FROM notebook_sources").Scan(&n)
	if n != 0 {
		t.Errorf("notebook_sources has %d rows, want 0", n)
	}

	if err := db.DeleteSource(ctx, a.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("second DeleteSource() error = %v, want ErrNotFound", err)
	}
}

func TestDB_ImplementsBackends(t *testing.T) {
	var _ catalog.SourceBackend = (*DB)(nil)
	var _ annotation.HighlightBackend = (*DB)(nil)
}

func TestCatalogOverSQLite(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	c := catalog.New("nb1", db, nil)
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	created, err := c.Create(ctx, source.Partial{Title: strp("Gamma")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := c.GetByID(created.ID); !ok {
		t.Error("created source not visible in catalog")
	}
	if err := c.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after delete", c.Len())
	}
}

func TestDeletedSourceKeepsCitation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	c := catalog.New("nb1", db, nil)
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	authors := []string{"Ada Lovelace"}
	src, err := c.Create(ctx, source.Partial{
		Title:           strp("Sketch of the Analytical Engine"),
		Authors:         &authors,
		PublicationDate: strp("1843-09-01"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	b := binder.New(c, citation.Simple)
	doc := document.New()
	if _, err := b.Insert(doc, src.ID); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	b.SetFormat(citation.APA)

	if err := c.Delete(ctx, src.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := b.RenderDocument(ctx, doc)
	if err != nil {
		t.Fatalf("RenderDocument() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d renderings, want 1", len(got))
	}
	if got[0].State != binder.Dangling || got[0].Label != "[Lovelace, 1843]" || got[0].SourceID != src.ID {
		t.Errorf("RenderDocument() = %+v, want dangling [Lovelace, 1843]", got[0])
	}
	if len(doc.Citations()) != 1 {
		t.Error("citation mark removed after source delete")
	}
}

func TestHighlights_CRUD(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	payload := map[string]any{
		"position": map[string]any{
			"boundingRect": map[string]any{"x1": 1.0, "y1": 2.0, "x2": 3.0, "y2": 4.0, "width": 612.0, "height": 792.0},
			"rects":        []any{},
			"pageNumber":   2.0,
		},
		"content": map[string]any{"text": "quoted"},
		"comment": nil,
	}
	created, err := db.CreateHighlight(ctx, "paper-1", payload)
	if err != nil {
		t.Fatalf("CreateHighlight() error = %v", err)
	}
	if created.Comment != nil {
		t.Errorf("Comment = %s, want nil", created.Comment)
	}

	updated, err := db.UpdateHighlight(ctx, created.ID, map[string]any{"comment": map[string]any{"text": "note"}})
	if err != nil {
		t.Fatalf("UpdateHighlight() error = %v", err)
	}
	h := annotation.Decode(updated)
	if h.Comment == nil || h.Comment.Text != "note" || h.Content.Text != "quoted" || h.Position.PageNumber != 2 {
		t.Errorf("decoded = %+v", h)
	}

	list, err := db.ListHighlights(ctx, "paper-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListHighlights() = %d, %v", len(list), err)
	}
	if other, _ := db.ListHighlights(ctx, "paper-2"); len(other) != 0 {
		t.Errorf("paper-2 has %d highlights", len(other))
	}

	if err := db.DeleteHighlight(ctx, created.ID); err != nil {
		t.Fatalf("DeleteHighlight() error = %v", err)
	}
	if err := db.DeleteHighlight(ctx, created.ID); !errors.Is(err, annotation.ErrNotFound) {
		t.Errorf("second DeleteHighlight() error = %v", err)
	}
	if _, err := db.UpdateHighlight(ctx, created.ID, map[string]any{"content": map[string]any{}}); !errors.Is(err, annotation.ErrNotFound) {
		t.Errorf("UpdateHighlight(deleted) error = %v", err)
	}
}

func TestHighlights_LegacyRowsDecode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	pos := `{"boundingRect":{"left":10,"top":20,"width":30,"height":5},"rects":[],"pageNumber":1}`
	encoded, _ := json.Marshal(pos)
	err := db.InsertRawHighlight(ctx, annotation.RawHighlight{
		ID:       "legacy",
		PaperID:  "p",
		Position: encoded,
		Content:  json.RawMessage(`"{\"text\":\"old\"}"`),
		Comment:  json.RawMessage(`garbage`),
	})
	if err != nil {
		t.Fatalf("InsertRawHighlight() error = %v", err)
	}

	store := annotation.NewStore("p", db, nil)
	hs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(hs) != 1 {
		t.Fatalf("List() = %d highlights", len(hs))
	}
	h := hs[0]
	if h.Position.BoundingRect.X2 != 40 || h.Position.BoundingRect.Y2 != 25 {
		t.Errorf("BoundingRect = %+v", h.Position.BoundingRect)
	}
	if h.Content.Text != "old" {
		t.Errorf("Content = %+v", h.Content)
	}
	if h.Comment != nil {
		t.Errorf("Comment = %+v, want nil", h.Comment)
	}
}

func TestNotebooks(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	nb, err := db.CreateNotebook(ctx, "Reading notes")
	if err != nil {
		t.Fatalf("CreateNotebook() error = %v", err)
	}
	if nb.Content != nil {
		t.Errorf("new notebook content = %s", nb.Content)
	}

	doc := []byte(`{"type":"doc","content":[]}`)
	if err := db.SaveNotebookContent(ctx, nb.ID, doc); err != nil {
		t.Fatalf("SaveNotebookContent() error = %v", err)
	}
	got, err := db.GetNotebook(ctx, nb.ID)
	if err != nil {
		t.Fatalf("GetNotebook() error = %v", err)
	}
	if string(got.Content) != string(doc) {
		t.Errorf("Content = %s", got.Content)
	}

	list, err := db.ListNotebooks(ctx)
	if err != nil || len(list) != 1 || list[0].Title != "Reading notes" {
		t.Errorf("ListNotebooks() = %+v, %v", list, err)
	}

	if err := db.SaveNotebookContent(ctx, "missing", doc); !errors.Is(err, ErrNotebookNotFound) {
		t.Errorf("SaveNotebookContent(missing) error = %v", err)
	}
	if _, err := db.GetNotebook(ctx, "missing"); !errors.Is(err, ErrNotebookNotFound) {
		t.Errorf("GetNotebook(missing) error = %v", err)
	}
}
