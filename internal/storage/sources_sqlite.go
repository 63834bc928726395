package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/folio/internal/catalog"
	"github.com/matsen/folio/internal/source"
)

const selectSourceFields = `s.id, s.title, s.authors_json, s.type,
	s.publication, s.publication_date, s.url, s.doi,
	s.paper_id, s.user_id, s.created_at, s.updated_at`

// SetUserID sets the owner stamped on sources created through d. Empty
// leaves user_id NULL.
func (d *DB) SetUserID(id string) {
	d.userID = id
}

// ListNotebookSources returns the notebook's association rows, each of the
// form {"source": {...}}, oldest attachment first.
func (d *DB) ListNotebookSources(ctx context.Context, notebookID string) ([]json.RawMessage, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectSourceFields+`
		FROM notebook_sources ns
		JOIN sources s ON s.id = ns.source_id
		WHERE ns.notebook_id = ?
		ORDER BY ns.created_at, ns.rowid`, notebookID)
	if err != nil {
		return nil, fmt.Errorf("listing notebook sources: %w", err)
	}
	defer rows.Close()

	srcs, err := scanSources(rows)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, len(srcs))
	for _, s := range srcs {
		data, err := json.Marshal(struct {
			NotebookID string        `json:"notebook_id"`
			Source     source.Source `json:"source"`
		}{notebookID, s})
		if err != nil {
			return nil, fmt.Errorf("encoding source %s: %w", s.ID, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// ListSources returns every source ordered by creation time.
func (d *DB) ListSources(ctx context.Context) ([]source.Source, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectSourceFields+` FROM sources s ORDER BY s.created_at, s.rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()
	return scanSources(rows)
}

// GetSource retrieves a source by id.
func (d *DB) GetSource(ctx context.Context, id string) (source.Source, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectSourceFields+` FROM sources s WHERE s.id = ?`, id)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return source.Source{}, fmt.Errorf("source %s: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return source.Source{}, fmt.Errorf("reading source %s: %w", id, err)
	}
	return src, nil
}

// CreateSource inserts a new source. A missing type becomes website.
func (d *DB) CreateSource(ctx context.Context, p source.Partial) (source.Source, error) {
	if p.Title == nil || strings.TrimSpace(*p.Title) == "" {
		return source.Source{}, fmt.Errorf("creating source: title is required")
	}
	src := p.Apply(source.Source{
		ID:     newID(),
		Type:   source.DefaultType,
		UserID: source.String(d.userID),
	})
	src.Type, _ = source.ParseType(string(src.Type))

	if err := d.insertSource(ctx, src, d.timestamp()); err != nil {
		return source.Source{}, err
	}
	return d.GetSource(ctx, src.ID)
}

func (d *DB) insertSource(ctx context.Context, src source.Source, ts string) error {
	authorsJSON, err := json.Marshal(src.Authors)
	if err != nil {
		return fmt.Errorf("marshaling authors for %s: %w", src.ID, err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO sources (
			id, title, authors_json, type,
			publication, publication_date, url, doi,
			paper_id, user_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Title, string(authorsJSON), string(src.Type),
		nullableStringPtr(src.Publication), nullableStringPtr(src.PublicationDate),
		nullableStringPtr(src.URL), nullableStringPtr(src.DOI),
		nullableStringPtr(src.PaperID), nullableStringPtr(src.UserID),
		formatTimeOr(src.CreatedAt, ts), formatTimeOr(src.UpdatedAt, ts),
	)
	if err != nil {
		return fmt.Errorf("inserting source %s: %w", src.ID, err)
	}
	return nil
}

// UpdateSource applies the non-nil fields of p.
func (d *DB) UpdateSource(ctx context.Context, id string, p source.Partial) (source.Source, error) {
	current, err := d.GetSource(ctx, id)
	if err != nil {
		return source.Source{}, err
	}
	next := p.Apply(current)
	if strings.TrimSpace(next.Title) == "" {
		return source.Source{}, fmt.Errorf("updating source %s: title is required", id)
	}
	next.Type, _ = source.ParseType(string(next.Type))

	authorsJSON, err := json.Marshal(next.Authors)
	if err != nil {
		return source.Source{}, fmt.Errorf("marshaling authors for %s: %w", id, err)
	}

	_, err = d.db.ExecContext(ctx, `
		UPDATE sources SET
			title = ?, authors_json = ?, type = ?,
			publication = ?, publication_date = ?, url = ?, doi = ?,
			paper_id = ?, updated_at = ?
		WHERE id = ?`,
		next.Title, string(authorsJSON), string(next.Type),
		nullableStringPtr(next.Publication), nullableStringPtr(next.PublicationDate),
		nullableStringPtr(next.URL), nullableStringPtr(next.DOI),
		nullableStringPtr(next.PaperID), d.timestamp(), id,
	)
	if err != nil {
		return source.Source{}, fmt.Errorf("updating source %s: %w", id, err)
	}
	return d.GetSource(ctx, id)
}

// DeleteSource removes a source and, by cascade, its notebook associations.
func (d *DB) DeleteSource(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting source %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s: %w", id, catalog.ErrNotFound)
	}
	return nil
}

// AddSourceToNotebook associates a source with a notebook. Attaching
// twice is a no-op.
func (d *DB) AddSourceToNotebook(ctx context.Context, notebookID, sourceID string) error {
	if _, err := d.GetSource(ctx, sourceID); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notebook_sources (notebook_id, source_id, created_at)
		VALUES (?, ?, ?)`, notebookID, sourceID, d.timestamp())
	if err != nil {
		return fmt.Errorf("attaching source %s: %w", sourceID, err)
	}
	return nil
}

// RemoveSourceFromNotebook drops the association only.
func (d *DB) RemoveSourceFromNotebook(ctx context.Context, notebookID, sourceID string) error {
	_, err := d.db.ExecContext(ctx, `
		DELETE FROM notebook_sources WHERE notebook_id = ? AND source_id = ?`, notebookID, sourceID)
	if err != nil {
		return fmt.Errorf("detaching source %s: %w", sourceID, err)
	}
	return nil
}

// CountSources returns the total number of sources.
func (d *DB) CountSources(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	return count, err
}

// RebuildSourcesFromJSONL clears the sources table and reloads it from a
// JSONL dump. Notebook associations of sources that survive are kept.
func (d *DB) RebuildSourcesFromJSONL(ctx context.Context, jsonlPath string) (int, error) {
	srcs, err := ReadSourcesJSONL(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	keep := make([]any, 0, len(srcs))
	for _, s := range srcs {
		keep = append(keep, s.ID)
	}
	if len(keep) == 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM sources`)
	} else {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM sources WHERE id NOT IN (`+placeholders(len(keep))+`)`, keep...)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing sources: %w", err)
	}

	ts := d.timestamp()
	for _, s := range srcs {
		authorsJSON, err := json.Marshal(s.Authors)
		if err != nil {
			return 0, fmt.Errorf("marshaling authors for %s: %w", s.ID, err)
		}
		typ, _ := source.ParseType(string(s.Type))
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sources (
				id, title, authors_json, type,
				publication, publication_date, url, doi,
				paper_id, user_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title, authors_json = excluded.authors_json,
				type = excluded.type, publication = excluded.publication,
				publication_date = excluded.publication_date, url = excluded.url,
				doi = excluded.doi, paper_id = excluded.paper_id,
				user_id = excluded.user_id, updated_at = excluded.updated_at`,
			s.ID, s.Title, string(authorsJSON), string(typ),
			nullableStringPtr(s.Publication), nullableStringPtr(s.PublicationDate),
			nullableStringPtr(s.URL), nullableStringPtr(s.DOI),
			nullableStringPtr(s.PaperID), nullableStringPtr(s.UserID),
			formatTimeOr(s.CreatedAt, ts), formatTimeOr(s.UpdatedAt, ts),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting source %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(srcs), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanSource(s scanner) (source.Source, error) {
	var src source.Source
	var authorsJSON, typ sql.NullString
	var publication, publicationDate, url, doi, paperID, userID sql.NullString
	var createdAt, updatedAt sql.NullString

	err := s.Scan(
		&src.ID, &src.Title, &authorsJSON, &typ,
		&publication, &publicationDate, &url, &doi,
		&paperID, &userID, &createdAt, &updatedAt,
	)
	if err != nil {
		return source.Source{}, err
	}

	src.Type, _ = source.ParseType(typ.String)
	src.Publication = stringPtr(publication)
	src.PublicationDate = stringPtr(publicationDate)
	src.URL = stringPtr(url)
	src.DOI = stringPtr(doi)
	src.PaperID = stringPtr(paperID)
	src.UserID = stringPtr(userID)
	src.CreatedAt = parseTime(createdAt)
	src.UpdatedAt = parseTime(updatedAt)

	if authorsJSON.Valid && authorsJSON.String != "" {
		if err := json.Unmarshal([]byte(authorsJSON.String), &src.Authors); err != nil {
			return source.Source{}, fmt.Errorf("parsing authors JSON for %s: %w", src.ID, err)
		}
	}
	return src, nil
}

func scanSources(rows *sql.Rows) ([]source.Source, error) {
	var srcs []source.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, rows.Err()
}
