package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matsen/folio/internal/notebook"
)

// ErrNotebookNotFound is returned for an unknown notebook id.
var ErrNotebookNotFound = errors.New("notebook not found")

// CreateNotebook inserts an empty notebook.
func (d *DB) CreateNotebook(ctx context.Context, title string) (notebook.Notebook, error) {
	if title == "" {
		return notebook.Notebook{}, fmt.Errorf("creating notebook: title is required")
	}
	id := newID()
	ts := d.timestamp()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO notebooks (id, title, content, created_at, updated_at)
		VALUES (?, ?, NULL, ?, ?)`, id, title, ts, ts)
	if err != nil {
		return notebook.Notebook{}, fmt.Errorf("inserting notebook: %w", err)
	}
	return d.GetNotebook(ctx, id)
}

// GetNotebook retrieves a notebook with its content.
func (d *DB) GetNotebook(ctx context.Context, id string) (notebook.Notebook, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, title, content, created_at, updated_at FROM notebooks WHERE id = ?`, id)
	nb, err := scanNotebook(row)
	if err == sql.ErrNoRows {
		return notebook.Notebook{}, fmt.Errorf("notebook %s: %w", id, ErrNotebookNotFound)
	}
	if err != nil {
		return notebook.Notebook{}, fmt.Errorf("reading notebook %s: %w", id, err)
	}
	return nb, nil
}

// ListNotebooks returns all notebooks without their content, most recently
// updated first.
func (d *DB) ListNotebooks(ctx context.Context) ([]notebook.Notebook, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, NULL, created_at, updated_at FROM notebooks ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing notebooks: %w", err)
	}
	defer rows.Close()

	var out []notebook.Notebook
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, nb)
	}
	return out, rows.Err()
}

// SaveNotebookContent replaces a notebook's document.
func (d *DB) SaveNotebookContent(ctx context.Context, id string, content []byte) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE notebooks SET content = ?, updated_at = ? WHERE id = ?`,
		nullableString(content), d.timestamp(), id)
	if err != nil {
		return fmt.Errorf("saving notebook %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notebook %s: %w", id, ErrNotebookNotFound)
	}
	return nil
}

func scanNotebook(s scanner) (notebook.Notebook, error) {
	var nb notebook.Notebook
	var content, createdAt, updatedAt sql.NullString
	if err := s.Scan(&nb.ID, &nb.Title, &content, &createdAt, &updatedAt); err != nil {
		return notebook.Notebook{}, err
	}
	nb.Content = rawJSON(content)
	nb.CreatedAt = parseTime(createdAt)
	nb.UpdatedAt = parseTime(updatedAt)
	return nb, nil
}
