package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/folio/internal/annotation"
)

const selectHighlightFields = `id, paper_id, position, content, comment, created_at, updated_at`

// highlightColumns are the payload keys stored as JSON text.
var highlightColumns = []string{"position", "content", "comment"}

// ListHighlights returns a paper's highlights in creation order. JSON
// columns are returned as stored.
func (d *DB) ListHighlights(ctx context.Context, paperID string) ([]annotation.RawHighlight, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectHighlightFields+`
		FROM highlights
		WHERE paper_id = ?
		ORDER BY created_at, rowid`, paperID)
	if err != nil {
		return nil, fmt.Errorf("listing highlights: %w", err)
	}
	defer rows.Close()

	var out []annotation.RawHighlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (d *DB) getHighlight(ctx context.Context, id string) (annotation.RawHighlight, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectHighlightFields+` FROM highlights WHERE id = ?`, id)
	h, err := scanHighlight(row)
	if err == sql.ErrNoRows {
		return annotation.RawHighlight{}, fmt.Errorf("highlight %s: %w", id, annotation.ErrNotFound)
	}
	if err != nil {
		return annotation.RawHighlight{}, fmt.Errorf("reading highlight %s: %w", id, err)
	}
	return h, nil
}

// CreateHighlight inserts a highlight for paperID.
func (d *DB) CreateHighlight(ctx context.Context, paperID string, payload map[string]any) (annotation.RawHighlight, error) {
	cols, err := encodeHighlightPayload(payload)
	if err != nil {
		return annotation.RawHighlight{}, err
	}

	id := newID()
	ts := d.timestamp()
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO highlights (id, paper_id, position, content, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, paperID, cols["position"], cols["content"], cols["comment"], ts, ts,
	)
	if err != nil {
		return annotation.RawHighlight{}, fmt.Errorf("inserting highlight: %w", err)
	}
	return d.getHighlight(ctx, id)
}

// UpdateHighlight overwrites the payload fields present in payload.
func (d *DB) UpdateHighlight(ctx context.Context, id string, payload map[string]any) (annotation.RawHighlight, error) {
	cols, err := encodeHighlightPayload(payload)
	if err != nil {
		return annotation.RawHighlight{}, err
	}

	var sets []string
	var args []interface{}
	for _, col := range highlightColumns {
		if _, ok := payload[col]; !ok {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, cols[col])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, d.timestamp(), id)

	res, err := d.db.ExecContext(ctx,
		`UPDATE highlights SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return annotation.RawHighlight{}, fmt.Errorf("updating highlight %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return annotation.RawHighlight{}, fmt.Errorf("highlight %s: %w", id, annotation.ErrNotFound)
	}
	return d.getHighlight(ctx, id)
}

// DeleteHighlight removes a highlight.
func (d *DB) DeleteHighlight(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM highlights WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting highlight %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("highlight %s: %w", id, annotation.ErrNotFound)
	}
	return nil
}

// encodeHighlightPayload serializes each payload field to JSON text. Nil
// values become NULL.
func encodeHighlightPayload(payload map[string]any) (map[string]sql.NullString, error) {
	cols := make(map[string]sql.NullString, len(highlightColumns))
	for _, col := range highlightColumns {
		v, ok := payload[col]
		if !ok || v == nil {
			cols[col] = sql.NullString{}
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding highlight %s: %w", col, err)
		}
		cols[col] = nullableString(data)
	}
	return cols, nil
}

func scanHighlight(s scanner) (annotation.RawHighlight, error) {
	var h annotation.RawHighlight
	var position, content, comment, createdAt, updatedAt sql.NullString

	if err := s.Scan(&h.ID, &h.PaperID, &position, &content, &comment, &createdAt, &updatedAt); err != nil {
		return annotation.RawHighlight{}, err
	}
	h.Position = rawJSON(position)
	h.Content = rawJSON(content)
	h.Comment = rawJSON(comment)
	h.CreatedAt = parseTime(createdAt)
	h.UpdatedAt = parseTime(updatedAt)
	return h, nil
}

// rawJSON returns the column text unparsed; decoding and repair happen in
// the annotation package.
func rawJSON(ns sql.NullString) json.RawMessage {
	if !ns.Valid {
		return nil
	}
	return json.RawMessage(ns.String)
}

// InsertRawHighlight stores a highlight row with its JSON columns verbatim.
// It is used to import rows written by other clients.
func (d *DB) InsertRawHighlight(ctx context.Context, h annotation.RawHighlight) error {
	if h.ID == "" {
		h.ID = newID()
	}
	ts := d.timestamp()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO highlights (id, paper_id, position, content, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.PaperID,
		nullableString(h.Position), nullableString(h.Content), nullableString(h.Comment),
		formatTimeOr(h.CreatedAt, ts), formatTimeOr(h.UpdatedAt, ts),
	)
	if err != nil {
		return fmt.Errorf("inserting highlight %s: %w", h.ID, err)
	}
	return nil
}
