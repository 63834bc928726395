package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db     *sql.DB
	now    func() time.Time
	userID string
}

// timeLayout is RFC 3339 with a fixed-width fraction so stored timestamps
// sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors_json TEXT,
			type TEXT NOT NULL DEFAULT 'website',
			publication TEXT,
			publication_date TEXT,
			url TEXT,
			doi TEXT,
			paper_id TEXT,
			user_id TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sources_paper ON sources(paper_id) WHERE paper_id IS NOT NULL;

		-- Many-to-many between notebooks and sources
		CREATE TABLE IF NOT EXISTS notebook_sources (
			notebook_id TEXT NOT NULL,
			source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			PRIMARY KEY (notebook_id, source_id)
		);

		-- Position, content and comment hold JSON text as written by the viewer
		CREATE TABLE IF NOT EXISTS highlights (
			id TEXT PRIMARY KEY,
			paper_id TEXT NOT NULL,
			position TEXT,
			content TEXT,
			comment TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_highlights_paper ON highlights(paper_id);

		CREATE TABLE IF NOT EXISTS notebooks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// newID returns a fresh record id.
func newID() string {
	return uuid.NewString()
}

func (d *DB) timestamp() string {
	return d.now().Format(timeLayout)
}

func formatTimeOr(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.UTC().Format(timeLayout)
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// nullableStringPtr converts an optional string to sql.NullString.
func nullableStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func parseTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
