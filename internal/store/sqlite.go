package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Writer using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	document   TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (collection, document)
);
`

// Migrate creates the documents table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetDocument implements Store.
func (s *SQLiteStore) GetDocument(ctx context.Context, collection, document string) (json.RawMessage, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND document = ?`,
		collection, document,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(collection, document)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s/%s", collection, document)
	}
	return json.RawMessage(data), nil
}

// PutDocuments upserts docs in one transaction.
func (s *SQLiteStore) PutDocuments(ctx context.Context, docs []Document) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, document, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, document) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := s.now().UTC()
	var n int64
	for _, d := range docs {
		if !json.Valid(d.Data) {
			return 0, eris.Errorf("sqlite: document %s/%s is not valid json", d.Collection, d.Name)
		}
		if _, err := stmt.ExecContext(ctx, d.Collection, d.Name, string(d.Data), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert %s/%s", d.Collection, d.Name)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}
