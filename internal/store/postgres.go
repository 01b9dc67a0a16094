package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/db"
)

// PostgresStore implements Writer using pgxpool.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool), nil
}

func newPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// The data column is JSON rather than JSONB so object key order survives.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	document   TEXT NOT NULL,
	data       JSON NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, document)
);
`

// Migrate creates the documents table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// GetDocument implements Store.
func (s *PostgresStore) GetDocument(ctx context.Context, collection, document string) (json.RawMessage, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND document = $2`,
		collection, document,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(collection, document)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s/%s", collection, document)
	}
	return json.RawMessage(data), nil
}

// PutDocuments upserts docs in one transaction.
func (s *PostgresStore) PutDocuments(ctx context.Context, docs []Document) (int64, error) {
	now := s.now().UTC()
	rows := make([][]any, len(docs))
	for i, d := range docs {
		rows[i] = []any{d.Collection, d.Name, string(d.Data), now}
	}
	n, err := db.UpsertRows(ctx, s.pool, db.Upsert{
		Table:   "documents",
		Columns: []string{"collection", "document", "data", "updated_at"},
		Keys:    []string{"collection", "document"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: put documents")
	}
	return n, nil
}
