package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

const (
	getDocumentSQL    = `SELECT body FROM documents WHERE collection = $1 AND key = $2`
	setDocumentSQL    = `INSERT INTO documents (collection, key, body, updated_at) VALUES ($1, $2, $3, NOW()) ON CONFLICT (collection, key) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`
	createDocumentSQL = `INSERT INTO documents (collection, key, body, updated_at) VALUES ($1, $2, $3, NOW()) ON CONFLICT (collection, key) DO NOTHING`
	deleteDocumentSQL = `DELETE FROM documents WHERE collection = $1 AND key = $2`
	listDocumentsSQL  = `SELECT key, body FROM documents WHERE collection = $1`
)

// DocumentStore is a ports.DocumentStore on the documents table. Writes are single statements,
// so create-if-absent is atomic.
type DocumentStore struct {
	db DBTX
}

func NewDocumentStore(db DBTX) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, getDocumentSQL, collection, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return body, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, setDocumentSQL, collection, key, value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *DocumentStore) CreateIfAbsent(ctx context.Context, collection, key string, value []byte) (bool, error) {
	res, err := s.db.ExecContext(ctx, createDocumentSQL, collection, key, value)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteDocumentSQL, collection, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *DocumentStore) List(ctx context.Context, collection string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, listDocumentsSQL, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var body []byte
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[key] = body
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Ping checks the connection when the underlying handle supports it.
func (s *DocumentStore) Ping(ctx context.Context) error {
	if p, ok := s.db.(interface{ PingContext(context.Context) error }); ok {
		return p.PingContext(ctx)
	}
	return nil
}

var (
	_ ports.DocumentStore     = (*DocumentStore)(nil)
	_ ports.ConditionalWriter = (*DocumentStore)(nil)
	_ ports.Pinger            = (*DocumentStore)(nil)
)
