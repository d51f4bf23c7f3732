// Package postgres implements store.Store backed by PostgreSQL.
//
// The two tables mirror the key space used by the BBolt and in-memory
// backends: documents(collection, key) and links(collection, parent_key,
// child_key), each payload stored as JSONB. The composite primary keys give
// the duplicate-insert and parent-side lookup guarantees for free, and a
// secondary index on (collection, child_key) serves the inverse direction.
// Shallow merges use the JSONB || operator so updates are a single atomic
// statement.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slowpost/slowpost/store"
)

// Store implements store.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New returns a Store backed by the given pgx connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewFromDSN creates a connection pool from a DSN string, ensures the
// schema exists, and returns a new Store.
func NewFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return New(pool), nil
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func marshalData(data store.Data) ([]byte, error) {
	if data == nil {
		data = store.Data{}
	}
	return json.Marshal(data)
}

func (s *Store) GetDocument(ctx context.Context, collection, key string) (store.Data, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND key = $2`,
		collection, key).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var data store.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) AddDocument(ctx context.Context, collection, key string, data store.Data) error {
	raw, err := marshalData(data)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO documents (collection, key, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, key) DO NOTHING`,
		collection, key, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, key, store.ErrDuplicate)
	}
	return nil
}

func (s *Store) UpdateDocument(ctx context.Context, collection, key string, partial store.Data) error {
	raw, err := marshalData(partial)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb
		 WHERE collection = $1 AND key = $2`,
		collection, key, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, key, store.ErrNotFound)
	}
	return nil
}

func (s *Store) GetAllDocuments(ctx context.Context, collection string) ([]store.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, data FROM documents WHERE collection = $1 ORDER BY key`,
		collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var data store.Data
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		docs = append(docs, store.Document{Key: key, Data: data})
	}
	return docs, rows.Err()
}

func scanLinks(rows pgx.Rows) ([]store.Link, error) {
	defer rows.Close()
	var links []store.Link
	for rows.Next() {
		var (
			parentKey, childKey string
			raw                 []byte
		)
		if err := rows.Scan(&parentKey, &childKey, &raw); err != nil {
			return nil, err
		}
		var data store.Data
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		links = append(links, store.Link{ParentKey: parentKey, ChildKey: childKey, Data: data})
	}
	return links, rows.Err()
}

func (s *Store) GetChildLinks(ctx context.Context, collection, parentKey string) ([]store.Link, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT parent_key, child_key, data FROM links
		 WHERE collection = $1 AND parent_key = $2 ORDER BY child_key`,
		collection, parentKey)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func (s *Store) GetParentLinks(ctx context.Context, collection, childKey string) ([]store.Link, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT parent_key, child_key, data FROM links
		 WHERE collection = $1 AND child_key = $2 ORDER BY parent_key`,
		collection, childKey)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func (s *Store) AddLink(ctx context.Context, collection, parentKey, childKey string, data store.Data) error {
	raw, err := marshalData(data)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO links (collection, parent_key, child_key, data) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, parent_key, child_key) DO NOTHING`,
		collection, parentKey, childKey, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s/%s: %w", collection, parentKey, childKey, store.ErrDuplicate)
	}
	return nil
}

func (s *Store) UpdateLink(ctx context.Context, collection, parentKey, childKey string, partial store.Data) error {
	raw, err := marshalData(partial)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE links SET data = data || $4::jsonb
		 WHERE collection = $1 AND parent_key = $2 AND child_key = $3`,
		collection, parentKey, childKey, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s/%s: %w", collection, parentKey, childKey, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteLink(ctx context.Context, collection, parentKey, childKey string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM links WHERE collection = $1 AND parent_key = $2 AND child_key = $3`,
		collection, parentKey, childKey)
	return err
}
