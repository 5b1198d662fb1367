// Package docstore is a schema-less per-document store over Postgres jsonb.
// Widget content and settings live here as documents addressed by
// (collection, id); writes are shallow merges, so concurrent writers follow
// last-write-wins per field. Counters go through Increment, which mutates
// atomically in SQL instead of read-modify-write.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var ErrNotFound = fmt.Errorf("document not found")

type Document struct {
	Collection string
	ID         string
	Data       map[string]any
}

type Store struct {
	db  DB
	pub *redis.Client
	log zerolog.Logger
}

// New creates a store. pub may be nil; live snapshot publication is then
// disabled (tests, worker).
func New(db DB, pub *redis.Client, log zerolog.Logger) *Store {
	return &Store{db: db, pub: pub, log: log}
}

// MergeWrite upserts the document and shallow-merges fields into it. Fields
// not mentioned are left untouched.
func (s *Store) MergeWrite(ctx context.Context, collection, docID string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	const query = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = documents.data || EXCLUDED.data,
		    updated_at = NOW()
		RETURNING data
	`

	var raw []byte
	if err := s.db.QueryRow(ctx, query, collection, docID, payload).Scan(&raw); err != nil {
		return fmt.Errorf("merge write %s/%s: %w", collection, docID, err)
	}

	s.publish(ctx, collection, docID, raw)
	return nil
}

// ArrayAppend appends values to a jsonb array field, creating the document
// or the field as needed.
func (s *Store) ArrayAppend(ctx context.Context, collection, docID, field string, values ...any) error {
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}

	const query = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, jsonb_build_object($3::text, $4::jsonb), NOW())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = jsonb_set(
			documents.data,
			ARRAY[$3::text],
			COALESCE(documents.data->$3::text, '[]'::jsonb) || $4::jsonb
		),
		    updated_at = NOW()
		RETURNING data
	`

	var raw []byte
	if err := s.db.QueryRow(ctx, query, collection, docID, field, payload).Scan(&raw); err != nil {
		return fmt.Errorf("array append %s/%s.%s: %w", collection, docID, field, err)
	}

	s.publish(ctx, collection, docID, raw)
	return nil
}

// Increment adds delta to a numeric field atomically. Concurrent increments
// never lose updates, unlike a local read-then-write.
func (s *Store) Increment(ctx context.Context, collection, docID, field string, delta int64) error {
	const query = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, jsonb_build_object($3::text, $4::bigint), NOW())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = jsonb_set(
			documents.data,
			ARRAY[$3::text],
			to_jsonb(COALESCE((documents.data->>$3::text)::bigint, 0) + $4)
		),
		    updated_at = NOW()
		RETURNING data
	`

	var raw []byte
	if err := s.db.QueryRow(ctx, query, collection, docID, field, delta).Scan(&raw); err != nil {
		return fmt.Errorf("increment %s/%s.%s: %w", collection, docID, field, err)
	}

	s.publish(ctx, collection, docID, raw)
	return nil
}

func (s *Store) Get(ctx context.Context, collection, docID string) (Document, error) {
	const query = `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	var raw []byte
	if err := s.db.QueryRow(ctx, query, collection, docID).Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, docID, err)
	}

	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, fmt.Errorf("decode %s/%s: %w", collection, docID, err)
	}

	return Document{Collection: collection, ID: docID, Data: data}, nil
}

// List returns all documents in a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	const query = `SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`

	rows, err := s.db.Query(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data := make(map[string]any)
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		docs = append(docs, Document{Collection: collection, ID: id, Data: data})
	}
	return docs, rows.Err()
}

func (s *Store) Delete(ctx context.Context, collection, docID string) error {
	const query = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	if _, err := s.db.Exec(ctx, query, collection, docID); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, docID, err)
	}
	s.publish(ctx, collection, docID, []byte("null"))
	return nil
}
