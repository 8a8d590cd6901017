// Package sqlite implements the document store on a single SQLite
// documents table with JSON bodies.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quote/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

var _ store.DocumentStore = (*Repository)(nil)

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var body string
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decodeBody(body)
}

func (r *Repository) Query(ctx context.Context, collection, field string, value any) ([]store.Record, error) {
	records, err := r.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	var out []store.Record
	for _, rec := range records {
		if equalValue(rec.Doc[field], value) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *Repository) List(ctx context.Context, collection string) ([]store.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE collection = ? ORDER BY id`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		out = append(out, store.Record{ID: id, Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, collection, id string, doc store.Document) error {
	body, err := encodeBody(doc)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
		collection, id, body)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return store.ErrConflict
		}
		return fmt.Errorf("create document: %w", err)
	}
	slog.InfoContext(ctx, "Document created", "collection", collection, "id", id)
	return nil
}

// Update merges fields into the stored body inside a transaction:
// read-modify-write, since the JSON body is opaque to SQLite here.
func (r *Repository) Update(ctx context.Context, collection, id string, fields store.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read document for update: %w", err)
	}

	doc, err := decodeBody(body)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := encodeBody(doc)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?`,
		merged, collection, id); err != nil {
		return fmt.Errorf("write merged document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Document deleted", "collection", collection, "id", id)
	return nil
}

func encodeBody(doc store.Document) (string, error) {
	resolved := make(store.Document, len(doc))
	for k, v := range doc {
		if store.IsServerTimestamp(v) {
			resolved[k] = time.Now().UTC()
			continue
		}
		resolved[k] = v
	}
	body, err := json.Marshal(resolved)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(body), nil
}

func decodeBody(body string) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// equalValue compares a decoded JSON value with a query value. JSON
// decoding widens every number to float64, so numeric comparison goes
// through float64 on both sides.
func equalValue(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
