// Package store defines the document-store capability the rest of the
// service talks to. Every read and mutation routes through the
// DocumentStore interface; backends are swappable (in-memory, SQLite).
package store

import (
	"context"
	"errors"
)

// Collection names and well-known document ids.
const (
	CollectionUsers       = "users"
	CollectionWithdrawals = "withdrawals"
	CollectionConfig      = "config"

	DocAdmins = "admins"
)

var (
	// ErrNotFound marks a get/update/delete on a document that does
	// not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict marks a create on an id that already exists.
	ErrConflict = errors.New("document already exists")
	// ErrPermissionDenied marks an operation rejected by the store's
	// access policy. Callers must keep it distinguishable from "no
	// data yet".
	ErrPermissionDenied = errors.New("store permission denied")
)

// Document is one stored record's field set.
type Document map[string]any

// Record pairs a document with its id within a collection.
type Record struct {
	ID  string
	Doc Document
}

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp marks a field whose value the store fills with its
// own clock at write time.
var ServerTimestamp = serverTimestamp{}

// IsServerTimestamp reports whether a field value is the sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// DocumentStore is the persistence capability. Query matches a single
// top-level field by equality. Update merges the given fields into the
// existing document; it never replaces the whole record.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection, field string, value any) ([]Record, error)
	List(ctx context.Context, collection string) ([]Record, error)
	Create(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, fields Document) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}
