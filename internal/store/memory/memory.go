// Package memory implements the document store as mutex-guarded maps.
// It doubles as the test fake: every call is journaled with the exact
// collection, id and payload touched, and individual operations can be
// made to fail with an injected error.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quote/internal/store"
)

// Operation names used for the journal and error injection.
const (
	OpGet    = "get"
	OpQuery  = "query"
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Call is one journaled store operation. Field is only set for
// queries; ID is only set for by-id operations.
type Call struct {
	Op         string
	Collection string
	ID         string
	Field      string
	Doc        store.Document
}

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]store.Document
	calls       []Call
	failures    map[string]error
	now         func() time.Time
}

var _ store.DocumentStore = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: map[string]map[string]store.Document{},
		failures:    map[string]error{},
		now:         time.Now,
	}
}

// SetClock fixes the clock used for server-assigned timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailWith makes every subsequent call of the named operation return
// err. Pass nil to clear.
func (s *Store) FailWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns a copy of the journal.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Store) Get(_ context.Context, collection, id string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpGet, Collection: collection, ID: id})
	if err := s.failures[OpGet]; err != nil {
		return nil, err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyDoc(doc), nil
}

func (s *Store) Query(_ context.Context, collection, field string, value any) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpQuery, Collection: collection, Field: field})
	if err := s.failures[OpQuery]; err != nil {
		return nil, err
	}
	var out []store.Record
	for id, doc := range s.collections[collection] {
		if doc[field] == value {
			out = append(out, store.Record{ID: id, Doc: copyDoc(doc)})
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *Store) List(_ context.Context, collection string) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpList, Collection: collection})
	if err := s.failures[OpList]; err != nil {
		return nil, err
	}
	out := make([]store.Record, 0, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		out = append(out, store.Record{ID: id, Doc: copyDoc(doc)})
	}
	sortRecords(out)
	return out, nil
}

func (s *Store) Create(_ context.Context, collection, id string, doc store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.resolveTimestamps(copyDoc(doc))
	s.record(Call{Op: OpCreate, Collection: collection, ID: id, Doc: stored})
	if err := s.failures[OpCreate]; err != nil {
		return err
	}
	if _, exists := s.collections[collection][id]; exists {
		return store.ErrConflict
	}
	if s.collections[collection] == nil {
		s.collections[collection] = map[string]store.Document{}
	}
	s.collections[collection][id] = stored
	return nil
}

func (s *Store) Update(_ context.Context, collection, id string, fields store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := s.resolveTimestamps(copyDoc(fields))
	s.record(Call{Op: OpUpdate, Collection: collection, ID: id, Doc: merged})
	if err := s.failures[OpUpdate]; err != nil {
		return err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range merged {
		doc[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpDelete, Collection: collection, ID: id})
	if err := s.failures[OpDelete]; err != nil {
		return err
	}
	if _, ok := s.collections[collection][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) record(c Call) {
	s.calls = append(s.calls, c)
}

func (s *Store) resolveTimestamps(doc store.Document) store.Document {
	for k, v := range doc {
		if store.IsServerTimestamp(v) {
			doc[k] = s.now().UTC()
		}
	}
	return doc
}

func copyDoc(doc store.Document) store.Document {
	out := make(store.Document, len(doc))
	for k, v := range doc {
		switch typed := v.(type) {
		case map[string]bool:
			inner := make(map[string]bool, len(typed))
			for ik, iv := range typed {
				inner[ik] = iv
			}
			out[k] = inner
		case []string:
			out[k] = append([]string(nil), typed...)
		default:
			out[k] = v
		}
	}
	return out
}

func sortRecords(records []store.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
