package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quote/internal/store"
)

func TestCreateGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	doc := store.Document{"email": "a@example.com", "payments": map[string]bool{"2025-08": true}}
	if err := s.Create(ctx, store.CollectionUsers, "m1", doc); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(ctx, store.CollectionUsers, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["email"] != "a@example.com" {
		t.Fatalf("email = %v", got["email"])
	}

	// Returned documents are copies: mutating one must not leak back.
	got["email"] = "tampered"
	again, _ := s.Get(ctx, store.CollectionUsers, "m1")
	if again["email"] != "a@example.com" {
		t.Fatalf("store leaked a mutable reference")
	}
}

func TestCreateConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, store.CollectionUsers, "m1", store.Document{"email": "a@x"})
	err := s.Create(ctx, store.CollectionUsers, "m1", store.Document{"email": "b@x"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, store.CollectionUsers, "m1", store.Document{"email": "a@x", "identity_ref": ""})

	if err := s.Update(ctx, store.CollectionUsers, "m1", store.Document{"identity_ref": "uid-1"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc, _ := s.Get(ctx, store.CollectionUsers, "m1")
	if doc["email"] != "a@x" || doc["identity_ref"] != "uid-1" {
		t.Fatalf("merge lost fields: %v", doc)
	}

	if err := s.Update(ctx, store.CollectionUsers, "missing", store.Document{"x": 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, store.CollectionWithdrawals, "w1", store.Document{"amount_cents": int64(500)})

	if err := s.Delete(ctx, store.CollectionWithdrawals, "w1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, store.CollectionWithdrawals, "w1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, store.CollectionWithdrawals, "w1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestQueryByField(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, store.CollectionUsers, "m1", store.Document{"email": "a@x"})
	_ = s.Create(ctx, store.CollectionUsers, "m2", store.Document{"email": "b@x"})

	recs, err := s.Query(ctx, store.CollectionUsers, "email", "b@x")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "m2" {
		t.Fatalf("query result = %v", recs)
	}

	recs, _ = s.Query(ctx, store.CollectionUsers, "email", "nobody@x")
	if len(recs) != 0 {
		t.Fatalf("expected empty result, got %v", recs)
	}
}

func TestServerTimestampResolved(t *testing.T) {
	s := New()
	fixed := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })
	ctx := context.Background()

	_ = s.Create(ctx, store.CollectionWithdrawals, "w1", store.Document{
		"amount_cents": int64(500),
		"recorded_at":  store.ServerTimestamp,
	})
	doc, _ := s.Get(ctx, store.CollectionWithdrawals, "w1")
	got, ok := doc["recorded_at"].(time.Time)
	if !ok || !got.Equal(fixed) {
		t.Fatalf("recorded_at = %v, want %v", doc["recorded_at"], fixed)
	}
}

func TestJournalAndFailureInjection(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.Create(ctx, store.CollectionUsers, "m1", store.Document{"email": "a@x"})
	_, _ = s.Get(ctx, store.CollectionUsers, "m1")
	_, _ = s.Query(ctx, store.CollectionUsers, "email", "a@x")

	calls := s.Calls()
	if len(calls) != 3 {
		t.Fatalf("journal length = %d, want 3", len(calls))
	}
	if calls[0].Op != OpCreate || calls[0].Collection != store.CollectionUsers || calls[0].ID != "m1" {
		t.Fatalf("first call = %+v", calls[0])
	}
	if calls[0].Doc["email"] != "a@x" {
		t.Fatalf("journal lost payload: %v", calls[0].Doc)
	}
	// Queries journal the field name in its own slot, not as an id.
	if calls[2].Op != OpQuery || calls[2].Field != "email" || calls[2].ID != "" {
		t.Fatalf("query call = %+v", calls[2])
	}

	s.FailWith(OpList, store.ErrPermissionDenied)
	if _, err := s.List(ctx, store.CollectionUsers); !errors.Is(err, store.ErrPermissionDenied) {
		t.Fatalf("expected injected error, got %v", err)
	}
	s.FailWith(OpList, nil)
	if _, err := s.List(ctx, store.CollectionUsers); err != nil {
		t.Fatalf("expected cleared injection, got %v", err)
	}
}
