package worker

import (
	"context"
	"errors"
	"testing"

	"quote/internal/amqp"
	"quote/internal/core"
	exportmem "quote/internal/export/memory"
	"quote/internal/services"
	"quote/internal/store"
	"quote/internal/store/memory"
)

func newTestWorker(t *testing.T) (*ExportWorker, *memory.Store, *exportmem.Exporter) {
	t.Helper()
	st := memory.New()
	roster := services.NewRoster(st, core.GenerateRange(2025, 8, 2026, 7), core.Money{Cents: 2500})
	exporter := exportmem.New()
	return NewExportWorker(roster, exporter), st, exporter
}

func TestHandleRosterChangedExportsSnapshot(t *testing.T) {
	w, st, exporter := newTestWorker(t)
	ctx := context.Background()

	err := st.Create(ctx, store.CollectionUsers, "m-1", store.Document{
		"email":    "alice@example.com",
		"nickname": "Alice",
		"payments": map[string]bool{"2025-08": true},
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}

	msg := amqp.NewRosterChangedMessage("payments_saved", "m-1")
	if err := w.HandleRosterChanged(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	count, status, summary := exporter.Snapshot()
	if count != 1 {
		t.Fatalf("expected 1 export, got %d", count)
	}
	if len(status) != 1 || status[0].Member.ID != "m-1" {
		t.Errorf("unexpected roster snapshot: %+v", status)
	}
	if summary.TotalCollected.Cents != 2500 {
		t.Errorf("expected 2500 collected, got %d", summary.TotalCollected.Cents)
	}
	if calendar := exporter.Calendar(); len(calendar) != 12 {
		t.Errorf("expected 12 period columns, got %d", len(calendar))
	}
}

func TestHandleRosterChangedPropagatesExportFailure(t *testing.T) {
	w, _, exporter := newTestWorker(t)
	exporter.FailWith(errors.New("sheet gone"))

	msg := amqp.NewRosterChangedMessage("member_created", "m-1")
	if err := w.HandleRosterChanged(context.Background(), msg); err == nil {
		t.Fatal("expected export failure to propagate for requeue")
	}
}

func TestHandleRosterChangedPropagatesStoreFailure(t *testing.T) {
	w, st, _ := newTestWorker(t)
	st.FailWith(memory.OpList, store.ErrPermissionDenied)

	msg := amqp.NewRosterChangedMessage("member_created", "m-1")
	if err := w.HandleRosterChanged(context.Background(), msg); !errors.Is(err, services.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestStartupExportRunsWithEmptyRoster(t *testing.T) {
	w, _, exporter := newTestWorker(t)

	if err := w.StartupExport(context.Background()); err != nil {
		t.Fatalf("startup export: %v", err)
	}
	count, status, _ := exporter.Snapshot()
	if count != 1 {
		t.Fatalf("expected 1 export, got %d", count)
	}
	if len(status) != 0 {
		t.Errorf("expected empty snapshot, got %+v", status)
	}
}
