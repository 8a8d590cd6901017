package worker

import (
	"context"
	"fmt"
	"log/slog"

	"quote/internal/amqp"
	"quote/internal/export"
	"quote/internal/services"
)

// ExportWorker mirrors the roster to an external exporter whenever a
// roster change message arrives. The message only says that something
// changed; the worker always refetches the whole roster from the store
// so late or reordered deliveries converge on the same snapshot.
type ExportWorker struct {
	roster   *services.Roster
	exporter export.RosterExporter
}

func NewExportWorker(roster *services.Roster, exporter export.RosterExporter) *ExportWorker {
	return &ExportWorker{
		roster:   roster,
		exporter: exporter,
	}
}

// HandleRosterChanged processes a single roster change message.
func (w *ExportWorker) HandleRosterChanged(ctx context.Context, msg *amqp.RosterChangedMessage) error {
	slog.InfoContext(ctx, "Processing roster change",
		"kind", msg.Kind,
		"id", msg.ID)
	return w.export(ctx)
}

// StartupExport pushes one full snapshot at boot so the mirror is
// fresh even when no mutation has happened since the last restart.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup export")
	return w.export(ctx)
}

func (w *ExportWorker) export(ctx context.Context) error {
	status, err := w.roster.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetch roster: %w", err)
	}
	summary, err := w.roster.Summary(ctx)
	if err != nil {
		return fmt.Errorf("fetch summary: %w", err)
	}

	if err := w.exporter.ExportRoster(ctx, w.roster.Calendar(), status, summary); err != nil {
		return fmt.Errorf("export roster: %w", err)
	}

	slog.InfoContext(ctx, "Roster exported", "members", len(status))
	return nil
}
