package export

import (
	"context"

	"quote/internal/core"
)

// RosterExporter mirrors the derived roster and financial summary to an
// external surface. Exports are full rewrites; the export target never
// feeds back into the store. The calendar fixes the period columns so
// every export has the same width regardless of which payments exist.
type RosterExporter interface {
	ExportRoster(ctx context.Context, calendar []core.Period, status []core.MemberStanding, summary core.FinancialSummary) error
}
