package memory

import (
	"context"
	"sync"

	"quote/internal/core"
	ports "quote/internal/export"
)

// Exporter keeps the last exported snapshot in memory. Used by the
// worker tests and as a local stand-in when no spreadsheet is wired.
type Exporter struct {
	mu       sync.Mutex
	exports  int
	calendar []core.Period
	status   []core.MemberStanding
	summary  core.FinancialSummary
	fail     error
}

var _ ports.RosterExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// FailWith makes every subsequent export return err.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

func (e *Exporter) ExportRoster(_ context.Context, calendar []core.Period, status []core.MemberStanding, summary core.FinancialSummary) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	e.exports++
	e.calendar = append([]core.Period(nil), calendar...)
	e.status = append([]core.MemberStanding(nil), status...)
	e.summary = summary
	return nil
}

// Snapshot returns the export count and the last exported state.
func (e *Exporter) Snapshot() (int, []core.MemberStanding, core.FinancialSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports, append([]core.MemberStanding(nil), e.status...), e.summary
}

// Calendar returns the period columns of the last export.
func (e *Exporter) Calendar() []core.Period {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Period(nil), e.calendar...)
}
