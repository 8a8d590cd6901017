package core

import (
	"sort"
	"strings"
	"time"
)

// MemberStanding pairs a member with their derived standing for the
// roster table.
type MemberStanding struct {
	Member   Member
	Standing DerivedStanding
}

// FinancialSummary combines collected funds and recorded withdrawals.
// There is no persisted running balance; the summary is recomputed on
// every read to avoid drift.
type FinancialSummary struct {
	TotalCollected Money
	TotalWithdrawn Money
	Balance        Money
}

// BuildRosterStatus derives the fleet-wide status table, sorted by
// display name for stable presentation (ties broken by id).
func BuildRosterStatus(members []Member, calendar []Period, ref time.Time, fee Money) []MemberStanding {
	roster := make([]MemberStanding, 0, len(members))
	for _, m := range members {
		roster = append(roster, MemberStanding{
			Member:   m,
			Standing: DeriveStanding(m.Payments, calendar, ref, fee),
		})
	}
	sort.Slice(roster, func(i, j int) bool {
		a := strings.ToLower(roster[i].Member.DisplayName())
		b := strings.ToLower(roster[j].Member.DisplayName())
		if a != b {
			return a < b
		}
		return roster[i].Member.ID < roster[j].Member.ID
	})
	return roster
}

// BuildFinancialSummary totals collected fees across all members and
// subtracts recorded withdrawals. Paid counts honor the calendar, so a
// stale payment key never inflates the collected total.
func BuildFinancialSummary(members []Member, withdrawals []Withdrawal, calendar []Period, fee Money) FinancialSummary {
	var paidPeriods int
	for _, m := range members {
		for _, p := range calendar {
			if m.Payments[p.Key()] {
				paidPeriods++
			}
		}
	}
	var withdrawn Money
	for _, w := range withdrawals {
		withdrawn.Cents += w.Amount.Cents
	}
	collected := fee.Times(paidPeriods)
	return FinancialSummary{
		TotalCollected: collected,
		TotalWithdrawn: withdrawn,
		Balance:        collected.Sub(withdrawn),
	}
}
