package core

import (
	"testing"
	"time"
)

func TestBuildRosterStatusSortedByDisplayName(t *testing.T) {
	cal := testCalendar()
	ref := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)
	members := []Member{
		{ID: "3", Email: "zoe@example.com"},
		{ID: "1", Nickname: "Bruno", Email: "b@example.com"},
		{ID: "2", Nickname: "anna", Email: "a@example.com"},
	}

	roster := BuildRosterStatus(members, cal, ref, testFee)
	if len(roster) != 3 {
		t.Fatalf("len = %d, want 3", len(roster))
	}
	// Case-insensitive by display name; nickname falls back to email.
	want := []string{"2", "1", "3"}
	for i, id := range want {
		if roster[i].Member.ID != id {
			t.Fatalf("position %d: member %s, want %s", i, roster[i].Member.ID, id)
		}
	}
}

func TestBuildFinancialSummary(t *testing.T) {
	cal := testCalendar()
	fee := Money{Cents: 562}
	members := []Member{
		{ID: "1", Email: "a@x", Payments: map[string]bool{"2025-08": true, "2025-09": true}},
		{ID: "2", Email: "b@x", Payments: map[string]bool{"2025-08": true, "2025-09": true, "2025-10": true}},
	}
	withdrawals := []Withdrawal{{ID: "w1", Amount: Money{Cents: 500}}}

	sum := BuildFinancialSummary(members, withdrawals, cal, fee)
	if sum.TotalCollected.Cents != 2810 {
		t.Fatalf("total collected = %d, want 2810", sum.TotalCollected.Cents)
	}
	if sum.TotalWithdrawn.Cents != 500 {
		t.Fatalf("total withdrawn = %d, want 500", sum.TotalWithdrawn.Cents)
	}
	if sum.Balance.Cents != 2310 {
		t.Fatalf("balance = %d, want 2310", sum.Balance.Cents)
	}
}

func TestBuildFinancialSummaryIgnoresStaleKeys(t *testing.T) {
	cal := testCalendar()
	fee := Money{Cents: 562}
	members := []Member{
		{ID: "1", Email: "a@x", Payments: map[string]bool{"2019-01": true, "2025-08": true}},
	}
	sum := BuildFinancialSummary(members, nil, cal, fee)
	if sum.TotalCollected.Cents != 562 {
		t.Fatalf("total collected = %d, want 562", sum.TotalCollected.Cents)
	}
}
