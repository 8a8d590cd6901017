package services

import (
	"context"
	"sort"
	"time"

	"quote/internal/core"
	"quote/internal/store"
)

// Roster is the read side: it loads members and withdrawals from the
// document store and derives standings against the dues calendar. All
// derivation is pure; this service only does the plumbing.
type Roster struct {
	store    store.DocumentStore
	calendar []core.Period
	fee      core.Money
	now      func() time.Time
}

func NewRoster(st store.DocumentStore, calendar []core.Period, fee core.Money) *Roster {
	return &Roster{
		store:    st,
		calendar: calendar,
		fee:      fee,
		now:      time.Now,
	}
}

func (r *Roster) Fee() core.Money { return r.fee }

func (r *Roster) Calendar() []core.Period { return r.calendar }

// Members returns every member record, unsorted.
func (r *Roster) Members(ctx context.Context) ([]core.Member, error) {
	records, err := r.store.List(ctx, store.CollectionUsers)
	if err != nil {
		return nil, mapStoreError("list members", err)
	}
	members := make([]core.Member, 0, len(records))
	for _, rec := range records {
		members = append(members, store.MemberFromRecord(rec))
	}
	return members, nil
}

// Member returns a single member record.
func (r *Roster) Member(ctx context.Context, id string) (core.Member, error) {
	doc, err := r.store.Get(ctx, store.CollectionUsers, id)
	if err != nil {
		return core.Member{}, mapStoreError("load member", err)
	}
	return store.MemberFromRecord(store.Record{ID: id, Doc: doc}), nil
}

// Status returns the full roster with derived standings, sorted by
// display name.
func (r *Roster) Status(ctx context.Context) ([]core.MemberStanding, error) {
	members, err := r.Members(ctx)
	if err != nil {
		return nil, err
	}
	return core.BuildRosterStatus(members, r.calendar, r.now(), r.fee), nil
}

// Withdrawals returns every recorded withdrawal, newest first.
func (r *Roster) Withdrawals(ctx context.Context) ([]core.Withdrawal, error) {
	records, err := r.store.List(ctx, store.CollectionWithdrawals)
	if err != nil {
		return nil, mapStoreError("list withdrawals", err)
	}
	withdrawals := make([]core.Withdrawal, 0, len(records))
	for _, rec := range records {
		withdrawals = append(withdrawals, store.WithdrawalFromRecord(rec))
	}
	sort.Slice(withdrawals, func(i, j int) bool {
		return withdrawals[i].RecordedAt.After(withdrawals[j].RecordedAt)
	})
	return withdrawals, nil
}

// Summary returns collected, withdrawn and balance totals.
func (r *Roster) Summary(ctx context.Context) (core.FinancialSummary, error) {
	members, err := r.Members(ctx)
	if err != nil {
		return core.FinancialSummary{}, err
	}
	withdrawals, err := r.Withdrawals(ctx)
	if err != nil {
		return core.FinancialSummary{}, err
	}
	return core.BuildFinancialSummary(members, withdrawals, r.calendar, r.fee), nil
}
