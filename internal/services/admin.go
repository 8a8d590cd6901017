package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"quote/internal/core"
	"quote/internal/store"
)

// Publisher announces roster mutations after they are written. A nil
// publisher disables announcements; a failing one never fails the
// mutation, the write already happened.
type Publisher interface {
	PublishRosterChanged(ctx context.Context, kind, id string) error
}

// Mutation kinds carried on roster-changed announcements.
const (
	KindPaymentsSaved      = "payments_saved"
	KindMemberCreated      = "member_created"
	KindMemberDeleted      = "member_deleted"
	KindWithdrawalRecorded = "withdrawal_recorded"
	KindWithdrawalDeleted  = "withdrawal_deleted"
)

// Admin is the mutation gateway. Every write to the roster goes
// through here; read-only callers use Roster instead.
type Admin struct {
	store     store.DocumentStore
	publisher Publisher
}

func NewAdmin(st store.DocumentStore, publisher Publisher) *Admin {
	return &Admin{store: st, publisher: publisher}
}

// EditSession is one admin's in-progress payment edit plus any pending
// delete confirmation. Toggles accumulate here and reach the store
// only on Save; Deselect or selecting another member discards them.
type EditSession struct {
	mu sync.Mutex

	memberID string
	pristine map[string]bool
	pending  map[string]bool
	saving   bool

	deleteMemberID     string
	deleteWithdrawalID string
}

func NewEditSession() *EditSession {
	return &EditSession{}
}

// Selected returns the member under edit and the pending payment
// flags, or false when nothing is selected.
func (es *EditSession) Selected() (string, map[string]bool, bool) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.memberID == "" {
		return "", nil, false
	}
	return es.memberID, copyFlags(es.pending), true
}

// Dirty reports whether the pending flags differ from the loaded
// baseline. Toggling a flag twice lands back on clean.
func (es *EditSession) Dirty() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.dirtyLocked()
}

func (es *EditSession) dirtyLocked() bool {
	if es.memberID == "" {
		return false
	}
	pristine, _ := json.Marshal(es.pristine)
	pending, _ := json.Marshal(es.pending)
	return string(pristine) != string(pending)
}

// PendingDeletes returns the ids awaiting confirmation, empty when
// none.
func (es *EditSession) PendingDeletes() (memberID, withdrawalID string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.deleteMemberID, es.deleteWithdrawalID
}

func (es *EditSession) resetEditLocked() {
	es.memberID = ""
	es.pristine = nil
	es.pending = nil
}

// Select loads a member into the edit session. Selecting while a save
// is in flight is refused; selecting a different member discards any
// unsaved toggles without warning.
func (a *Admin) Select(ctx context.Context, es *EditSession, memberID string) (core.Member, error) {
	es.mu.Lock()
	if es.saving {
		es.mu.Unlock()
		return core.Member{}, fmt.Errorf("select member: %w", ErrMutationInFlight)
	}
	es.mu.Unlock()

	doc, err := a.store.Get(ctx, store.CollectionUsers, memberID)
	if err != nil {
		return core.Member{}, mapStoreError("select member", err)
	}
	member := store.MemberFromRecord(store.Record{ID: memberID, Doc: doc})

	es.mu.Lock()
	es.memberID = memberID
	es.pristine = copyFlags(member.Payments)
	es.pending = copyFlags(member.Payments)
	es.mu.Unlock()
	return member, nil
}

// Toggle flips one period flag on the pending edit.
func (a *Admin) Toggle(es *EditSession, periodKey string) error {
	if _, err := core.ParsePeriodKey(periodKey); err != nil {
		return fmt.Errorf("toggle payment: %w: %v", ErrValidation, err)
	}
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.memberID == "" {
		return fmt.Errorf("toggle payment: %w: no member selected", ErrValidation)
	}
	if es.saving {
		return fmt.Errorf("toggle payment: %w", ErrMutationInFlight)
	}
	if es.pending == nil {
		es.pending = map[string]bool{}
	}
	es.pending[periodKey] = !es.pending[periodKey]
	return nil
}

// Save writes the pending flags as the member's payment map and makes
// them the new baseline. A second Save while one is in flight is
// refused; a clean session saves as a no-op without touching the
// store.
func (a *Admin) Save(ctx context.Context, es *EditSession) error {
	es.mu.Lock()
	if es.memberID == "" {
		es.mu.Unlock()
		return fmt.Errorf("save payments: %w: no member selected", ErrValidation)
	}
	if es.saving {
		es.mu.Unlock()
		return fmt.Errorf("save payments: %w", ErrMutationInFlight)
	}
	if !es.dirtyLocked() {
		es.mu.Unlock()
		return nil
	}
	es.saving = true
	memberID := es.memberID
	pending := copyFlags(es.pending)
	es.mu.Unlock()

	err := a.store.Update(ctx, store.CollectionUsers, memberID,
		store.Document{"payments": pending})

	es.mu.Lock()
	es.saving = false
	if err == nil && es.memberID == memberID {
		es.pristine = copyFlags(pending)
	}
	es.mu.Unlock()

	if err != nil {
		return mapStoreError("save payments", err)
	}
	a.publish(ctx, KindPaymentsSaved, memberID)
	return nil
}

// Deselect drops the selection and any unsaved toggles.
func (a *Admin) Deselect(es *EditSession) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.resetEditLocked()
}

// CreateMember adds a member with an empty payment map. The identity
// reference stays unbound until that person first signs in.
func (a *Admin) CreateMember(ctx context.Context, email, nickname string) (core.Member, error) {
	member := core.Member{
		ID:       uuid.NewString(),
		Email:    email,
		Nickname: nickname,
		Payments: map[string]bool{},
	}
	if err := member.Validate(); err != nil {
		return core.Member{}, fmt.Errorf("create member: %w: %v", ErrValidation, err)
	}

	existing, err := a.store.Query(ctx, store.CollectionUsers, "email", member.Email)
	if err != nil {
		return core.Member{}, mapStoreError("create member", err)
	}
	if len(existing) > 0 {
		return core.Member{}, fmt.Errorf("create member: %w: email already registered", ErrConflict)
	}

	doc := store.MemberDoc(member)
	doc["created_at"] = store.ServerTimestamp
	if err := a.store.Create(ctx, store.CollectionUsers, member.ID, doc); err != nil {
		return core.Member{}, mapStoreError("create member", err)
	}

	slog.InfoContext(ctx, "Member created", "member_id", member.ID)
	a.publish(ctx, KindMemberCreated, member.ID)
	return member, nil
}

// RequestDeleteMember stages a member deletion for confirmation.
// Nothing is removed until ConfirmDeleteMember.
func (a *Admin) RequestDeleteMember(ctx context.Context, es *EditSession, memberID string) error {
	if _, err := a.store.Get(ctx, store.CollectionUsers, memberID); err != nil {
		return mapStoreError("request member delete", err)
	}
	es.mu.Lock()
	es.deleteMemberID = memberID
	es.mu.Unlock()
	return nil
}

// ConfirmDeleteMember removes the staged member. When the deleted
// member is the one under edit, the edit state resets too.
func (a *Admin) ConfirmDeleteMember(ctx context.Context, es *EditSession) error {
	es.mu.Lock()
	memberID := es.deleteMemberID
	es.mu.Unlock()
	if memberID == "" {
		return fmt.Errorf("confirm member delete: %w: no delete pending", ErrValidation)
	}

	if err := a.store.Delete(ctx, store.CollectionUsers, memberID); err != nil {
		return mapStoreError("confirm member delete", err)
	}

	es.mu.Lock()
	es.deleteMemberID = ""
	if es.memberID == memberID {
		es.resetEditLocked()
	}
	es.mu.Unlock()

	slog.InfoContext(ctx, "Member deleted", "member_id", memberID)
	a.publish(ctx, KindMemberDeleted, memberID)
	return nil
}

// CancelDeleteMember clears a staged member deletion.
func (a *Admin) CancelDeleteMember(es *EditSession) {
	es.mu.Lock()
	es.deleteMemberID = ""
	es.mu.Unlock()
}

// RecordWithdrawal parses a decimal amount and appends a withdrawal.
// The recorded-at instant is assigned by the store.
func (a *Admin) RecordWithdrawal(ctx context.Context, amount, note string) (core.Withdrawal, error) {
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return core.Withdrawal{}, fmt.Errorf("record withdrawal: %w: %v", ErrValidation, err)
	}
	withdrawal := core.Withdrawal{
		ID:     uuid.NewString(),
		Amount: core.Money{Cents: cents},
		Note:   note,
	}
	if err := withdrawal.Validate(); err != nil {
		return core.Withdrawal{}, fmt.Errorf("record withdrawal: %w: %v", ErrValidation, err)
	}

	if err := a.store.Create(ctx, store.CollectionWithdrawals, withdrawal.ID,
		store.WithdrawalDoc(withdrawal)); err != nil {
		return core.Withdrawal{}, mapStoreError("record withdrawal", err)
	}

	slog.InfoContext(ctx, "Withdrawal recorded",
		"withdrawal_id", withdrawal.ID, "amount", withdrawal.Amount)
	a.publish(ctx, KindWithdrawalRecorded, withdrawal.ID)
	return withdrawal, nil
}

// RequestDeleteWithdrawal stages a withdrawal deletion for
// confirmation.
func (a *Admin) RequestDeleteWithdrawal(ctx context.Context, es *EditSession, withdrawalID string) error {
	if _, err := a.store.Get(ctx, store.CollectionWithdrawals, withdrawalID); err != nil {
		return mapStoreError("request withdrawal delete", err)
	}
	es.mu.Lock()
	es.deleteWithdrawalID = withdrawalID
	es.mu.Unlock()
	return nil
}

// ConfirmDeleteWithdrawal removes the staged withdrawal.
func (a *Admin) ConfirmDeleteWithdrawal(ctx context.Context, es *EditSession) error {
	es.mu.Lock()
	withdrawalID := es.deleteWithdrawalID
	es.mu.Unlock()
	if withdrawalID == "" {
		return fmt.Errorf("confirm withdrawal delete: %w: no delete pending", ErrValidation)
	}

	if err := a.store.Delete(ctx, store.CollectionWithdrawals, withdrawalID); err != nil {
		return mapStoreError("confirm withdrawal delete", err)
	}

	es.mu.Lock()
	es.deleteWithdrawalID = ""
	es.mu.Unlock()

	slog.InfoContext(ctx, "Withdrawal deleted", "withdrawal_id", withdrawalID)
	a.publish(ctx, KindWithdrawalDeleted, withdrawalID)
	return nil
}

// CancelDeleteWithdrawal clears a staged withdrawal deletion.
func (a *Admin) CancelDeleteWithdrawal(es *EditSession) {
	es.mu.Lock()
	es.deleteWithdrawalID = ""
	es.mu.Unlock()
}

func (a *Admin) publish(ctx context.Context, kind, id string) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishRosterChanged(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish roster change",
			"kind", kind, "id", id, "error", err)
		// Don't fail the request - the write already landed
	}
}

func copyFlags(flags map[string]bool) map[string]bool {
	out := make(map[string]bool, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}
