package auth

import (
	"context"
	"errors"
	"testing"

	"quote/internal/store"
	"quote/internal/store/memory"
)

// fakeProvider emits events synchronously, the way the real provider
// does from Authenticate and SignOut.
type fakeProvider struct {
	handler func(Event)
}

func (p *fakeProvider) AuthCodeURL(state string) string { return "https://example.test/auth" }

func (p *fakeProvider) Authenticate(_ context.Context, _ string) (Identity, error) {
	return Identity{}, nil
}

func (p *fakeProvider) SignOut(ref string) {
	if p.handler != nil {
		p.handler(Event{Identity: Identity{Ref: ref}, SignedOut: true})
	}
}

func (p *fakeProvider) Subscribe(handler func(Event)) func() {
	p.handler = handler
	return func() { p.handler = nil }
}

func (p *fakeProvider) signIn(id Identity) {
	if p.handler != nil {
		p.handler(Event{Identity: id})
	}
}

func seedAdmins(t *testing.T, st *memory.Store, emails ...string) {
	t.Helper()
	err := st.Create(context.Background(), store.CollectionConfig, store.DocAdmins,
		store.Document{"emails": emails})
	if err != nil {
		t.Fatalf("seed admins: %v", err)
	}
}

func seedMember(t *testing.T, st *memory.Store, id, email, identityRef string) {
	t.Helper()
	err := st.Create(context.Background(), store.CollectionUsers, id, store.Document{
		"email":        email,
		"nickname":     "",
		"identity_ref": identityRef,
		"payments":     map[string]bool{},
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
}

func TestGateClassifiesAdmin(t *testing.T) {
	st := memory.New()
	seedAdmins(t, st, "boss@example.com")

	gate := NewGate(st)
	provider := &fakeProvider{}
	gate.Attach(provider)

	provider.signIn(Identity{Ref: "uid-1", Email: "Boss@Example.com"})

	session, ok := gate.SessionByRef("uid-1")
	if !ok {
		t.Fatal("expected a session after sign-in")
	}
	if !session.HasRole(RoleAdmin) {
		t.Errorf("expected admin role, got %v", session.Roles)
	}
	if session.HasRole(RoleMember) || session.HasRole(RoleUnauthorized) {
		t.Errorf("unexpected extra roles: %v", session.Roles)
	}
	if session.MemberID != "" {
		t.Errorf("expected no member id, got %q", session.MemberID)
	}
}

func TestGateBindsIdentityOnFirstSignIn(t *testing.T) {
	st := memory.New()
	seedMember(t, st, "m-1", "alice@example.com", "")

	gate := NewGate(st)
	provider := &fakeProvider{}
	gate.Attach(provider)

	provider.signIn(Identity{Ref: "uid-alice", Email: "alice@example.com"})

	session, ok := gate.SessionByRef("uid-alice")
	if !ok {
		t.Fatal("expected a session after sign-in")
	}
	if !session.HasRole(RoleMember) {
		t.Errorf("expected member role, got %v", session.Roles)
	}
	if session.MemberID != "m-1" {
		t.Errorf("expected member id m-1, got %q", session.MemberID)
	}

	doc, err := st.Get(context.Background(), store.CollectionUsers, "m-1")
	if err != nil {
		t.Fatalf("read member: %v", err)
	}
	if doc["identity_ref"] != "uid-alice" {
		t.Errorf("expected identity_ref bound to uid-alice, got %v", doc["identity_ref"])
	}
}

func TestGateMatchesByBoundIdentityWithoutRebinding(t *testing.T) {
	st := memory.New()
	seedMember(t, st, "m-1", "old-address@example.com", "uid-alice")

	gate := NewGate(st)
	provider := &fakeProvider{}
	gate.Attach(provider)

	// Email changed at the identity provider; the bound reference
	// still identifies the member.
	provider.signIn(Identity{Ref: "uid-alice", Email: "new-address@example.com"})

	session, ok := gate.SessionByRef("uid-alice")
	if !ok {
		t.Fatal("expected a session after sign-in")
	}
	if session.MemberID != "m-1" {
		t.Errorf("expected member id m-1, got %q", session.MemberID)
	}
	for _, call := range st.Calls() {
		if call.Op == memory.OpUpdate {
			t.Errorf("unexpected update call: %+v", call)
		}
	}
}

func TestGateDoesNotRebindTakenEmail(t *testing.T) {
	st := memory.New()
	seedMember(t, st, "m-1", "alice@example.com", "uid-original")

	gate := NewGate(st)
	provider := &fakeProvider{}
	gate.Attach(provider)

	// A different identity with the same email must not steal the
	// already-bound record.
	provider.signIn(Identity{Ref: "uid-impostor", Email: "alice@example.com"})

	doc, err := st.Get(context.Background(), store.CollectionUsers, "m-1")
	if err != nil {
		t.Fatalf("read member: %v", err)
	}
	if doc["identity_ref"] != "uid-original" {
		t.Errorf("binding overwritten: %v", doc["identity_ref"])
	}
}

func TestGateAdminWhoIsAlsoMember(t *testing.T) {
	st := memory.New()
	seedAdmins(t, st, "boss@example.com")
	seedMember(t, st, "m-9", "boss@example.com", "")

	gate := NewGate(st)
	provider := &fakeProvider{}
	gate.Attach(provider)

	provider.signIn(Identity{Ref: "uid-boss", Email: "boss@example.com"})

	session, ok := gate.SessionByRef("uid-boss")
	if !ok {
		t.Fatal("expected a session after sign-in")
	}
	if !session.HasRole(RoleAdmin) || !session.HasRole(RoleMember) {
		t.Errorf("expected both roles, got %v", session.Roles)
	}
	if session.MemberID != "m-9" {
		t.Errorf("expected member id m-9, got %q", session.MemberID)
	}
}

func TestGateUnknownIdentityIsUnauthorized(t *testing.T) {
	st := memory.New()
	seedAdmins(t, st, "boss@example.com")

	gate := NewGate(st)
	provider := &fakeProvider{}
	gate.Attach(provider)

	provider.signIn(Identity{Ref: "uid-stranger", Email: "stranger@example.com"})

	session, ok := gate.SessionByRef("uid-stranger")
	if !ok {
		t.Fatal("expected a denial session")
	}
	if !session.HasRole(RoleUnauthorized) {
		t.Errorf("expected unauthorized role, got %v", session.Roles)
	}
	if session.HasRole(RoleAdmin) || session.HasRole(RoleMember) {
		t.Errorf("unexpected grant: %v", session.Roles)
	}
}

func TestGateMissingAdminDocMeansNoAdmins(t *testing.T) {
	st := memory.New()

	gate := NewGate(st)
	session, err := gate.Establish(context.Background(), Identity{Ref: "uid-1", Email: "boss@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.HasRole(RoleUnauthorized) {
		t.Errorf("expected unauthorized role, got %v", session.Roles)
	}
}

func TestGateSignOutDropsAllSessions(t *testing.T) {
	st := memory.New()
	seedAdmins(t, st, "boss@example.com")

	gate := NewGate(st)
	provider := &fakeProvider{}
	gate.Attach(provider)

	id := Identity{Ref: "uid-boss", Email: "boss@example.com"}
	provider.signIn(id)
	provider.signIn(id)

	if _, ok := gate.SessionByRef("uid-boss"); !ok {
		t.Fatal("expected sessions before sign-out")
	}

	provider.SignOut("uid-boss")

	if _, ok := gate.SessionByRef("uid-boss"); ok {
		t.Error("expected no sessions after sign-out")
	}
}

func TestGateDropTokenKeepsOtherSessions(t *testing.T) {
	st := memory.New()
	seedAdmins(t, st, "boss@example.com")

	gate := NewGate(st)
	id := Identity{Ref: "uid-boss", Email: "boss@example.com"}

	first, err := gate.Establish(context.Background(), id)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	second, err := gate.Establish(context.Background(), id)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}

	gate.DropToken(second.Token)

	if _, ok := gate.SessionByToken(second.Token); ok {
		t.Error("dropped token still resolves")
	}
	if _, ok := gate.SessionByToken(first.Token); !ok {
		t.Error("unrelated token was dropped")
	}
	if s, ok := gate.SessionByRef("uid-boss"); !ok || s.Token != first.Token {
		t.Errorf("expected ref lookup to fall back to first session")
	}
}

func TestGateStoreFailureLeavesNoSession(t *testing.T) {
	st := memory.New()
	st.FailWith(memory.OpGet, store.ErrPermissionDenied)

	gate := NewGate(st)
	_, err := gate.Establish(context.Background(), Identity{Ref: "uid-1", Email: "a@example.com"})
	if !errors.Is(err, store.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if _, ok := gate.SessionByRef("uid-1"); ok {
		t.Error("expected no session after failed classification")
	}
}
