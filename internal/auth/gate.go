package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"quote/internal/core"
	"quote/internal/store"
)

// Role is what an authenticated identity is allowed to see.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleMember       Role = "member"
	RoleUnauthorized Role = "unauthorized"
)

// Session is one classified identity. An admin who is also a paying
// member holds both roles at once; an unauthorized identity holds only
// the denial role and sees no roster or ledger data.
type Session struct {
	Token    string
	Identity Identity
	Roles    []Role
	MemberID string
}

func (s Session) HasRole(r Role) bool {
	for _, role := range s.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// Gate classifies identities on each identity-changed event and keeps
// the resulting sessions. Classification reads the admin set and the
// roster through the document store on every event; nothing is cached
// across sign-ins.
type Gate struct {
	store store.DocumentStore

	mu          sync.Mutex
	byToken     map[string]Session
	tokensByRef map[string][]string
	unsubscribe func()
}

func NewGate(st store.DocumentStore) *Gate {
	return &Gate{
		store:       st,
		byToken:     map[string]Session{},
		tokensByRef: map[string][]string{},
	}
}

// Attach registers the gate's single handler on the provider.
func (g *Gate) Attach(p Provider) {
	g.unsubscribe = p.Subscribe(g.handle)
}

// Close unsubscribes from the provider and drops every session.
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byToken = map[string]Session{}
	g.tokensByRef = map[string][]string{}
}

func (g *Gate) handle(ev Event) {
	if ev.SignedOut {
		g.DropIdentity(ev.Identity.Ref)
		return
	}
	if _, err := g.Establish(context.Background(), ev.Identity); err != nil {
		slog.Error("Identity classification failed",
			"identity_ref", ev.Identity.Ref, "error", err)
	}
}

// Establish classifies an identity and opens a session for it. The
// linked-identity reference is bound exactly once: on the first
// sign-in that matches a pre-created member record by email.
func (g *Gate) Establish(ctx context.Context, id Identity) (Session, error) {
	adminSet, err := g.loadAdminSet(ctx)
	if err != nil {
		return Session{}, err
	}

	var roles []Role
	if adminSet.Contains(id.Email) {
		roles = append(roles, RoleAdmin)
	}

	memberID, err := g.matchMember(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if memberID != "" {
		roles = append(roles, RoleMember)
	}
	if len(roles) == 0 {
		roles = []Role{RoleUnauthorized}
	}

	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	session := Session{Token: token, Identity: id, Roles: roles, MemberID: memberID}

	g.mu.Lock()
	g.byToken[token] = session
	g.tokensByRef[id.Ref] = append(g.tokensByRef[id.Ref], token)
	g.mu.Unlock()

	slog.InfoContext(ctx, "Session established",
		"identity_ref", id.Ref, "roles", roles, "member_id", memberID)
	return session, nil
}

// SessionByToken looks up a live session.
func (g *Gate) SessionByToken(token string) (Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.byToken[token]
	return s, ok
}

// SessionByRef returns the most recent live session for an identity.
func (g *Gate) SessionByRef(ref string) (Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tokens := g.tokensByRef[ref]
	if len(tokens) == 0 {
		return Session{}, false
	}
	s, ok := g.byToken[tokens[len(tokens)-1]]
	return s, ok
}

// DropToken clears a single session immediately.
func (g *Gate) DropToken(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.byToken[token]
	if !ok {
		return
	}
	delete(g.byToken, token)
	tokens := g.tokensByRef[s.Identity.Ref]
	kept := tokens[:0]
	for _, t := range tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(g.tokensByRef, s.Identity.Ref)
	} else {
		g.tokensByRef[s.Identity.Ref] = kept
	}
}

// DropIdentity clears every session held by an identity reference.
func (g *Gate) DropIdentity(ref string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, token := range g.tokensByRef[ref] {
		delete(g.byToken, token)
	}
	delete(g.tokensByRef, ref)
}

func (g *Gate) loadAdminSet(ctx context.Context) (core.AdminSet, error) {
	doc, err := g.store.Get(ctx, store.CollectionConfig, store.DocAdmins)
	if errors.Is(err, store.ErrNotFound) {
		return core.AdminSet{}, nil
	}
	if err != nil {
		return core.AdminSet{}, fmt.Errorf("load admin set: %w", err)
	}
	return store.AdminSetFromDoc(doc), nil
}

// matchMember finds the member record for an identity: by linked
// reference first, then by email. An email match with an unbound
// reference binds it now; the bind is idempotent thereafter.
func (g *Gate) matchMember(ctx context.Context, id Identity) (string, error) {
	records, err := g.store.Query(ctx, store.CollectionUsers, "identity_ref", id.Ref)
	if err != nil {
		return "", fmt.Errorf("match member by identity: %w", err)
	}
	if len(records) > 0 {
		return records[0].ID, nil
	}

	records, err = g.store.Query(ctx, store.CollectionUsers, "email", id.Email)
	if err != nil {
		return "", fmt.Errorf("match member by email: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	rec := records[0]
	if store.MemberFromRecord(rec).IdentityRef == "" {
		err := g.store.Update(ctx, store.CollectionUsers, rec.ID,
			store.Document{"identity_ref": id.Ref})
		if err != nil {
			return "", fmt.Errorf("bind identity reference: %w", err)
		}
		slog.InfoContext(ctx, "Identity bound to member record",
			"member_id", rec.ID, "identity_ref", id.Ref)
	}
	return rec.ID, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
