// Package auth classifies externally-authenticated identities into
// roles and maintains the resulting sessions. The identity provider is
// a port: the gate registers a single handler and re-derives roles
// synchronously from each identity-changed event.
package auth

import (
	"context"
	"errors"
)

// Identity is the externally-authenticated principal: a stable provider
// reference plus profile fields. The core never sees provider tokens.
type Identity struct {
	Ref   string
	Email string
	Name  string
}

// Event signals an identity change: a sign-in carrying the identity, or
// a sign-out for a previously signed-in reference.
type Event struct {
	Identity  Identity
	SignedOut bool
}

// ErrAuthProvider marks a failure inside the external identity
// provider. Prior session state is left unchanged when it occurs.
var ErrAuthProvider = errors.New("identity provider failure")

// Provider is the identity-provider capability. Subscribe delivers
// events synchronously from Authenticate and SignOut; the returned
// function unsubscribes on session teardown.
type Provider interface {
	AuthCodeURL(state string) string
	Authenticate(ctx context.Context, code string) (Identity, error)
	SignOut(ref string)
	Subscribe(handler func(Event)) (unsubscribe func())
}
