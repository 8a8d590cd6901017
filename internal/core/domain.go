package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Member is one person in the roster. Members are pre-created by
	// an admin before they ever log in; IdentityRef stays empty until
	// the first authenticated session binds the external identity to
	// the record.
	Member struct {
		ID          string
		Nickname    string
		Email       string
		IdentityRef string
		Payments    map[string]bool // period key -> paid
		CreatedAt   time.Time
	}

	// Withdrawal is a recorded cash withdrawal from collected funds.
	// Withdrawals are created and deleted, never updated in place.
	Withdrawal struct {
		ID         string
		Amount     Money
		Note       string
		RecordedAt time.Time
	}

	// AdminSet lists the identities authorized as administrators.
	AdminSet struct {
		Emails []string
	}
)

var (
	ErrEmptyEmail   = errors.New("empty email")
	ErrInvalidEmail = errors.New("invalid email")
)

// Paid reports whether the given period is marked paid. A period absent
// from the payments map is unpaid, never an error.
func (m Member) Paid(key string) bool {
	return m.Payments[key]
}

// DisplayName returns the nickname, falling back to the email for
// members that never set one.
func (m Member) DisplayName() string {
	if strings.TrimSpace(m.Nickname) != "" {
		return m.Nickname
	}
	return m.Email
}

func (m Member) Validate() error {
	email := strings.TrimSpace(m.Email)
	if email == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

func (w Withdrawal) Validate() error {
	return w.Amount.Validate()
}

// Contains reports whether the email belongs to an administrator.
// Matching is case-insensitive on the whole address.
func (a AdminSet) Contains(email string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return false
	}
	for _, e := range a.Emails {
		if strings.TrimSpace(strings.ToLower(e)) == email {
			return true
		}
	}
	return false
}
