package store

import (
	"time"

	"quote/internal/core"
)

// Codecs between core records and stored documents. The SQLite backend
// round-trips documents through JSON, so decoding tolerates both native
// Go values and their JSON shapes (RFC 3339 strings for times,
// map[string]any for payment maps).

// MemberDoc converts a member to its stored document form.
func MemberDoc(m core.Member) Document {
	payments := m.Payments
	if payments == nil {
		payments = map[string]bool{}
	}
	return Document{
		"email":        m.Email,
		"nickname":     m.Nickname,
		"identity_ref": m.IdentityRef,
		"payments":     payments,
		"created_at":   m.CreatedAt,
	}
}

// MemberFromRecord decodes a stored member record.
func MemberFromRecord(r Record) core.Member {
	return core.Member{
		ID:          r.ID,
		Email:       asString(r.Doc["email"]),
		Nickname:    asString(r.Doc["nickname"]),
		IdentityRef: asString(r.Doc["identity_ref"]),
		Payments:    asPayments(r.Doc["payments"]),
		CreatedAt:   asTime(r.Doc["created_at"]),
	}
}

// WithdrawalDoc converts a withdrawal to its stored document form. The
// recorded-at field is the store's clock, not the caller's.
func WithdrawalDoc(w core.Withdrawal) Document {
	return Document{
		"amount_cents": w.Amount.Cents,
		"note":         w.Note,
		"recorded_at":  ServerTimestamp,
	}
}

// WithdrawalFromRecord decodes a stored withdrawal record.
func WithdrawalFromRecord(r Record) core.Withdrawal {
	return core.Withdrawal{
		ID:         r.ID,
		Amount:     core.Money{Cents: asInt64(r.Doc["amount_cents"])},
		Note:       asString(r.Doc["note"]),
		RecordedAt: asTime(r.Doc["recorded_at"]),
	}
}

// AdminSetDoc converts the admin set to its stored document form.
func AdminSetDoc(a core.AdminSet) Document {
	emails := a.Emails
	if emails == nil {
		emails = []string{}
	}
	return Document{"emails": emails}
}

// AdminSetFromDoc decodes the admin configuration document.
func AdminSetFromDoc(doc Document) core.AdminSet {
	return core.AdminSet{Emails: asStrings(doc["emails"])}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}

func asPayments(v any) map[string]bool {
	switch m := v.(type) {
	case map[string]bool:
		out := make(map[string]bool, len(m))
		for k, paid := range m {
			out[k] = paid
		}
		return out
	case map[string]any:
		out := make(map[string]bool, len(m))
		for k, raw := range m {
			if paid, ok := raw.(bool); ok {
				out[k] = paid
			}
		}
		return out
	default:
		return map[string]bool{}
	}
}

func asStrings(v any) []string {
	switch vs := v.(type) {
	case []string:
		return append([]string(nil), vs...)
	case []any:
		out := make([]string, 0, len(vs))
		for _, raw := range vs {
			if s, ok := raw.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
