package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quote/internal/auth"
	"quote/internal/core"
	"quote/internal/services"
)

const sessionCookie = "session_token"

// View types returned by the JSON API.
type (
	sessionView struct {
		Token    string   `json:"token"`
		Email    string   `json:"email"`
		Name     string   `json:"name"`
		Roles    []string `json:"roles"`
		MemberID string   `json:"member_id,omitempty"`
	}

	standingView struct {
		Standing         string   `json:"standing"`
		PaidCount        int      `json:"paid_count"`
		DuePeriods       int      `json:"due_periods"`
		PeriodsRemaining int      `json:"periods_remaining"`
		TotalPaid        string   `json:"total_paid"`
		TotalPaidCents   int64    `json:"total_paid_cents"`
		MissedPeriods    []string `json:"missed_periods"`
	}

	memberView struct {
		ID          string          `json:"id"`
		Nickname    string          `json:"nickname,omitempty"`
		Email       string          `json:"email"`
		DisplayName string          `json:"display_name"`
		Payments    map[string]bool `json:"payments"`
		Standing    *standingView   `json:"standing,omitempty"`
	}

	summaryView struct {
		TotalCollected      string `json:"total_collected"`
		TotalCollectedCents int64  `json:"total_collected_cents"`
		TotalWithdrawn      string `json:"total_withdrawn"`
		TotalWithdrawnCents int64  `json:"total_withdrawn_cents"`
		Balance             string `json:"balance"`
		BalanceCents        int64  `json:"balance_cents"`
	}

	withdrawalView struct {
		ID          string    `json:"id"`
		Amount      string    `json:"amount"`
		AmountCents int64     `json:"amount_cents"`
		Note        string    `json:"note,omitempty"`
		RecordedAt  time.Time `json:"recorded_at"`
	}

	editStateView struct {
		MemberID                string          `json:"member_id,omitempty"`
		Pending                 map[string]bool `json:"pending,omitempty"`
		Dirty                   bool            `json:"dirty"`
		PendingDeleteMember     string          `json:"pending_delete_member,omitempty"`
		PendingDeleteWithdrawal string          `json:"pending_delete_withdrawal,omitempty"`
	}
)

func newStandingView(d core.DerivedStanding) *standingView {
	missed := make([]string, len(d.MissedPeriods))
	for i, p := range d.MissedPeriods {
		missed[i] = p.Key()
	}
	return &standingView{
		Standing:         string(d.Standing),
		PaidCount:        d.PaidCount,
		DuePeriods:       d.DuePeriods,
		PeriodsRemaining: d.PeriodsRemaining,
		TotalPaid:        d.TotalPaid.String(),
		TotalPaidCents:   d.TotalPaid.Cents,
		MissedPeriods:    missed,
	}
}

func newMemberView(m core.Member, standing *standingView) memberView {
	payments := m.Payments
	if payments == nil {
		payments = map[string]bool{}
	}
	return memberView{
		ID:          m.ID,
		Nickname:    m.Nickname,
		Email:       m.Email,
		DisplayName: m.DisplayName(),
		Payments:    payments,
		Standing:    standing,
	}
}

func newSummaryView(s core.FinancialSummary) summaryView {
	return summaryView{
		TotalCollected:      s.TotalCollected.String(),
		TotalCollectedCents: s.TotalCollected.Cents,
		TotalWithdrawn:      s.TotalWithdrawn.String(),
		TotalWithdrawnCents: s.TotalWithdrawn.Cents,
		Balance:             s.Balance.String(),
		BalanceCents:        s.Balance.Cents,
	}
}

func (s *Server) editStateViewFor(session auth.Session) editStateView {
	es := s.editSessionFor(session)
	view := editStateView{Dirty: es.Dirty()}
	if id, pending, ok := es.Selected(); ok {
		view.MemberID = id
		view.Pending = pending
	}
	view.PendingDeleteMember, view.PendingDeleteWithdrawal = es.PendingDeletes()
	return view
}

// sessionFor resolves the caller's session from the bearer token or
// the session cookie.
func (s *Server) sessionFor(r *http.Request) (auth.Session, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return s.gate.SessionByToken(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return s.gate.SessionByToken(cookie.Value)
	}
	return auth.Session{}, false
}

// handleLogin redirects to the identity provider's consent page.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, "GET")
		return
	}
	state := newStateToken()
	s.stateCache.Set(state, true)
	http.Redirect(w, r, s.provider.AuthCodeURL(state), http.StatusFound)
}

// handleCallback finishes the code exchange. The gate classifies the
// identity synchronously during Authenticate, so the session is
// already there when we look it up.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, "GET")
		return
	}

	state := r.URL.Query().Get("state")
	if _, ok := s.stateCache.Get(state); !ok {
		writeError(w, r, fmt.Errorf("%w: unknown oauth state", services.ErrValidation))
		return
	}
	s.stateCache.Delete(state)

	identity, err := s.provider.Authenticate(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	session, ok := s.gate.SessionByRef(identity.Ref)
	if !ok {
		// Classification failed; re-run it to surface the cause.
		session, err = s.gate.Establish(r.Context(), identity)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", services.ErrStoreUnavailable, err))
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sessionView{
		Token:    session.Token,
		Email:    session.Identity.Email,
		Name:     session.Identity.Name,
		Roles:    roleStrings(session.Roles),
		MemberID: session.MemberID,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	if session, ok := s.sessionFor(r); ok {
		s.dropEditSession(session.Token)
		s.gate.DropToken(session.Token)
		s.provider.SignOut(session.Identity.Ref)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the signed-in member's own standing.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, "GET")
		return
	}
	if session.HasRole(auth.RoleUnauthorized) {
		writePermissionDenied(w, r, "account not authorized")
		return
	}
	if session.MemberID == "" {
		writeError(w, r, fmt.Errorf("%w: no member record linked", services.ErrNotFound))
		return
	}

	member, err := s.roster.Member(r.Context(), session.MemberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	standing := core.DeriveStanding(member.Payments, s.roster.Calendar(), time.Now(), s.roster.Fee())
	writeJSON(w, http.StatusOK, newMemberView(member, newStandingView(standing)))
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, "GET")
		return
	}
	view, err := s.rosterViewCached(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	members := make([]memberView, 0, len(view.Status))
	for _, ms := range view.Status {
		members = append(members, newMemberView(ms.Member, newStandingView(ms.Standing)))
	}
	writeJSON(w, http.StatusOK, struct {
		Members []memberView `json:"members"`
		Summary summaryView  `json:"summary"`
	}{Members: members, Summary: newSummaryView(view.Summary)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, "GET")
		return
	}
	view, err := s.rosterViewCached(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(view.Summary))
}

// handleCalculator converts a donation amount into the number of
// periods it covers at the configured fee.
func (s *Server) handleCalculator(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, "GET")
		return
	}
	// The calculator backs live typing: half-typed input answers
	// "zero periods", never an error.
	raw := strings.TrimSpace(r.URL.Query().Get("amount"))
	amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		amount = 0
	}
	fee := float64(s.roster.Fee().Cents) / 100.0
	writeJSON(w, http.StatusOK, struct {
		Amount  float64 `json:"amount"`
		Fee     float64 `json:"fee"`
		Periods int     `json:"periods"`
	}{Amount: amount, Fee: fee, Periods: core.AmountToPeriods(amount, fee)})
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		Email    string `json:"email"`
		Nickname string `json:"nickname"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	member, err := s.admin.CreateMember(r.Context(), req.Email, req.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateRoster()
	writeJSON(w, http.StatusCreated, newMemberView(member, nil))
}

func (s *Server) handleEditState(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, "GET")
		return
	}
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func (s *Server) handleEditSelect(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		MemberID string `json:"member_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	es := s.editSessionFor(session)
	if _, err := s.admin.Select(r.Context(), es, req.MemberID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

// handleEditToggle flips one period flag on the pending edit. When the
// request names the target value explicitly it becomes idempotent: a
// flag already in that state is left alone.
func (s *Server) handleEditToggle(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		Period string `json:"period"`
		Paid   *bool  `json:"paid"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	es := s.editSessionFor(session)
	if req.Paid != nil {
		if _, pending, ok := es.Selected(); ok && pending[req.Period] == *req.Paid {
			writeJSON(w, http.StatusOK, s.editStateViewFor(session))
			return
		}
	}
	if err := s.admin.Toggle(es, req.Period); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func (s *Server) handleEditSave(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	es := s.editSessionFor(session)
	if err := s.admin.Save(r.Context(), es); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateRoster()
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func (s *Server) handleEditDeselect(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	s.admin.Deselect(s.editSessionFor(session))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRequestDeleteMember(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		MemberID string `json:"member_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	es := s.editSessionFor(session)
	if err := s.admin.RequestDeleteMember(r.Context(), es, req.MemberID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func (s *Server) handleConfirmDeleteMember(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	es := s.editSessionFor(session)
	if err := s.admin.ConfirmDeleteMember(r.Context(), es); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateRoster()
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func (s *Server) handleCancelDeleteMember(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	s.admin.CancelDeleteMember(s.editSessionFor(session))
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func (s *Server) handleWithdrawals(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	switch r.Method {
	case http.MethodGet:
		withdrawals, err := s.roster.Withdrawals(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		views := make([]withdrawalView, 0, len(withdrawals))
		for _, wd := range withdrawals {
			views = append(views, withdrawalView{
				ID:          wd.ID,
				Amount:      wd.Amount.String(),
				AmountCents: wd.Amount.Cents,
				Note:        wd.Note,
				RecordedAt:  wd.RecordedAt,
			})
		}
		writeJSON(w, http.StatusOK, struct {
			Withdrawals []withdrawalView `json:"withdrawals"`
		}{Withdrawals: views})
	case http.MethodPost:
		var req struct {
			Amount string `json:"amount"`
			Note   string `json:"note"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		withdrawal, err := s.admin.RecordWithdrawal(r.Context(), req.Amount, req.Note)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.invalidateRoster()
		writeJSON(w, http.StatusCreated, withdrawalView{
			ID:          withdrawal.ID,
			Amount:      withdrawal.Amount.String(),
			AmountCents: withdrawal.Amount.Cents,
			Note:        withdrawal.Note,
			RecordedAt:  withdrawal.RecordedAt,
		})
	default:
		writeMethodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleRequestDeleteWithdrawal(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		WithdrawalID string `json:"withdrawal_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	es := s.editSessionFor(session)
	if err := s.admin.RequestDeleteWithdrawal(r.Context(), es, req.WithdrawalID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func (s *Server) handleConfirmDeleteWithdrawal(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	es := s.editSessionFor(session)
	if err := s.admin.ConfirmDeleteWithdrawal(r.Context(), es); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateRoster()
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func (s *Server) handleCancelDeleteWithdrawal(w http.ResponseWriter, r *http.Request, session auth.Session) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "POST")
		return
	}
	s.admin.CancelDeleteWithdrawal(s.editSessionFor(session))
	writeJSON(w, http.StatusOK, s.editStateViewFor(session))
}

func roleStrings(roles []auth.Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}

func newStateToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("state_%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
