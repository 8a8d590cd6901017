package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"quote/internal/auth"
	"quote/internal/cache"
	"quote/internal/core"
	"quote/internal/log"
	"quote/internal/services"
)

// rosterView is the cached combination the admin dashboard reads. It
// is rebuilt wholesale from the store and purged on every mutation.
type rosterView struct {
	Status  []core.MemberStanding
	Summary core.FinancialSummary
}

type Server struct {
	http.Server

	gate     *auth.Gate
	provider auth.Provider
	roster   *services.Roster
	admin    *services.Admin

	rateLimiter *rateLimiter

	// LRU cache for the derived roster view; oauth state tokens ride
	// a second short-TTL cache.
	rosterCache  *cache.LRUCache[rosterView]
	stateCache   *cache.LRUCache[bool]
	cacheManager *cache.Manager

	mu           sync.Mutex
	editSessions map[string]*services.EditSession

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, gate *auth.Gate, provider auth.Provider, roster *services.Roster, admin *services.Admin) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		gate:         gate,
		provider:     provider,
		roster:       roster,
		admin:        admin,
		rateLimiter:  newRateLimiter(),
		rosterCache:  cache.NewLRUCache[rosterView](1, 5*time.Minute),
		stateCache:   cache.NewLRUCache[bool](100, 10*time.Minute),
		cacheManager: cache.NewManager(),
		editSessions: make(map[string]*services.EditSession),
	}

	s.cacheManager.Register(s.rosterCache)
	s.cacheManager.Register(s.stateCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/auth/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("/auth/callback", s.withMiddleware(s.handleCallback))
	mux.HandleFunc("/auth/logout", s.withMiddleware(s.handleLogout))

	mux.HandleFunc("/api/me", s.withMiddleware(s.withSession(s.handleMe)))

	mux.HandleFunc("/api/admin/roster", s.withMiddleware(s.withAdmin(s.handleRoster)))
	mux.HandleFunc("/api/admin/summary", s.withMiddleware(s.withAdmin(s.handleSummary)))
	mux.HandleFunc("/api/admin/calculator", s.withMiddleware(s.withAdmin(s.handleCalculator)))

	mux.HandleFunc("/api/admin/members", s.withMiddleware(s.withAdmin(s.handleCreateMember)))
	mux.HandleFunc("/api/admin/members/delete", s.withMiddleware(s.withAdmin(s.handleRequestDeleteMember)))
	mux.HandleFunc("/api/admin/members/delete/confirm", s.withMiddleware(s.withAdmin(s.handleConfirmDeleteMember)))
	mux.HandleFunc("/api/admin/members/delete/cancel", s.withMiddleware(s.withAdmin(s.handleCancelDeleteMember)))

	mux.HandleFunc("/api/admin/edit", s.withMiddleware(s.withAdmin(s.handleEditState)))
	mux.HandleFunc("/api/admin/edit/select", s.withMiddleware(s.withAdmin(s.handleEditSelect)))
	mux.HandleFunc("/api/admin/edit/toggle", s.withMiddleware(s.withAdmin(s.handleEditToggle)))
	mux.HandleFunc("/api/admin/edit/save", s.withMiddleware(s.withAdmin(s.handleEditSave)))
	mux.HandleFunc("/api/admin/edit/deselect", s.withMiddleware(s.withAdmin(s.handleEditDeselect)))

	mux.HandleFunc("/api/admin/withdrawals", s.withMiddleware(s.withAdmin(s.handleWithdrawals)))
	mux.HandleFunc("/api/admin/withdrawals/delete", s.withMiddleware(s.withAdmin(s.handleRequestDeleteWithdrawal)))
	mux.HandleFunc("/api/admin/withdrawals/delete/confirm", s.withMiddleware(s.withAdmin(s.handleConfirmDeleteWithdrawal)))
	mux.HandleFunc("/api/admin/withdrawals/delete/cancel", s.withMiddleware(s.withAdmin(s.handleCancelDeleteWithdrawal)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, a request id
// and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		// Rate limit mutations only; reads are cheap and cached.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// withSession resolves the caller's session and rejects anonymous
// requests.
func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, auth.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.sessionFor(r)
		if !ok {
			writePermissionDenied(w, r, "sign in required")
			return
		}
		next(w, r, session)
	}
}

// withAdmin additionally requires the admin role.
func (s *Server) withAdmin(next func(http.ResponseWriter, *http.Request, auth.Session)) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, session auth.Session) {
		if !session.HasRole(auth.RoleAdmin) {
			writePermissionDenied(w, r, "admin role required")
			return
		}
		next(w, r, session)
	})
}

// editSessionFor returns the per-admin edit session, creating it on
// first use. Edit state is keyed by auth token so two admins never
// share a selection.
func (s *Server) editSessionFor(session auth.Session) *services.EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.editSessions[session.Token]
	if !ok {
		es = services.NewEditSession()
		s.editSessions[session.Token] = es
	}
	return es
}

func (s *Server) dropEditSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.editSessions, token)
}

// invalidateRoster purges the cached roster view after a successful
// mutation.
func (s *Server) invalidateRoster() {
	s.rosterCache.Purge()
}

const rosterCacheKey = "roster"

// rosterView returns the cached roster view, rebuilding it from the
// store on a miss.
func (s *Server) rosterViewCached(ctx context.Context) (rosterView, error) {
	if view, ok := s.rosterCache.Get(rosterCacheKey); ok {
		slog.DebugContext(ctx, "Roster cache hit")
		return view, nil
	}

	status, err := s.roster.Status(ctx)
	if err != nil {
		return rosterView{}, err
	}
	summary, err := s.roster.Summary(ctx)
	if err != nil {
		return rosterView{}, err
	}

	view := rosterView{Status: status, Summary: summary}
	s.rosterCache.Set(rosterCacheKey, view)
	slog.DebugContext(ctx, "Roster cached", "members", len(status))
	return view, nil
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type contextKey string

const requestIDKey contextKey = "request_id"

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.roster.Members(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
