package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quote/internal/auth"
	"quote/internal/log"
	"quote/internal/services"
)

// errorEnvelope is the wire form of every failure. The kind mirrors
// the service error taxonomy so clients can branch without parsing
// messages.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	kindValidation   = "validation"
	kindConflict     = "conflict"
	kindNotFound     = "not_found"
	kindAuthProvider = "auth_provider"
	kindPermission   = "permission"
	kindInternal     = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps a service error onto the envelope. A store
// permission failure means the backend refused us, not the caller:
// it still rides the permission kind so clients can tell it apart
// from an empty collection.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := kindInternal
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, services.ErrValidation):
		kind, status = kindValidation, http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrMutationInFlight):
		kind, status = kindConflict, http.StatusConflict
	case errors.Is(err, services.ErrConflict):
		kind, status = kindConflict, http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		kind, status = kindNotFound, http.StatusNotFound
	case errors.Is(err, auth.ErrAuthProvider):
		kind, status = kindAuthProvider, http.StatusBadGateway
	case errors.Is(err, services.ErrStoreUnavailable):
		kind, status = kindPermission, http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentHTTP,
			log.FieldErrorType, errorTypeForKind(kind),
			log.FieldError, err.Error())
	} else {
		slog.WarnContext(r.Context(), "Request rejected",
			log.FieldPath, r.URL.Path,
			log.FieldKind, kind,
			log.FieldErrorType, errorTypeForKind(kind),
			log.FieldError, err.Error())
	}

	writeJSON(w, status, errorEnvelope{Error: errorBody{Kind: kind, Message: err.Error()}})
}

// errorTypeForKind classifies an envelope kind for log filtering. The
// permission kind maps to the database category because writeError
// only emits it when the store refused us.
func errorTypeForKind(kind string) string {
	switch kind {
	case kindValidation:
		return log.ErrorTypeValidation
	case kindConflict:
		return log.ErrorTypeConflict
	case kindNotFound:
		return log.ErrorTypeNotFound
	case kindAuthProvider:
		return log.ErrorTypeAuth
	case kindPermission:
		return log.ErrorTypeDatabase
	default:
		return log.ErrorTypeInternal
	}
}

func writePermissionDenied(w http.ResponseWriter, r *http.Request, message string) {
	slog.WarnContext(r.Context(), "Access denied",
		log.FieldPath, r.URL.Path,
		log.FieldErrorType, log.ErrorTypeAuth,
		"reason", message)
	writeJSON(w, http.StatusForbidden, errorEnvelope{Error: errorBody{Kind: kindPermission, Message: message}})
}

func writeMethodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// decodeBody decodes a JSON request body into dst, mapping malformed
// input to the validation kind.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorEnvelope{
			Error: errorBody{Kind: kindValidation, Message: "malformed request body"},
		})
		return false
	}
	return true
}
