package services

import (
	"errors"
	"fmt"

	"quote/internal/store"
)

// Service-level error taxonomy. Handlers map these onto response
// categories; everything else is an internal error.
var (
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrMutationInFlight = errors.New("mutation already in flight")
)

// mapStoreError translates document-store failures into the service
// taxonomy. A permission failure from the backend means the store is
// effectively unreachable for this deployment, not that the caller
// lacks a role.
func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, store.ErrPermissionDenied):
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
