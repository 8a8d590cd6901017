package http

import (
	"testing"

	"quote/internal/log"
)

func TestErrorTypeForKind(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{kindValidation, log.ErrorTypeValidation},
		{kindConflict, log.ErrorTypeConflict},
		{kindNotFound, log.ErrorTypeNotFound},
		{kindAuthProvider, log.ErrorTypeAuth},
		{kindPermission, log.ErrorTypeDatabase},
		{kindInternal, log.ErrorTypeInternal},
		{"unknown", log.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := errorTypeForKind(tt.kind); got != tt.want {
				t.Errorf("errorTypeForKind(%q) = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}
