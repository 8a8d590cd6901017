package backend

import (
	"context"

	"quote/internal/config"
	"quote/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function
type Result struct {
	Store   store.DocumentStore
	Cleanup CleanupFunc
}

// Factory creates document stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds configuration for store creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string
}

// Type represents the kind of document store backing the app
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errNilConfig
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, invalidTypeError(appConfig.DataBackend)
	}

	return Config{
		Type:         t,
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return invalidTypeError(string(c.Type))
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errMissingSQLitePath
	}
	return nil
}
