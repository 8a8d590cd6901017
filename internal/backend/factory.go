package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quote/internal/store/memory"
	"quote/internal/store/sqlite"
)

var (
	errNilConfig         = errors.New("app config is nil")
	errMissingSQLitePath = errors.New("SQLite database path is required for sqlite backend")
)

func invalidTypeError(t string) error {
	return fmt.Errorf("invalid backend type: %s", t)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(_ context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(cfg)
	case MemoryBackend:
		return f.createMemoryStore()
	default:
		return nil, invalidTypeError(string(cfg.Type))
	}
}

func (f *DefaultFactory) createSQLiteStore(cfg Config) (*Result, error) {
	repo, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite store", "db_path", cfg.SQLiteDBPath)

	return &Result{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryStore() (*Result, error) {
	st := memory.New()

	f.logger.Info("Initialized memory store")

	return &Result{
		Store:   st,
		Cleanup: nil, // No cleanup needed for memory store
	}, nil
}
