/*
Package storage implements the persistent key-value capability used by the
feedback and history layers.

Values are opaque JSON documents addressed by string keys. Three backends are
provided: SQLite (default, stored at ~/.promptstruct/store.db using
modernc.org/sqlite, a pure Go, CGo-free implementation), Redis, and an
in-memory map for tests and ephemeral sessions.
*/
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrStorageFailure wraps every error returned by a backend read or write.
var ErrStorageFailure = errors.New("storage failure")

// Storage defines the key-value operations the core depends on.
type Storage interface {
	// Init opens the backend and runs migrations. Safe to call more than once.
	Init() error

	// Get returns the values stored under keys. Missing keys are absent from
	// the result rather than mapped to null.
	Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error)

	// Set writes all entries. Backends apply the batch atomically where they can.
	Set(ctx context.Context, entries map[string]json.RawMessage) error

	// Close releases the backend.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string
	RedisURL    string
	RedisPrefix string
}

// Open builds the backend named by opts.Backend. The returned storage is not
// initialized yet; callers run Init.
func Open(opts Options, logger *zap.Logger) (Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Backend {
	case "", BackendSQLite:
		return NewSQLite(opts.Path, logger), nil
	case BackendRedis:
		return NewRedis(opts.RedisURL, opts.RedisPrefix, logger)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", opts.Backend)
	}
}

func failure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageFailure, op, err)
}
