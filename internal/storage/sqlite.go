package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage on a single kv table.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	logger   *zap.Logger
	mu       sync.Mutex
	initOnce sync.Once
	initErr  error
}

// NewSQLite creates a SQLite storage instance at path.
//
// An empty path resolves to ~/.promptstruct/store.db. If the home directory
// cannot be determined the storage is created disabled and every operation
// reports ErrStorageFailure.
func NewSQLite(path string, logger *zap.Logger) *SQLiteStorage {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Warn("failed to get home directory", zap.Error(err))
			return &SQLiteStorage{enabled: false, logger: logger}
		}
		path = filepath.Join(home, ".promptstruct", "store.db")
	}

	return &SQLiteStorage{
		dbPath:  path,
		enabled: true,
		logger:  logger,
	}
}

// Path returns the database file location.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Init creates the database directory, opens the database and runs migrations.
//
// If initialization fails the storage is disabled; later calls return the
// same error.
func (s *SQLiteStorage) Init() error {
	if !s.enabled && s.db == nil && s.initErr == nil {
		s.initErr = failure("init", errors.New("storage disabled"))
	}

	s.initOnce.Do(func() {
		if !s.enabled {
			return
		}

		dbDir := filepath.Dir(s.dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			s.disable(fmt.Errorf("failed to create db directory: %w", err))
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			s.disable(fmt.Errorf("failed to open database: %w", err))
			return
		}
		// A single connection keeps writes serialized inside the process.
		db.SetMaxOpenConns(1)
		s.db = db

		if err := db.Ping(); err != nil {
			s.disable(fmt.Errorf("failed to ping database: %w", err))
			return
		}

		if err := s.runMigrations(); err != nil {
			s.disable(fmt.Errorf("failed to run migrations: %w", err))
			return
		}
	})

	return s.initErr
}

func (s *SQLiteStorage) disable(err error) {
	s.enabled = false
	s.initErr = failure("init", err)
	s.logger.Warn("sqlite storage disabled", zap.String("path", s.dbPath), zap.Error(err))
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}

func (s *SQLiteStorage) ready() error {
	if s.initErr != nil {
		return s.initErr
	}
	if !s.enabled || s.db == nil {
		return failure("access", errors.New("storage not initialized"))
	}
	return nil
}

// Get reads the values stored under keys.
func (s *SQLiteStorage) Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	result := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM kv WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, failure("get", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, failure("scan", err)
		}
		result[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, failure("get", err)
	}

	return result, nil
}

// Set upserts all entries in one transaction.
func (s *SQLiteStorage) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failure("begin", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, string(value), now); err != nil {
			_ = tx.Rollback()
			return failure("set "+key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return failure("commit", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}
