package session

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps values in a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, logger: logger}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) applySchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Get(ctx context.Context, userID, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE user_id = ? AND key = ?`,
		userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for %s: %w", key, userID, err)
	}
	return value, nil
}

func (s *SQLiteStore) Put(ctx context.Context, userID, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_values (user_id, key, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s for %s: %w", key, userID, err)
	}
	s.logger.Debug("session value stored", zap.String("user_id", userID), zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE user_id = ? AND key = ?`, userID, key,
	); err != nil {
		return fmt.Errorf("failed to delete %s for %s: %w", key, userID, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("failed to clear session for %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
