// Package sqlite stores API keys in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hanpama/envelope/internal/authstore"
)

type Store struct {
	db *sql.DB
}

var _ authstore.Store = (*Store)(nil)

// New opens (and creates if needed) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			key_hash TEXT NOT NULL UNIQUE,
			roles TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) Add(ctx context.Context, key *authstore.Key) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	roles, err := json.Marshal(key.Roles)
	if err != nil {
		return fmt.Errorf("failed to marshal roles: %w", err)
	}

	query := `INSERT INTO api_keys (id, name, key_hash, roles, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, key.ID, key.Name, key.Hash, string(roles), key.CreatedAt); err != nil {
		return fmt.Errorf("failed to add api key %s: %w", key.Name, err)
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, apiKey string) (*authstore.Key, error) {
	query := `SELECT id, name, key_hash, roles, created_at FROM api_keys WHERE key_hash = ?`

	var key authstore.Key
	var rolesJSON string
	err := s.db.QueryRowContext(ctx, query, authstore.HashKey(apiKey)).Scan(
		&key.ID, &key.Name, &key.Hash, &rolesJSON, &key.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, authstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	if err := json.Unmarshal([]byte(rolesJSON), &key.Roles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roles: %w", err)
	}
	return &key, nil
}

func (s *Store) Close() error { return s.db.Close() }
