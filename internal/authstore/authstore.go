// Package authstore keeps hashed API keys. Raw keys are only ever seen when
// they are created; lookups hash the presented key and compare hashes.
package authstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Lookup for unknown keys.
var ErrNotFound = errors.New("api key not found")

// Key is a stored API key.
type Key struct {
	ID        string
	Name      string
	Hash      string
	Roles     []string
	CreatedAt time.Time
}

// Store persists API keys.
type Store interface {
	Add(ctx context.Context, key *Key) error
	Lookup(ctx context.Context, apiKey string) (*Key, error)
	Close() error
}

// HashKey returns the hex SHA-256 of apiKey.
func HashKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// NewKey generates a raw API key and the Key record storing its hash.
func NewKey(name string, roles ...string) (string, *Key, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	raw := "env_" + hex.EncodeToString(buf)
	return raw, &Key{
		ID:        uuid.NewString(),
		Name:      name,
		Hash:      HashKey(raw),
		Roles:     roles,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	keys map[string]*Key // hash -> key
}

var _ Store = (*Memory)(nil)

func NewMemory(keys ...*Key) *Memory {
	m := &Memory{keys: make(map[string]*Key)}
	for _, k := range keys {
		m.keys[k.Hash] = k
	}
	return m
}

func (m *Memory) Add(ctx context.Context, key *Key) error {
	if key.Hash == "" {
		return errors.New("api key hash is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key.Hash]; ok {
		return fmt.Errorf("api key %s already exists", key.Name)
	}
	m.keys[key.Hash] = key
	return nil
}

func (m *Memory) Lookup(ctx context.Context, apiKey string) (*Key, error) {
	hash := HashKey(apiKey)
	m.mu.RLock()
	k, ok := m.keys[hash]
	m.mu.RUnlock()
	if !ok || subtle.ConstantTimeCompare([]byte(hash), []byte(k.Hash)) != 1 {
		return nil, ErrNotFound
	}
	return k, nil
}

func (m *Memory) Close() error { return nil }
