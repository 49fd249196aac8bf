// ABOUTME: Charm KV-backed implementation of the key-value Store
// ABOUTME: Syncs local writes to a Charm server so captures follow the user across devices
package kv

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// CharmAppName is the Charm KV database name.
	CharmAppName = "hailtrack"
)

// CharmStore wraps charm KV. When autoSync is set every write is followed by a sync.
type CharmStore struct {
	kv       *kv.KV
	autoSync bool
	mu       sync.RWMutex
}

// OpenCharm opens the charm KV database against host.
func OpenCharm(host string, autoSync bool) (*CharmStore, error) {
	if host == "" {
		host = DefaultCharmHost
	}

	// Set charm host before opening KV
	_ = os.Setenv("CHARM_HOST", host)

	db, err := kv.OpenWithDefaults(CharmAppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	s := &CharmStore{kv: db, autoSync: autoSync}

	// Sync on startup to pull remote changes
	if autoSync {
		_ = db.Sync()
	}
	return s, nil
}

func (s *CharmStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.kv.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *CharmStore) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(key, value); err != nil {
		return err
	}

	// Sync while still holding lock to avoid race condition
	if s.autoSync {
		_ = s.kv.Sync()
	}
	return nil
}

func (s *CharmStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	if s.autoSync {
		_ = s.kv.Sync()
	}
	return nil
}

func (s *CharmStore) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, err := s.kv.Keys()
	if err != nil {
		return nil, err
	}
	return filterPrefix(keys, prefix), nil
}

// Sync performs a manual sync with the charm server.
func (s *CharmStore) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Sync()
}

// KeyCount returns the number of keys in the local replica.
func (s *CharmStore) KeyCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, err := s.kv.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Close is a no-op: charm/kv doesn't expose Close() directly and the
// underlying BadgerDB is cleaned up on process exit.
func (s *CharmStore) Close() error {
	return nil
}

// Reset deletes the local replica and re-pulls it from the server.
func (s *CharmStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Reset()
}
