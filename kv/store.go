// ABOUTME: Key-value storage abstraction for local durable state
// ABOUTME: Shared by the offline queue and the offline route cache
package kv

import (
	"bytes"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is a persistent byte-oriented key-value store.
// Delete of a missing key is not an error. KeysWithPrefix returns keys in
// ascending byte order.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	KeysWithPrefix(prefix []byte) ([][]byte, error)
	Close() error
}

// filterPrefix keeps the keys starting with prefix.
func filterPrefix(keys [][]byte, prefix []byte) [][]byte {
	var matched [][]byte
	for _, k := range keys {
		if bytes.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	return matched
}
