// Package store defines the key-value persistence used by the analyzer.
// Implementations include PostgreSQL (durable), Redis (standalone or as a
// read-through cache in front of PostgreSQL), and in-memory (for testing).
//
// The analyzer keeps exactly two logical records: the data-source API key
// and the full ledger snapshot. Values are opaque bytes; callers own the
// encoding.
package store

import (
	"context"
)

// Logical record keys.
const (
	KeyCredential = "api_key"
	KeyPortfolio  = "portfolio"
)

// KV is the persistence interface. There are no multi-key transactions;
// callers that read-modify-write must serialise themselves.
type KV interface {
	// Get returns the value stored under key. found is false when the key
	// has never been set or was deleted.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// GetOr returns the stored value for key, or def when the key is missing.
func GetOr(ctx context.Context, kv KV, key string, def []byte) ([]byte, error) {
	v, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}
