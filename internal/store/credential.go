package store

import (
	"context"
	"strings"
)

// CredentialStore reads and writes the data-source API key record.
type CredentialStore struct {
	kv KV
}

// NewCredentialStore wraps kv for API key access.
func NewCredentialStore(kv KV) *CredentialStore {
	return &CredentialStore{kv: kv}
}

// APIKey returns the stored key, or "" when none has been saved.
func (c *CredentialStore) APIKey(ctx context.Context) (string, error) {
	v, err := GetOr(ctx, c.kv, KeyCredential, nil)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// SetAPIKey stores key after trimming whitespace. An empty key clears the record.
func (c *CredentialStore) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return c.kv.Delete(ctx, KeyCredential)
	}
	return c.kv.Set(ctx, KeyCredential, []byte(key))
}
