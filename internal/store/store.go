// Package store defines the durable key/value blob store that holds client
// state between runs: favorites, identity, session cookies and the last
// search criteria. Keys are flat strings; values are opaque bytes (JSON in
// practice).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// DecodeError means a stored value exists but is not valid JSON for the
// requested type.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Key, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Store is the persistence interface for client state.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and returns the
	// number of keys removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// GetJSON loads key and decodes it into v. It returns ErrNotFound unchanged
// so callers can distinguish "absent" from "corrupt".
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Key: key, Err: err}
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// Keys used for client state. Every key shares KeyPrefix so sign-out can
// drop them in one DeletePrefix call.
const (
	KeyPrefix    = "fetch_"
	KeyFavorites = KeyPrefix + "favorites"
	KeyIdentity  = KeyPrefix + "identity"
	KeySession   = KeyPrefix + "session"
	KeySearch    = KeyPrefix + "search"
)
