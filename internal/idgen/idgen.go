// Package idgen generates short, URL-safe ids used to correlate outgoing API
// requests and exported files with log lines.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RequestPrefix is prepended to request correlation ids.
const RequestPrefix = "req-"

// ExportPrefix is prepended to export batch ids.
const ExportPrefix = "exp-"

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// New returns a random id with the given prefix.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// RequestID returns a fresh request correlation id. The random source only
// fails when the OS entropy pool is unavailable; in that case a fixed
// placeholder is returned so the request still goes out.
func RequestID() string {
	id, err := New(RequestPrefix)
	if err != nil {
		return RequestPrefix + "unknown"
	}
	return id
}
