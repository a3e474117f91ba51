package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// ErrAuthExpired means the service rejected the session cookie: a 401/403, or
// a 200 whose body carries {"code": 403}. It is never retried.
var ErrAuthExpired = errors.New("authentication session expired")

// APIError represents a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError means no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// authError carries the status that triggered ErrAuthExpired.
type authError struct {
	StatusCode int
	Embedded   bool
}

func (e *authError) Error() string {
	if e.Embedded {
		return fmt.Sprintf("%v (HTTP %d with embedded code 403)", ErrAuthExpired, e.StatusCode)
	}
	return fmt.Sprintf("%v (HTTP %d)", ErrAuthExpired, e.StatusCode)
}

func (e *authError) Is(target error) bool { return target == ErrAuthExpired }

// Kind classifies an error for display and retry decisions.
type Kind string

const (
	KindAuthExpired Kind = "authentication_expired"
	KindValidation  Kind = "validation"
	KindNetwork     Kind = "network"
	KindRemote      Kind = "remote"
	KindCanceled    Kind = "canceled"
	KindUnknown     Kind = "unknown"
)

// Classify maps err onto the error taxonomy.
func Classify(err error) Kind {
	var (
		ve     *model.ValidationError
		netErr *NetworkError
		apiErr *APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthExpired):
		return KindAuthExpired
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &apiErr):
		return KindRemote
	}
	return KindUnknown
}

// Retryable reports whether err is transient: network failures, 5xx and 429
// responses, and unclassified errors. Auth, validation, cancellation and
// other 4xx responses are permanent.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindNetwork, KindUnknown:
		return true
	case KindRemote:
		var apiErr *APIError
		errors.As(err, &apiErr)
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
