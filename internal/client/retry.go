package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// DefaultMaxRetries is how many times a transient failure is retried after
// the first attempt.
const DefaultMaxRetries = 3

// RetryingClient decorates a FetchClient with bounded exponential-backoff
// retries. Authentication failures are never retried; they are reported to
// the auth-expired handler once and returned unchanged.
type RetryingClient struct {
	next       FetchClient
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *slog.Logger

	mu            sync.RWMutex
	onAuthExpired func(error)
}

var _ FetchClient = (*RetryingClient)(nil)

// RetryOption configures a RetryingClient.
type RetryOption func(*RetryingClient)

// WithMaxRetries sets the retry limit. Negative values are treated as zero.
func WithMaxRetries(n int) RetryOption {
	return func(r *RetryingClient) {
		if n < 0 {
			n = 0
		}
		r.maxRetries = n
	}
}

// WithBackOff sets the backoff factory. A fresh policy is built per call.
func WithBackOff(fn func() backoff.BackOff) RetryOption {
	return func(r *RetryingClient) {
		if fn != nil {
			r.newBackOff = fn
		}
	}
}

// WithRetryLogger sets the logger used to report retries.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(r *RetryingClient) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithAuthExpiredHandler installs fn as the global auth-expired hook.
func WithAuthExpiredHandler(fn func(error)) RetryOption {
	return func(r *RetryingClient) { r.onAuthExpired = fn }
}

// NewRetryingClient wraps next.
func NewRetryingClient(next FetchClient, opts ...RetryOption) *RetryingClient {
	r := &RetryingClient{
		next:       next,
		maxRetries: DefaultMaxRetries,
		newBackOff: defaultBackOff,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 4 * time.Second
	return b
}

// SetAuthExpiredHandler replaces the auth-expired hook.
func (r *RetryingClient) SetAuthExpiredHandler(fn func(error)) {
	r.mu.Lock()
	r.onAuthExpired = fn
	r.mu.Unlock()
}

// Unwrap returns the decorated client.
func (r *RetryingClient) Unwrap() FetchClient { return r.next }

func (r *RetryingClient) authExpired(err error) {
	r.mu.RLock()
	fn := r.onAuthExpired
	r.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// withRetry runs fn under the client's retry policy.
func withRetry[T any](ctx context.Context, r *RetryingClient, op string, fn func() (T, error)) (T, error) {
	v, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(r.maxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.logger.DebugContext(ctx, "retrying request", "op", op, "err", err, "delay", d)
		}),
	)
	if errors.Is(err, ErrAuthExpired) {
		r.authExpired(err)
	}
	return v, err
}

// Login and Logout go straight through: a rejected login is not a session
// expiry, and logout must not loop back into the sign-out hook.
func (r *RetryingClient) Login(ctx context.Context, name, email string) error {
	return r.next.Login(ctx, name, email)
}

func (r *RetryingClient) Logout(ctx context.Context) error {
	return r.next.Logout(ctx)
}

func (r *RetryingClient) Breeds(ctx context.Context) ([]string, error) {
	return withRetry(ctx, r, "breeds", func() ([]string, error) { return r.next.Breeds(ctx) })
}

func (r *RetryingClient) SearchDogs(ctx context.Context, params *model.DogSearchParams) (*model.DogSearchResponse, error) {
	return withRetry(ctx, r, "search_dogs", func() (*model.DogSearchResponse, error) { return r.next.SearchDogs(ctx, params) })
}

func (r *RetryingClient) Dogs(ctx context.Context, ids []string) ([]model.Dog, error) {
	return withRetry(ctx, r, "dogs", func() ([]model.Dog, error) { return r.next.Dogs(ctx, ids) })
}

func (r *RetryingClient) Match(ctx context.Context, ids []string) (string, error) {
	return withRetry(ctx, r, "match", func() (string, error) { return r.next.Match(ctx, ids) })
}

func (r *RetryingClient) Locations(ctx context.Context, zipCodes []string) ([]model.Location, error) {
	return withRetry(ctx, r, "locations", func() ([]model.Location, error) { return r.next.Locations(ctx, zipCodes) })
}

func (r *RetryingClient) SearchLocations(ctx context.Context, params *model.LocationSearchParams) (*model.LocationSearchResponse, error) {
	return withRetry(ctx, r, "search_locations", func() (*model.LocationSearchResponse, error) {
		return r.next.SearchLocations(ctx, params)
	})
}

func (r *RetryingClient) Close() error { return r.next.Close() }
