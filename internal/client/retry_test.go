package client

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// scriptedClient fails Breeds with errs in order, then succeeds.
type scriptedClient struct {
	FetchClient
	errs  []error
	calls atomic.Int32
}

func (s *scriptedClient) Breeds(context.Context) ([]string, error) {
	n := int(s.calls.Add(1)) - 1
	if n < len(s.errs) {
		return nil, s.errs[n]
	}
	return []string{"Boxer"}, nil
}

func (s *scriptedClient) Login(context.Context, string, string) error {
	s.calls.Add(1)
	return &authError{StatusCode: http.StatusUnauthorized}
}

func newScripted(errs ...error) *scriptedClient { return &scriptedClient{errs: errs} }

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestRetryingClient_RetriesTransient(t *testing.T) {
	next := newScripted(
		&APIError{StatusCode: 503, Message: "unavailable"},
		&NetworkError{Op: "GET", Err: errors.New("reset")},
	)
	r := NewRetryingClient(next, WithBackOff(zeroBackOff))

	breeds, err := r.Breeds(context.Background())
	if err != nil {
		t.Fatalf("Breeds() error = %v", err)
	}
	if len(breeds) != 1 {
		t.Errorf("breeds = %v", breeds)
	}
	if n := next.calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestRetryingClient_GivesUpAfterLimit(t *testing.T) {
	fail := &APIError{StatusCode: 500, Message: "boom"}
	next := newScripted(fail, fail, fail, fail, fail, fail)
	r := NewRetryingClient(next, WithBackOff(zeroBackOff))

	_, err := r.Breeds(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Fatalf("error = %v, want HTTP 500", err)
	}
	if n := next.calls.Load(); n != DefaultMaxRetries+1 {
		t.Errorf("calls = %d, want %d", n, DefaultMaxRetries+1)
	}
}

func TestRetryingClient_NeverRetriesAuth(t *testing.T) {
	next := newScripted(&authError{StatusCode: http.StatusForbidden})
	var hooked atomic.Int32
	r := NewRetryingClient(next,
		WithBackOff(zeroBackOff),
		WithAuthExpiredHandler(func(err error) {
			if !errors.Is(err, ErrAuthExpired) {
				t.Errorf("hook got %v", err)
			}
			hooked.Add(1)
		}),
	)

	_, err := r.Breeds(context.Background())
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("error = %v, want ErrAuthExpired", err)
	}
	if n := next.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if n := hooked.Load(); n != 1 {
		t.Errorf("hook calls = %d, want 1", n)
	}
}

func TestRetryingClient_NoRetryOnClientError(t *testing.T) {
	next := newScripted(&APIError{StatusCode: 400, Message: "bad"}, nil)
	r := NewRetryingClient(next, WithBackOff(zeroBackOff))

	if _, err := r.Breeds(context.Background()); Classify(err) != KindRemote {
		t.Fatalf("error = %v, want remote", err)
	}
	if n := next.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestRetryingClient_MaxRetriesZero(t *testing.T) {
	next := newScripted(&NetworkError{Op: "GET", Err: errors.New("reset")})
	r := NewRetryingClient(next, WithBackOff(zeroBackOff), WithMaxRetries(0))

	if _, err := r.Breeds(context.Background()); Classify(err) != KindNetwork {
		t.Fatalf("error = %v, want network", err)
	}
	if n := next.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestRetryingClient_LoginBypassesHook(t *testing.T) {
	next := newScripted()
	var hooked atomic.Int32
	r := NewRetryingClient(next, WithAuthExpiredHandler(func(error) { hooked.Add(1) }))

	if err := r.Login(context.Background(), "Ada", "ada@example.com"); !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("Login() error = %v", err)
	}
	if hooked.Load() != 0 {
		t.Error("auth hook fired for a rejected login")
	}
}

func TestRetryingClient_OverHTTP(t *testing.T) {
	h := &testHandler{statusCode: http.StatusOK, responseBody: `{"code":403}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	var hooked atomic.Int32
	r := NewRetryingClient(c, WithBackOff(zeroBackOff))
	r.SetAuthExpiredHandler(func(error) { hooked.Add(1) })

	if _, err := r.SearchDogs(context.Background(), &model.DogSearchParams{Size: 25}); !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("SearchDogs() error = %v, want ErrAuthExpired", err)
	}
	if n := h.calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
	if hooked.Load() != 1 {
		t.Error("auth hook did not fire")
	}
}
