package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alfredjeanlab/dogmatch/internal/store"
)

// storedCookie is the persisted form of a session cookie.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

func saveCookies(ctx context.Context, kv store.Store, cookies []*http.Cookie) error {
	out := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return store.SetJSON(ctx, kv, store.KeySession, out)
}

// loadCookies returns the saved cookies, skipping any that have expired. A
// missing key yields no cookies and no error.
func loadCookies(ctx context.Context, kv store.Store) ([]*http.Cookie, error) {
	var saved []storedCookie
	if err := store.GetJSON(ctx, kv, store.KeySession, &saved); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	now := time.Now()
	out := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}
