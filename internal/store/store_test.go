package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get(k) = %q, %v; want v1", got, err)
	}
	// Returned slices must not alias internal state.
	got[0] = 'X'
	again, _ := s.Get(ctx, "k")
	if string(again) != "v1" {
		t.Errorf("internal value mutated through returned slice: %q", again)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_PrefixOps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, k := range []string{"fetch_identity", "fetch_favorites", "fetchXother", "theme"} {
		_ = s.Set(ctx, k, []byte("x"))
	}

	keys, _ := s.Keys(ctx, "fetch_")
	if strings.Join(keys, ",") != "fetch_favorites,fetch_identity" {
		t.Errorf("Keys(fetch_) = %v", keys)
	}
	n, err := s.DeletePrefix(ctx, "fetch_")
	if err != nil || n != 2 {
		t.Fatalf("DeletePrefix = %d, %v; want 2", n, err)
	}
	rest, _ := s.Keys(ctx, "")
	if strings.Join(rest, ",") != "fetchXother,theme" {
		t.Errorf("remaining keys = %v", rest)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	type blob struct {
		Version int `json:"version"`
	}
	if err := SetJSON(ctx, s, "b", blob{Version: 3}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got blob
	if err := GetJSON(ctx, s, "b", &got); err != nil || got.Version != 3 {
		t.Fatalf("GetJSON = %+v, %v", got, err)
	}
	_ = s.Set(ctx, "bad", []byte("{not json"))
	if err := GetJSON(ctx, s, "bad", &got); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("GetJSON(bad) error = %v, want decode error", err)
	}
	if err := GetJSON(ctx, s, "absent", &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJSON(absent) error = %v, want ErrNotFound", err)
	}
}

func TestLikePrefix(t *testing.T) {
	for in, want := range map[string]string{
		"fetch_":  `fetch\_%`,
		"50%":     `50\%%`,
		`a\b`:     `a\\b%`,
		"":        "%",
	} {
		if got := LikePrefix(in); got != want {
			t.Errorf("LikePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
