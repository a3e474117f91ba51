package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/dogmatch/internal/store"
)

// Load restores the saved search state, or a default state with pageSize if
// none was saved. A corrupt blob is dropped and treated as absent.
func Load(ctx context.Context, s store.Store, pageSize int) (*State, error) {
	data, err := s.Get(ctx, store.KeySearch)
	if errors.Is(err, store.ErrNotFound) {
		return New(pageSize), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading search state: %w", err)
	}
	st := New(pageSize)
	if err := json.Unmarshal(data, st); err != nil {
		if delErr := s.Delete(ctx, store.KeySearch); delErr != nil {
			return nil, fmt.Errorf("dropping corrupt search state: %w", delErr)
		}
		return New(pageSize), nil
	}
	return st, nil
}

// Save persists st.
func Save(ctx context.Context, s store.Store, st *State) error {
	return store.SetJSON(ctx, s, store.KeySearch, st)
}
