// Package favorites keeps the user's favorited dogs and the current match,
// persisted to the client state store after every mutation.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/alfredjeanlab/dogmatch/internal/events"
	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/store"
)

// Version is the schema version written with the persisted state. A blob
// with any other version is discarded on load.
const Version = 1

var (
	// ErrCapacity is returned by Add when the set already holds MaxFavorites.
	ErrCapacity = fmt.Errorf("favorites: limit of %d dogs reached", model.MaxFavorites)
	// ErrMatchNotFound means the service matched a dog that is no longer a
	// favorite.
	ErrMatchNotFound = errors.New("favorites: matched dog is not among favorites")
)

// StorageError reports a persisted blob that could not be used. The blob has
// already been cleared when this is returned.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("stored %s was unreadable and has been reset: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Matcher picks one dog id out of candidates.
type Matcher interface {
	Match(ctx context.Context, ids []string) (string, error)
}

// persisted is the on-disk layout:
// {"version":1,"state":{"favorites":[...],"matchedDog":{...}|null}}.
type persisted struct {
	Version int   `json:"version"`
	State   state `json:"state"`
}

type state struct {
	Favorites  []model.Dog `json:"favorites"`
	MatchedDog *model.Dog  `json:"matchedDog"`
}

func (s state) clone() state {
	out := state{Favorites: slices.Clone(s.Favorites)}
	if s.MatchedDog != nil {
		m := *s.MatchedDog
		out.MatchedDog = &m
	}
	if out.Favorites == nil {
		out.Favorites = []model.Dog{}
	}
	return out
}

func (s state) index(id string) int {
	return slices.IndexFunc(s.Favorites, func(d model.Dog) bool { return d.ID == id })
}

// Store holds the favorites set. It is safe for concurrent use.
type Store struct {
	kv     store.Store
	pub    events.Publisher
	logger *slog.Logger
	limit  int

	mu sync.Mutex
	st state
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher sets where mutation events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty Store persisting to kv. Call Load to restore saved
// state.
func New(kv store.Store, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		pub:    &events.NoopPublisher{},
		logger: slog.New(slog.DiscardHandler),
		limit:  model.MaxFavorites,
		st:     state{Favorites: []model.Dog{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores persisted state. A missing blob leaves the store empty. A
// blob that fails to parse or carries another version is deleted, the store
// is left empty, and a *StorageError is returned for display; callers should
// carry on.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st = state{Favorites: []model.Dog{}}
	data, err := s.kv.Get(ctx, store.KeyFavorites)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading favorites: %w", err)
	}

	loaded, perr := decode(data)
	if perr == nil {
		s.st = loaded
		return nil
	}

	s.logger.WarnContext(ctx, "discarding unreadable favorites", "err", perr)
	if err := s.kv.Delete(ctx, store.KeyFavorites); err != nil {
		return fmt.Errorf("clearing unreadable favorites: %w", err)
	}
	return &StorageError{Key: store.KeyFavorites, Err: perr}
}

func decode(data []byte) (state, error) {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return state{}, err
	}
	if p.Version != Version {
		return state{}, fmt.Errorf("version %d, want %d", p.Version, Version)
	}
	st := state{Favorites: make([]model.Dog, 0, len(p.State.Favorites))}
	seen := make(map[string]bool, len(p.State.Favorites))
	for _, d := range p.State.Favorites {
		if d.ID == "" || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		st.Favorites = append(st.Favorites, d)
	}
	if len(st.Favorites) > model.MaxFavorites {
		st.Favorites = st.Favorites[:model.MaxFavorites]
	}
	if m := p.State.MatchedDog; m != nil && st.index(m.ID) >= 0 {
		st.MatchedDog = m
	}
	return st, nil
}

// commitLocked persists next and, on success, makes it current.
func (s *Store) commitLocked(ctx context.Context, next state) error {
	data, err := json.Marshal(persisted{Version: Version, State: next})
	if err != nil {
		return fmt.Errorf("encoding favorites: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyFavorites, data); err != nil {
		return fmt.Errorf("saving favorites: %w", err)
	}
	s.st = next
	return nil
}

func (s *Store) publish(ctx context.Context, topic string, event any) {
	if err := s.pub.Publish(ctx, topic, event); err != nil {
		s.logger.WarnContext(ctx, "publishing event", "topic", topic, "err", err)
	}
}

// Add favorites dog. It returns false without error if dog is already a
// favorite, and ErrCapacity if the set is full.
func (s *Store) Add(ctx context.Context, dog model.Dog) (bool, error) {
	if dog.ID == "" {
		return false, &model.ValidationError{Errors: []model.FieldError{{Field: "id", Message: "is required"}}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.index(dog.ID) >= 0 {
		return false, nil
	}
	if len(s.st.Favorites) >= s.limit {
		return false, ErrCapacity
	}
	next := s.st.clone()
	next.Favorites = append(next.Favorites, dog)
	if err := s.commitLocked(ctx, next); err != nil {
		return false, err
	}
	s.publish(ctx, events.TopicFavoriteAdded, events.FavoriteAdded{Dog: dog, Count: len(next.Favorites)})
	return true, nil
}

// Remove drops id from the favorites and clears the match if it pointed at
// id. It reports whether anything was removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.st.index(id)
	if i < 0 {
		return false, nil
	}
	next := s.st.clone()
	next.Favorites = slices.Delete(next.Favorites, i, i+1)
	cleared := next.MatchedDog != nil && next.MatchedDog.ID == id
	if cleared {
		next.MatchedDog = nil
	}
	if err := s.commitLocked(ctx, next); err != nil {
		return false, err
	}
	s.publish(ctx, events.TopicFavoriteRemoved, events.FavoriteRemoved{DogID: id, Count: len(next.Favorites), MatchCleared: cleared})
	return true, nil
}

// Toggle adds dog if absent and removes it if present. It reports whether
// dog is a favorite afterwards.
func (s *Store) Toggle(ctx context.Context, dog model.Dog) (bool, error) {
	if s.IsFavorite(dog.ID) {
		_, err := s.Remove(ctx, dog.ID)
		return false, err
	}
	_, err := s.Add(ctx, dog)
	return err == nil, err
}

// IsFavorite reports whether id is in the set.
func (s *Store) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.index(id) >= 0
}

// List returns the favorites in insertion order.
func (s *Store) List() []model.Dog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.Favorites)
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.Favorites)
}

// Matched returns the current match, or nil.
func (s *Store) Matched() *model.Dog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.MatchedDog == nil {
		return nil
	}
	m := *s.st.MatchedDog
	return &m
}

// GenerateMatch asks m to pick among the current favorites and records the
// result. If the chosen id was removed while the request was in flight,
// ErrMatchNotFound is returned and the match is left unchanged.
func (s *Store) GenerateMatch(ctx context.Context, m Matcher) (model.Dog, error) {
	s.mu.Lock()
	ids := model.DogIDs(s.st.Favorites)
	s.mu.Unlock()

	if len(ids) == 0 {
		return model.Dog{}, &model.ValidationError{Errors: []model.FieldError{{Field: "favorites", Message: "add at least one favorite before matching"}}}
	}

	id, err := m.Match(ctx, ids)
	if err != nil {
		return model.Dog{}, fmt.Errorf("generating match: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.st.index(id)
	if i < 0 {
		return model.Dog{}, fmt.Errorf("%w: %q", ErrMatchNotFound, id)
	}
	dog := s.st.Favorites[i]
	next := s.st.clone()
	next.MatchedDog = &dog
	if err := s.commitLocked(ctx, next); err != nil {
		return model.Dog{}, err
	}
	s.publish(ctx, events.TopicMatchGenerated, events.MatchGenerated{Dog: dog, Candidates: len(ids)})
	return dog, nil
}

// Clear empties the favorites and the match together.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.st.Favorites)
	if err := s.commitLocked(ctx, state{Favorites: []model.Dog{}}); err != nil {
		return err
	}
	s.publish(ctx, events.TopicFavoritesCleared, events.FavoritesCleared{Removed: removed})
	return nil
}

// Reset forgets in-memory state without touching storage. Used after the
// stored keys were already removed (sign-out).
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = state{Favorites: []model.Dog{}}
}
