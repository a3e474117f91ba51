// Package results turns search criteria into a page of dog records: the
// search endpoint yields ordered ids, then the bulk details endpoint resolves
// them. Every load is stamped with a generation so a response that arrives
// after a newer load started is discarded instead of applied.
package results

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/alfredjeanlab/dogmatch/internal/client"
	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/search"
)

// DefaultCacheSize is how many resolved pages are kept.
const DefaultCacheSize = 32

// ErrStale is returned by Load when a newer load (or Clear) superseded it.
var ErrStale = errors.New("results: superseded by a newer load")

// Fetcher is the part of client.FetchClient the assembler needs.
type Fetcher interface {
	SearchDogs(ctx context.Context, params *model.DogSearchParams) (*model.DogSearchResponse, error)
	Dogs(ctx context.Context, ids []string) ([]model.Dog, error)
}

// Status is the page load status.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Snapshot is the assembled page as last applied.
type Snapshot struct {
	Status      Status
	Dogs        []model.Dog
	Total       int
	Err         error
	Kind        client.Kind
	Fingerprint string
	Generation  uint64
}

// Assembler loads result pages. It is safe for concurrent use.
type Assembler struct {
	fetcher   Fetcher
	logger    *slog.Logger
	cacheSize int

	group singleflight.Group

	mu    sync.Mutex
	gen   uint64
	snap  Snapshot
	cache map[string][]model.Dog
	order []string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the assembler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCacheSize bounds the details cache. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(a *Assembler) { a.cacheSize = max(0, n) }
}

// New returns an Assembler backed by f.
func New(f Fetcher, opts ...Option) *Assembler {
	a := &Assembler{
		fetcher:   f,
		logger:    slog.New(slog.DiscardHandler),
		cacheSize: DefaultCacheSize,
		cache:     make(map[string][]model.Dog),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns the current page state.
func (a *Assembler) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copySnapshotLocked()
}

func (a *Assembler) copySnapshotLocked() Snapshot {
	s := a.snap
	s.Dogs = append([]model.Dog(nil), a.snap.Dogs...)
	return s
}

// Load runs the two-step fetch for params and applies the result if no newer
// load started meanwhile. A superseded load returns the current snapshot and
// ErrStale. A failed load is applied as StatusError and its error returned.
func (a *Assembler) Load(ctx context.Context, params *model.DogSearchParams) (Snapshot, error) {
	fp := search.Fingerprint(params)

	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.snap.Status = StatusLoading
	a.snap.Fingerprint = fp
	a.snap.Generation = gen
	a.snap.Err = nil
	a.snap.Kind = ""
	a.mu.Unlock()

	resp, err := a.fetcher.SearchDogs(ctx, params)
	if err != nil {
		return a.fail(gen, err)
	}
	if !a.current(gen) {
		return a.stale(gen, fp)
	}

	dogs, err := a.details(ctx, resp.ResultIDs)
	if err != nil {
		return a.fail(gen, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		a.logger.DebugContext(ctx, "discarding stale page", "fingerprint", fp, "generation", gen, "current", a.gen)
		return a.copySnapshotLocked(), ErrStale
	}
	a.snap = Snapshot{
		Status:      StatusSuccess,
		Dogs:        dogs,
		Total:       resp.Total,
		Fingerprint: fp,
		Generation:  gen,
	}
	return a.copySnapshotLocked(), nil
}

func (a *Assembler) current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gen == a.gen
}

func (a *Assembler) stale(gen uint64, fp string) (Snapshot, error) {
	a.logger.Debug("discarding stale search", "fingerprint", fp, "generation", gen)
	return a.Snapshot(), ErrStale
}

func (a *Assembler) fail(gen uint64, err error) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return a.copySnapshotLocked(), ErrStale
	}
	a.snap.Status = StatusError
	a.snap.Err = err
	a.snap.Kind = client.Classify(err)
	a.snap.Dogs = nil
	return a.copySnapshotLocked(), err
}

// details resolves ids to dogs in id order. Concurrent requests for the same
// id list share one call, and resolved lists are cached by that list.
func (a *Assembler) details(ctx context.Context, ids []string) ([]model.Dog, error) {
	if len(ids) == 0 {
		return []model.Dog{}, nil
	}
	key := idsFingerprint(ids)

	a.mu.Lock()
	cached, ok := a.cache[key]
	a.mu.Unlock()
	if ok {
		return append([]model.Dog(nil), cached...), nil
	}

	// The shared fetch outlives any one caller's cancellation, so a cancelled
	// older load cannot fail a newer load waiting on the same ids.
	shared := context.WithoutCancel(ctx)
	ch := a.group.DoChan(key, func() (any, error) {
		dogs, err := a.fetcher.Dogs(shared, ids)
		if err != nil {
			return nil, err
		}
		ordered := orderByIDs(dogs, ids)
		a.remember(key, ordered)
		return ordered, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			a.logger.DebugContext(ctx, "shared in-flight details fetch", "ids", len(ids))
		}
		return append([]model.Dog(nil), res.Val.([]model.Dog)...), nil
	}
}

func (a *Assembler) remember(key string, dogs []model.Dog) {
	if a.cacheSize == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.cache[key]; !ok {
		a.order = append(a.order, key)
	}
	a.cache[key] = dogs
	for len(a.order) > a.cacheSize {
		delete(a.cache, a.order[0])
		a.order = a.order[1:]
	}
}

// orderByIDs arranges dogs in the order of ids, dropping ids the service did
// not return.
func orderByIDs(dogs []model.Dog, ids []string) []model.Dog {
	byID := make(map[string]model.Dog, len(dogs))
	for _, d := range dogs {
		byID[d.ID] = d
	}
	out := make([]model.Dog, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

func idsFingerprint(ids []string) string {
	sum := sha256.Sum256([]byte(strings.Join(ids, "\x00")))
	return hex.EncodeToString(sum[:8])
}

// Clear drops the cache and current page and invalidates in-flight loads.
func (a *Assembler) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.snap = Snapshot{Generation: a.gen}
	a.cache = make(map[string][]model.Dog)
	a.order = nil
}
