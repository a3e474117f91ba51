// Package app builds the dogmatch components from config and connects them:
// the session gate clears results and criteria on sign-out, and any
// authentication failure reported by the client expires the session.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/alfredjeanlab/dogmatch/internal/client"
	"github.com/alfredjeanlab/dogmatch/internal/config"
	"github.com/alfredjeanlab/dogmatch/internal/events"
	"github.com/alfredjeanlab/dogmatch/internal/export"
	"github.com/alfredjeanlab/dogmatch/internal/favorites"
	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/results"
	"github.com/alfredjeanlab/dogmatch/internal/search"
	"github.com/alfredjeanlab/dogmatch/internal/session"
	"github.com/alfredjeanlab/dogmatch/internal/store"
	"github.com/alfredjeanlab/dogmatch/internal/store/postgres"
	"github.com/alfredjeanlab/dogmatch/internal/store/sqlite"
)

// App holds the wired components for one process.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     store.Store
	HTTP      *client.HTTPClient
	Client    *client.RetryingClient
	Publisher events.Publisher
	Session   *session.Gate
	Favorites *favorites.Store
	Search    *search.State
	Results   *results.Assembler
	Exporter  *export.Exporter

	expiries atomic.Int64
	notices []string
}

type options struct {
	logger    *slog.Logger
	store     store.Store
	publisher events.Publisher
	httpOpts  []client.Option
	retryOpts []client.RetryOption
}

// Option configures New.
type Option func(*options)

// WithLogger replaces the default stderr text logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStore uses s instead of opening the configured store.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithPublisher uses p instead of the configured publisher.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithHTTPOptions passes extra options to the HTTP client.
func WithHTTPOptions(opts ...client.Option) Option {
	return func(o *options) { o.httpOpts = append(o.httpOpts, opts...) }
}

// WithRetryOptions passes extra options to the retrying client.
func WithRetryOptions(opts ...client.RetryOption) Option {
	return func(o *options) { o.retryOpts = append(o.retryOpts, opts...) }
}

// NewLogger returns the text logger used by the CLI.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// New builds an App. Call Open before using the session or favorites.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = NewLogger(cfg.Level())
	}

	kv := o.store
	if kv == nil {
		var err error
		if kv, err = OpenStore(cfg); err != nil {
			return nil, err
		}
	}

	pub := o.publisher
	if pub == nil {
		var err error
		if pub, err = openPublisher(cfg.NATSURL); err != nil {
			o.logger.WarnContext(ctx, "events disabled", "nats_url", cfg.NATSURL, "err", err)
			pub = &events.NoopPublisher{}
		}
	}

	httpOpts := append([]client.Option{client.WithTimeout(cfg.HTTPTimeout), client.WithLogger(o.logger)}, o.httpOpts...)
	hc := client.NewHTTPClient(cfg.APIURL, httpOpts...)
	retryOpts := append([]client.RetryOption{client.WithMaxRetries(cfg.RetryMax), client.WithRetryLogger(o.logger)}, o.retryOpts...)
	rc := client.NewRetryingClient(hc, retryOpts...)

	st, err := search.Load(ctx, kv, cfg.PageSize)
	if err != nil {
		return nil, errors.Join(err, kv.Close(), pub.Close())
	}

	a := &App{
		Config:    cfg,
		Logger:    o.logger,
		Store:     kv,
		HTTP:      hc,
		Client:    rc,
		Publisher: pub,
		Search:    st,
		Results:   results.New(rc, results.WithLogger(o.logger)),
		Favorites: favorites.New(kv, favorites.WithPublisher(pub), favorites.WithLogger(o.logger)),
		Session: session.New(kv, rc,
			session.WithCookieJar(hc),
			session.WithPublisher(pub),
			session.WithLogger(o.logger),
			session.WithKeepFavorites(cfg.KeepFavorites),
		),
		Exporter: export.NewExporter(pub, o.logger),
	}

	a.Session.OnClear(func() {
		a.Results.Clear()
		a.Search.Reset()
		if !cfg.KeepFavorites {
			a.Favorites.Reset()
		}
	})
	rc.SetAuthExpiredHandler(a.handleAuthExpired)
	return a, nil
}

// handleAuthExpired runs on every authentication failure from the service.
func (a *App) handleAuthExpired(cause error) {
	a.expiries.Add(1)
	if err := a.Session.Expire(context.Background(), cause); err != nil {
		a.Logger.Error("expiring session", "err", err)
	}
}

// Expired reports whether the service rejected the session during this run.
func (a *App) Expired() bool { return a.expiries.Load() > 0 }

// Notices returns messages the user should see once, such as a discarded
// favorites blob.
func (a *App) Notices() []string { return a.notices }

// Open resolves the session and loads favorites. An unreadable favorites
// blob is dropped and reported as a notice rather than an error.
func (a *App) Open(ctx context.Context) (session.State, error) {
	st, err := a.Session.Resolve(ctx)
	if err != nil {
		return st, err
	}
	if err := a.Favorites.Load(ctx); err != nil {
		var se *favorites.StorageError
		if !errors.As(err, &se) {
			return st, err
		}
		a.notices = append(a.notices, "Saved favorites could not be read and were reset.")
	}
	return st, nil
}

// LoadPage fetches the page the search state points at and records the
// total. The criteria are saved so the next invocation resumes from here.
// If the service rejects the session meanwhile, the error is ErrAuthExpired
// even though clearing the results made the load stale.
func (a *App) LoadPage(ctx context.Context) (results.Snapshot, error) {
	before := a.expiries.Load()
	snap, err := a.Results.Load(ctx, a.Search.Params())
	if a.expiries.Load() != before {
		return a.Results.Snapshot(), fmt.Errorf("loading page: %w", client.ErrAuthExpired)
	}
	if err != nil {
		return snap, err
	}
	a.Search.SetTotal(snap.Total)
	if err := a.SaveSearch(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// SaveSearch persists the search criteria while signed in.
func (a *App) SaveSearch(ctx context.Context) error {
	if a.Session.State() != session.StateAuthenticated {
		return nil
	}
	if err := search.Save(ctx, a.Store, a.Search); err != nil {
		return fmt.Errorf("saving search: %w", err)
	}
	return nil
}

// Match generates a match from the current favorites.
func (a *App) Match(ctx context.Context) (model.Dog, error) {
	return a.Favorites.GenerateMatch(ctx, a.Client)
}

// ZipCodesNear resolves a city and optional state to at most model.MaxBatch
// zip codes.
func (a *App) ZipCodesNear(ctx context.Context, city, state string) ([]string, error) {
	params := &model.LocationSearchParams{City: strings.TrimSpace(city), Size: model.MaxBatch}
	if state = strings.ToUpper(strings.TrimSpace(state)); state != "" {
		params.States = []string{state}
	}
	resp, err := a.Client.SearchLocations(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", city, err)
	}
	zips := model.ZipCodes(resp.Results)
	if len(zips) > model.MaxBatch {
		zips = zips[:model.MaxBatch]
	}
	if len(zips) == 0 {
		return nil, fmt.Errorf("no locations found for %q", city)
	}
	return zips, nil
}

// Close releases the publisher, client and store.
func (a *App) Close() error {
	return errors.Join(a.Publisher.Close(), a.Client.Close(), a.Store.Close())
}

// OpenStore opens the store selected by cfg.StateDSN: "memory", a postgres
// URL, a sqlite file path, or (empty) the default sqlite file.
func OpenStore(cfg *config.Config) (store.Store, error) {
	dsn := cfg.StateDSN
	switch {
	case dsn == config.MemoryDSN:
		return store.NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := postgres.New(dsn, cfg.Profile)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, nil
	case dsn != "":
		return openSQLite(dsn)
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return openSQLite(cfg.SQLitePath())
}

func openSQLite(path string) (store.Store, error) {
	s, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	return s, nil
}

func openPublisher(url string) (events.Publisher, error) {
	if url == "" {
		return &events.NoopPublisher{}, nil
	}
	return events.NewNATSPublisher(url)
}
