// Package session decides whether the user may use the protected parts of
// dogmatch. A stored identity means signed in; its absence sends the user to
// login. The service itself is the authority: any auth failure from it
// expires the local session through Expire.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/dogmatch/internal/events"
	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/store"
)

// State is the gate state.
type State int

const (
	// StateUnknown means storage has not been checked yet.
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Route is where a protected view should go for a given state.
type Route int

const (
	// RouteWait renders a neutral loading view and does not redirect.
	RouteWait Route = iota
	RouteApp
	RouteLogin
)

// Route maps the state to a navigation decision.
func (s State) Route() Route {
	switch s {
	case StateAuthenticated:
		return RouteApp
	case StateUnauthenticated:
		return RouteLogin
	}
	return RouteWait
}

var (
	// ErrNotAuthenticated is returned by Require when no identity is stored.
	ErrNotAuthenticated = errors.New("not signed in (run `dm login`)")
	// ErrUnresolved is returned by Require before Resolve has run.
	ErrUnresolved = errors.New("session not resolved yet")
)

// Authenticator is the part of the service client used for sign-in.
type Authenticator interface {
	Login(ctx context.Context, name, email string) error
	Logout(ctx context.Context) error
}

// CookieJar exposes the client's session cookies for persistence.
type CookieJar interface {
	Cookies() []*http.Cookie
	SetCookies([]*http.Cookie)
	ClearCookies()
}

// Gate is the session state machine. It is safe for concurrent use.
type Gate struct {
	kv            store.Store
	auth          Authenticator
	jar           CookieJar
	pub           events.Publisher
	logger        *slog.Logger
	keepFavorites bool
	now           func() time.Time

	mu       sync.Mutex
	state    State
	identity model.Identity
	onClear  []func()
}

// Option configures a Gate.
type Option func(*Gate)

// WithCookieJar persists and restores the client's cookies.
func WithCookieJar(j CookieJar) Option {
	return func(g *Gate) { g.jar = j }
}

// WithPublisher sets where session events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(g *Gate) {
		if p != nil {
			g.pub = p
		}
	}
}

// WithLogger sets the gate's logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithKeepFavorites keeps the stored favorites across sign-out.
func WithKeepFavorites(keep bool) Option {
	return func(g *Gate) { g.keepFavorites = keep }
}

// New returns a Gate in StateUnknown.
func New(kv store.Store, auth Authenticator, opts ...Option) *Gate {
	g := &Gate{
		kv:     kv,
		auth:   auth,
		pub:    &events.NoopPublisher{},
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnClear registers fn to run whenever the session ends (logout or expiry),
// after stored keys are removed. Used to drop cached results.
func (g *Gate) OnClear(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onClear = append(g.onClear, fn)
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Identity returns the signed-in identity, or the zero value.
func (g *Gate) Identity() model.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity
}

// Require returns nil only when authenticated.
func (g *Gate) Require() error {
	switch g.State() {
	case StateAuthenticated:
		return nil
	case StateUnauthenticated:
		return ErrNotAuthenticated
	}
	return ErrUnresolved
}

// Resolve reads the stored identity and settles the state. A stored identity
// that is unreadable or invalid counts as signed out and is removed.
func (g *Gate) Resolve(ctx context.Context) (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var id model.Identity
	err := store.GetJSON(ctx, g.kv, store.KeyIdentity, &id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		g.setLocked(StateUnauthenticated, model.Identity{})
		return g.state, nil
	case err != nil && !isDecodeError(err):
		return g.state, fmt.Errorf("reading identity: %w", err)
	case err != nil || model.ValidateIdentity(id) != nil:
		g.logger.WarnContext(ctx, "discarding unusable stored identity", "err", err)
		if err := g.kv.Delete(ctx, store.KeyIdentity); err != nil {
			return g.state, fmt.Errorf("clearing identity: %w", err)
		}
		g.setLocked(StateUnauthenticated, model.Identity{})
		return g.state, nil
	}

	if g.jar != nil {
		cookies, err := loadCookies(ctx, g.kv)
		if err != nil {
			g.logger.WarnContext(ctx, "ignoring unreadable session cookies", "err", err)
		}
		g.jar.SetCookies(cookies)
	}
	g.setLocked(StateAuthenticated, id)
	return g.state, nil
}

func isDecodeError(err error) bool {
	var de *store.DecodeError
	return errors.As(err, &de)
}

func (g *Gate) setLocked(s State, id model.Identity) {
	g.state = s
	g.identity = id
}

// Login validates the identity, signs in with the service, and stores the
// identity and session cookies.
func (g *Gate) Login(ctx context.Context, name, email string) error {
	id := model.Identity{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	if err := model.ValidateIdentity(id); err != nil {
		return err
	}
	if err := g.auth.Login(ctx, id.Name, id.Email); err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := store.SetJSON(ctx, g.kv, store.KeyIdentity, id); err != nil {
		return fmt.Errorf("saving identity: %w", err)
	}
	if g.jar != nil {
		if err := saveCookies(ctx, g.kv, g.jar.Cookies()); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
	}
	g.setLocked(StateAuthenticated, id)
	g.publish(ctx, events.TopicSessionLogin, events.SessionLogin{Name: id.Name, At: g.now().UTC()})
	return nil
}

// Logout signs out with the service and clears local state. The local sign
// out happens even if the service call fails; that failure is only logged.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.auth.Logout(ctx); err != nil {
		g.logger.WarnContext(ctx, "remote logout failed", "err", err)
	}
	name := g.Identity().Name
	n, err := g.clear(ctx)
	if err != nil {
		return err
	}
	g.publish(ctx, events.TopicSessionLogout, events.SessionLogout{Name: name, KeysRemoved: n, At: g.now().UTC()})
	return nil
}

// Expire ends the session after the service rejected it. It does not call
// the service.
func (g *Gate) Expire(ctx context.Context, cause error) error {
	if _, err := g.clear(ctx); err != nil {
		return err
	}
	reason := "session expired"
	if cause != nil {
		reason = cause.Error()
	}
	g.logger.InfoContext(ctx, "session expired", "reason", reason)
	g.publish(ctx, events.TopicSessionExpired, events.SessionExpired{Reason: reason, At: g.now().UTC()})
	return nil
}

// clear removes the stored client state and runs the clear hooks.
func (g *Gate) clear(ctx context.Context) (int, error) {
	g.mu.Lock()
	n, err := g.removeKeysLocked(ctx)
	if err != nil {
		g.mu.Unlock()
		return n, fmt.Errorf("clearing client state: %w", err)
	}
	if g.jar != nil {
		g.jar.ClearCookies()
	}
	g.setLocked(StateUnauthenticated, model.Identity{})
	hooks := append([]func(){}, g.onClear...)
	g.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return n, nil
}

func (g *Gate) removeKeysLocked(ctx context.Context) (int, error) {
	if !g.keepFavorites {
		return g.kv.DeletePrefix(ctx, store.KeyPrefix)
	}
	keys, err := g.kv.Keys(ctx, store.KeyPrefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		if k == store.KeyFavorites {
			continue
		}
		if err := g.kv.Delete(ctx, k); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (g *Gate) publish(ctx context.Context, topic string, event any) {
	if err := g.pub.Publish(ctx, topic, event); err != nil {
		g.logger.WarnContext(ctx, "publishing event", "topic", topic, "err", err)
	}
}
