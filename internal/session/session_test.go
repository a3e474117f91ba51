package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alfredjeanlab/dogmatch/internal/events"
	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/store"
)

// fakeAuth records calls and returns canned errors.
type fakeAuth struct {
	loginErr   error
	logoutErr  error
	logins     int
	logouts    int
	lastName   string
	lastEmail  string
	onLoginJar *fakeJar
}

func (f *fakeAuth) Login(_ context.Context, name, email string) error {
	f.logins++
	f.lastName, f.lastEmail = name, email
	if f.loginErr == nil && f.onLoginJar != nil {
		f.onLoginJar.cookies = []*http.Cookie{{Name: "fetch-access-token", Value: "tok"}}
	}
	return f.loginErr
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

type fakeJar struct {
	cookies []*http.Cookie
	cleared int
}

func (j *fakeJar) Cookies() []*http.Cookie     { return j.cookies }
func (j *fakeJar) SetCookies(c []*http.Cookie) { j.cookies = c }
func (j *fakeJar) ClearCookies()               { j.cookies = nil; j.cleared++ }

func newGate(t *testing.T, opts ...Option) (*Gate, *store.MemoryStore, *fakeAuth, *fakeJar, *events.Recorder) {
	t.Helper()
	kv := store.NewMemoryStore()
	jar := &fakeJar{}
	auth := &fakeAuth{onLoginJar: jar}
	rec := &events.Recorder{}
	opts = append([]Option{WithCookieJar(jar), WithPublisher(rec)}, opts...)
	return New(kv, auth, opts...), kv, auth, jar, rec
}

func TestState_Route(t *testing.T) {
	for s, want := range map[State]Route{
		StateUnknown:         RouteWait,
		StateAuthenticated:   RouteApp,
		StateUnauthenticated: RouteLogin,
	} {
		if got := s.Route(); got != want {
			t.Errorf("%v.Route() = %v, want %v", s, got, want)
		}
	}
}

func TestRequire_BeforeResolve(t *testing.T) {
	g, _, _, _, _ := newGate(t)
	if g.State() != StateUnknown {
		t.Fatalf("initial state = %v", g.State())
	}
	if err := g.Require(); !errors.Is(err, ErrUnresolved) {
		t.Errorf("Require() = %v, want ErrUnresolved", err)
	}
}

func TestResolve_NoIdentity(t *testing.T) {
	g, _, _, _, _ := newGate(t)
	st, err := g.Resolve(context.Background())
	if err != nil || st != StateUnauthenticated {
		t.Fatalf("Resolve() = %v, %v", st, err)
	}
	if err := g.Require(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Require() = %v, want ErrNotAuthenticated", err)
	}
}

func TestResolve_StoredIdentity(t *testing.T) {
	g, kv, _, jar, _ := newGate(t)
	ctx := context.Background()
	_ = store.SetJSON(ctx, kv, store.KeyIdentity, model.Identity{Name: "Ada", Email: "ada@example.com"})
	_ = saveCookies(ctx, kv, []*http.Cookie{
		{Name: "fetch-access-token", Value: "saved"},
		{Name: "old", Value: "x", Expires: time.Now().Add(-time.Hour)},
	})

	st, err := g.Resolve(ctx)
	if err != nil || st != StateAuthenticated {
		t.Fatalf("Resolve() = %v, %v", st, err)
	}
	if g.Identity().Name != "Ada" {
		t.Errorf("Identity() = %+v", g.Identity())
	}
	if len(jar.cookies) != 1 || jar.cookies[0].Value != "saved" {
		t.Errorf("jar cookies = %v, want only the unexpired one", jar.cookies)
	}
	if err := g.Require(); err != nil {
		t.Errorf("Require() = %v", err)
	}
}

func TestResolve_UnusableIdentity(t *testing.T) {
	for _, tc := range []struct {
		name string
		blob string
	}{
		{name: "corrupt", blob: `{"name":`},
		{name: "invalid email", blob: `{"name":"Ada","email":"nope"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, kv, _, _, _ := newGate(t)
			ctx := context.Background()
			_ = kv.Set(ctx, store.KeyIdentity, []byte(tc.blob))

			st, err := g.Resolve(ctx)
			if err != nil || st != StateUnauthenticated {
				t.Fatalf("Resolve() = %v, %v", st, err)
			}
			if _, err := kv.Get(ctx, store.KeyIdentity); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("identity not removed: %v", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	g, kv, auth, _, rec := newGate(t)
	ctx := context.Background()

	if err := g.Login(ctx, "  Ada ", "ada@example.com"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if auth.lastName != "Ada" {
		t.Errorf("name sent = %q, want trimmed", auth.lastName)
	}
	if g.State() != StateAuthenticated {
		t.Errorf("state = %v", g.State())
	}

	var id model.Identity
	if err := store.GetJSON(ctx, kv, store.KeyIdentity, &id); err != nil || id.Email != "ada@example.com" {
		t.Errorf("stored identity = %+v, %v", id, err)
	}
	cookies, err := loadCookies(ctx, kv)
	if err != nil || len(cookies) != 1 || cookies[0].Value != "tok" {
		t.Errorf("stored cookies = %v, %v", cookies, err)
	}
	if topics := rec.Topics(); len(topics) != 1 || topics[0] != events.TopicSessionLogin {
		t.Errorf("events = %v", topics)
	}

	// A fresh gate over the same store resumes the session.
	again := New(kv, auth)
	if st, _ := again.Resolve(ctx); st != StateAuthenticated {
		t.Errorf("resumed state = %v", st)
	}
}

func TestLogin_Validation(t *testing.T) {
	for _, tc := range []struct{ name, email, field string }{
		{name: "", email: "ada@example.com", field: "name"},
		{name: "Ada", email: "", field: "email"},
		{name: "Ada", email: "ada-at-example", field: "email"},
	} {
		g, kv, auth, _, _ := newGate(t)
		err := g.Login(context.Background(), tc.name, tc.email)
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Login(%q, %q) error = %v, want validation", tc.name, tc.email, err)
		}
		if ve.Errors[0].Field != tc.field {
			t.Errorf("field = %q, want %q", ve.Errors[0].Field, tc.field)
		}
		if auth.logins != 0 {
			t.Error("service called despite invalid identity")
		}
		if keys, _ := kv.Keys(context.Background(), store.KeyPrefix); len(keys) != 0 {
			t.Errorf("keys stored = %v", keys)
		}
	}
}

func TestLogin_ServiceRejects(t *testing.T) {
	g, kv, auth, _, _ := newGate(t)
	auth.loginErr = errors.New("HTTP 401")
	if err := g.Login(context.Background(), "Ada", "ada@example.com"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := kv.Get(context.Background(), store.KeyIdentity); !errors.Is(err, store.ErrNotFound) {
		t.Error("identity stored after rejected login")
	}
	if g.State() == StateAuthenticated {
		t.Error("authenticated after rejected login")
	}
}

func TestLogout_RemovesAllClientKeys(t *testing.T) {
	g, kv, auth, jar, rec := newGate(t)
	ctx := context.Background()
	if err := g.Login(ctx, "Ada", "ada@example.com"); err != nil {
		t.Fatal(err)
	}
	_ = kv.Set(ctx, store.KeyFavorites, []byte(`{}`))
	_ = kv.Set(ctx, store.KeySearch, []byte(`{}`))
	_ = kv.Set(ctx, "other", []byte(`keep`))

	cleared := 0
	g.OnClear(func() { cleared++ })

	if err := g.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if auth.logouts != 1 {
		t.Errorf("remote logouts = %d", auth.logouts)
	}
	if keys, _ := kv.Keys(ctx, store.KeyPrefix); len(keys) != 0 {
		t.Errorf("remaining fetch_ keys = %v", keys)
	}
	if _, err := kv.Get(ctx, "other"); err != nil {
		t.Errorf("unrelated key removed: %v", err)
	}
	if jar.cleared != 1 || cleared != 1 {
		t.Errorf("jar cleared=%d hooks=%d", jar.cleared, cleared)
	}
	if g.State() != StateUnauthenticated {
		t.Errorf("state = %v", g.State())
	}
	topics := rec.Topics()
	if topics[len(topics)-1] != events.TopicSessionLogout {
		t.Errorf("events = %v", topics)
	}
	last := rec.Events()[len(rec.Events())-1].Event.(events.SessionLogout)
	if last.KeysRemoved != 4 || last.Name != "Ada" {
		t.Errorf("logout event = %+v", last)
	}
}

func TestLogout_RemoteFailureStillSignsOut(t *testing.T) {
	g, kv, auth, _, _ := newGate(t)
	ctx := context.Background()
	_ = g.Login(ctx, "Ada", "ada@example.com")
	auth.logoutErr = errors.New("connection refused")

	if err := g.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := kv.Get(ctx, store.KeyIdentity); !errors.Is(err, store.ErrNotFound) {
		t.Error("identity kept after logout")
	}
}

func TestLogout_KeepFavorites(t *testing.T) {
	g, kv, _, _, _ := newGate(t, WithKeepFavorites(true))
	ctx := context.Background()
	_ = g.Login(ctx, "Ada", "ada@example.com")
	_ = kv.Set(ctx, store.KeyFavorites, []byte(`{}`))

	if err := g.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	keys, _ := kv.Keys(ctx, store.KeyPrefix)
	if len(keys) != 1 || keys[0] != store.KeyFavorites {
		t.Errorf("remaining keys = %v, want only favorites", keys)
	}
}

func TestExpire(t *testing.T) {
	g, kv, auth, _, rec := newGate(t)
	ctx := context.Background()
	_ = g.Login(ctx, "Ada", "ada@example.com")
	hooks := 0
	g.OnClear(func() { hooks++ })

	if err := g.Expire(ctx, errors.New("HTTP 401")); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if auth.logouts != 0 {
		t.Error("Expire called the service")
	}
	if g.State() != StateUnauthenticated || hooks != 1 {
		t.Errorf("state=%v hooks=%d", g.State(), hooks)
	}
	if keys, _ := kv.Keys(ctx, store.KeyPrefix); len(keys) != 0 {
		t.Errorf("keys = %v", keys)
	}
	ev := rec.Events()[len(rec.Events())-1]
	if ev.Topic != events.TopicSessionExpired || ev.Event.(events.SessionExpired).Reason != "HTTP 401" {
		t.Errorf("last event = %#v", ev)
	}
}
