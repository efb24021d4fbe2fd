package session_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/stockscope-client/credstore"
	"github.com/jrsteele09/stockscope-client/credstore/storefake"
	"github.com/jrsteele09/stockscope-client/internal/apifake"
	"github.com/jrsteele09/stockscope-client/internal/config"
	"github.com/jrsteele09/stockscope-client/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "alice"
	testEmail    = "alice@example.com"
	testPassword = "password123"
)

// recordingNavigator remembers every route it was sent to.
type recordingNavigator struct {
	lock    sync.Mutex
	current string
	history []string
}

func (n *recordingNavigator) CurrentRoute() string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.current
}

func (n *recordingNavigator) Navigate(route string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.current = route
	n.history = append(n.history, route)
}

func (n *recordingNavigator) History() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.history...)
}

type testFixture struct {
	api       *apifake.Server
	store     *storefake.FakeStore
	navigator *recordingNavigator
	metrics   *session.Metrics
	strategy  session.CredentialStrategy
	manager   *session.Manager

	lock    sync.Mutex
	expired []*session.SessionExpiredError
}

func setupTestFixture(t *testing.T, apiOptions ...apifake.Option) *testFixture {
	t.Helper()

	f := &testFixture{
		api:       apifake.New(t, append([]apifake.Option{apifake.WithUser(testUsername, testEmail, testPassword)}, apiOptions...)...),
		store:     storefake.NewFakeStore(),
		navigator: &recordingNavigator{current: "/dashboard"},
		metrics:   session.NewMetrics(prometheus.NewRegistry()),
	}

	strategy := session.CredentialStrategy(session.NewBearerStrategy(f.store))
	if f.api.Mode() == apifake.CookieMode {
		cookies, err := session.NewCookieStrategy(f.api.URL())
		require.NoError(t, err)
		strategy = cookies
	}

	f.strategy = strategy
	f.rebuild(t)
	return f
}

// rebuild replaces the fixture's manager with one built from the standard test
// options followed by extra.
func (f *testFixture) rebuild(t *testing.T, extra ...session.Option) {
	t.Helper()
	options := []session.Option{
		session.WithNavigator(f.navigator),
		session.WithMetrics(f.metrics),
		session.WithLogger(zerolog.Nop()),
		session.WithTimeouts(2*time.Second, 200*time.Millisecond),
		session.WithSessionExpiredHandler(func(e *session.SessionExpiredError) {
			f.lock.Lock()
			defer f.lock.Unlock()
			f.expired = append(f.expired, e)
		}),
	}
	m, err := session.New(f.api.URL(), f.strategy, append(options, extra...)...)
	require.NoError(t, err)
	f.manager = m
}

// seedTokens stores a valid token pair as if a previous process had logged in.
func (f *testFixture) seedTokens(t *testing.T) {
	t.Helper()
	access, refresh, err := f.api.IssueTokens(testUsername)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(credstore.AccessTokenKey, access))
	require.NoError(t, f.store.Set(credstore.RefreshTokenKey, refresh))
}

func (f *testFixture) expiredCalls() []*session.SessionExpiredError {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]*session.SessionExpiredError(nil), f.expired...)
}

func (f *testFixture) get(t *testing.T, path string) (*http.Response, error) {
	t.Helper()
	req, err := f.manager.NewRequest(context.Background(), http.MethodGet, path, nil)
	require.NoError(t, err)
	resp, err := f.manager.Dispatch(req)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return resp, err
}

func newJar(t *testing.T) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return jar
}

func TestNewManager(t *testing.T) {
	t.Run("validates dependencies", func(t *testing.T) {
		strategy := session.NewBearerStrategy(storefake.NewFakeStore())

		_, err := session.New("", strategy)
		require.Error(t, err)

		_, err = session.New("http://localhost:5000", nil)
		require.Error(t, err)

		_, err = session.New("localhost", strategy)
		require.Error(t, err)

		_, err = session.New("http://localhost:5000", strategy, session.WithHTTPClient(&http.Client{Jar: newJar(t)}))
		require.Error(t, err)
	})

	t.Run("starts unknown", func(t *testing.T) {
		f := setupTestFixture(t)
		snap := f.manager.Snapshot()
		require.Equal(t, session.StateUnknown, snap.State)
		require.False(t, snap.IsAuthenticated)
		require.False(t, snap.IsLoading)
		require.Equal(t, session.KindNone, snap.LastError)
		require.Nil(t, snap.User)
	})

	t.Run("unknown state trusts a valid looking token", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedTokens(t)
		require.Equal(t, session.StateUnknown, f.manager.State())
		require.True(t, f.manager.IsAuthenticated())
	})

	t.Run("unknown state distrusts an expired token", func(t *testing.T) {
		f := setupTestFixture(t)
		access, err := f.api.IssueExpiredAccessToken(testUsername)
		require.NoError(t, err)
		require.NoError(t, f.store.Set(credstore.AccessTokenKey, access))
		require.False(t, f.manager.IsAuthenticated())
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Run("bearer mode", func(t *testing.T) {
		t.Setenv("STOCKSCOPE_API_URL", "http://localhost:5000")
		t.Setenv("STOCKSCOPE_AUTH_MODE", "bearer")

		m, err := session.NewFromConfig(config.New(), storefake.NewFakeStore())
		require.NoError(t, err)
		require.Equal(t, session.ModeBearer, m.Strategy().Mode())
	})

	t.Run("bearer mode needs a store", func(t *testing.T) {
		t.Setenv("STOCKSCOPE_AUTH_MODE", "bearer")
		_, err := session.NewFromConfig(config.New(), nil)
		require.Error(t, err)
	})

	t.Run("cookie mode", func(t *testing.T) {
		t.Setenv("STOCKSCOPE_API_URL", "http://localhost:5000")
		t.Setenv("STOCKSCOPE_AUTH_MODE", "cookie")

		m, err := session.NewFromConfig(config.New(), nil)
		require.NoError(t, err)
		require.Equal(t, session.ModeCookie, m.Strategy().Mode())
	})
	t.Run("cookie mode with a store restores the session", func(t *testing.T) {
		api := apifake.New(t, apifake.WithCookieMode(), apifake.WithUser(testUsername, testEmail, testPassword))
		t.Setenv("STOCKSCOPE_API_URL", api.URL())
		t.Setenv("STOCKSCOPE_AUTH_MODE", "cookie")
		store := storefake.NewFakeStore()
		ctx := context.Background()

		first, err := session.NewFromConfig(config.New(), store, session.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		_, err = first.Login(ctx, testUsername, testPassword)
		require.NoError(t, err)

		second, err := session.NewFromConfig(config.New(), store, session.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		user, err := second.LoadCurrentUser(ctx)
		require.NoError(t, err)
		require.Equal(t, testUsername, user.Username)

		second.Logout(ctx)
		_, err = store.Get(credstore.CookieJarKey)
		require.ErrorIs(t, err, credstore.ErrNotFound)
	})

	t.Run("request timeout is applied to a copy of the caller's client", func(t *testing.T) {
		api := apifake.New(t, apifake.WithUser(testUsername, testEmail, testPassword))
		t.Setenv("STOCKSCOPE_API_URL", api.URL())
		t.Setenv("STOCKSCOPE_REQUEST_TIMEOUT", "50ms")
		cfg := config.New()

		orders := map[string]func(*http.Client) []session.Option{
			"client first": func(c *http.Client) []session.Option {
				return []session.Option{session.WithHTTPClient(c), session.WithSessionConfig(cfg)}
			},
			"config first": func(c *http.Client) []session.Option {
				return []session.Option{session.WithSessionConfig(cfg), session.WithHTTPClient(c)}
			},
		}
		for name, options := range orders {
			t.Run(name, func(t *testing.T) {
				caller := &http.Client{}
				m, err := session.New(api.URL(), session.NewBearerStrategy(storefake.NewFakeStore()),
					append(options(caller), session.WithLogger(zerolog.Nop()))...)
				require.NoError(t, err)

				api.Hang(portfoliosPath, 1)
				req, err := m.NewRequest(context.Background(), http.MethodGet, portfoliosPath, nil)
				require.NoError(t, err)
				start := time.Now()
				_, err = m.Dispatch(req)
				require.ErrorIs(t, err, session.ErrTransient)
				require.Less(t, time.Since(start), 2*time.Second)
				require.Zero(t, caller.Timeout)
			})
		}
	})
}
