package session_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/stockscope-client/credstore"
	"github.com/jrsteele09/stockscope-client/credstore/storefake"
	"github.com/jrsteele09/stockscope-client/session"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestBearerStrategy(t *testing.T) {
	t.Run("attaches the stored access token", func(t *testing.T) {
		store := storefake.NewFakeStore()
		require.NoError(t, store.Set(credstore.AccessTokenKey, "A1"))
		b := session.NewBearerStrategy(store)

		req := httptest.NewRequest(http.MethodGet, "http://api.test/api/portfolio/", nil)
		require.NoError(t, b.AttachCredential(req))
		require.Equal(t, "Bearer A1", req.Header.Get("Authorization"))
		require.True(t, b.HasCredential())
	})

	t.Run("no token attaches nothing", func(t *testing.T) {
		b := session.NewBearerStrategy(storefake.NewFakeStore())

		req := httptest.NewRequest(http.MethodGet, "http://api.test/api/portfolio/", nil)
		require.NoError(t, b.AttachCredential(req))
		require.Empty(t, req.Header.Get("Authorization"))
		require.False(t, b.HasCredential())
		require.False(t, b.LooksValid())
	})

	t.Run("expiry comes from the jwt exp claim", func(t *testing.T) {
		store := storefake.NewFakeStore()
		b := session.NewBearerStrategy(store)

		require.NoError(t, store.Set(credstore.AccessTokenKey, signedToken(t, time.Hour)))
		require.True(t, b.LooksValid())
		tok, err := b.Token()
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, 5*time.Second)

		require.NoError(t, store.Set(credstore.AccessTokenKey, signedToken(t, -time.Minute)))
		require.False(t, b.LooksValid())
		require.True(t, b.HasCredential())
	})

	t.Run("opaque tokens look valid", func(t *testing.T) {
		store := storefake.NewFakeStore()
		require.NoError(t, store.Set(credstore.AccessTokenKey, "opaque"))
		require.True(t, session.NewBearerStrategy(store).LooksValid())
	})

	t.Run("refresh uses the refresh token", func(t *testing.T) {
		store := storefake.NewFakeStore()
		b := session.NewBearerStrategy(store)
		req := httptest.NewRequest(http.MethodPost, "http://api.test"+session.RouteRefresh, nil)

		require.ErrorIs(t, b.AttachRefreshCredential(req), session.ErrNoRefreshCredential)

		require.NoError(t, store.Set(credstore.RefreshTokenKey, "R1"))
		require.NoError(t, b.AttachRefreshCredential(req))
		require.Equal(t, "Bearer R1", req.Header.Get("Authorization"))
	})

	t.Run("extract keeps the refresh token when only an access token is issued", func(t *testing.T) {
		store := storefake.NewFakeStore()
		b := session.NewBearerStrategy(store)

		require.NoError(t, b.ExtractCredential(nil, session.Tokens{AccessToken: "A1", RefreshToken: "R1"}))
		require.NoError(t, b.ExtractCredential(nil, session.Tokens{AccessToken: "A2"}))
		require.Equal(t, map[string]string{
			credstore.AccessTokenKey:  "A2",
			credstore.RefreshTokenKey: "R1",
		}, store.Snapshot())

		require.NoError(t, b.ClearCredential())
		require.Empty(t, store.Snapshot())
	})

	t.Run("store failures surface", func(t *testing.T) {
		store := storefake.NewFakeStore()
		store.FailOn("get", errors.New("disk gone"))
		b := session.NewBearerStrategy(store)

		req := httptest.NewRequest(http.MethodGet, "http://api.test/", nil)
		var storeErr *credstore.StoreError
		require.ErrorAs(t, b.AttachCredential(req), &storeErr)
		require.Equal(t, "get", storeErr.Operation)
		require.False(t, b.LooksValid())
	})
}

func TestCookieStrategy(t *testing.T) {
	base := "http://api.test"

	respond := func(t *testing.T, c *session.CookieStrategy, cookies ...*http.Cookie) {
		t.Helper()
		rec := httptest.NewRecorder()
		for _, ck := range cookies {
			http.SetCookie(rec, ck)
		}
		resp := rec.Result()
		u, _ := url.Parse(base + session.RouteLogin)
		resp.Request = &http.Request{URL: u}
		require.NoError(t, c.ExtractCredential(resp, session.Tokens{}))
	}

	login := func(t *testing.T, c *session.CookieStrategy) {
		t.Helper()
		respond(t, c,
			&http.Cookie{Name: "access_token_cookie", Value: "A1", Path: "/", HttpOnly: true},
			&http.Cookie{Name: session.CSRFAccessCookie, Value: "csrf-a", Path: "/"},
			&http.Cookie{Name: "refresh_token_cookie", Value: "R1", Path: "/", HttpOnly: true},
			&http.Cookie{Name: session.CSRFRefreshCookie, Value: "csrf-r", Path: "/"},
		)
	}

	t.Run("safe requests carry cookies without csrf", func(t *testing.T) {
		c, err := session.NewCookieStrategy(base)
		require.NoError(t, err)
		login(t, c)

		req := httptest.NewRequest(http.MethodGet, base+"/api/portfolio/", nil)
		require.NoError(t, c.AttachCredential(req))
		ck, err := req.Cookie("access_token_cookie")
		require.NoError(t, err)
		require.Equal(t, "A1", ck.Value)
		require.Empty(t, req.Header.Get("X-CSRF-TOKEN"))
	})

	t.Run("unsafe requests carry the double submit header", func(t *testing.T) {
		c, err := session.NewCookieStrategy(base)
		require.NoError(t, err)
		login(t, c)

		req := httptest.NewRequest(http.MethodPost, base+"/api/portfolio/", nil)
		require.NoError(t, c.AttachCredential(req))
		require.Equal(t, "csrf-a", req.Header.Get("X-CSRF-TOKEN"))

		refresh := httptest.NewRequest(http.MethodPost, base+session.RouteRefresh, nil)
		require.NoError(t, c.AttachRefreshCredential(refresh))
		require.Equal(t, "csrf-r", refresh.Header.Get("X-CSRF-TOKEN"))
	})

	t.Run("clear empties the jar", func(t *testing.T) {
		c, err := session.NewCookieStrategy(base)
		require.NoError(t, err)
		login(t, c)
		require.Len(t, c.Cookies(), 4)

		require.NoError(t, c.ClearCredential())
		require.Empty(t, c.Cookies())
		require.True(t, c.HasCredential())
		require.False(t, c.LooksValid())
	})
	t.Run("store keeps the jar for the next strategy", func(t *testing.T) {
		store := storefake.NewFakeStore()
		c, err := session.NewCookieStrategy(base, session.WithCookieStore(store))
		require.NoError(t, err)
		login(t, c)

		raw, err := store.Get(credstore.CookieJarKey)
		require.NoError(t, err)
		require.Contains(t, raw, "access_token_cookie")

		restored, err := session.NewCookieStrategy(base, session.WithCookieStore(store))
		require.NoError(t, err)
		require.Len(t, restored.Cookies(), 4)

		req := httptest.NewRequest(http.MethodPost, base+"/api/portfolio/", nil)
		require.NoError(t, restored.AttachCredential(req))
		ck, err := req.Cookie("access_token_cookie")
		require.NoError(t, err)
		require.Equal(t, "A1", ck.Value)
		require.Equal(t, "csrf-a", req.Header.Get("X-CSRF-TOKEN"))
	})

	t.Run("deleted and expired cookies are not saved", func(t *testing.T) {
		store := storefake.NewFakeStore()
		c, err := session.NewCookieStrategy(base, session.WithCookieStore(store))
		require.NoError(t, err)
		login(t, c)
		respond(t, c,
			&http.Cookie{Name: "access_token_cookie", Path: "/", MaxAge: -1},
			&http.Cookie{Name: session.CSRFAccessCookie, Value: "csrf-a", Path: "/", Expires: time.Now().Add(-time.Hour)},
		)

		restored, err := session.NewCookieStrategy(base, session.WithCookieStore(store))
		require.NoError(t, err)
		names := make([]string, 0, 2)
		for _, ck := range restored.Cookies() {
			names = append(names, ck.Name)
		}
		require.ElementsMatch(t, []string{"refresh_token_cookie", session.CSRFRefreshCookie}, names)
	})

	t.Run("clear removes the saved jar", func(t *testing.T) {
		store := storefake.NewFakeStore()
		c, err := session.NewCookieStrategy(base, session.WithCookieStore(store))
		require.NoError(t, err)
		login(t, c)

		require.NoError(t, c.ClearCredential())
		_, err = store.Get(credstore.CookieJarKey)
		require.ErrorIs(t, err, credstore.ErrNotFound)

		restored, err := session.NewCookieStrategy(base, session.WithCookieStore(store))
		require.NoError(t, err)
		require.Empty(t, restored.Cookies())
	})

	t.Run("unreadable saved jar is an error", func(t *testing.T) {
		store := storefake.NewFakeStore()
		require.NoError(t, store.Set(credstore.CookieJarKey, "{"))

		_, err := session.NewCookieStrategy(base, session.WithCookieStore(store))
		var storeErr *credstore.StoreError
		require.ErrorAs(t, err, &storeErr)
		require.Equal(t, "load", storeErr.Operation)
	})
}
