package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/stockscope-client/internal/apifake"
	"github.com/jrsteele09/stockscope-client/session"
	"github.com/jrsteele09/stockscope-client/stockapi"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type cliFixture struct {
	api     *apifake.Server
	envFile string
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func setupTestFixture(t *testing.T, apiOptions ...apifake.Option) *cliFixture {
	t.Helper()

	dir := t.TempDir()
	f := &cliFixture{
		api:     apifake.New(t, append([]apifake.Option{apifake.WithUser("alice", "alice@example.com", "password123")}, apiOptions...)...),
		envFile: filepath.Join(dir, "missing.env"),
	}
	mode := "bearer"
	if f.api.Mode() == apifake.CookieMode {
		mode = "cookie"
	}
	t.Setenv("STOCKSCOPE_API_URL", f.api.URL())
	t.Setenv("STOCKSCOPE_AUTH_MODE", mode)
	t.Setenv("STOCKSCOPE_CREDENTIALS", filepath.Join(dir, "credentials.json"))
	t.Setenv("STOCKSCOPE_STORE_PASSPHRASE", "correct horse")
	t.Setenv("LOG_LEVEL", "disabled")
	return f
}

func (f *cliFixture) run(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(append([]string{"--env-file", f.envFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (f *cliFixture) login(t *testing.T) {
	t.Helper()
	res := f.run(t, "password123\n", "login", "--username", "alice", "--password-stdin")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Logged in as alice")
}

func TestLoginSession(t *testing.T) {
	t.Run("credentials persist between runs", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)

		res := f.run(t, "", "whoami", "-o", "json")
		require.NoError(t, res.err)
		var user session.User
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &user))
		require.Equal(t, "alice", user.Username)
		require.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("cookie session persists between runs", func(t *testing.T) {
		f := setupTestFixture(t, apifake.WithCookieMode())
		f.login(t)

		res := f.run(t, "", "whoami")
		require.NoError(t, res.err)
		require.Contains(t, res.stdout, "alice")
		require.NotContains(t, res.stdout, "Not logged in")

		res = f.run(t, "", "logout")
		require.NoError(t, res.err)
		res = f.run(t, "", "whoami")
		require.NoError(t, res.err)
		require.Contains(t, res.stdout, "Not logged in")
	})

	t.Run("metrics flag prints session counters", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)

		res := f.run(t, "", "whoami", "--metrics")
		require.NoError(t, res.err)
		require.Contains(t, res.stderr, `stockscope_session_dispatch_total{outcome="ok"} 1`)

		res = f.run(t, "", "whoami")
		require.NoError(t, res.err)
		require.NotContains(t, res.stderr, "stockscope_session_dispatch_total")
	})

	t.Run("wrong password exits with an auth error", func(t *testing.T) {
		f := setupTestFixture(t)
		res := f.run(t, "nope\n", "login", "-u", "alice", "--password-stdin")
		require.Error(t, res.err)
		require.Equal(t, session.KindAuth, session.KindOf(res.err))
		require.Equal(t, 2, exitCode(res.err))
	})

	t.Run("logout forgets the credentials", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)

		res := f.run(t, "", "logout")
		require.NoError(t, res.err)
		require.Contains(t, res.stdout, "Logged out")

		res = f.run(t, "", "whoami")
		require.NoError(t, res.err)
		require.Contains(t, res.stdout, "Not logged in")
		require.Equal(t, 1, f.api.Calls(session.RouteLogout))
	})

	t.Run("register with piped password", func(t *testing.T) {
		f := setupTestFixture(t)
		res := f.run(t, "s3cret-pass\ns3cret-pass\n", "register", "-u", "bob", "--email", "bob@example.com", "--password-stdin")
		require.NoError(t, res.err)
		require.Contains(t, res.stdout, "Welcome, bob")

		res = f.run(t, "", "whoami", "-o", "yaml")
		require.NoError(t, res.err)
		var user session.User
		require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &user))
		require.Equal(t, "bob", user.Username)
	})

	t.Run("register mismatch is a validation error", func(t *testing.T) {
		f := setupTestFixture(t)
		res := f.run(t, "s3cret-pass\nother-pass\n", "register", "-u", "bob", "--email", "bob@example.com", "--password-stdin")
		require.Error(t, res.err)
		require.Equal(t, 2, exitCode(res.err))
		require.Equal(t, 0, f.api.Calls(session.RouteRegister))
	})

	t.Run("profile update changes only the given fields", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)

		res := f.run(t, "", "profile", "--theme", "dark", "-o", "json")
		require.NoError(t, res.err)
		var user session.User
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &user))
		require.Equal(t, "dark", user.Theme)
		require.Equal(t, "alice@example.com", user.Email)
	})
}

func TestExpiredAccessToken(t *testing.T) {
	t.Run("refreshes once and completes the command", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.api.RevokeAccessTokens()

		res := f.run(t, "", "portfolios", "create", "Long", "term", "-o", "json")
		require.NoError(t, res.err)
		var p stockapi.Portfolio
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &p))
		require.Equal(t, "Long term", p.Name)
		require.Equal(t, 1, f.api.RefreshCalls())

		// The refreshed token was stored, so the next run needs no refresh.
		res = f.run(t, "", "portfolios", "-o", "json")
		require.NoError(t, res.err)
		var list []stockapi.Portfolio
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
		require.Len(t, list, 1)
		require.Equal(t, 1, f.api.RefreshCalls())
	})

	t.Run("rejected refresh expires the session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.api.RevokeAccessTokens()
		f.api.RevokeRefreshTokens()

		res := f.run(t, "", "watchlists")
		require.Error(t, res.err)
		require.Equal(t, session.KindSessionExpired, session.KindOf(res.err))
		require.Equal(t, 3, exitCode(res.err))
		require.Contains(t, res.stderr, "stockscope login")

		res = f.run(t, "", "whoami")
		require.NoError(t, res.err)
		require.Contains(t, res.stdout, "Not logged in")
	})

	t.Run("server outage is transient", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.api.Fail("/api/portfolio/", 503, 1)

		res := f.run(t, "", "portfolios")
		require.Error(t, res.err)
		require.Equal(t, 4, exitCode(res.err))
	})
}

func TestPublicCommands(t *testing.T) {
	t.Run("quote several symbols", func(t *testing.T) {
		f := setupTestFixture(t)
		res := f.run(t, "", "quote", "AAPL", "MSFT")
		require.NoError(t, res.err)
		require.Contains(t, res.stdout, "AAPL")
		require.Contains(t, res.stdout, "MSFT")
		require.Contains(t, res.stdout, "CHANGE %")
	})

	t.Run("unknown symbol", func(t *testing.T) {
		f := setupTestFixture(t)
		res := f.run(t, "", "quote", "NOPE")
		require.Error(t, res.err)
		require.Equal(t, 1, exitCode(res.err))
	})

	t.Run("dashboard while signed out shows the market only", func(t *testing.T) {
		f := setupTestFixture(t)
		res := f.run(t, "", "dashboard", "-o", "json")
		require.NoError(t, res.err)
		var view dashboardView
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
		require.NotNil(t, view.Market)
		require.Empty(t, view.Portfolios)
		require.Empty(t, view.Warnings)
	})

	t.Run("API URL flag overrides the environment", func(t *testing.T) {
		f := setupTestFixture(t)
		t.Setenv("STOCKSCOPE_API_URL", "http://127.0.0.1:1")

		res := f.run(t, "", "--api-url", f.api.URL(), "market", "indices", "-o", "json")
		require.NoError(t, res.err)
		var indices []stockapi.Quote
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &indices))
		require.NotEmpty(t, indices)
	})

	t.Run("unsupported output format", func(t *testing.T) {
		f := setupTestFixture(t)
		res := f.run(t, "", "market", "indices", "-o", "xml")
		require.Error(t, res.err)
		require.Equal(t, 0, f.api.TotalCalls())
	})

	t.Run("version needs no configuration", func(t *testing.T) {
		var stdout bytes.Buffer
		cmd := newRootCmd(strings.NewReader(""), &stdout, &bytes.Buffer{})
		cmd.SetArgs([]string{"version"})
		require.NoError(t, cmd.Execute())
		require.Contains(t, stdout.String(), "stockscope ")
	})
}

func TestRender(t *testing.T) {
	quotes := []stockapi.Quote{{Symbol: "AAPL", Price: 189.5, ChangePercent: 1.25}}
	table := func(w io.Writer) { quoteTable(w, quotes) }

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, render(&out, formatTable, quotes, table))
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		require.True(t, strings.HasPrefix(lines[0], "SYMBOL"))
		require.Contains(t, lines[1], "189.50")
		require.Contains(t, lines[1], "+1.25%")
	})

	t.Run("JSON", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, render(&out, "JSON", quotes, table))
		require.Contains(t, out.String(), `"change_percent": 1.25`)
	})

	t.Run("YAML", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, render(&out, formatYAML, quotes, table))
		require.Contains(t, out.String(), "- symbol: AAPL")
	})

	t.Run("unknown format", func(t *testing.T) {
		require.Error(t, render(&bytes.Buffer{}, "csv", quotes, table))
	})
}

func TestParseID(t *testing.T) {
	id, err := parseID("portfolio_id", "42")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseID("portfolio_id", bad)
		require.Error(t, err, bad)
		require.Equal(t, session.KindValidation, session.KindOf(err))
	}
}
