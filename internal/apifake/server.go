// Package apifake is an in-process StockScope API for tests. It issues HS256 JWTs,
// honours bearer or cookie mode, and lets a test revoke tokens, inject faults and
// hold the refresh endpoint to line up concurrent requests.
package apifake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Mode selects how the fake issues and reads credentials.
type Mode int

const (
	BearerMode Mode = iota
	CookieMode
)

// Cookie names used in cookie mode.
const (
	AccessCookie      = "access_token_cookie"
	RefreshCookie     = "refresh_token_cookie"
	CSRFAccessCookie  = "csrf_access_token"
	CSRFRefreshCookie = "csrf_refresh_token"
	CSRFHeader        = "X-CSRF-TOKEN"
)

// RecordedRequest is one request as the fake saw it.
type RecordedRequest struct {
	Method    string
	Path      string
	RequestID string
	Auth      string
	Status    int
}

type account struct {
	ID        int64
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Market    string
	Theme     string
	CreatedAt time.Time
}

// Server is a fake StockScope API listening on a loopback address.
type Server struct {
	srv       *httptest.Server
	mode      Mode
	secret    []byte
	accessTTL time.Duration

	lock         sync.Mutex
	accounts     map[string]*account
	nextID       int64
	accessEpoch  int
	refreshEpoch int
	faults       map[string][]*fault
	refreshGate  chan struct{}
	hang         chan struct{}
	calls        map[string]int
	requests     []RecordedRequest
	portfolios   map[int64]*portfolio
	watchlists   map[int64]*watchlist
	nextRecordID int64
	nextCSRF     int
}

// Option configures a Server.
type Option func(*Server)

func WithCookieMode() Option {
	return func(s *Server) {
		s.mode = CookieMode
	}
}

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithUser seeds an account.
func WithUser(username, email, password string) Option {
	return func(s *Server) {
		s.addAccount(username, email, password)
	}
}

// New starts a fake API and closes it when the test ends.
func New(t testing.TB, options ...Option) *Server {
	t.Helper()
	s := &Server{
		secret:     []byte("stockscope-fake-secret"),
		accessTTL:  time.Hour,
		accounts:   map[string]*account{},
		faults:     map[string][]*fault{},
		calls:      map[string]int{},
		portfolios: map[int64]*portfolio{},
		watchlists: map[int64]*watchlist{},
		hang:       make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// URL is the base URL of the API.
func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) Mode() Mode {
	return s.mode
}

// Close releases hung requests and stops the server.
func (s *Server) Close() {
	s.lock.Lock()
	select {
	case <-s.hang:
	default:
		close(s.hang)
	}
	if s.refreshGate != nil {
		close(s.refreshGate)
		s.refreshGate = nil
	}
	s.lock.Unlock()
	s.srv.Close()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.requireAccess(s.handleMe))
	mux.HandleFunc("PUT /api/auth/me", s.requireAccess(s.handleUpdateMe))

	mux.HandleFunc("GET /api/stocks/search", s.handleSearch)
	mux.HandleFunc("GET /api/stocks/list", s.handleList)
	mux.HandleFunc("GET /api/stocks/{symbol}/quote", s.handleQuote)
	mux.HandleFunc("GET /api/stocks/{symbol}/historical", s.handleHistorical)
	mux.HandleFunc("GET /api/stocks/{symbol}/info", s.handleInfo)
	mux.HandleFunc("GET /api/stocks/{symbol}/indicators", s.handleIndicators)

	mux.HandleFunc("GET /api/market/indices", s.handleIndices)
	mux.HandleFunc("GET /api/market/movers", s.handleMovers)
	mux.HandleFunc("GET /api/market/overview", s.handleOverview)

	mux.HandleFunc("GET /api/portfolio/{$}", s.requireAccess(s.handleListPortfolios))
	mux.HandleFunc("POST /api/portfolio/{$}", s.requireAccess(s.handleCreatePortfolio))
	mux.HandleFunc("GET /api/portfolio/{id}", s.requireAccess(s.handleGetPortfolio))
	mux.HandleFunc("DELETE /api/portfolio/{id}", s.requireAccess(s.handleDeletePortfolio))
	mux.HandleFunc("POST /api/portfolio/{id}/positions", s.requireAccess(s.handleAddPosition))
	mux.HandleFunc("GET /api/portfolio/{id}/transactions", s.requireAccess(s.handleTransactions))

	mux.HandleFunc("GET /api/watchlist/{$}", s.requireAccess(s.handleListWatchlists))
	mux.HandleFunc("POST /api/watchlist/{$}", s.requireAccess(s.handleCreateWatchlist))
	mux.HandleFunc("GET /api/watchlist/{id}", s.requireAccess(s.handleGetWatchlist))
	mux.HandleFunc("DELETE /api/watchlist/{id}", s.requireAccess(s.handleDeleteWatchlist))
	mux.HandleFunc("POST /api/watchlist/{id}/items", s.requireAccess(s.handleAddWatchlistItem))
	mux.HandleFunc("DELETE /api/watchlist/{id}/items/{item}", s.requireAccess(s.handleRemoveWatchlistItem))

	return s.record(s.injectFaults(mux))
}

// record counts calls per path and keeps the request log.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.lock.Lock()
		s.calls[r.URL.Path]++
		idx := len(s.requests)
		s.requests = append(s.requests, RecordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: r.Header.Get("X-Request-ID"),
			Auth:      r.Header.Get("Authorization"),
		})
		s.lock.Unlock()

		next.ServeHTTP(rec, r)

		s.lock.Lock()
		s.requests[idx].Status = rec.status
		s.lock.Unlock()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap exposes the connection to http.ResponseController so faults can drop it.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[path]
}

// RefreshCalls returns how many times the refresh endpoint was called.
func (s *Server) RefreshCalls() int {
	return s.Calls("/api/auth/refresh")
}

// TotalCalls returns the number of requests of any kind.
func (s *Server) TotalCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []RecordedRequest {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
