// Package session manages the client side of a StockScope login: it holds the
// credential, attaches it to every API call, refreshes it once when the API answers
// 401 and replays the requests that were waiting, and keeps the authentication state
// consistent with the credential store.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/stockscope-client/credstore"
	"github.com/jrsteele09/stockscope-client/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultMinPasswordLength = 6
	defaultRefreshTimeout    = 15 * time.Second
	defaultLogoutTimeout     = 5 * time.Second
	defaultRequestTimeout    = 30 * time.Second
	defaultLoginRoute        = "/login"
	defaultLandingRoute      = "/"
)

// Manager is the session manager. All methods are safe for concurrent use.
type Manager struct {
	baseURL     *url.URL
	client      *http.Client
	strategy    CredentialStrategy
	coordinator *RefreshCoordinator
	navigator   Navigator
	onExpired   func(*SessionExpiredError)
	logger      zerolog.Logger
	metrics     *Metrics
	newID       func() string

	minPasswordLength int
	loginRoute        string
	landingRoute      string
	requestTimeout    time.Duration
	refreshTimeout    time.Duration
	logoutTimeout     time.Duration

	// credLock orders credential writes from a refresh against clearLocal.
	credLock sync.Mutex

	lock    sync.RWMutex
	state   State
	user    *User
	loading int
	lastErr error
	// epoch counts local clears; work started under an older epoch must not
	// restore the session.
	epoch uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient replaces the transport client. It must not have a cookie Jar.
// The client is never modified; a configured request timeout is applied to a copy.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.client = c
	}
}

// WithCoordinator injects the refresh coordinator (one per application instance).
func WithCoordinator(c *RefreshCoordinator) Option {
	return func(m *Manager) {
		m.coordinator = c
	}
}

func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

// WithSessionExpiredHandler is called once per terminal refresh failure, after local
// state has been cleared.
func WithSessionExpiredHandler(fn func(*SessionExpiredError)) Option {
	return func(m *Manager) {
		m.onExpired = fn
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func WithMetrics(mt *Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithRequestIDFunc sets the X-Request-ID generator (primarily for testing)
func WithRequestIDFunc(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

func WithTimeouts(refresh, logout time.Duration) Option {
	return func(m *Manager) {
		if refresh > 0 {
			m.refreshTimeout = refresh
		}
		if logout > 0 {
			m.logoutTimeout = logout
		}
	}
}

// WithSessionConfig applies timeouts, routes and the password policy from config.
func WithSessionConfig(cfg config.SessionConfig) Option {
	return func(m *Manager) {
		m.requestTimeout = cfg.GetRequestTimeout()
		m.refreshTimeout = cfg.GetRefreshTimeout()
		m.logoutTimeout = cfg.GetLogoutTimeout()
		m.minPasswordLength = cfg.GetMinPasswordLength()
		m.loginRoute = cfg.GetLoginRoute()
		m.landingRoute = cfg.GetLandingRoute()
	}
}

// New creates a Manager for the API at baseURL.
func New(baseURL string, strategy CredentialStrategy, options ...Option) (*Manager, error) {
	if baseURL == "" {
		return nil, errors.New("[NewManager] baseURL is required")
	}
	if strategy == nil {
		return nil, errors.New("[NewManager] strategy is required")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("[NewManager] invalid baseURL %q", baseURL)
	}
	if base.Path == "" {
		base.Path = "/"
	}

	m := &Manager{
		baseURL:           base,
		client:            &http.Client{Timeout: defaultRequestTimeout},
		strategy:          strategy,
		coordinator:       NewRefreshCoordinator(),
		navigator:         nopNavigator{},
		logger:            log.Logger,
		newID:             uuid.NewString,
		minPasswordLength: defaultMinPasswordLength,
		loginRoute:        defaultLoginRoute,
		landingRoute:      defaultLandingRoute,
		refreshTimeout:    defaultRefreshTimeout,
		logoutTimeout:     defaultLogoutTimeout,
		state:             StateUnknown,
	}

	for _, opt := range options {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	if m.client.Jar != nil {
		return nil, errors.New("[NewManager] http client must not carry a cookie jar")
	}
	if m.requestTimeout > 0 && m.client.Timeout != m.requestTimeout {
		client := *m.client
		client.Timeout = m.requestTimeout
		m.client = &client
	}
	return m, nil
}

// NewFromConfig builds the strategy for the configured auth mode and the Manager.
// In cookie mode a non-nil store keeps the cookie jar between runs.
func NewFromConfig(cfg config.Config, store credstore.Store, options ...Option) (*Manager, error) {
	var (
		strategy CredentialStrategy
		err      error
	)
	switch cfg.GetAuthMode() {
	case config.AuthModeCookie:
		var cookieOptions []CookieOption
		if store != nil {
			cookieOptions = append(cookieOptions, WithCookieStore(store))
		}
		strategy, err = NewCookieStrategy(cfg.GetAPIBaseURL(), cookieOptions...)
		if err != nil {
			return nil, err
		}
	default:
		if store == nil {
			return nil, errors.New("[NewFromConfig] bearer mode needs a credential store")
		}
		strategy = NewBearerStrategy(store)
	}
	opts := append([]Option{WithSessionConfig(cfg)}, options...)
	return New(cfg.GetAPIBaseURL(), strategy, opts...)
}

// Strategy returns the credential strategy in use.
func (m *Manager) Strategy() CredentialStrategy {
	return m.strategy
}

// Coordinator returns the refresh coordinator.
func (m *Manager) Coordinator() *RefreshCoordinator {
	return m.coordinator
}

func (m *Manager) State() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *User {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated is true once the server has confirmed the session, and also
// while the state is still unknown but a valid looking credential is held.
func (m *Manager) IsAuthenticated() bool {
	switch m.State() {
	case StateAuthenticated, StateRefreshing:
		return true
	case StateUnknown:
		return m.strategy.LooksValid()
	default:
		return false
	}
}

func (m *Manager) IsLoading() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.loading > 0
}

func (m *Manager) LastError() ErrorKind {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return KindOf(m.lastErr)
}

// Snapshot returns the whole authentication state at once.
func (m *Manager) Snapshot() AuthState {
	m.lock.RLock()
	s := AuthState{
		State:     m.state,
		IsLoading: m.loading > 0,
		LastError: KindOf(m.lastErr),
		Err:       m.lastErr,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	m.lock.RUnlock()
	s.IsAuthenticated = m.IsAuthenticated()
	return s
}

// NewRequest builds a request for path relative to the API base URL. A non-nil
// body is sent as JSON and can be replayed.
func (m *Manager) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("[NewRequest] invalid path %q: %w", path, err)
	}
	u := m.resolve(ref)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("[NewRequest] failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("[NewRequest] failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// resolve places a relative reference under the API base URL, keeping any base path.
func (m *Manager) resolve(ref *url.URL) *url.URL {
	u := m.baseURL.JoinPath(ref.Path)
	u.RawQuery = ref.RawQuery
	return u
}

func (m *Manager) setState(s State) {
	m.lock.Lock()
	m.state = s
	m.lock.Unlock()
}

func (m *Manager) sessionEpoch() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.epoch
}

// setStateIf sets s only while the session has not been cleared since epoch.
func (m *Manager) setStateIf(epoch uint64, s State) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.epoch != epoch {
		return false
	}
	m.state = s
	return true
}

func (m *Manager) setAuthenticated(u *User) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.state = StateAuthenticated
	m.user = u
	m.lastErr = nil
}

func (m *Manager) recordError(err error) {
	m.lock.Lock()
	m.lastErr = err
	m.lock.Unlock()
}

func (m *Manager) beginLoading() func() {
	m.lock.Lock()
	m.loading++
	m.lock.Unlock()
	return func() {
		m.lock.Lock()
		m.loading--
		m.lock.Unlock()
	}
}

// clearLocal drops the credential and the user. It cannot fail: a store error is
// logged and the in-memory state is cleared regardless.
func (m *Manager) clearLocal(cause error) {
	m.credLock.Lock()
	defer m.credLock.Unlock()
	if err := m.strategy.ClearCredential(); err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear stored credential")
	}
	m.lock.Lock()
	m.state = StateUnauthenticated
	m.user = nil
	m.lastErr = cause
	m.epoch++
	m.lock.Unlock()
}

// expire runs the centralised terminal failure handling.
func (m *Manager) expire(e *SessionExpiredError) {
	m.logger.Warn().Err(e).Msg("Session expired")
	m.clearLocal(e)
	if m.navigator.CurrentRoute() != m.loginRoute {
		m.navigator.Navigate(m.loginRoute)
	}
	if m.onExpired != nil {
		m.onExpired(e)
	}
}
