package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"

	errs "github.com/jrsteele09/stockscope-client/internal/errors"
	"github.com/rs/zerolog"
)

// maxErrorBody bounds how much of a rejected response is read before it is dropped.
const maxErrorBody = 64 << 10

type retriedKey struct{}

func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// Dispatch sends req with the current credential attached. A 401 on any request
// other than the auth endpoints themselves triggers a single refresh shared by every
// request that fails meanwhile, after which the request is replayed once. The
// caller's request is not modified.
func (m *Manager) Dispatch(req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("[Dispatch] request is required")
	}
	out := req.Clone(req.Context())
	if !out.URL.IsAbs() {
		out.URL = m.resolve(out.URL)
		out.Host = ""
	}
	if err := makeReplayable(out); err != nil {
		return nil, err
	}
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, m.newID())
	}
	return m.dispatch(out)
}

// Transport returns a RoundTripper that routes every request through Dispatch.
func (m *Manager) Transport() http.RoundTripper {
	return roundTripperFunc(m.Dispatch)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// makeReplayable buffers a body that cannot be rewound so it can be sent twice.
func makeReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("[Dispatch] failed to buffer request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(raw))
	req.ContentLength = int64(len(raw))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	return nil
}

func (m *Manager) dispatch(req *http.Request) (*http.Response, error) {
	gen, epoch := m.coordinator.Generation(), m.sessionEpoch()
	out, err := m.prepare(req)
	if err != nil {
		m.metrics.Dispatches.WithLabelValues(DispatchFailed).Inc()
		return nil, err
	}
	return m.complete(req, out, gen, epoch)
}

// prepare copies req and attaches the current access credential to the copy.
func (m *Manager) prepare(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("[Dispatch] failed to rewind request body: %w", err)
		}
		out.Body = body
	}
	if err := m.strategy.AttachCredential(out); err != nil {
		return nil, fmt.Errorf("[Dispatch] failed to attach credential: %w", err)
	}
	return out, nil
}

// complete sends the prepared copy of req. gen and epoch are the refresh generation
// and session epoch observed before the credential was attached.
func (m *Manager) complete(req, out *http.Request, gen, epoch uint64) (*http.Response, error) {
	logger := m.requestLogger(req)
	retried := isRetried(req.Context())

	resp, err := m.client.Do(out)
	if err != nil {
		m.metrics.Dispatches.WithLabelValues(DispatchFailed).Inc()
		logger.Debug().Err(err).Msg("Request failed")
		return nil, &TransientError{Op: "Dispatch", Cause: err}
	}
	if err := m.strategy.ExtractCredential(resp, Tokens{}); err != nil {
		logger.Warn().Err(err).Msg("Failed to record response credential")
	}

	if resp.StatusCode != http.StatusUnauthorized || retried || !refreshable(req) {
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			m.metrics.Dispatches.WithLabelValues(DispatchUnauthorized).Inc()
		case retried:
			m.metrics.Dispatches.WithLabelValues(DispatchReplayed).Inc()
		default:
			m.metrics.Dispatches.WithLabelValues(DispatchOK).Inc()
		}
		logger.Debug().Int("status", resp.StatusCode).Bool("retried", retried).Msg("Request completed")
		return resp, nil
	}

	drain(resp)
	return m.refreshAndReplay(req.WithContext(withRetried(req.Context())), gen, epoch, logger)
}

// refreshable reports whether a 401 on req may start the refresh protocol. The
// auth endpoints answer 401 for bad credentials, not for a stale session.
func refreshable(req *http.Request) bool {
	path := strings.TrimRight(req.URL.Path, "/")
	for _, route := range []string{RouteRefresh, RouteLogin, RouteRegister, RouteLogout} {
		if strings.HasSuffix(path, route) {
			return false
		}
	}
	return true
}

type dispatchResult struct {
	resp *http.Response
	err  error
}

// replay is the continuation body for a parked request. It returns once the
// replay has been written to the connection (or has failed), so the coordinator
// issues parked requests strictly in arrival order.
func (m *Manager) replay(req *http.Request, done chan<- dispatchResult) {
	gen, epoch := m.coordinator.Generation(), m.sessionEpoch()
	out, err := m.prepare(req)
	if err != nil {
		done <- dispatchResult{err: err}
		return
	}

	issued := make(chan struct{})
	var once sync.Once
	markIssued := func() { once.Do(func() { close(issued) }) }
	out = out.WithContext(httptrace.WithClientTrace(out.Context(), &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) { markIssued() },
	}))

	go func() {
		resp, err := m.complete(req, out, gen, epoch)
		markIssued()
		done <- dispatchResult{resp: resp, err: err}
	}()
	<-issued
}

func (m *Manager) refreshAndReplay(req *http.Request, seen, epoch uint64, logger zerolog.Logger) (*http.Response, error) {
	done := make(chan dispatchResult, 1)
	cont := Continuation{
		Resolve: func() { m.replay(req, done) },
		Reject: func(err error) {
			done <- dispatchResult{err: err}
		},
	}

	switch m.coordinator.Join(seen, cont) {
	case JoinStale:
		logger.Debug().Msg("Credential refreshed while request was in flight, replaying")
		return m.dispatch(req)
	case JoinQueued:
		m.metrics.QueuedRequests.Inc()
		logger.Debug().Int("pending", m.coordinator.Pending()).Msg("Waiting for in-flight refresh")
		select {
		case r := <-done:
			return r.resp, r.err
		case <-req.Context().Done():
			go func() {
				if r := <-done; r.resp != nil {
					drain(r.resp)
				}
			}()
			return nil, fmt.Errorf("[Dispatch] gave up waiting for refresh: %w", req.Context().Err())
		}
	}

	prev := m.State()
	m.setStateIf(epoch, StateRefreshing)
	logger.Info().Msg("Access credential rejected, refreshing session")

	err := m.refresh(req.Context(), epoch, logger)

	var expired *SessionExpiredError
	switch {
	case err == nil && m.setStateIf(epoch, StateAuthenticated):
		m.metrics.Refreshes.WithLabelValues(RefreshSuccess).Inc()
		logger.Info().Int("replaying", m.coordinator.Pending()).Msg("Session refreshed")
		m.coordinator.Finish(nil)
		return m.dispatch(req)
	case m.sessionEpoch() != epoch:
		loggedOut := &SessionExpiredError{Cause: ErrLoggedOut}
		m.metrics.Refreshes.WithLabelValues(RefreshAbandoned).Inc()
		logger.Info().Msg("Session cleared during refresh, dropping its result")
		m.coordinator.Finish(loggedOut)
		return nil, loggedOut
	case errors.As(err, &expired):
		m.metrics.Refreshes.WithLabelValues(RefreshExpired).Inc()
		m.expire(expired)
		m.coordinator.Finish(expired)
		return nil, expired
	default:
		m.metrics.Refreshes.WithLabelValues(RefreshTransient).Inc()
		logger.Warn().Err(err).Msg("Refresh failed, keeping session")
		m.setStateIf(epoch, prev)
		m.recordError(err)
		m.coordinator.Finish(err)
		return nil, err
	}
}

// refresh calls the refresh endpoint. It is detached from the caller's cancellation
// because queued requests from other callers depend on its outcome. The new
// credential is only stored while the session epoch is still epoch.
func (m *Manager) refresh(parent context.Context, epoch uint64, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), m.refreshTimeout)
	defer cancel()

	req, err := m.NewRequest(ctx, http.MethodPost, RouteRefresh, nil)
	if err != nil {
		return &TransientError{Op: "Refresh", Cause: err}
	}
	req.Header.Set(requestIDHeader, m.newID())

	if err := m.strategy.AttachRefreshCredential(req); err != nil {
		if errors.Is(err, ErrNoRefreshCredential) {
			return &SessionExpiredError{Cause: err}
		}
		return &TransientError{Op: "Refresh", Cause: err}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return &TransientError{Op: "Refresh", Cause: err}
	}
	defer drain(resp)

	var body authResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body)

	switch {
	case IsTransientStatus(resp.StatusCode):
		return &TransientError{Op: "Refresh", Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		logger.Debug().Int("status", resp.StatusCode).Msg("Refresh credential rejected")
		return &SessionExpiredError{
			Status: resp.StatusCode,
			Cause:  errs.Wrapf(errs.ErrInvalidRefreshToken, "%s", body.errorMessage(http.StatusText(resp.StatusCode))),
		}
	}

	if m.strategy.Mode() == ModeBearer && body.AccessToken == "" {
		cause := errors.New("refresh response carried no access token")
		if decodeErr != nil {
			cause = fmt.Errorf("invalid refresh response: %w", decodeErr)
		}
		return &TransientError{Op: "Refresh", Status: resp.StatusCode, Cause: cause}
	}

	m.credLock.Lock()
	defer m.credLock.Unlock()
	if m.sessionEpoch() != epoch {
		return &SessionExpiredError{Cause: ErrLoggedOut}
	}
	if err := m.strategy.ExtractCredential(resp, body.tokens()); err != nil {
		return &TransientError{Op: "Refresh", Status: resp.StatusCode, Cause: err}
	}
	return nil
}

// IsTransientStatus reports whether an HTTP status says nothing about the session:
// server errors, timeouts and rate limiting.
func IsTransientStatus(status int) bool {
	return status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
}

func (m *Manager) requestLogger(req *http.Request) zerolog.Logger {
	return m.logger.With().
		Str("request_id", req.Header.Get(requestIDHeader)).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Logger()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
