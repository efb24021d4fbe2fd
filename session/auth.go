package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Login signs in with a username or email and stores the issued credential.
// Validation and rejection errors leave the current session untouched.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*User, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, m.fail(&ValidationError{Field: "username", Message: "Username or email is required"})
	}
	if password == "" {
		return nil, m.fail(&ValidationError{Field: "password", Message: "Password is required"})
	}

	done := m.beginLoading()
	defer done()

	user, err := m.authenticate(ctx, "Login", RouteLogin, loginRequest{
		Username: strings.TrimSpace(identifier),
		Password: password,
	}, "Login failed")
	if err != nil {
		return nil, err
	}
	m.logger.Info().Str("username", user.Username).Msg("Logged in")
	return user, nil
}

// Register creates an account. The API signs the new user in as part of the call.
func (m *Manager) Register(ctx context.Context, reg Registration) (*User, error) {
	if err := m.validateRegistration(&reg); err != nil {
		return nil, m.fail(err)
	}

	done := m.beginLoading()
	defer done()

	user, err := m.authenticate(ctx, "Register", RouteRegister, reg, "Registration failed")
	if err != nil {
		return nil, err
	}
	m.logger.Info().Str("username", user.Username).Msg("Registered")
	return user, nil
}

func (m *Manager) validateRegistration(reg *Registration) error {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	switch {
	case reg.Username == "":
		return &ValidationError{Field: "username", Message: "Username is required"}
	case reg.Email == "":
		return &ValidationError{Field: "email", Message: "Email is required"}
	case !strings.Contains(reg.Email, "@"):
		return &ValidationError{Field: "email", Message: "Email address is invalid"}
	case reg.Password == "":
		return &ValidationError{Field: "password", Message: "Password is required"}
	case reg.Password != reg.ConfirmPassword:
		return &ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	case len(reg.Password) < m.minPasswordLength:
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", m.minPasswordLength),
		}
	}
	return nil
}

// authenticate posts to a credential issuing endpoint and adopts the session it returns.
func (m *Manager) authenticate(ctx context.Context, op, path string, body any, failMessage string) (*User, error) {
	resp, payload, err := m.call(ctx, op, http.MethodPost, path, body)
	if err != nil {
		return nil, m.fail(err)
	}
	switch {
	case IsTransientStatus(resp.StatusCode):
		return nil, m.fail(&TransientError{Op: op, Status: resp.StatusCode})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, m.fail(&AuthError{Op: op, Status: resp.StatusCode, Message: payload.errorMessage(failMessage)})
	case payload.User == nil:
		return nil, m.fail(&TransientError{Op: op, Status: resp.StatusCode, Cause: errors.New("response carried no user")})
	case m.strategy.Mode() == ModeBearer && payload.AccessToken == "":
		return nil, m.fail(&TransientError{Op: op, Status: resp.StatusCode, Cause: errors.New("response carried no access token")})
	}

	if err := m.strategy.ExtractCredential(resp, payload.tokens()); err != nil {
		return nil, m.fail(fmt.Errorf("[%s] failed to store credential: %w", op, err))
	}
	m.setAuthenticated(payload.User)
	return m.User(), nil
}

// Logout forgets the session locally and moves to the landing route before the
// server is told. The server call is best effort and bounded by the logout timeout;
// its failure is only logged.
func (m *Manager) Logout(ctx context.Context) {
	logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.logoutTimeout)
	defer cancel()

	req, err := m.NewRequest(logoutCtx, http.MethodPost, RouteLogout, nil)
	if err == nil {
		req.Header.Set(requestIDHeader, m.newID())
		req, err = m.prepare(req)
	}

	m.clearLocal(nil)
	if m.navigator.CurrentRoute() != m.landingRoute {
		m.navigator.Navigate(m.landingRoute)
	}
	m.logger.Info().Msg("Logged out")

	if err != nil {
		m.logger.Warn().Err(err).Msg("Skipping server logout")
		return
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Server logout failed")
		return
	}
	drain(resp)
	if resp.StatusCode >= 300 {
		m.logger.Debug().Int("status", resp.StatusCode).Msg("Server logout rejected")
	}
}

// LoadCurrentUser asks the API who the credential belongs to. It returns (nil, nil)
// when the client is definitively signed out. A transient failure is returned as an
// error and leaves the credential and the optimistic state in place.
func (m *Manager) LoadCurrentUser(ctx context.Context) (*User, error) {
	if m.strategy.Mode() == ModeBearer && !m.strategy.HasCredential() {
		m.lock.Lock()
		m.state = StateUnauthenticated
		m.user = nil
		m.lock.Unlock()
		return nil, nil
	}

	done := m.beginLoading()
	defer done()

	resp, payload, err := m.call(ctx, "LoadCurrentUser", http.MethodGet, RouteMe, nil)
	if err != nil {
		var expired *SessionExpiredError
		if errors.As(err, &expired) {
			return nil, nil
		}
		m.recordError(err)
		m.logger.Warn().Err(err).Msg("Could not reach the API, keeping session")
		return nil, err
	}

	switch {
	case IsTransientStatus(resp.StatusCode):
		err := &TransientError{Op: "LoadCurrentUser", Status: resp.StatusCode}
		m.recordError(err)
		return nil, err
	case rejectsCredential(resp.StatusCode):
		m.clearLocal(&AuthError{
			Op:      "LoadCurrentUser",
			Status:  resp.StatusCode,
			Message: payload.errorMessage(http.StatusText(resp.StatusCode)),
		})
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		err := &AuthError{
			Op:      "LoadCurrentUser",
			Status:  resp.StatusCode,
			Message: payload.errorMessage(http.StatusText(resp.StatusCode)),
		}
		m.recordError(err)
		m.logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("Unexpected response loading user, keeping session")
		return nil, err
	case payload.User == nil:
		err := &TransientError{Op: "LoadCurrentUser", Status: resp.StatusCode, Cause: errors.New("response carried no user")}
		m.recordError(err)
		return nil, err
	}

	m.setAuthenticated(payload.User)
	return m.User(), nil
}

// rejectsCredential reports whether a status from the current user endpoint means
// the credential itself is no good. The API answers 422 for a token it cannot parse.
func rejectsCredential(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusUnprocessableEntity
}

// UpdateProfile changes the signed in user's profile fields.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	if update == (ProfileUpdate{}) {
		return nil, m.fail(&ValidationError{Message: "Nothing to update"})
	}
	if update.Email != nil && !strings.Contains(*update.Email, "@") {
		return nil, m.fail(&ValidationError{Field: "email", Message: "Email address is invalid"})
	}

	done := m.beginLoading()
	defer done()

	resp, payload, err := m.call(ctx, "UpdateProfile", http.MethodPut, RouteMe, update)
	if err != nil {
		return nil, m.fail(err)
	}
	switch {
	case IsTransientStatus(resp.StatusCode):
		return nil, m.fail(&TransientError{Op: "UpdateProfile", Status: resp.StatusCode})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, m.fail(&AuthError{
			Op:      "UpdateProfile",
			Status:  resp.StatusCode,
			Message: payload.errorMessage("Profile update failed"),
		})
	case payload.User == nil:
		return nil, m.fail(&TransientError{Op: "UpdateProfile", Status: resp.StatusCode, Cause: errors.New("response carried no user")})
	}

	m.setAuthenticated(payload.User)
	return m.User(), nil
}

// call dispatches an auth endpoint request and decodes its payload. The body is
// fully read and closed before call returns.
func (m *Manager) call(ctx context.Context, op, method, path string, body any) (*http.Response, authResponse, error) {
	var payload authResponse

	req, err := m.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, payload, err
	}
	resp, err := m.Dispatch(req)
	if err != nil {
		return nil, payload, err
	}
	defer drain(resp)

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, payload, &TransientError{Op: op, Status: resp.StatusCode, Cause: fmt.Errorf("invalid response body: %w", err)}
		}
	}
	return resp, payload, nil
}

// fail records err as the last error and returns it.
func (m *Manager) fail(err error) error {
	m.recordError(err)
	return err
}
