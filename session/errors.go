package session

import (
	"errors"
	"fmt"
	"net/http"

	errs "github.com/jrsteele09/stockscope-client/internal/errors"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrAuth           = errors.New("authentication rejected")
	ErrSessionExpired = errs.ErrSessionExpired
	ErrTransient      = errors.New("transient failure")

	// ErrNoRefreshCredential is returned by a strategy that has nothing to refresh with.
	ErrNoRefreshCredential = errors.New("no refresh credential")

	// ErrLoggedOut fails requests whose refresh finished after the session was cleared.
	ErrLoggedOut = errors.New("logged out while refreshing")
)

// ValidationError is a local, pre-network rejection of user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AuthError is a server rejection of credentials, a registration or a profile change.
type AuthError struct {
	Op      string
	Status  int
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() []error {
	if e.Op == "Login" && e.Status == http.StatusUnauthorized {
		return []error{ErrAuth, errs.ErrInvalidCredentials}
	}
	return []error{ErrAuth}
}

// SessionExpiredError means the refresh credential was rejected. By the time a
// caller sees it the local session has already been cleared.
type SessionExpiredError struct {
	Status int
	Cause  error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause == nil {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSessionExpired, e.Cause)
}

func (e *SessionExpiredError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrSessionExpired}
	}
	return []error{ErrSessionExpired, e.Cause}
}

// TransientError is a network, timeout or 5xx failure. It says nothing about
// whether the session is valid.
type TransientError struct {
	Op     string
	Status int
	Cause  error
}

func (e *TransientError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %s", e.Op, ErrTransient, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("[%s] %s: server returned %d %s", e.Op, ErrTransient, e.Status, http.StatusText(e.Status))
	default:
		return fmt.Sprintf("[%s] %s", e.Op, ErrTransient)
	}
}

func (e *TransientError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrTransient}
	}
	return []error{ErrTransient, e.Cause}
}

// ErrorKind classifies an error into the session taxonomy.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindAuth
	KindSessionExpired
	KindTransient
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindSessionExpired:
		return "session_expired"
	case KindTransient:
		return "transient"
	default:
		return "other"
	}
}

// KindOf returns the taxonomy class of err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindOther
	}
}
