// Package credstore persists the client-side credential between runs.
//
// The store is a small origin-scoped key/value area, the analogue of a browser's
// localStorage. Bearer mode keeps exactly two entries under AccessTokenKey and
// RefreshTokenKey. Cookie mode keeps the API's cookies, JSON encoded, under
// CookieJarKey so a session survives between runs of the CLI.
package credstore

import (
	errs "github.com/jrsteele09/stockscope-client/internal/errors"
)

const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	CookieJarKey    = "session_cookies"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errs.ErrCredentialNotFound

// Store is the persisted credential area.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores value under key.
	Set(key, value string) error

	// Delete removes the keys. Deleting absent keys is not an error.
	Delete(keys ...string) error
}

// StoreError reports a failed store operation.
type StoreError struct {
	Operation string // "get", "set", "delete", "load", "save"
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Operation + " credential"
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
