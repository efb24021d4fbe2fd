package session

import "net/http"

// Mode names the credential representation a deployment uses.
type Mode string

const (
	ModeBearer Mode = "bearer"
	ModeCookie Mode = "cookie"
)

// CredentialStrategy owns the credential for one deployment mode. The Manager only
// talks to the credential through this interface.
type CredentialStrategy interface {
	Mode() Mode

	// AttachCredential adds the access credential to an outgoing request.
	AttachCredential(req *http.Request) error

	// AttachRefreshCredential prepares the refresh call. It returns
	// ErrNoRefreshCredential when a refresh cannot possibly succeed.
	AttachRefreshCredential(req *http.Request) error

	// ExtractCredential records whatever credential the response carries. tokens
	// holds the body tokens for auth endpoints and is empty for everything else.
	ExtractCredential(resp *http.Response, tokens Tokens) error

	// ClearCredential forgets the credential locally.
	ClearCredential() error

	// HasCredential reports whether asking the server "who am I" is worthwhile.
	HasCredential() bool

	// LooksValid reports whether the client may optimistically treat itself as
	// signed in before the server has confirmed it.
	LooksValid() bool
}
