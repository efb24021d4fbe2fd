package apifake

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

var (
	errMissingToken = errors.New("Authorization required")
	errExpiredToken = errors.New("Token has expired")
	errInvalidToken = errors.New("Invalid token")
)

type tokenClaims struct {
	Type  string `json:"type"`
	Epoch int    `json:"epoch"`
	jwt.RegisteredClaims
}

// IssueTokens mints a token pair for an existing account, the way a login would.
func (s *Server) IssueTokens(username string) (access, refresh string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.accounts[strings.ToLower(username)]; !ok {
		return "", "", fmt.Errorf("[IssueTokens] unknown user %q", username)
	}
	return s.issuePairLocked(username)
}

// IssueExpiredAccessToken mints an access token whose exp is in the past.
func (s *Server) IssueExpiredAccessToken(username string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.signLocked(username, typeAccess, -time.Minute)
}

// RevokeAccessTokens invalidates every access token issued so far.
func (s *Server) RevokeAccessTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.accessEpoch++
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshEpoch++
}

func (s *Server) issuePairLocked(username string) (string, string, error) {
	access, err := s.signLocked(username, typeAccess, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.signLocked(username, typeRefresh, 30*24*time.Hour)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Server) signLocked(username, tokenType string, ttl time.Duration) (string, error) {
	epoch := s.accessEpoch
	if tokenType == typeRefresh {
		epoch = s.refreshEpoch
	}
	now := time.Now()
	claims := tokenClaims{
		Type:  tokenType,
		Epoch: epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.ToLower(username),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify checks signature, expiry, type and revocation and returns the account.
func (s *Server) verify(raw, tokenType string) (*account, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errExpiredToken
	case err != nil:
		return nil, errInvalidToken
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	epoch := s.accessEpoch
	if tokenType == typeRefresh {
		epoch = s.refreshEpoch
	}
	if claims.Type != tokenType {
		return nil, errInvalidToken
	}
	if claims.Epoch != epoch {
		return nil, errExpiredToken
	}
	acct, ok := s.accounts[claims.Subject]
	if !ok {
		return nil, errInvalidToken
	}
	return acct, nil
}

// credential finds the token of tokenType on r: the Authorization header in bearer
// mode, the cookie (plus CSRF check on unsafe methods) in cookie mode.
func (s *Server) credential(r *http.Request, tokenType string) (string, error) {
	if s.mode == BearerMode {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return "", errMissingToken
		}
		return raw, nil
	}

	tokenCookie, csrfCookie := AccessCookie, CSRFAccessCookie
	if tokenType == typeRefresh {
		tokenCookie, csrfCookie = RefreshCookie, CSRFRefreshCookie
	}
	ck, err := r.Cookie(tokenCookie)
	if err != nil || ck.Value == "" {
		return "", errMissingToken
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		csrf, err := r.Cookie(csrfCookie)
		if err != nil || csrf.Value == "" || r.Header.Get(CSRFHeader) != csrf.Value {
			return "", errors.New("Missing CSRF token")
		}
	}
	return ck.Value, nil
}

// requireAccess guards a handler with a valid access token.
func (s *Server) requireAccess(next func(http.ResponseWriter, *http.Request, *account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := s.credential(r, typeAccess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		acct, err := s.verify(raw, typeAccess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r, acct)
	}
}

// setSessionCookies writes the cookie mode credential for access and, when
// non-empty, refresh.
func (s *Server) setSessionCookies(w http.ResponseWriter, access, refresh string) {
	s.lock.Lock()
	s.nextCSRF++
	csrf := fmt.Sprintf("csrf-%d", s.nextCSRF)
	s.lock.Unlock()

	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: access, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: CSRFAccessCookie, Value: csrf, Path: "/"})
	if refresh != "" {
		http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: refresh, Path: "/", HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: CSRFRefreshCookie, Value: csrf + "-r", Path: "/"})
	}
}

func unsetSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, CSRFAccessCookie, RefreshCookie, CSRFRefreshCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
}
