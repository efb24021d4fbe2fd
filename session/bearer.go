package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/stockscope-client/credstore"
	"golang.org/x/oauth2"
)

var _ CredentialStrategy = (*BearerStrategy)(nil)

// BearerStrategy keeps an access/refresh token pair in a credstore.Store and sends
// the access token as an Authorization header.
type BearerStrategy struct {
	store  credstore.Store
	parser *jwt.Parser
}

func NewBearerStrategy(store credstore.Store) *BearerStrategy {
	return &BearerStrategy{
		store:  store,
		parser: jwt.NewParser(),
	}
}

func (b *BearerStrategy) Mode() Mode {
	return ModeBearer
}

// Token returns the stored credential, or nil when no access token is stored.
// Expiry is read from the access token's exp claim when it is a JWT; opaque
// tokens have a zero expiry.
func (b *BearerStrategy) Token() (*oauth2.Token, error) {
	access, err := b.store.Get(credstore.AccessTokenKey)
	if errors.Is(err, credstore.ErrNotFound) || (err == nil && access == "") {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[BearerStrategy Token] %w", err)
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if refresh, err := b.store.Get(credstore.RefreshTokenKey); err == nil {
		tok.RefreshToken = refresh
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := b.parser.ParseUnverified(access, &claims); err == nil && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}
	return tok, nil
}

func (b *BearerStrategy) AttachCredential(req *http.Request) error {
	tok, err := b.Token()
	if err != nil {
		return err
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	}
	return nil
}

func (b *BearerStrategy) AttachRefreshCredential(req *http.Request) error {
	refresh, err := b.store.Get(credstore.RefreshTokenKey)
	if errors.Is(err, credstore.ErrNotFound) || (err == nil && refresh == "") {
		return ErrNoRefreshCredential
	}
	if err != nil {
		return fmt.Errorf("[BearerStrategy AttachRefreshCredential] %w", err)
	}
	(&oauth2.Token{AccessToken: refresh, TokenType: "Bearer"}).SetAuthHeader(req)
	return nil
}

// ExtractCredential stores the non-empty tokens; a refresh response carries only
// an access token and leaves the refresh token in place.
func (b *BearerStrategy) ExtractCredential(_ *http.Response, tokens Tokens) error {
	if tokens.AccessToken != "" {
		if err := b.store.Set(credstore.AccessTokenKey, tokens.AccessToken); err != nil {
			return fmt.Errorf("[BearerStrategy ExtractCredential] %w", err)
		}
	}
	if tokens.RefreshToken != "" {
		if err := b.store.Set(credstore.RefreshTokenKey, tokens.RefreshToken); err != nil {
			return fmt.Errorf("[BearerStrategy ExtractCredential] %w", err)
		}
	}
	return nil
}

func (b *BearerStrategy) ClearCredential() error {
	if err := b.store.Delete(credstore.AccessTokenKey, credstore.RefreshTokenKey); err != nil {
		return fmt.Errorf("[BearerStrategy ClearCredential] %w", err)
	}
	return nil
}

func (b *BearerStrategy) HasCredential() bool {
	tok, err := b.Token()
	return err == nil && tok != nil
}

func (b *BearerStrategy) LooksValid() bool {
	tok, err := b.Token()
	return err == nil && tok.Valid()
}
