package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/stockscope-client/credstore"
)

// Cookie names used by the API's JWT cookie mode.
const (
	CSRFAccessCookie  = "csrf_access_token"
	CSRFRefreshCookie = "csrf_refresh_token"
)

var _ CredentialStrategy = (*CookieStrategy)(nil)

// CookieStrategy lets the server manage the session through cookies. The strategy
// holds its own jar and attaches cookies explicitly, so the Manager's http.Client
// must not have a Jar of its own. State changing requests get the double submit
// CSRF header the API expects.
//
// With a store the jar outlives the process: every cookie the API sets is saved
// under credstore.CookieJarKey and loaded back on construction.
type CookieStrategy struct {
	base  *url.URL
	jar   *cookiejar.Jar
	store credstore.Store
	saved map[string]savedCookie
	lock  sync.RWMutex
}

// savedCookie is the persisted form of a cookie set by the API.
type savedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func (s savedCookie) expired(now time.Time) bool {
	return !s.Expires.IsZero() && !s.Expires.After(now)
}

func (s savedCookie) cookie() *http.Cookie {
	return &http.Cookie{Name: s.Name, Value: s.Value, Path: s.Path, Expires: s.Expires, Secure: s.Secure, HttpOnly: s.HttpOnly}
}

type CookieOption func(*CookieStrategy)

// WithCookieStore persists the jar in store.
func WithCookieStore(store credstore.Store) CookieOption {
	return func(c *CookieStrategy) {
		c.store = store
	}
}

func NewCookieStrategy(baseURL string, options ...CookieOption) (*CookieStrategy, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[NewCookieStrategy] invalid base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[NewCookieStrategy] %w", err)
	}
	c := &CookieStrategy{base: base, jar: jar, saved: map[string]savedCookie{}}
	for _, opt := range options {
		opt(c)
	}
	if err := c.restore(); err != nil {
		return nil, fmt.Errorf("[NewCookieStrategy] %w", err)
	}
	return c, nil
}

// restore loads the saved cookies into the jar, skipping any that have expired.
func (c *CookieStrategy) restore() error {
	if c.store == nil {
		return nil
	}
	raw, err := c.store.Get(credstore.CookieJarKey)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var saved []savedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return &credstore.StoreError{Operation: "load", Key: credstore.CookieJarKey, Cause: err}
	}
	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		if sc.expired(now) {
			continue
		}
		c.saved[sc.Name] = sc
		cookies = append(cookies, sc.cookie())
	}
	c.jar.SetCookies(c.base, cookies)
	return nil
}

// persist writes the saved cookies to the store. The caller holds the write lock.
func (c *CookieStrategy) persist() error {
	if len(c.saved) == 0 {
		return c.store.Delete(credstore.CookieJarKey)
	}
	saved := make([]savedCookie, 0, len(c.saved))
	for _, sc := range c.saved {
		saved = append(saved, sc)
	}
	raw, err := json.Marshal(saved)
	if err != nil {
		return &credstore.StoreError{Operation: "save", Key: credstore.CookieJarKey, Cause: err}
	}
	return c.store.Set(credstore.CookieJarKey, string(raw))
}

func (c *CookieStrategy) Mode() Mode {
	return ModeCookie
}

func (c *CookieStrategy) AttachCredential(req *http.Request) error {
	c.attach(req, CSRFAccessCookie)
	return nil
}

func (c *CookieStrategy) AttachRefreshCredential(req *http.Request) error {
	c.attach(req, CSRFRefreshCookie)
	return nil
}

func (c *CookieStrategy) attach(req *http.Request, csrfCookie string) {
	c.lock.RLock()
	cookies := c.jar.Cookies(req.URL)
	c.lock.RUnlock()

	for _, ck := range cookies {
		req.AddCookie(ck)
		if ck.Name == csrfCookie && !isSafeMethod(req.Method) {
			req.Header.Set(csrfHeader, ck.Value)
		}
	}
}

func (c *CookieStrategy) ExtractCredential(resp *http.Response, _ Tokens) error {
	if resp == nil {
		return nil
	}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return nil
	}
	u := c.base
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.jar.SetCookies(u, cookies)
	if c.store == nil {
		return nil
	}

	now := time.Now()
	for _, ck := range cookies {
		sc := savedCookie{Name: ck.Name, Value: ck.Value, Path: ck.Path, Secure: ck.Secure, HttpOnly: ck.HttpOnly}
		switch {
		case ck.MaxAge > 0:
			sc.Expires = now.Add(time.Duration(ck.MaxAge) * time.Second)
		case !ck.Expires.IsZero():
			sc.Expires = ck.Expires
		}
		if ck.MaxAge < 0 || ck.Value == "" || sc.expired(now) {
			delete(c.saved, ck.Name)
			continue
		}
		c.saved[ck.Name] = sc
	}
	return c.persist()
}

func (c *CookieStrategy) ClearCredential() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("[CookieStrategy ClearCredential] %w", err)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.jar = jar
	c.saved = map[string]savedCookie{}
	if c.store == nil {
		return nil
	}
	return c.store.Delete(credstore.CookieJarKey)
}

// HasCredential is always true: the cookie may be HttpOnly, so only the server can tell.
func (c *CookieStrategy) HasCredential() bool {
	return true
}

func (c *CookieStrategy) LooksValid() bool {
	return false
}

// Cookies returns the cookies the jar would send to the API base URL.
func (c *CookieStrategy) Cookies() []*http.Cookie {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.jar.Cookies(c.base)
}

func isSafeMethod(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
