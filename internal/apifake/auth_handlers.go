package apifake

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type userJSON struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	IsActive        bool   `json:"is_active"`
	EmailVerified   bool   `json:"email_verified"`
	PreferredMarket string `json:"preferred_market,omitempty"`
	Theme           string `json:"theme,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func (a *account) toJSON() userJSON {
	return userJSON{
		ID:              a.ID,
		Username:        a.Username,
		Email:           a.Email,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		IsActive:        true,
		PreferredMarket: a.Market,
		Theme:           a.Theme,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// addAccount must be called without the lock held.
func (s *Server) addAccount(username, email, password string) *account {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.addAccountLocked(username, email, password)
}

func (s *Server) addAccountLocked(username, email, password string) *account {
	s.nextID++
	acct := &account{
		ID:        s.nextID,
		Username:  username,
		Email:     email,
		Password:  password,
		Market:    "US",
		Theme:     "light",
		CreatedAt: time.Now(),
	}
	s.accounts[strings.ToLower(username)] = acct
	return acct
}

// findAccountLocked matches a username or an email address.
func (s *Server) findAccountLocked(identifier string) *account {
	if acct, ok := s.accounts[strings.ToLower(identifier)]; ok {
		return acct
	}
	for _, acct := range s.accounts {
		if strings.EqualFold(acct.Email, identifier) {
			return acct
		}
	}
	return nil
}

// sessionResponse issues a token pair for acct in the configured mode.
func (s *Server) sessionResponse(w http.ResponseWriter, status int, message string, acct *account) {
	s.lock.Lock()
	access, refresh, err := s.issuePairLocked(acct.Username)
	s.lock.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	body := map[string]any{"message": message, "user": acct.toJSON()}
	if s.mode == CookieMode {
		s.setSessionCookies(w, access, refresh)
	} else {
		body["access_token"] = access
		body["refresh_token"] = refresh
	}
	writeJSON(w, status, body)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	s.lock.Lock()
	if s.findAccountLocked(req.Username) != nil || s.findAccountLocked(req.Email) != nil {
		s.lock.Unlock()
		writeError(w, http.StatusConflict, "Username or email already exists")
		return
	}
	acct := s.addAccountLocked(req.Username, req.Email, req.Password)
	acct.FirstName = req.FirstName
	acct.LastName = req.LastName
	s.lock.Unlock()

	s.sessionResponse(w, http.StatusCreated, "User registered successfully", acct)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	s.lock.Lock()
	acct := s.findAccountLocked(req.Username)
	s.lock.Unlock()
	if acct == nil || acct.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	s.sessionResponse(w, http.StatusOK, "Login successful", acct)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	gate := s.refreshGate
	s.lock.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	raw, err := s.credential(r, typeRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	acct, err := s.verify(raw, typeRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	s.lock.Lock()
	access, err := s.signLocked(acct.Username, typeAccess, s.accessTTL)
	s.lock.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	if s.mode == CookieMode {
		s.setSessionCookies(w, access, "")
		writeJSON(w, http.StatusOK, map[string]any{"message": "Token refreshed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_token": access})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	if s.mode == CookieMode {
		unsetSessionCookies(w)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, acct *account) {
	s.lock.Lock()
	user := acct.toJSON()
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		Email           *string `json:"email"`
		FirstName       *string `json:"first_name"`
		LastName        *string `json:"last_name"`
		PreferredMarket *string `json:"preferred_market"`
		Theme           *string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.lock.Lock()
	if req.Email != nil {
		if other := s.findAccountLocked(*req.Email); other != nil && other != acct {
			s.lock.Unlock()
			writeError(w, http.StatusConflict, "Email already in use")
			return
		}
		acct.Email = *req.Email
	}
	if req.FirstName != nil {
		acct.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		acct.LastName = *req.LastName
	}
	if req.PreferredMarket != nil {
		acct.Market = *req.PreferredMarket
	}
	if req.Theme != nil {
		acct.Theme = *req.Theme
	}
	user := acct.toJSON()
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated", "user": user})
}
