package session

// User is the account record returned by the API. Timestamps are passed through
// as the ISO strings the API emits.
type User struct {
	ID              int64  `json:"id" yaml:"id"`
	Username        string `json:"username" yaml:"username"`
	Email           string `json:"email,omitempty" yaml:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	IsActive        bool   `json:"is_active,omitempty" yaml:"is_active,omitempty"`
	EmailVerified   bool   `json:"email_verified,omitempty" yaml:"email_verified,omitempty"`
	PreferredMarket string `json:"preferred_market,omitempty" yaml:"preferred_market,omitempty"`
	Theme           string `json:"theme,omitempty" yaml:"theme,omitempty"`
	CreatedAt       string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	LastLogin       string `json:"last_login,omitempty" yaml:"last_login,omitempty"`
}

// Registration is the sign-up form. ConfirmPassword is checked locally and never sent.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// ProfileUpdate carries the fields to change; nil fields are left untouched.
type ProfileUpdate struct {
	Email           *string `json:"email,omitempty"`
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	PreferredMarket *string `json:"preferred_market,omitempty"`
	Theme           *string `json:"theme,omitempty"`
}

// Tokens is the bearer credential pair as issued by login, register and refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponse covers every auth endpoint payload, success and failure.
type authResponse struct {
	User         *User  `json:"user,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
}

func (r authResponse) tokens() Tokens {
	return Tokens{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

func (r authResponse) errorMessage(defaultMessage string) string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Message != "":
		return r.Message
	default:
		return defaultMessage
	}
}
