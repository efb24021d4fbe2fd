package config

import (
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeBearer AuthMode = "bearer"
	AuthModeCookie AuthMode = "cookie"
)

type SessionConfig interface {
	GetAuthMode() AuthMode
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetLogoutTimeout() time.Duration
	GetMinPasswordLength() int
	GetLoginRoute() string
	GetLandingRoute() string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetAuthMode selects the credential strategy; anything other than "cookie" is bearer
func (Session) GetAuthMode() AuthMode {
	if strings.EqualFold(GetEnv("STOCKSCOPE_AUTH_MODE", ""), string(AuthModeCookie)) {
		return AuthModeCookie
	}
	return AuthModeBearer
}

func (Session) GetRequestTimeout() time.Duration {
	return GetEnvDuration("STOCKSCOPE_REQUEST_TIMEOUT", 30*time.Second)
}

func (Session) GetRefreshTimeout() time.Duration {
	return GetEnvDuration("STOCKSCOPE_REFRESH_TIMEOUT", 15*time.Second)
}

// GetLogoutTimeout bounds the best-effort server logout call
func (Session) GetLogoutTimeout() time.Duration {
	return GetEnvDuration("STOCKSCOPE_LOGOUT_TIMEOUT", 5*time.Second)
}

func (Session) GetMinPasswordLength() int {
	return GetEnvInt("STOCKSCOPE_MIN_PASSWORD_LENGTH", 6)
}

func (Session) GetLoginRoute() string {
	return "/login"
}

func (Session) GetLandingRoute() string {
	return "/"
}
