package session

// StockScope API auth routes
const (
	RouteRegister = "/api/auth/register"
	RouteLogin    = "/api/auth/login"
	RouteRefresh  = "/api/auth/refresh"
	RouteMe       = "/api/auth/me"
	RouteLogout   = "/api/auth/logout"
)

const (
	requestIDHeader = "X-Request-ID"
	csrfHeader      = "X-CSRF-TOKEN"
)
