package session

// State is the session lifecycle position.
//
//	Unknown -> Authenticated | Unauthenticated
//	Authenticated -> Refreshing -> Authenticated | Unauthenticated
//	any -> Unauthenticated on Logout
type State int

const (
	StateUnknown State = iota
	StateUnauthenticated
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "invalid"
	}
}

// AuthState is a point-in-time view for the UI layer.
type AuthState struct {
	State           State
	User            *User
	IsAuthenticated bool
	IsLoading       bool
	LastError       ErrorKind
	Err             error
}
