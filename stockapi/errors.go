package stockapi

import (
	"fmt"
	"net/http"

	errs "github.com/jrsteele09/stockscope-client/internal/errors"
)

// APIError is a non-2xx answer from a data endpoint that is not a session or
// transient failure. The message is the API's {"error": ...} text.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errs.ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.ErrNotAuthorized
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusConflict:
		return errs.ErrConflict
	}
	return nil
}
