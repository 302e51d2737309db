package repeater

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned when the session is missing or could not be refreshed.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrNoTokens is returned by a TokenStore that holds no session.
	ErrNoTokens = errors.New("no stored session")
)

// APIError is a non-2xx response other than 401.
type APIError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api %s %s returned status %s", e.Method, e.Path, statusLabel(e.Status))
	}
	return fmt.Sprintf("api %s %s returned status %s: %s", e.Method, e.Path, statusLabel(e.Status), e.Detail)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsValidation reports whether err is a request the backend rejected as invalid.
func IsValidation(err error) bool {
	return hasStatus(err, http.StatusBadRequest) || hasStatus(err, http.StatusUnprocessableEntity)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
