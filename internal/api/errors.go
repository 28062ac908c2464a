package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable is returned when the server answers 418: it is up but
// cannot reach its database.
var ErrUnavailable = errors.New("database unavailable")

// RequestError describes any other failed request. Status is 0 for
// transport errors.
type RequestError struct {
	Method string
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the request could succeed.
func (e *RequestError) Temporary() bool {
	if e.Status == 0 {
		return true
	}
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// IsUnavailable reports whether err carries the database-unavailable condition.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
