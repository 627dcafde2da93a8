package prismic

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by NewClient when Config does not validate.
	ErrInvalidConfig = errors.New("prismic: invalid config")
	// ErrTransport covers network failures and non-2xx API responses.
	ErrTransport = errors.New("prismic: transport error")
	// ErrNotFound is returned when no document matches a lookup.
	ErrNotFound = errors.New("prismic: document not found")
	// ErrMalformed covers undecodable responses and unusable cursors.
	ErrMalformed = errors.New("prismic: malformed response")
)

// Error is the single error type produced at the client boundary.
// Kind is one of ErrTransport, ErrNotFound or ErrMalformed.
type Error struct {
	Op         string
	Kind       error
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.Error() + " (" + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status %d", e.StatusCode)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind error, status int, err error) *Error {
	return &Error{Op: op, Kind: kind, StatusCode: status, Err: err}
}

// IsNotFound is a convenience for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
