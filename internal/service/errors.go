package service

import (
	"errors"
	"fmt"
)

// Expected outcomes of station operations. They are returned as values,
// wrapped in an error whose message is ready to show to the user.
var (
	ErrConflict      = errors.New("train already exists")
	ErrNotFound      = errors.New("train not found")
	ErrAlreadyMember = errors.New("already aboard")
	ErrNotBoarded    = errors.New("not aboard any train")
	ErrInvalidInput  = errors.New("invalid input")
	ErrClosed        = errors.New("station closed")
)

type stationError struct {
	kind error
	msg  string
}

func (e *stationError) Error() string { return e.msg }

func (e *stationError) Unwrap() error { return e.kind }

func fail(kind error, format string, args ...any) error {
	return &stationError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Kind returns a short label for err, used as a metric label.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, ErrNotBoarded):
		return "not_boarded"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "error"
	}
}
