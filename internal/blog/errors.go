package blog

import (
	"errors"
	"fmt"
)

// error kinds, match them with errors.Is
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrBlogNotFound   = errors.New("blog not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrEmptyResult    = errors.New("empty result")
	ErrCreationFailed = errors.New("creation failed")
	ErrStoreFailure   = errors.New("store failure")
)

// Error is the failure side of a Result: a kind plus the message shown to the caller.
type Error struct {
	Kind    error
	Message string
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(id string) *Error {
	return newError(ErrBlogNotFound, "blog not found for id: %s", id)
}

func noBlogsFound() *Error {
	return newError(ErrEmptyResult, "no blogs found, please add them first")
}
