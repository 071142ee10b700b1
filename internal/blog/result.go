package blog

import "errors"

// Result is returned by every Service operation: either a value, or an *Error.
type Result[T any] struct {
	value T
	err   *Error
}

func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

func Failed[T any](err *Error) Result[T] {
	return Result[T]{err: err}
}

// resultOf turns a (value, error) pair into a Result. Errors that are not
// already an *Error are reported as store failures.
func resultOf[T any](value T, err error) Result[T] {
	if err == nil {
		return Ok(value)
	}
	var blogErr *Error
	if !errors.As(err, &blogErr) {
		blogErr = newError(ErrStoreFailure, "%s", err.Error())
	}
	return Failed[T](blogErr)
}

func (r Result[T]) IsOk() bool {
	return r.err == nil
}

func (r Result[T]) Value() T {
	return r.value
}

// Err returns nil for a successful result.
func (r Result[T]) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.Err()
}
