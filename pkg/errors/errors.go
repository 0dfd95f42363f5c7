package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStoreUnavailable marks failures of the persistence layer; it is
	// fatal to the operation in progress, there is no retry in the core.
	ErrStoreUnavailable = errors.New("index store unavailable")
	// ErrMalformedPostings marks a compressed postings buffer that ends
	// mid-varint (continuation bit set on the final byte).
	ErrMalformedPostings = errors.New("malformed postings data")
	// ErrConfigMismatch is returned when the configured shard size or bloom
	// geometry differs from the parameters persisted with the index.
	ErrConfigMismatch = errors.New("index configuration mismatch")
	// ErrPostingsNotFound is returned for a (key, shard) pair with no entry.
	ErrPostingsNotFound = errors.New("postings entry not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
