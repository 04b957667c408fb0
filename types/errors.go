package types

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrKeyNotFound is returned by a read against a key the store does not hold.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDeserialization is returned at construction when a persisted blob
	// exists but cannot be decoded into the expected snapshot shape.
	ErrDeserialization = errors.New("deserialization failed")

	// ErrIO is returned when a flush or load against the backend fails.
	ErrIO = errors.New("persistence io failed")

	// ErrUnhashableArguments is returned when call arguments cannot be turned
	// into a stable fingerprint.
	ErrUnhashableArguments = errors.New("unhashable arguments")
)

var (
	ErrInvalidOption = errors.New("invalid option")
	ErrClosed        = errors.New("cache closed")
)

// Errorf wraps baseErr with a formatted message while keeping it matchable
// through errors.Is.
func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// IOError marks err as a persistence failure. The returned error matches both
// ErrIO and err.
func IOError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &joined{base: ErrIO, cause: errors.Wrap(err, message)}
}

// DeserializationError marks err as a decode failure. The returned error
// matches both ErrDeserialization and err.
func DeserializationError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &joined{base: ErrDeserialization, cause: errors.Wrap(err, message)}
}

type joined struct {
	base  error
	cause error
}

func (j *joined) Error() string {
	return j.base.Error() + ": " + j.cause.Error()
}

func (j *joined) Unwrap() []error {
	return []error{j.base, j.cause}
}
