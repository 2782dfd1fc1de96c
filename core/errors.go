package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrForbidden is returned by callers when a visibility check fails.
var ErrForbidden = errors.New("permission denied")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ConfigError reports a configuration value that cannot be used.
type ConfigError struct {
	Key string
	Err error
}

func NewConfigError(key string, err error) error {
	return &ConfigError{Key: key, Err: err}
}

func (err ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %v", err.Key, err.Err)
}

func IsConfigError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigError)
	return ok
}

// NotFoundError is returned when a resource does not exist.
// Packages declare their own sentinel, e.g. `var ErrNotFound = core.NewNotFoundError("week")`.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// TransitionError is returned when a status change is not allowed.
type TransitionError struct {
	Resource string
	From     string
	To       string
}

func NewTransitionError(resource, from, to string) error {
	return &TransitionError{Resource: resource, From: from, To: to}
}

func (err TransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", err.Resource, err.From, err.To)
}

func IsInvalidTransition(err error) bool {
	_, ok := errors.Cause(err).(*TransitionError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
