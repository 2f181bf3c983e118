package optimization

import (
	"errors"
	"fmt"
)

// Kind classifies an optimization error.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no classification.
	KindUnknown Kind = iota
	// KindConfiguration marks fatal setup errors, such as a task whose
	// problem collaborator was never bound. These are programming errors
	// and are never retried.
	KindConfiguration
	// KindDataFormat marks fatal contract violations in the matrices a
	// user-supplied evaluation function produced (wrong shape, wrong type).
	KindDataFormat
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDataFormat:
		return "data format"
	default:
		return "unknown"
	}
}

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind classifies the error (configuration, data format, ...).
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewConfigurationError creates a fatal configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// NewConfigurationErrorf creates a fatal configuration error with a
// formatted message.
func NewConfigurationErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewDataFormatError creates a fatal data format error.
func NewDataFormatError(message string) *Error {
	return &Error{Kind: KindDataFormat, Message: message}
}

// NewDataFormatErrorf creates a fatal data format error with a formatted
// message.
func NewDataFormatErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDataFormat, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether any error in err's chain is an optimization
// Error of the given kind. Wrapping with WrapError does not hide the
// wrapped error's kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return IsKind(err, KindConfiguration)
}

// IsDataFormatError reports whether err is a data format error.
func IsDataFormatError(err error) bool {
	return IsKind(err, KindDataFormat)
}
