package engine

import (
	"errors"
	"fmt"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/descriptor"
	"github.com/buildplan/buildplan/pkg/plan"
	"github.com/buildplan/buildplan/pkg/resolver"
	"github.com/buildplan/buildplan/pkg/validate"
)

// ErrorClass groups pipeline failures by the stage that produced them.
type ErrorClass string

const (
	// ErrorClassParse indicates a malformed descriptor. Fatal.
	ErrorClassParse ErrorClass = "parse"

	// ErrorClassRegistry indicates an unknown plugin or a broken catalog. Fatal.
	ErrorClassRegistry ErrorClass = "registry"

	// ErrorClassUsage indicates a bad request, such as an unknown variant
	// name. Fatal.
	ErrorClassUsage ErrorClass = "usage"

	// ErrorClassValidation indicates error diagnostics on one or more
	// variants. Siblings are still emitted.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassEmit indicates the plan could not be written to its sink.
	ErrorClassEmit ErrorClass = "emit"

	// ErrorClassInternal indicates a bug or an unexpected failure.
	ErrorClassInternal ErrorClass = "internal"
)

// Exit codes of the resolve command.
const (
	ExitOK      = 0
	ExitInvalid = 1
	ExitFatal   = 2
)

// ExitCode maps the class to the process exit code.
func (c ErrorClass) ExitCode() int {
	if c == ErrorClassValidation {
		return ExitInvalid
	}
	return ExitFatal
}

// Error is a classified pipeline error.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Source is the descriptor the run was processing.
	Source string `json:"source,omitempty"`

	// Variant names the variant involved, if any.
	Variant string `json:"variant,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`

	// Details contains additional context.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Variant != "" {
		return fmt.Sprintf("[%s] %s (variant=%s)", e.Class, msg, e.Variant)
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same class and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// ExitCode returns the exit code for this error.
func (e *Error) ExitCode() int {
	return e.Class.ExitCode()
}

func newError(class ErrorClass, code, message string, err error) *Error {
	return &Error{Class: class, Code: code, Message: message, Err: err}
}

// NewParseError creates a new parse error.
func NewParseError(message string, err error) *Error {
	return newError(ErrorClassParse, ErrCodeParse, message, err)
}

// NewRegistryError creates a new registry error.
func NewRegistryError(message string, err error) *Error {
	return newError(ErrorClassRegistry, ErrCodeUnknownPlugin, message, err)
}

// NewUsageError creates a new usage error.
func NewUsageError(message string, err error) *Error {
	return newError(ErrorClassUsage, ErrCodeUnknownVariant, message, err)
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *Error {
	return newError(ErrorClassValidation, ErrCodeValidation, message, err)
}

// NewEmitError creates a new emit error.
func NewEmitError(message string, err error) *Error {
	return newError(ErrorClassEmit, ErrCodeEmit, message, err)
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *Error {
	return newError(ErrorClassInternal, ErrCodeInternal, message, err)
}

// WithSource adds the descriptor source to an error.
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// WithVariant adds the variant name to an error.
func (e *Error) WithVariant(variant string) *Error {
	e.Variant = variant
	return e
}

// WithCode sets the error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Classify returns err as an *Error, deriving the class from the typed
// errors of the pipeline packages. Unrecognised errors are internal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var (
		parseErr   *descriptor.ParseError
		notFound   *catalog.NotFoundError
		unknownVar *resolver.UnknownVariantError
		invalid    *validate.ValidationError
		emitErr    *plan.EmitError
	)
	switch {
	case errors.As(err, &parseErr):
		return NewParseError("", err).WithSource(parseErr.File)
	case errors.As(err, &notFound):
		return NewRegistryError("", err).WithDetail("plugin", notFound.ID)
	case errors.As(err, &unknownVar):
		return NewUsageError("", err).WithVariant(unknownVar.Name)
	case errors.As(err, &invalid):
		return NewValidationError("", err).WithVariant(invalid.Variant)
	case errors.As(err, &emitErr):
		return NewEmitError("", err).WithDetail("sink", emitErr.Sink).WithDetail("partial", emitErr.Partial)
	default:
		return NewInternalError("", err)
	}
}

// ExitCode returns the process exit code for err: 0 for nil, otherwise the
// code of its class.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return Classify(err).ExitCode()
}

// IsParse reports whether err is classified as a parse error.
func IsParse(err error) bool {
	return classOf(err) == ErrorClassParse
}

// IsRegistry reports whether err is classified as a registry error.
func IsRegistry(err error) bool {
	return classOf(err) == ErrorClassRegistry
}

// IsValidation reports whether err is classified as a validation error.
func IsValidation(err error) bool {
	return classOf(err) == ErrorClassValidation
}

// IsEmit reports whether err is classified as an emit error.
func IsEmit(err error) bool {
	return classOf(err) == ErrorClassEmit
}

// IsFatal reports whether err stops the whole run.
func IsFatal(err error) bool {
	return err != nil && !IsValidation(err)
}

func classOf(err error) ErrorClass {
	if err == nil {
		return ""
	}
	return Classify(err).Class
}

// Error codes.
const (
	ErrCodeParse          = "PARSE_ERROR"
	ErrCodeUnknownPlugin  = "UNKNOWN_PLUGIN"
	ErrCodeBadCatalog     = "BAD_CATALOG"
	ErrCodeUnknownVariant = "UNKNOWN_VARIANT"
	ErrCodeBadFormat      = "BAD_FORMAT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeEmit           = "EMIT_FAILED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)
