// Package errors defines the release engine's structured error: a kind that
// callers branch on, a severity, a message, an optional cause and key/value
// context such as the offending config field or registry.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrorTypeConfig covers missing registry fields, bad semver and projects
	// without a version source.
	ErrorTypeConfig ErrorType = iota
	// ErrorTypeValidation covers invalid user input such as flags.
	ErrorTypeValidation
	// ErrorTypeAmbiguousIntent means there was nothing to analyze and no
	// explicit version or bump.
	ErrorTypeAmbiguousIntent
	// ErrorTypeGit covers tag, commit, stage and push failures.
	ErrorTypeGit
	// ErrorTypeUpload covers network, auth and registry-specific publish failures.
	ErrorTypeUpload
	ErrorTypeFileSystem
	ErrorTypeInternal
)

var typeNames = map[ErrorType]string{
	ErrorTypeConfig:          "CONFIG",
	ErrorTypeValidation:      "VALIDATION",
	ErrorTypeAmbiguousIntent: "AMBIGUOUS_INTENT",
	ErrorTypeGit:             "GIT",
	ErrorTypeUpload:          "UPLOAD",
	ErrorTypeFileSystem:      "FILESYSTEM",
	ErrorTypeInternal:        "INTERNAL",
}

func (t ErrorType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Severity represents how critical an error is
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	// SeverityHigh aborts the current project but not the run.
	SeverityHigh
	// SeverityCritical stops the run.
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// Error represents a structured error with context
type Error struct {
	Type     ErrorType
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]interface{}
	// StackTrace is only captured for critical errors.
	StackTrace string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds a context entry and returns e for chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is matches any *Error of the same type, so the Err* sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Type == t.Type
}

func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString renders the error for --verbose output: a header line, the
// cause, context in key order and the stack trace if one was captured.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] %s\n", e.Severity, e.Type, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, "Caused by: %v\n", e.Cause)
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Context:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, e.Context[k])
		}
	}

	if e.StackTrace != "" {
		sb.WriteString("Stack trace:\n" + e.StackTrace)
	}
	return sb.String()
}

func stackTrace(skip int) string {
	pcs := make([]uintptr, 10)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "  %s:%d %s\n", f.File, f.Line, f.Function)
		if !more {
			break
		}
	}
	return sb.String()
}

func build(errType ErrorType, severity Severity, message string, cause error) *Error {
	e := &Error{
		Type:     errType,
		Severity: severity,
		Message:  message,
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
	if severity == SeverityCritical {
		// skip Callers, stackTrace, build and the exported constructor
		e.StackTrace = stackTrace(4)
	}
	return e
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return build(errType, severity, message, nil)
}

// Wrap wraps err; a nil err yields nil.
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return build(errType, severity, message, err)
}

// Sentinels usable with errors.Is to test an error's category.
var (
	ErrConfig          = &Error{Type: ErrorTypeConfig}
	ErrValidation      = &Error{Type: ErrorTypeValidation}
	ErrAmbiguousIntent = &Error{Type: ErrorTypeAmbiguousIntent}
	ErrGit             = &Error{Type: ErrorTypeGit}
	ErrUpload          = &Error{Type: ErrorTypeUpload}
	ErrFileSystem      = &Error{Type: ErrorTypeFileSystem}
)

func ConfigError(message string) *Error {
	return build(ErrorTypeConfig, SeverityHigh, message, nil)
}

func ConfigErrorf(format string, args ...interface{}) *Error {
	return build(ErrorTypeConfig, SeverityHigh, fmt.Sprintf(format, args...), nil)
}

// MissingFieldError reports a required configuration field that is absent.
// The field name is kept in the "field" context entry.
func MissingFieldError(section, field string) *Error {
	return ConfigErrorf("%s: missing required field %q", section, field).
		WithContext("field", field)
}

func ValidationError(message string) *Error {
	return build(ErrorTypeValidation, SeverityHigh, message, nil)
}

func ValidationErrorf(format string, args ...interface{}) *Error {
	return build(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...), nil)
}

// AmbiguousIntentError is returned when there is nothing to analyze and the
// caller gave neither a version nor a bump type.
func AmbiguousIntentError(project string) *Error {
	return build(ErrorTypeAmbiguousIntent, SeverityHigh, fmt.Sprintf(
		"no commits found for %s since the last release; supply an explicit version or bump type (major, minor, patch, prerelease)",
		project), nil).WithContext("project", project)
}

func GitError(err error, message string) *Error {
	return Wrap(err, ErrorTypeGit, SeverityHigh, message)
}

func GitErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeGit, SeverityHigh, fmt.Sprintf(format, args...))
}

func UploadErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeUpload, SeverityHigh, fmt.Sprintf(format, args...))
}

func FileSystemError(err error, message string) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, message)
}

func FileSystemErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, fmt.Sprintf(format, args...))
}

// InternalErrorf reports a broken invariant or a recovered panic. It is
// critical and carries a stack trace.
func InternalErrorf(format string, args ...interface{}) *Error {
	return build(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...), nil)
}

// IsFatal reports whether err is a critical *Error.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsFatal()
}

// GetType returns ErrorTypeInternal for errors that are not *Error.
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// ContextValue returns a context entry from the first *Error in err's chain.
func ContextValue(err error, key string) (interface{}, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	v, ok := e.Context[key]
	return v, ok
}
