package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCanceled      ErrorCode = "CANCELED"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Resolution-phase errors. Nothing has been touched on disk when one
	// of these is returned.
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnknownOption  ErrorCode = "UNKNOWN_OPTION"
	ErrOptionConflict ErrorCode = "OPTION_CONFLICT"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrCycle          ErrorCode = "CYCLE"

	// Execution-phase errors. The failing formula is rolled back.
	ErrFetch              ErrorCode = "FETCH"
	ErrIntegrity          ErrorCode = "INTEGRITY"
	ErrUnsupportedArchive ErrorCode = "UNSUPPORTED_ARCHIVE"
	ErrPatch              ErrorCode = "PATCH"
	ErrBuild              ErrorCode = "BUILD"
	ErrFilesystem         ErrorCode = "FILESYSTEM"
)

// Well known detail keys
const (
	DetailFormula = "formula"
	DetailPhase   = "phase"
	DetailOutput  = "output"
	DetailTimeout = "timeout"
)

// CellarError represents a structured error with code and details
type CellarError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *CellarError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	if out, ok := e.Details[DetailOutput].(string); ok && out != "" {
		fmt.Fprintf(&b, "\n--- output ---\n%s", strings.TrimRight(out, "\n"))
	}
	return b.String()
}

// Unwrap implements the errors.Unwrap interface
func (e *CellarError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *CellarError) Is(target error) bool {
	var targetErr *CellarError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new CellarError with the given code and message
func New(code ErrorCode, message string) *CellarError {
	return &CellarError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new CellarError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *CellarError {
	return &CellarError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a CellarError
func Wrap(err error, code ErrorCode, message string) *CellarError {
	if err == nil {
		return nil
	}
	return &CellarError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *CellarError {
	if err == nil {
		return nil
	}
	return &CellarError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *CellarError) WithDetail(key string, value interface{}) *CellarError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *CellarError) WithDetails(details map[string]interface{}) *CellarError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// ForFormula tags the error with the formula and phase it originated in.
// Existing tags are kept so the innermost context wins.
func (e *CellarError) ForFormula(formula, phase string) *CellarError {
	if _, ok := e.Details[DetailFormula]; !ok && formula != "" {
		e.WithDetail(DetailFormula, formula)
	}
	if _, ok := e.Details[DetailPhase]; !ok && phase != "" {
		e.WithDetail(DetailPhase, phase)
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var cellarErr *CellarError
	if errors.As(err, &cellarErr) {
		return cellarErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a CellarError
func GetErrorCode(err error) ErrorCode {
	var cellarErr *CellarError
	if errors.As(err, &cellarErr) {
		return cellarErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a CellarError
func GetErrorDetails(err error) map[string]interface{} {
	var cellarErr *CellarError
	if errors.As(err, &cellarErr) {
		return cellarErr.Details
	}
	return nil
}

// GetDetailString returns a string detail, or "" when absent.
func GetDetailString(err error, key string) string {
	s, _ := GetErrorDetails(err)[key].(string)
	return s
}

// IsTimeout reports whether err is a fetch or build error raised because a
// deadline expired.
func IsTimeout(err error) bool {
	timeout, _ := GetErrorDetails(err)[DetailTimeout].(bool)
	return timeout
}

// IsResolutionError reports whether err was raised before any side effect.
func IsResolutionError(err error) bool {
	switch GetErrorCode(err) {
	case ErrNotFound, ErrUnknownOption, ErrOptionConflict, ErrConflict, ErrCycle:
		return true
	}
	return false
}

// Describe renders the error with its details on separate lines, sorted by
// key, for display to an operator. Tool output is left out.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	headline, _, _ := strings.Cut(err.Error(), "\n--- output ---")
	details := GetErrorDetails(err)
	if len(details) == 0 {
		return headline
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		if k == DetailOutput {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(headline)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %v", k, details[k])
	}
	return b.String()
}
