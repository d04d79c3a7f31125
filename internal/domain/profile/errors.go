package profile

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorization.
const (
	ErrCodeProfileNotFound  = "PROFILE_NOT_FOUND"
	ErrCodeProfileParse     = "PROFILE_PARSE"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeSettingsParse    = "SETTINGS_PARSE"
	ErrCodePlatformMismatch = "PLATFORM_MISMATCH"
)

// ConfigError is a user-facing configuration error: what went wrong,
// where, and what to do about it.
type ConfigError struct {
	Code       string // category, e.g. PROFILE_NOT_FOUND
	Message    string // user-friendly message
	Context    string // file path, field path, or other location
	Suggestion string // actionable fix
	Underlying error  // wrapped error for the chain
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (at %s)", e.Context)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() comparison by error code.
func (e *ConfigError) Is(target error) bool {
	if t, ok := target.(*ConfigError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns the fully formatted error with all details.
func (e *ConfigError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	return b.String()
}

// WithUnderlying returns a copy wrapping another error.
func (e *ConfigError) WithUnderlying(err error) *ConfigError {
	clone := *e
	clone.Underlying = err
	return &clone
}

// ErrorList accumulates validation errors so a single run reports
// every problem in the profile, not just the first.
type ErrorList struct {
	errors []*ConfigError
}

// NewErrorList creates an empty ErrorList.
func NewErrorList() *ErrorList {
	return &ErrorList{errors: make([]*ConfigError, 0)}
}

// Add appends an error to the list.
func (l *ErrorList) Add(err *ConfigError) {
	if err != nil {
		l.errors = append(l.errors, err)
	}
}

// AddValidation records a validation failure at a field path.
func (l *ErrorList) AddValidation(field, message, suggestion string) {
	l.Add(&ConfigError{
		Code:       ErrCodeValidationFailed,
		Message:    fmt.Sprintf("%s: %s", field, message),
		Context:    field,
		Suggestion: suggestion,
	})
}

// HasErrors reports whether any errors were recorded.
func (l *ErrorList) HasErrors() bool {
	return len(l.errors) > 0
}

// Errors returns a copy of the recorded errors.
func (l *ErrorList) Errors() []*ConfigError {
	out := make([]*ConfigError, len(l.errors))
	copy(out, l.errors)
	return out
}

// Error implements the error interface.
func (l *ErrorList) Error() string {
	if len(l.errors) == 0 {
		return ""
	}
	if len(l.errors) == 1 {
		return l.errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:\n", len(l.errors))
	for i, err := range l.errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// AsError returns the list as an error, or nil if empty.
func (l *ErrorList) AsError() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}

// NewProfileNotFoundError creates an error for a missing profile file.
func NewProfileNotFoundError(path string) *ConfigError {
	return &ConfigError{
		Code:       ErrCodeProfileNotFound,
		Message:    fmt.Sprintf("profile not found: %s", path),
		Context:    path,
		Suggestion: "Check the --profile flag, or create the profile file for this platform.",
	}
}

// NewSettingsParseError creates an error for an unreadable rigup.toml.
func NewSettingsParseError(path string, err error) *ConfigError {
	return &ConfigError{
		Code:       ErrCodeSettingsParse,
		Message:    "failed to parse settings file",
		Context:    path,
		Suggestion: "Check the TOML syntax in your rigup.toml.",
		Underlying: err,
	}
}

// NewPlatformMismatchError creates an error for a profile that
// declares a different platform than the one it is applied on.
func NewPlatformMismatchError(declared, actual string) *ConfigError {
	return &ConfigError{
		Code:       ErrCodePlatformMismatch,
		Message:    fmt.Sprintf("profile targets platform %q but this machine is %q", declared, actual),
		Suggestion: "Pick the profile that matches this machine, or fix the 'platform' field.",
	}
}

// NewYAMLParseError translates yaml.v3 failures into something a
// person editing a profile can act on.
func NewYAMLParseError(path string, err error) *ConfigError {
	errStr := err.Error()
	var message, suggestion string

	switch {
	case strings.Contains(errStr, "cannot unmarshal !!seq into map"):
		message = "expected an object but found a list"
		suggestion = "Check that you're using 'key: value' format instead of '- item' list format."

	case strings.Contains(errStr, "cannot unmarshal !!map into []"):
		message = "expected a list but found an object"
		suggestion = "Sections like packages, apps, and fonts are lists: each entry starts with '- '."

	case strings.Contains(errStr, "did not find expected key"):
		message = "missing required field or incorrect indentation"
		suggestion = "YAML is sensitive to indentation. Use 2 spaces (not tabs) for each level."

	case strings.Contains(errStr, "mapping values are not allowed"):
		message = "invalid YAML structure"
		suggestion = "Check for missing colons after keys, or incorrect indentation."

	case strings.Contains(errStr, "found character that cannot start"):
		message = "invalid character in YAML"
		suggestion = "Quote string values that contain special characters like ':', '#', or '{'."

	default:
		message = "invalid YAML syntax"
		suggestion = "Check your YAML syntax. Common issues: incorrect indentation, missing colons, or unquoted special characters."
	}

	context := path
	if strings.Contains(errStr, "line ") {
		parts := strings.Split(errStr, "line ")
		if len(parts) > 1 {
			lineInfo := strings.Split(parts[1], ":")[0]
			context = fmt.Sprintf("%s (line %s)", path, lineInfo)
		}
	}

	return &ConfigError{
		Code:       ErrCodeProfileParse,
		Message:    message,
		Context:    context,
		Suggestion: suggestion,
		Underlying: err,
	}
}

// IsConfigError checks whether err carries a ConfigError with the code.
func IsConfigError(err error, code string) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// GetConfigError extracts a ConfigError from an error chain, if present.
func GetConfigError(err error) *ConfigError {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}
