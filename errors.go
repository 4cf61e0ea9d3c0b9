package restwire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorKind represents a machine-readable failure classification.
type ErrorKind string

const (
	KindMissingEndpointMetadata ErrorKind = "missing_endpoint_metadata"
	KindEndpointValidation      ErrorKind = "endpoint_validation"
	KindMissingPathParameter    ErrorKind = "missing_path_parameter"
	KindTypeMismatch            ErrorKind = "type_mismatch"
	KindRequestBuild            ErrorKind = "request_build"
	KindHeaderBuild             ErrorKind = "header_build"
	KindExecution               ErrorKind = "execution"
	KindResponseParse           ErrorKind = "response_parse"
	KindInvocation              ErrorKind = "invocation" // catch-all for failures outside a stage
)

// ErrClientClosed is returned by every use of a Client after Shutdown.
var ErrClientClosed = errors.New("restwire: client is shut down")

// Error is a classified failure produced by one pipeline stage.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new classified error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Errorf creates a new classified error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap classifies err under kind. An err that is already an *Error of the
// same kind is returned unchanged.
func Wrap(kind ErrorKind, err error, message string) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == kind && message == "" {
		return e
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Kind:    e.Kind,
		Message: e.Message,
		Details: details,
		Err:     e.Err,
	}
}

// WithDetails returns a new Error with the provided map merged into details.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &Error{
		Kind:    e.Kind,
		Message: e.Message,
		Details: merged,
		Err:     e.Err,
	}
}

// InvocationError is the only error type returned from a proxy call.
// It names the endpoint, the method and the stage that failed; Err holds
// the stage's classified *Error.
type InvocationError struct {
	Endpoint EndpointID
	Method   string
	Stage    Stage
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("restwire: %s.%s: %s: %v", e.Endpoint, e.Method, e.Stage, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Kind returns the classification of the wrapped stage error.
func (e *InvocationError) Kind() ErrorKind {
	var se *Error
	if errors.As(e.Err, &se) {
		return se.Kind
	}
	return KindInvocation
}

// KindOf returns the most specific classification found in err's chain.
// Unclassified errors report KindInvocation; nil reports "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Kind()
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInvocation
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// StatusError reports a response whose status code is outside 2xx.
// Body holds the drained payload, truncated to maxErrorBody bytes.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return "unexpected status " + e.Status
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// validationError converts validator failures into an endpoint_validation
// error with one detail per offending field.
func validationError(err error) *Error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return Wrap(KindEndpointValidation, err, "")
	}
	details := make(map[string]any, len(valErrs))
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		msg := formatValidationError(ve)
		details[ve.Field()] = msg
		messages = append(messages, ve.Field()+": "+msg)
	}
	return &Error{
		Kind:    KindEndpointValidation,
		Message: strings.Join(messages, "; "),
		Details: details,
		Err:     err,
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "numeric":
		return "must be numeric"
	case "startswith":
		return fmt.Sprintf("must start with %q", ve.Param())
	case "hostname_rfc1123|ip", "hostname_rfc1123", "ip":
		return "must be a valid hostname or IP address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
