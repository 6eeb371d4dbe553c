package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is one class of the error taxonomy.
type Kind string

const (
	Unauthorized               Kind = "Unauthorized"
	Misconfigured              Kind = "Misconfigured"
	IntegrationNotConfigured   Kind = "IntegrationNotConfigured"
	CalendarNotConnected       Kind = "CalendarNotConnected"
	ConnectionInitiationFailed Kind = "ConnectionInitiationFailed"
	FetchFailed                Kind = "FetchFailed"
)

// Machine readable codes, one per Kind.
const (
	CodeUnauthorized               = "UNAUTHORIZED"
	CodeMisconfigured              = "MISCONFIGURED"
	CodeIntegrationNotConfigured   = "INTEGRATION_NOT_CONFIGURED"
	CodeCalendarNotConnected       = "CALENDAR_NOT_CONNECTED"
	CodeConnectionInitiationFailed = "CONNECTION_INITIATION_FAILED"
	CodeFetchFailed                = "FETCH_FAILED"
)

var codes = map[Kind]string{
	Unauthorized:               CodeUnauthorized,
	Misconfigured:              CodeMisconfigured,
	IntegrationNotConfigured:   CodeIntegrationNotConfigured,
	CalendarNotConnected:       CodeCalendarNotConnected,
	ConnectionInitiationFailed: CodeConnectionInitiationFailed,
	FetchFailed:                CodeFetchFailed,
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
	Code    string

	// Status is the HTTP status to respond with.
	Status int

	// Details carries the broker's raw payload or message for diagnostics.
	Details json.RawMessage

	// Timeout marks failures caused by a broker call running out of time.
	Timeout bool

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an Error of the given kind with the kind's default status.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Code:    codes[kind],
		Status:  defaultStatus(kind),
	}
}

// WithHint sets the remediation hint.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithCause records the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func defaultStatus(kind Kind) int {
	switch kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case IntegrationNotConfigured, CalendarNotConnected:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrUnauthorized is returned whenever no verified identity is present.
func ErrUnauthorized() *Error {
	return New(Unauthorized, "Unauthorized")
}

// ErrMisconfigured reports a missing required setting by name.
func ErrMisconfigured(setting, hint string) *Error {
	return New(Misconfigured, fmt.Sprintf("%s is not configured", setting)).WithHint(hint)
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or an empty Kind if err is not classified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// Body is the JSON error body written to HTTP clients.
type Body struct {
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Hint    string          `json:"hint,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
	Timeout bool            `json:"timeout,omitempty"`
}

// Body renders the error for an HTTP response.
func (e *Error) Body() Body {
	return Body{
		Error:   e.Message,
		Code:    e.Code,
		Hint:    e.Hint,
		Details: e.Details,
		Timeout: e.Timeout,
	}
}
