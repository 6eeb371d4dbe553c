package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Error is a failed broker call.
type Error struct {
	// Status is the HTTP status returned by the broker, 0 when no response
	// was received.
	Status int

	// Code is the broker's numeric error code, 0 when absent.
	Code int

	// Message is the broker's human readable message.
	Message string

	// Payload is the raw response body, if any.
	Payload json.RawMessage

	// Timeout is set when the call did not complete in time.
	Timeout bool

	cause error
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("broker request timed out: %s", e.Message)
	case e.Code != 0:
		return fmt.Sprintf("broker error %d (status %d): %s", e.Code, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("broker error (status %d): %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("broker error: %s", e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

// errorEnvelope covers the error bodies observed from the broker:
//
//	{"error": {"code": 1803, "message": "..."}}
//	{"error": "...", "successful": false}
//	{"message": "...", "code": 302}
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

type errorDetail struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Slug    string          `json:"slug"`
}

// parseError builds an Error from a non-2xx broker response.
func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}
	if len(body) > 0 {
		e.Payload = json.RawMessage(append([]byte(nil), body...))
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		e.Message = string(body)
		if e.Message == "" {
			e.Message = fmt.Sprintf("unexpected status %d", status)
		}
		return e
	}

	e.Message = env.Message
	e.Code = parseCode(env.Code)

	if len(env.Error) > 0 {
		var detail errorDetail
		var text string
		switch {
		case json.Unmarshal(env.Error, &detail) == nil:
			if detail.Message != "" {
				e.Message = detail.Message
			}
			if c := parseCode(detail.Code); c != 0 {
				e.Code = c
			}
		case json.Unmarshal(env.Error, &text) == nil && text != "":
			e.Message = text
		}
	}

	if e.Message == "" {
		e.Message = fmt.Sprintf("unexpected status %d", status)
	}
	return e
}

// parseCode accepts codes sent either as numbers or numeric strings.
func parseCode(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}

// transportError wraps a failure that produced no broker response.
func transportError(err error) *Error {
	return &Error{
		Message: err.Error(),
		Timeout: isTimeout(err),
		cause:   err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
