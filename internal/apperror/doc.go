// Package apperror defines the stable error taxonomy meetview exposes to its
// callers and the classifier that maps broker failures onto it.
//
// Every error that reaches an HTTP or MCP response is an *Error. Its Kind
// determines the status code; Code is a machine readable identifier callers
// can branch on (CALENDAR_NOT_CONNECTED is the one expected, recoverable
// condition in normal operation).
//
// Classification is layered: a structured broker error code is consulted
// first and a case-insensitive match on the message is used only when the
// code is absent or unrecognized.
package apperror
