// Package broker is a small REST client for the connection broker (Composio).
//
// Only the two operations meetview depends on are implemented:
//
//   - Initiate starts an OAuth handshake for a connection identity against an
//     auth config and returns the broker's authorization URL verbatim.
//   - ExecuteTool runs a broker tool (for example GOOGLECALENDAR_EVENTS_LIST)
//     on behalf of a user and returns the tool's raw data payload.
//
// Every call is attempted exactly once. Calls are detached from the caller's
// cancellation and bounded by the client timeout instead, so an abandoned
// browser request never aborts a handshake half way. Failures are returned as
// *Error, which keeps the broker's HTTP status, numeric error code and raw
// payload for classification and diagnostics.
package broker
