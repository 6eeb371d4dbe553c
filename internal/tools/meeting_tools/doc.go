// Package meeting_tools exposes the calendar connection and the meetings view
// as MCP tools.
//
// Available tools:
//   - list_meetings: recent past and upcoming meetings of the signed-in user
//   - connect_calendar: start the Google Calendar connection handshake
//
// Both tools act for the user attached to the request by the session
// middleware; without one they fail with an UNAUTHORIZED result.
package meeting_tools
