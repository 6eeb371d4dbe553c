// Package server provides the HTTP surface of meetview.
//
// # Key Components
//
// ServerContext wires the configuration, broker client, connection store,
// session issuer and instrumentation into the services the handlers and MCP
// tools share (connection.Initiator, meetings.Fetcher, callback.Renderer).
//
// HTTPServer routes requests with gorilla/mux:
//   - POST /api/connect-calendar starts a calendar connection handshake
//   - GET /api/composio/callback renders the popup callback page
//   - GET /api/meetings and GET /api/meetings.ics return the meetings view
//   - /api/auth/* handles Google sign-in and session cookies
//   - /mcp serves the MCP tools over streamable HTTP
//   - /.well-known/oauth-* and /oauth/* let MCP clients sign in with Google
//   - /healthz, /readyz and /healthz/detailed for Kubernetes health checks
//
// MCPSessionManager issues MCP session ids and expires idle sessions.
//
// Every /api and /mcp request passes through a per-IP rate limiter and the
// identity middleware, which attaches the signed-in user when a valid session
// token is present. Handlers decide what an absent user means. /mcp also
// accepts bearer tokens issued by the mcp-oauth authorization server and
// answers unauthenticated calls with a 401 pointing at its metadata.
//
// MetricsServer exposes Prometheus metrics on a dedicated port, keeping
// operational data off the public listener.
package server
