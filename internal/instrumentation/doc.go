// Package instrumentation wires OpenTelemetry metrics and tracing for meetview.
//
// A Provider owns the meter and tracer providers and is configured from the
// environment (see Config). Metrics can be exported to Prometheus (served on
// the dedicated metrics port), an OTLP collector or stdout; traces to OTLP or
// stdout.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds
//   - broker_operations_total, broker_operation_duration_seconds
//     (operation=initiate|execute_tool, status)
//   - connection_initiations_total (result)
//   - meetings_fetches_total (status), meetings_events_returned_total (bucket)
//   - error_classifications_total (kind)
//   - sign_ins_total (result)
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// User identities never appear as metric labels.
//
// # Audit
//
// AuditLogger writes one structured record per user-facing operation
// (connect, meetings fetch, MCP tool call). Records carry a hashed user
// identifier unless PII logging is explicitly enabled.
package instrumentation
