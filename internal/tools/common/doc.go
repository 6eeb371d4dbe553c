// Package common provides shared helpers for the MCP tool packages: the
// instrumentation wrapper every tool handler goes through and the conversion
// of classified errors into tool results.
package common
