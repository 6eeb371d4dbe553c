// Package cmd implements the command-line interface for meetview.
//
// This package provides the following commands:
//   - serve: Start the HTTP API, sign-in, callback page and MCP endpoint
//   - meetings: Print the meetings view of one identity and exit
//   - generate-docs: Generate markdown documentation for the MCP tools
//   - version: Display version information
//
// Configuration comes from the environment (optionally seeded from a .env
// file); flags only cover process concerns such as listen addresses and
// logging.
package cmd
