// Package logging provides structured logging utilities for meetview.
//
// All logging goes through the standard library's slog package. This package
// keeps attribute names consistent across the codebase and makes sure user
// identities never reach the logs in clear text.
//
// # Usage Patterns
//
// Create a logger scoped to an operation:
//
//	logger := logging.WithOperation(slog.Default(), "meetings.fetch")
//	logger.Info("fetched meetings",
//	    logging.UserHash(email),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - User emails are hashed to prevent PII leakage while allowing correlation
//   - Tokens and API keys are never logged directly
package logging
