package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/meetview/internal/logging"
)

// Audited operation names.
const (
	AuditConnect  = "connect_calendar"
	AuditMeetings = "list_meetings"
	AuditSignIn   = "sign_in"
)

// Operation captures one user-facing operation for audit logging.
//
// # Privacy Considerations
//
// User holds the verified email. Unless the AuditLogger is configured with
// IncludePII, only the hashed identifier and the domain are written.
type Operation struct {
	Name string
	User string

	// Via is the surface that triggered the operation (http, mcp, cli).
	Via string

	// ErrorKind is the classified failure kind, if any.
	ErrorKind string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewOperation starts timing an operation. Call Complete when it finishes.
func NewOperation(name, via string) *Operation {
	return &Operation{
		Name:      name,
		Via:       via,
		StartTime: time.Now(),
	}
}

// WithUser sets the user identity.
func (op *Operation) WithUser(email string) *Operation {
	op.User = email
	return op
}

// WithSpanContext copies the trace and span id from the active span.
func (op *Operation) WithSpanContext(ctx context.Context) *Operation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		op.TraceID = span.SpanContext().TraceID().String()
		op.SpanID = span.SpanContext().SpanID().String()
	}
	return op
}

// Complete stops the clock. A non-nil err marks the operation failed.
func (op *Operation) Complete(err error) *Operation {
	op.Duration = time.Since(op.StartTime)
	op.Success = err == nil
	if err != nil {
		op.Error = err.Error()
	}
	return op
}

// CompleteWithKind is Complete plus the classified error kind.
func (op *Operation) CompleteWithKind(err error, kind string) *Operation {
	op.ErrorKind = kind
	return op.Complete(err)
}

// Status returns StatusSuccess or StatusError.
func (op *Operation) Status() string {
	if op.Success {
		return StatusSuccess
	}
	return StatusError
}

func (op *Operation) attrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", op.Name),
		slog.Duration("duration", op.Duration),
		slog.Bool("success", op.Success),
	}

	if op.User != "" {
		if includePII {
			attrs = append(attrs, slog.String("user", op.User))
		} else {
			attrs = append(attrs, logging.UserHash(op.User), logging.Domain(op.User))
		}
	}
	if op.Via != "" {
		attrs = append(attrs, slog.String("via", op.Via))
	}
	if op.ErrorKind != "" {
		attrs = append(attrs, slog.String("error_kind", op.ErrorKind))
	}
	if op.Error != "" {
		attrs = append(attrs, slog.String("error", op.Error))
	}
	if op.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", op.TraceID))
	}
	if op.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", op.SpanID))
	}

	return attrs
}

// AuditLogger writes one record per completed Operation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that hashes user identities.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger from config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With("component", "audit"),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// Log writes op. Successful operations log at info, failures at warn.
// A nil AuditLogger discards the record.
func (al *AuditLogger) Log(ctx context.Context, op *Operation) {
	if al == nil || !al.enabled || op == nil {
		return
	}

	attrs := op.attrs(al.includePII)
	if op.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "operation_completed", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "operation_failed", attrs...)
	}
}
