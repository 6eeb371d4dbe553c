package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/instrumentation"
	"github.com/teemow/meetview/internal/server"
)

// ViaMCP marks audit records of tool invocations.
const ViaMCP = "mcp"

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and an
// audit record named auditName.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", instrumentation.AuditMeetings, sc, handler))
func InstrumentedToolHandler(toolName, auditName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		op := instrumentation.NewOperation(auditName, ViaMCP).
			WithUser(identity.UserFromContext(ctx)).
			WithSpanContext(ctx)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
			op.Complete(err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			op.CompleteWithKind(errToolResult, ErrorKindOf(result))
		default:
			instrumentation.SetSpanSuccess(span)
			op.Complete(nil)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		sc.AuditLogger().Log(ctx, op)

		return result, err
	}
}
