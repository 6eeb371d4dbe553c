package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetview/internal/apperror"
	"github.com/teemow/meetview/internal/broker"
	"github.com/teemow/meetview/internal/config"
	"github.com/teemow/meetview/internal/connection"
	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/instrumentation"
	"github.com/teemow/meetview/internal/server"
)

type nopBroker struct{}

func (nopBroker) Initiate(context.Context, broker.InitiateRequest) (*broker.InitiateResponse, error) {
	return nil, errors.New("not used")
}

func (nopBroker) ExecuteTool(context.Context, string, broker.ToolRequest) (json.RawMessage, error) {
	return nil, errors.New("not used")
}

func newServerContext(t *testing.T, audit *bytes.Buffer) *server.ServerContext {
	t.Helper()
	sessions, err := identity.NewSessions("secret", 0)
	require.NoError(t, err)

	deps := server.Dependencies{
		Config:   &config.Config{PublicBaseURL: "http://localhost:3000"},
		Broker:   nopBroker{},
		Store:    connection.NewMemoryStore(0),
		Sessions: sessions,
	}
	if audit != nil {
		deps.AuditLogger = instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(audit, nil)))
	}
	sc, err := server.NewServerContext(context.Background(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	var audit bytes.Buffer
	sc := newServerContext(t, &audit)

	called := false
	wrapped := InstrumentedToolHandler("list_meetings", instrumentation.AuditMeetings, sc,
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			called = true
			assert.Equal(t, "jane@example.com", identity.UserFromContext(ctx))
			return mcp.NewToolResultText("ok"), nil
		})

	ctx := identity.WithUser(context.Background(), "jane@example.com")
	result, err := wrapped(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsError)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(audit.Bytes(), &rec))
	assert.Equal(t, "operation_completed", rec["msg"])
	assert.Equal(t, instrumentation.AuditMeetings, rec["operation"])
	assert.Equal(t, ViaMCP, rec["via"])
	assert.NotContains(t, audit.String(), "jane@example.com")
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t, nil)

	expected := errors.New("test error")
	wrapped := InstrumentedToolHandler("list_meetings", instrumentation.AuditMeetings, sc,
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, expected
		})

	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	assert.Equal(t, expected, err)
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	var audit bytes.Buffer
	sc := newServerContext(t, &audit)

	notConnected := apperror.New(apperror.CalendarNotConnected, "Google Calendar not connected")
	wrapped := InstrumentedToolHandler("list_meetings", instrumentation.AuditMeetings, sc,
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return ErrorResult(notConnected), nil
		})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(audit.Bytes(), &rec))
	assert.Equal(t, "operation_failed", rec["msg"])
	assert.Equal(t, "CALENDAR_NOT_CONNECTED", rec["error_kind"])
}
