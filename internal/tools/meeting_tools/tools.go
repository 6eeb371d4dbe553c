package meeting_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetview/internal/connection"
	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/instrumentation"
	"github.com/teemow/meetview/internal/logging"
	"github.com/teemow/meetview/internal/meetings"
	"github.com/teemow/meetview/internal/server"
	"github.com/teemow/meetview/internal/tools/common"
)

// Tool names.
const (
	ToolListMeetings    = "list_meetings"
	ToolConnectCalendar = "connect_calendar"
)

// Output formats of list_meetings.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatICS  = "ics"
)

// RegisterMeetingTools registers the meetings tools with the MCP server.
func RegisterMeetingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	listMeetingsTool := mcp.NewTool(ToolListMeetings,
		mcp.WithDescription("List the signed-in user's 5 most recent past meetings and 5 soonest upcoming meetings from Google Calendar"),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' (default), 'json' or 'ics'"),
			mcp.Enum(FormatText, FormatJSON, FormatICS),
		),
		mcp.WithString("timeMin",
			mcp.Description("Optional start of the searched range (RFC3339). Defaults to 30 days ago."),
		),
		mcp.WithString("timeMax",
			mcp.Description("Optional end of the searched range (RFC3339). Defaults to 30 days ahead."),
		),
	)
	s.AddTool(listMeetingsTool, common.InstrumentedToolHandler(ToolListMeetings, instrumentation.AuditMeetings, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMeetings(ctx, request, sc)
		}))

	connectCalendarTool := mcp.NewTool(ToolConnectCalendar,
		mcp.WithDescription("Start connecting the signed-in user's Google Calendar. Returns a URL the user must open to grant access."),
	)
	s.AddTool(connectCalendarTool, common.InstrumentedToolHandler(ToolConnectCalendar, instrumentation.AuditConnect, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleConnectCalendar(ctx, request, sc)
		}))

	return nil
}

// windowFromArgs builds a custom window when timeMin or timeMax is given.
func windowFromArgs(args map[string]any, now time.Time) (*meetings.Window, error) {
	minStr, _ := args["timeMin"].(string)
	maxStr, _ := args["timeMax"].(string)
	if minStr == "" && maxStr == "" {
		return nil, nil
	}

	w := meetings.NewWindow(now)
	if minStr != "" {
		t, err := time.Parse(time.RFC3339, minStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeMin format: %w", err)
		}
		w.Start = t
	}
	if maxStr != "" {
		t, err := time.Parse(time.RFC3339, maxStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeMax format: %w", err)
		}
		w.End = t
	}
	if !w.Start.Before(w.End) {
		return nil, fmt.Errorf("timeMin must be before timeMax")
	}
	return &w, nil
}

func handleListMeetings(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	format := FormatText
	if v, ok := args["format"].(string); ok && v != "" {
		format = v
	}
	if format != FormatText && format != FormatJSON && format != FormatICS {
		return mcp.NewToolResultError(fmt.Sprintf("Unsupported format %q", format)), nil
	}

	now := time.Now()
	window, err := windowFromArgs(args, now)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	user := identity.UserFromContext(ctx)
	connectionID, err := connection.StoredID(ctx, sc.Store(), user)
	if err != nil {
		sc.Logger().Warn("connection identifier lookup failed", logging.UserHash(user), logging.Err(err))
	}

	view, err := sc.Fetcher().Fetch(ctx, meetings.Query{
		User:         user,
		ConnectionID: connectionID,
		Window:       window,
	})
	if err != nil {
		return common.ErrorResult(err), nil
	}

	switch format {
	case FormatJSON:
		return common.JSONResult(view)
	case FormatICS:
		body, err := meetings.ICS(view, now)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to export meetings: %v", err)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	default:
		return mcp.NewToolResultText(FormatView(view)), nil
	}
}

// FormatView renders a meetings view as plain text.
func FormatView(view *meetings.View) string {
	var b strings.Builder
	writeBucket(&b, "Recent meetings", view.Past)
	b.WriteString("\n")
	writeBucket(&b, "Upcoming meetings", view.Future)
	return b.String()
}

func writeBucket(b *strings.Builder, title string, events []meetings.CalendarEvent) {
	fmt.Fprintf(b, "%s (%d):\n", title, len(events))
	if len(events) == 0 {
		b.WriteString("  none\n")
		return
	}
	for i, e := range events {
		fmt.Fprintf(b, "%d. %s\n", i+1, e.Title)
		fmt.Fprintf(b, "   ID: %s\n", e.ID)
		if e.AllDay {
			fmt.Fprintf(b, "   Date: %s (all day)\n", e.Start.Format("2006-01-02"))
		} else {
			fmt.Fprintf(b, "   Start: %s\n", e.Start.Format(time.RFC3339))
			fmt.Fprintf(b, "   End: %s\n", e.End.Format(time.RFC3339))
		}
		if e.JoinURL != "" {
			fmt.Fprintf(b, "   Join: %s\n", e.JoinURL)
		}
	}
}

func handleConnectCalendar(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	res, err := sc.Initiator().ConnectUser(ctx, identity.UserFromContext(ctx))
	if err != nil {
		return common.ErrorResult(err), nil
	}

	text := fmt.Sprintf("Open this URL to connect Google Calendar:\n%s\n\nRequest ID: %s\nCall %s again once access has been granted.",
		res.RedirectURL, res.RequestID, ToolListMeetings)
	return mcp.NewToolResultText(text), nil
}
