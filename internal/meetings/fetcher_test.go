package meetings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetview/internal/apperror"
	"github.com/teemow/meetview/internal/broker"
	"github.com/teemow/meetview/internal/config"
)

type fakeTools struct {
	calls   []broker.ToolRequest
	slugs   []string
	payload string
	err     error
}

func (f *fakeTools) ExecuteTool(_ context.Context, slug string, req broker.ToolRequest) (json.RawMessage, error) {
	f.slugs = append(f.slugs, slug)
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.payload), nil
}

type fetchRecord struct {
	status       string
	past, future int
}

type fakeRecorder struct {
	records []fetchRecord
}

func (f *fakeRecorder) RecordMeetingsFetch(_ context.Context, status string, past, future int) {
	f.records = append(f.records, fetchRecord{status, past, future})
}

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestFetcher(tools ToolExecutor, mutate func(*config.Config), opts ...Option) *Fetcher {
	cfg := &config.Config{Broker: config.BrokerConfig{APIKey: "key"}}
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewFetcher(cfg, tools, opts...)
}

func TestFetch_Standup(t *testing.T) {
	tools := &fakeTools{payload: `{"items":[{"id":"a","start":{"dateTime":"2024-01-01T10:00:00Z"},"summary":"Standup"}]}`}
	f := newTestFetcher(tools, nil)

	view, err := f.Fetch(context.Background(), Query{User: "jane@example.com"})
	require.NoError(t, err)
	require.Len(t, view.Past, 1)
	assert.Equal(t, "a", view.Past[0].ID)
	assert.Equal(t, "Standup", view.Past[0].Title)
	assert.Empty(t, view.Future)
}

func TestFetch_ToolRequest(t *testing.T) {
	tools := &fakeTools{payload: `[]`}
	f := newTestFetcher(tools, func(c *config.Config) {
		c.Broker.ConnectedAccountID = "ca_1"
		c.Broker.MCPServerID = "mcp_1"
	})

	_, err := f.Fetch(context.Background(), Query{User: "jane@example.com"})
	require.NoError(t, err)

	require.Len(t, tools.calls, 1)
	assert.Equal(t, ToolEventsList, tools.slugs[0])
	req := tools.calls[0]
	assert.Equal(t, "jane@example.com", req.UserID)
	assert.Equal(t, "ca_1", req.ConnectedAccountID)
	assert.Equal(t, "mcp_1", req.MCPServerID)
	assert.Equal(t, "2024-05-02T00:00:00Z", req.Arguments["time_min"])
	assert.Equal(t, "2024-07-01T00:00:00Z", req.Arguments["time_max"])
	assert.Equal(t, 50, req.Arguments["max_results"])
	assert.Equal(t, true, req.Arguments["single_events"])
}

func TestFetch_UsesConnectionIdentityWhenKnown(t *testing.T) {
	tools := &fakeTools{payload: `[]`}
	f := newTestFetcher(tools, nil)

	_, err := f.Fetch(context.Background(), Query{User: "jane@example.com", ConnectionID: "conn-1"})
	require.NoError(t, err)
	assert.Equal(t, "conn-1", tools.calls[0].UserID)
}

func TestFetch_Preconditions(t *testing.T) {
	tools := &fakeTools{payload: `[]`}

	f := newTestFetcher(tools, func(c *config.Config) { c.Broker.APIKey = "" })
	_, err := f.Fetch(context.Background(), Query{})
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err), "missing identity wins")

	_, err = f.Fetch(context.Background(), Query{User: "jane@example.com"})
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.Misconfigured, e.Kind)
	assert.Equal(t, "COMPOSIO_API_KEY is not configured", e.Message)
	assert.Equal(t, http.StatusInternalServerError, e.Status)

	assert.Empty(t, tools.calls)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   apperror.Kind
		wantStatus int
		wantCode   string
	}{
		{"not connected code", &broker.Error{Status: 400, Code: 1803}, apperror.CalendarNotConnected, 400, "CALENDAR_NOT_CONNECTED"},
		{"not connected message", &broker.Error{Status: 200, Message: "No connected account found"}, apperror.CalendarNotConnected, 400, "CALENDAR_NOT_CONNECTED"},
		{"auth config", &broker.Error{Status: 404, Code: 302}, apperror.IntegrationNotConfigured, 400, "INTEGRATION_NOT_CONFIGURED"},
		{"other", &broker.Error{Status: 429, Message: "slow down"}, apperror.FetchFailed, 429, "FETCH_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			f := newTestFetcher(&fakeTools{err: tt.err}, nil, WithRecorder(rec))

			_, err := f.Fetch(context.Background(), Query{User: "jane@example.com"})
			e, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, []fetchRecord{{status: "error"}}, rec.records)
		})
	}
}

func TestFetch_TwelveFutureEvents(t *testing.T) {
	var items []map[string]any
	for i := 12; i >= 1; i-- {
		items = append(items, map[string]any{
			"id":    fmt.Sprintf("f%02d", i),
			"start": map[string]string{"dateTime": fixedNow.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)},
		})
	}
	raw, err := json.Marshal(map[string]any{"result": map[string]any{"items": items}})
	require.NoError(t, err)

	rec := &fakeRecorder{}
	f := newTestFetcher(&fakeTools{payload: string(raw)}, nil, WithRecorder(rec))

	view, err := f.Fetch(context.Background(), Query{User: "jane@example.com"})
	require.NoError(t, err)
	require.Len(t, view.Future, 5)
	for i, e := range view.Future {
		assert.True(t, e.Start.Equal(fixedNow.Add(time.Duration(i+1)*time.Hour)))
	}
	assert.Equal(t, []fetchRecord{{status: "success", past: 0, future: 5}}, rec.records)
}

func TestFetch_Idempotent(t *testing.T) {
	tools := &fakeTools{payload: `[
		{"id":"p","start":{"dateTime":"2024-05-30T10:00:00Z"}},
		{"id":"f","start":{"date":"2024-06-03"}}
	]`}
	f := newTestFetcher(tools, nil)

	first, err := f.Fetch(context.Background(), Query{User: "jane@example.com"})
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), Query{User: "jane@example.com"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, tools.calls, 2, "no caching between calls")
}

func TestFetch_CustomWindow(t *testing.T) {
	tools := &fakeTools{payload: `[]`}
	f := newTestFetcher(tools, nil)

	w := Window{Start: fixedNow, End: fixedNow.Add(24 * time.Hour), MaxItems: 10}
	_, err := f.Fetch(context.Background(), Query{User: "u", Window: &w})
	require.NoError(t, err)
	assert.Equal(t, 10, tools.calls[0].Arguments["max_results"])
	assert.Equal(t, "2024-06-02T00:00:00Z", tools.calls[0].Arguments["time_max"])
}
