package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetview/internal/broker"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		op         Operation
		err        error
		wantKind   Kind
		wantStatus int
		wantCode   string
		wantHint   string
	}{
		{
			name:       "fetch code 1803 is not connected",
			op:         Fetch,
			err:        &broker.Error{Status: 400, Code: 1803, Message: "something"},
			wantKind:   CalendarNotConnected,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeCalendarNotConnected,
			wantHint:   HintConnectCalendar,
		},
		{
			name:       "fetch message fallback is case insensitive",
			op:         Fetch,
			err:        &broker.Error{Status: 404, Message: "NO CONNECTED ACCOUNT found for entity"},
			wantKind:   CalendarNotConnected,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeCalendarNotConnected,
			wantHint:   HintConnectCalendar,
		},
		{
			name:       "fetch unknown code falls back to message",
			op:         Fetch,
			err:        &broker.Error{Status: 400, Code: 9999, Message: "Auth config not found"},
			wantKind:   IntegrationNotConfigured,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeIntegrationNotConfigured,
			wantHint:   HintAuthConfigSetupMeetings,
		},
		{
			name:       "fetch pattern in payload",
			op:         Fetch,
			err:        &broker.Error{Status: 400, Message: "bad request", Payload: []byte(`{"detail":"No connected account"}`)},
			wantKind:   CalendarNotConnected,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeCalendarNotConnected,
			wantHint:   HintConnectCalendar,
		},
		{
			name:       "initiation code 302 is auth config missing",
			op:         Initiation,
			err:        &broker.Error{Status: 404, Code: 302},
			wantKind:   IntegrationNotConfigured,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeIntegrationNotConfigured,
			wantHint:   HintAuthConfigSetup,
		},
		{
			name:       "initiation ignores not connected",
			op:         Initiation,
			err:        &broker.Error{Status: 409, Code: 1803, Message: "No connected account"},
			wantKind:   ConnectionInitiationFailed,
			wantStatus: http.StatusConflict,
			wantCode:   CodeConnectionInitiationFailed,
		},
		{
			name:       "initiation other error keeps status",
			op:         Initiation,
			err:        &broker.Error{Status: 422, Message: "invalid"},
			wantKind:   ConnectionInitiationFailed,
			wantStatus: 422,
			wantCode:   CodeConnectionInitiationFailed,
		},
		{
			name:       "fetch without status is 500",
			op:         Fetch,
			err:        &broker.Error{Message: "connection refused"},
			wantKind:   FetchFailed,
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeFetchFailed,
		},
		{
			name:       "fetch unsuccessful 200 is 500",
			op:         Fetch,
			err:        &broker.Error{Status: 200, Message: "tool failed"},
			wantKind:   FetchFailed,
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeFetchFailed,
		},
		{
			name:       "plain error",
			op:         Fetch,
			err:        errors.New("no connected account for this user"),
			wantKind:   CalendarNotConnected,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeCalendarNotConnected,
			wantHint:   HintConnectCalendar,
		},
		{
			name:       "wrapped broker error",
			op:         Initiation,
			err:        fmt.Errorf("initiate: %w", &broker.Error{Status: 503, Message: "down"}),
			wantKind:   ConnectionInitiationFailed,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   CodeConnectionInitiationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.op, tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantHint, got.Hint)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(Fetch, nil))
}

func TestClassify_AlreadyClassified(t *testing.T) {
	orig := ErrUnauthorized()
	got := Classify(Fetch, fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, got)
}

func TestClassify_Timeout(t *testing.T) {
	be := &broker.Error{Message: "deadline", Timeout: true}

	got := Classify(Fetch, be)
	assert.Equal(t, FetchFailed, got.Kind)
	assert.True(t, got.Timeout)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.True(t, got.Body().Timeout)

	got = Classify(Initiation, be)
	assert.Equal(t, ConnectionInitiationFailed, got.Kind)
	assert.True(t, got.Timeout)
}

func TestClassify_Details(t *testing.T) {
	got := Classify(Fetch, &broker.Error{Status: 500, Message: "boom", Payload: []byte(`{"error":{"message":"boom"}}`)})
	assert.JSONEq(t, `{"error":{"message":"boom"}}`, string(got.Details))
	assert.Equal(t, "Failed to fetch meetings", got.Message)

	got = Classify(Initiation, &broker.Error{Status: 502, Message: "Bad Gateway", Payload: []byte("Bad Gateway")})
	assert.JSONEq(t, `"Bad Gateway"`, string(got.Details))
	assert.Equal(t, "Failed to create connection", got.Message)

	got = Classify(Fetch, context.DeadlineExceeded)
	assert.JSONEq(t, `"context deadline exceeded"`, string(got.Details))
}
