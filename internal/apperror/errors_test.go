package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultStatus(t *testing.T) {
	tests := []struct {
		kind       Kind
		wantStatus int
		wantCode   string
	}{
		{Unauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{Misconfigured, http.StatusInternalServerError, "MISCONFIGURED"},
		{IntegrationNotConfigured, http.StatusBadRequest, "INTEGRATION_NOT_CONFIGURED"},
		{CalendarNotConnected, http.StatusBadRequest, "CALENDAR_NOT_CONNECTED"},
		{ConnectionInitiationFailed, http.StatusInternalServerError, "CONNECTION_INITIATION_FAILED"},
		{FetchFailed, http.StatusInternalServerError, "FETCH_FAILED"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := New(tt.kind, "msg")
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Equal(t, tt.wantCode, e.Code)
		})
	}
}

func TestErrMisconfigured(t *testing.T) {
	e := ErrMisconfigured("COMPOSIO_API_KEY", "set it")
	assert.Equal(t, Misconfigured, e.Kind)
	assert.Equal(t, "COMPOSIO_API_KEY is not configured", e.Message)
	assert.Equal(t, "set it", e.Hint)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
}

func TestAsAndKindOf(t *testing.T) {
	err := fmt.Errorf("handler: %w", ErrUnauthorized())
	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "Unauthorized", e.Message)
	assert.Equal(t, Unauthorized, KindOf(err))

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestError_String(t *testing.T) {
	assert.Equal(t, "Unauthorized: Unauthorized", ErrUnauthorized().Error())
	cause := errors.New("boom")
	e := New(FetchFailed, "Failed to fetch meetings").WithCause(cause)
	assert.Equal(t, "FetchFailed: Failed to fetch meetings: boom", e.Error())
	assert.ErrorIs(t, e, cause)
}

func TestBody(t *testing.T) {
	e := New(CalendarNotConnected, "Google Calendar not connected").WithHint(HintConnectCalendar)
	b := e.Body()
	assert.Equal(t, "Google Calendar not connected", b.Error)
	assert.Equal(t, "CALENDAR_NOT_CONNECTED", b.Code)
	assert.Equal(t, HintConnectCalendar, b.Hint)
	assert.Nil(t, b.Details)
}
