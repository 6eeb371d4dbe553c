package common

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetview/internal/apperror"
)

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestErrorResult_Classified(t *testing.T) {
	err := apperror.New(apperror.CalendarNotConnected, "Google Calendar not connected").
		WithHint(apperror.HintConnectCalendar)

	result := ErrorResult(err)
	assert.True(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, "Google Calendar not connected", body["error"])
	assert.Equal(t, "CALENDAR_NOT_CONNECTED", body["code"])
	assert.Equal(t, apperror.HintConnectCalendar, body["hint"])
	assert.EqualValues(t, 400, body["status"])

	assert.Equal(t, "CALENDAR_NOT_CONNECTED", ErrorKindOf(result))
}

func TestErrorResult_Plain(t *testing.T) {
	result := ErrorResult(errors.New("boom"))
	assert.True(t, result.IsError)
	assert.Equal(t, "boom", resultText(t, result))
	assert.Empty(t, ErrorKindOf(result))
}

func TestJSONResult(t *testing.T) {
	result, err := JSONResult(map[string]int{"past": 1})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"past":1}`, resultText(t, result))
}
