package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/meetview/internal/apperror"
)

var errToolResult = errors.New("tool returned an error result")

// toolError is the JSON payload of a failed tool call.
type toolError struct {
	apperror.Body
	Status int `json:"status"`
}

// ErrorResult converts err into a tool error result. Classified errors keep
// their code and hint so agents can branch on CALENDAR_NOT_CONNECTED.
func ErrorResult(err error) *mcp.CallToolResult {
	ae, ok := apperror.As(err)
	if !ok {
		return mcp.NewToolResultError(err.Error())
	}
	b, mErr := json.Marshal(toolError{Body: ae.Body(), Status: ae.Status})
	if mErr != nil {
		return mcp.NewToolResultError(ae.Message)
	}
	return mcp.NewToolResultError(string(b))
}

// ErrorKindOf recovers the error code from a result built by ErrorResult.
func ErrorKindOf(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		return ""
	}
	var te toolError
	if err := json.Unmarshal([]byte(text.Text), &te); err != nil {
		return ""
	}
	return te.Code
}

// JSONResult renders v as an indented JSON text result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
