package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/teemow/meetview/internal/instrumentation"
	"github.com/teemow/meetview/internal/logging"
)

// DefaultTimeout bounds a single broker call when none is configured.
const DefaultTimeout = 30 * time.Second

// Operation names used for metrics and spans.
const (
	OperationInitiate    = "initiate"
	OperationExecuteTool = "execute_tool"
)

// Recorder receives per-call broker metrics. *instrumentation.Metrics
// satisfies it.
type Recorder interface {
	RecordBrokerOperation(ctx context.Context, operation, status string, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Logger   *slog.Logger
	Recorder Recorder
}

// Client talks to the broker REST API.
type Client struct {
	http     *resty.Client
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder
}

// NewClient creates a broker client.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(logging.NewRestyLogger(logger))
	if cfg.APIKey != "" {
		rc.SetHeader("x-api-key", cfg.APIKey)
	}

	return &Client{
		http:     rc,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "broker")),
		recorder: cfg.Recorder,
	}
}

// InitiateRequest asks the broker to start an OAuth handshake.
type InitiateRequest struct {
	// ConnectionID is the stable external-account identifier the broker binds
	// the resulting connection to.
	ConnectionID string
	AuthConfigID string
	CallbackURL  string
}

// InitiateResponse is the broker's answer to Initiate.
type InitiateResponse struct {
	// ID identifies the pending connection request.
	ID string `json:"id"`
	// RedirectURL is the authorization URL the browser must visit. It may be
	// empty if the broker did not produce one.
	RedirectURL string `json:"redirect_url"`
	RedirectURI string `json:"redirect_uri,omitempty"`
	Status      string `json:"status,omitempty"`
}

type initiateBody struct {
	AuthConfig struct {
		ID string `json:"id"`
	} `json:"auth_config"`
	Connection struct {
		UserID      string `json:"user_id"`
		CallbackURL string `json:"callback_url,omitempty"`
	} `json:"connection"`
}

// Initiate starts a connection handshake.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	var body initiateBody
	body.AuthConfig.ID = req.AuthConfigID
	body.Connection.UserID = req.ConnectionID
	body.Connection.CallbackURL = req.CallbackURL

	var out InitiateResponse
	if err := c.do(ctx, OperationInitiate, "/api/v3/connected_accounts", body, &out); err != nil {
		return nil, err
	}
	if out.RedirectURL == "" {
		out.RedirectURL = out.RedirectURI
	}
	return &out, nil
}

// ToolRequest runs a broker tool for a user.
type ToolRequest struct {
	UserID             string
	ConnectedAccountID string
	MCPServerID        string
	Arguments          map[string]any
}

type toolBody struct {
	UserID             string            `json:"user_id"`
	ConnectedAccountID string            `json:"connected_account_id,omitempty"`
	Arguments          map[string]any    `json:"arguments"`
	ConnectionConfig   *connectionConfig `json:"connectionConfig,omitempty"`
}

type connectionConfig struct {
	MCPServerID string `json:"mcpServerId"`
}

type toolResponse struct {
	Data       json.RawMessage `json:"data"`
	Error      json.RawMessage `json:"error"`
	Successful *bool           `json:"successful"`
}

// ExecuteTool runs the named tool and returns its raw data payload. A
// response flagged as unsuccessful is returned as *Error.
func (c *Client) ExecuteTool(ctx context.Context, slug string, req ToolRequest) (json.RawMessage, error) {
	body := toolBody{
		UserID:             req.UserID,
		ConnectedAccountID: req.ConnectedAccountID,
		Arguments:          req.Arguments,
	}
	if body.Arguments == nil {
		body.Arguments = map[string]any{}
	}
	if req.MCPServerID != "" {
		body.ConnectionConfig = &connectionConfig{MCPServerID: req.MCPServerID}
	}

	var out toolResponse
	if err := c.do(ctx, OperationExecuteTool, "/api/v3/tools/execute/"+slug, body, &out); err != nil {
		return nil, err
	}

	if out.Successful != nil && !*out.Successful {
		raw, _ := json.Marshal(out)
		e := parseError(http.StatusOK, raw)
		if e.Message == "unexpected status 200" {
			e.Message = fmt.Sprintf("tool %s was not successful", slug)
		}
		return nil, e
	}
	return out.Data, nil
}

// do performs a single POST with a detached, time-bounded context.
func (c *Client) do(ctx context.Context, operation, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	ctx, span := instrumentation.StartBrokerSpan(ctx, operation)
	defer span.End()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	duration := time.Since(start)

	var callErr *Error
	switch {
	case err != nil:
		callErr = transportError(err)
	case resp.IsError():
		callErr = parseError(resp.StatusCode(), resp.Body())
	default:
		if uerr := json.Unmarshal(resp.Body(), out); uerr != nil {
			callErr = &Error{
				Status:  resp.StatusCode(),
				Message: fmt.Sprintf("failed to decode broker response: %v", uerr),
				Payload: json.RawMessage(resp.Body()),
				cause:   uerr,
			}
		}
	}

	status := logging.StatusSuccess
	if callErr != nil {
		status = logging.StatusError
		instrumentation.SetSpanError(span, callErr)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	if c.recorder != nil {
		c.recorder.RecordBrokerOperation(ctx, operation, status, duration)
	}

	c.logger.Debug("broker call",
		logging.Operation(operation),
		logging.Status(status),
		slog.Duration(logging.KeyDuration, duration),
		logging.Err(errOrNil(callErr)))

	if callErr != nil {
		return callErr
	}
	return nil
}

// errOrNil keeps a typed nil *Error from becoming a non-nil error.
func errOrNil(e *Error) error {
	if e == nil {
		return nil
	}
	return e
}
