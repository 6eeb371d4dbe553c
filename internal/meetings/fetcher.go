package meetings

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/teemow/meetview/internal/apperror"
	"github.com/teemow/meetview/internal/broker"
	"github.com/teemow/meetview/internal/config"
	"github.com/teemow/meetview/internal/logging"
)

// ToolEventsList is the broker tool that lists calendar events.
const ToolEventsList = "GOOGLECALENDAR_EVENTS_LIST"

const hintBrokerKey = "Set COMPOSIO_API_KEY in the server environment to the project API key from the Composio dashboard"

// ToolExecutor runs broker tools.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, slug string, req broker.ToolRequest) (json.RawMessage, error)
}

// Recorder receives fetch outcomes.
type Recorder interface {
	RecordMeetingsFetch(ctx context.Context, status string, past, future int)
}

// Query identifies whose meetings to fetch.
type Query struct {
	// User is the verified user identity.
	User string

	// ConnectionID is the user's connection identity at the broker, if known.
	// The verified identity is used as the broker user id otherwise.
	ConnectionID string

	// Window overrides the default window around now.
	Window *Window
}

// Fetcher queries the broker for meetings. It keeps no state between calls.
type Fetcher struct {
	cfg      *config.Config
	tools    ToolExecutor
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(f *Fetcher) { f.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg *config.Config, tools ToolExecutor, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:    cfg,
		tools:  tools,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the meetings view for q.User. now is captured once, so the
// window and the past/future split agree.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (*View, error) {
	logger := logging.WithOperation(f.logger, "meetings.fetch").With(logging.UserHash(q.User))

	view, err := f.fetch(ctx, q, logger)
	if err != nil {
		logger.Warn("meetings fetch failed",
			logging.ErrorKind(string(apperror.KindOf(err))),
			logging.Err(err))
		if f.recorder != nil {
			f.recorder.RecordMeetingsFetch(ctx, logging.StatusError, 0, 0)
		}
		return nil, err
	}

	logger.Debug("meetings fetched",
		slog.Int("past", len(view.Past)),
		slog.Int("future", len(view.Future)))
	if f.recorder != nil {
		f.recorder.RecordMeetingsFetch(ctx, logging.StatusSuccess, len(view.Past), len(view.Future))
	}
	return view, nil
}

func (f *Fetcher) fetch(ctx context.Context, q Query, logger *slog.Logger) (*View, error) {
	if q.User == "" {
		return nil, apperror.ErrUnauthorized()
	}
	if _, err := f.cfg.RequireBrokerKey(); err != nil {
		return nil, apperror.ErrMisconfigured(config.EnvBrokerAPIKey, hintBrokerKey).WithCause(err)
	}

	now := f.now()
	window := NewWindow(now)
	if q.Window != nil {
		window = *q.Window
	}

	brokerUser := q.User
	if q.ConnectionID != "" {
		brokerUser = q.ConnectionID
	}

	payload, err := f.tools.ExecuteTool(ctx, ToolEventsList, broker.ToolRequest{
		UserID:             brokerUser,
		ConnectedAccountID: f.cfg.Broker.ConnectedAccountID,
		MCPServerID:        f.cfg.Broker.MCPServerID,
		Arguments:          window.ToolArguments(),
	})
	if err != nil {
		return nil, apperror.Classify(apperror.Fetch, err)
	}

	shape, items := Classify(payload)
	events := Normalize(payload)
	logger.Debug("normalized broker payload",
		slog.String("shape", shape.String()),
		slog.Int("items", len(items)),
		slog.Int("events", len(events)))

	view := Partition(events, now)
	return &view, nil
}
