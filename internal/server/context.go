package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/meetview/internal/callback"
	"github.com/teemow/meetview/internal/config"
	"github.com/teemow/meetview/internal/connection"
	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/instrumentation"
	"github.com/teemow/meetview/internal/meetings"
)

// Broker is the connection broker as used by the server.
type Broker interface {
	connection.Broker
	meetings.ToolExecutor
}

// Dependencies are the collaborators a ServerContext is built from.
type Dependencies struct {
	Config      *config.Config
	Broker      Broker
	Store       connection.Store
	Sessions    *identity.Sessions
	SignIn      *identity.GoogleProvider
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
	Logger      *slog.Logger

	// Clock replaces time.Now for the meetings fetcher.
	Clock func() time.Time
}

// ServerContext holds the services shared by the HTTP handlers and MCP tools.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	config      *config.Config
	store       connection.Store
	initiator   *connection.Initiator
	fetcher     *meetings.Fetcher
	sessions    *identity.Sessions
	signIn      *identity.GoogleProvider
	renderer    *callback.Renderer
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext wires the services from deps.
func NewServerContext(ctx context.Context, deps Dependencies) (*ServerContext, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Broker == nil {
		return nil, fmt.Errorf("broker client is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("connection store is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session issuer is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = &instrumentation.Metrics{}
	}
	if deps.SignIn == nil {
		deps.SignIn = identity.NewGoogleProvider("", "", "")
	}

	renderer, err := callback.NewRenderer(deps.Config.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	fetcherOpts := []meetings.Option{
		meetings.WithRecorder(deps.Metrics),
		meetings.WithLogger(deps.Logger),
	}
	if deps.Clock != nil {
		fetcherOpts = append(fetcherOpts, meetings.WithClock(deps.Clock))
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		config: deps.Config,
		store:  deps.Store,
		initiator: connection.NewInitiator(deps.Config, deps.Broker, deps.Store,
			connection.WithRecorder(deps.Metrics),
			connection.WithLogger(deps.Logger),
		),
		fetcher:     meetings.NewFetcher(deps.Config, deps.Broker, fetcherOpts...),
		sessions:    deps.Sessions,
		signIn:      deps.SignIn,
		renderer:    renderer,
		metrics:     deps.Metrics,
		auditLogger: deps.AuditLogger,
		logger:      deps.Logger,
	}, nil
}

// Context returns the server context. It is cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the service configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.config
}

// Store returns the connection identifier store.
func (sc *ServerContext) Store() connection.Store {
	return sc.store
}

// Initiator returns the connection initiator.
func (sc *ServerContext) Initiator() *connection.Initiator {
	return sc.initiator
}

// Fetcher returns the meetings fetcher.
func (sc *ServerContext) Fetcher() *meetings.Fetcher {
	return sc.fetcher
}

// Sessions returns the session token issuer.
func (sc *ServerContext) Sessions() *identity.Sessions {
	return sc.sessions
}

// SignIn returns the Google sign-in provider.
func (sc *ServerContext) SignIn() *identity.GoogleProvider {
	return sc.signIn
}

// Renderer returns the callback page renderer.
func (sc *ServerContext) Renderer() *callback.Renderer {
	return sc.renderer
}

// Metrics returns the metrics recorder. It is never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when auditing is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the base logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Calling it twice is a no-op.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
