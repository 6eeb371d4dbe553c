package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetview/internal/identity"
)

const (
	// DefaultHTTPAddr is the default address for the API server.
	DefaultHTTPAddr = ":3000"

	// MCPEndpoint is where the MCP tool surface is served.
	MCPEndpoint = "/mcp"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServerConfig configures the API server.
type HTTPServerConfig struct {
	Addr string

	// MCPServer, when set, is served at MCPEndpoint over streamable HTTP.
	MCPServer *mcpserver.MCPServer

	// MCPOAuth, when set, authenticates MCP clients that do not carry a
	// meetview session token and serves the OAuth discovery endpoints.
	MCPOAuth OAuthEndpoints

	// MCPSessions tracks MCP session ids. Defaults to a manager with
	// DefaultMCPSessionTimeout when MCPServer is set.
	MCPSessions *MCPSessionManager

	// RateLimiter applies to /api and /mcp. Nil disables limiting.
	RateLimiter *RateLimiter

	// HealthChecker defaults to a checker over the server context.
	HealthChecker *HealthChecker
}

// HTTPServer serves the calendar API, sign-in, the connection callback,
// health endpoints and the MCP endpoint.
type HTTPServer struct {
	sc         *ServerContext
	router     *mux.Router
	health     *HealthChecker
	mcpSession *MCPSessionManager
	httpServer *http.Server
	addr       string
	logger     *slog.Logger
}

// NewHTTPServer builds the router for sc.
func NewHTTPServer(sc *ServerContext, cfg HTTPServerConfig) *HTTPServer {
	if cfg.Addr == "" {
		cfg.Addr = DefaultHTTPAddr
	}
	if cfg.HealthChecker == nil {
		cfg.HealthChecker = NewHealthChecker(sc)
	}

	logger := sc.Logger().With("component", "http")
	if cfg.MCPServer != nil && cfg.MCPSessions == nil {
		cfg.MCPSessions = NewMCPSessionManager(DefaultMCPSessionTimeout, logger)
	}

	s := &HTTPServer{
		sc:         sc,
		health:     cfg.HealthChecker,
		mcpSession: cfg.MCPSessions,
		addr:       cfg.Addr,
		logger:     logger,
	}
	s.router = s.routes(cfg, logger)
	return s
}

func (s *HTTPServer) routes(cfg HTTPServerConfig, logger *slog.Logger) *mux.Router {
	h := &apiHandlers{sc: s.sc, logger: logger}
	attach := identity.Attach(s.sc.Sessions(), logger)

	r := mux.NewRouter()
	r.Use(recoverPanics(logger), requestMetrics(s.sc.Metrics()))

	s.health.RegisterHealthEndpoints(r)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(cfg.RateLimiter.Middleware, attach)

	api.HandleFunc("/connect-calendar", h.connectCalendar).Methods(http.MethodPost)
	api.HandleFunc("/meetings", h.listMeetings).Methods(http.MethodGet)
	api.HandleFunc("/meetings.ics", h.exportMeetings).Methods(http.MethodGet)
	api.HandleFunc("/composio/callback", h.composioCallback).Methods(http.MethodGet)

	api.HandleFunc("/auth/signin", h.signIn).Methods(http.MethodGet)
	api.HandleFunc("/auth/callback/google", h.signInCallback).Methods(http.MethodGet)
	api.HandleFunc("/auth/signout", h.signOut).Methods(http.MethodPost)
	api.HandleFunc("/auth/session", h.session).Methods(http.MethodGet)

	if cfg.MCPServer != nil {
		streamable := mcpserver.NewStreamableHTTPServer(cfg.MCPServer,
			mcpserver.WithEndpointPath(MCPEndpoint),
			mcpserver.WithSessionIdManager(cfg.MCPSessions),
			mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
				return identity.WithUser(ctx, identity.UserFromContext(r.Context()))
			}),
		)
		auth := mcpAuth(s.sc.Sessions(), cfg.MCPOAuth, logger)
		r.Handle(MCPEndpoint, cfg.RateLimiter.Middleware(auth(streamable))).
			Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
		if cfg.MCPOAuth != nil {
			registerOAuthRoutes(r, cfg.MCPOAuth, cfg.RateLimiter.Middleware)
		}
	}

	return r
}

// Handler returns the router.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Health returns the health checker, so callers can flip readiness during
// shutdown.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *HTTPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}

	s.logger.Info("starting http server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.mcpSession != nil {
		s.mcpSession.Stop()
	}
	if s.httpServer != nil {
		s.logger.Info("shutting down http server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
