package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/instrumentation"
	"github.com/teemow/meetview/internal/logging"
	"github.com/teemow/meetview/internal/server"
	"github.com/teemow/meetview/internal/tools/meeting_tools"
)

// serveOptions holds the process-level flags of the serve command.
type serveOptions struct {
	httpAddr       string
	metricsAddr    string
	metricsEnabled bool
	debug          bool
	logFormat      string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the meetview HTTP server",
		Long: `Start the HTTP server providing:
  - POST /api/connect-calendar   start connecting Google Calendar
  - GET  /api/composio/callback  popup callback page
  - GET  /api/meetings           recent and upcoming meetings (JSON)
  - GET  /api/meetings.ics       the same meetings as iCalendar
  - /api/auth/*                  Google sign-in and session
  - /mcp                         MCP tools over streamable HTTP
  - /healthz, /readyz            Kubernetes health checks

Service settings are read from the environment:
  COMPOSIO_API_KEY, COMPOSIO_GOOGLECALENDAR_AUTH_CONFIG_ID, PUBLIC_BASE_URL,
  SESSION_SECRET, GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, CONNECTION_STORE, ...

Metrics are served on a dedicated port (--metrics-addr) when
INSTRUMENTATION_ENABLED is true and METRICS_EXPORTER is prometheus.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log format: text or json")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewLogger(os.Stderr, opts.logFormat, opts.debug)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	warnMissingSettings(cfg, logger)

	instrConfig, err := instrumentation.LoadConfig()
	if err != nil {
		return err
	}
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions, err := identity.NewSessions(cfg.Identity.SessionSecret, cfg.Identity.SessionTTL)
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(shutdownCtx, server.Dependencies{
		Config:      cfg,
		Broker:      newBrokerClient(cfg, logger, provider.Metrics()),
		Store:       store,
		Sessions:    sessions,
		SignIn:      identity.NewGoogleProvider(cfg.Identity.GoogleClientID, cfg.Identity.GoogleClientSecret, cfg.SignInRedirectURL()),
		Metrics:     provider.Metrics(),
		AuditLogger: instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("meetview", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := meeting_tools.RegisterMeetingTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register meeting tools: %w", err)
	}

	mcpOAuth, stopMCPOAuth, err := server.NewMCPOAuth(cfg, logger)
	if err != nil {
		return err
	}
	defer stopMCPOAuth()

	httpServer := server.NewHTTPServer(serverContext, server.HTTPServerConfig{
		Addr:        opts.httpAddr,
		MCPServer:   mcpSrv,
		MCPOAuth:    mcpOAuth,
		RateLimiter: server.NewRateLimiter(cfg.Limits.RPS, cfg.Limits.Burst, cfg.Limits.TrustProxy),
	})

	var metricsServer *server.MetricsServer
	if opts.metricsEnabled && provider.Enabled() && provider.Handler() != nil {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	serverDone := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- fmt.Errorf("http server: %w", err)
		}
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				serverDone <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	logger.Info("meetview started",
		"version", version,
		"http_addr", httpServer.Addr(),
		"public_base_url", cfg.PublicBaseURL,
		"connection_store", cfg.Store.Backend,
		"metrics", metricsServer != nil)

	var runErr error
	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverDone:
		logger.Error("server stopped unexpectedly", logging.Err(runErr))
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown failed", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}

	logger.Info("meetview stopped")
	return runErr
}
