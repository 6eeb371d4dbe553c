package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/meetview/internal/broker"
	"github.com/teemow/meetview/internal/config"
	"github.com/teemow/meetview/internal/connection"
)

// loadConfig loads the .env file named by --env-file, then the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var envFile string
	if f := cmd.Flag("env-file"); f != nil {
		envFile = f.Value.String()
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return config.Load()
}

// newStore builds the connection identifier store selected by
// CONNECTION_STORE. The returned function releases its resources.
func newStore(cfg *config.Config) (connection.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return connection.NewMemoryStore(cfg.Store.TTL), func() {}, nil
	case config.StoreValkey:
		s, err := connection.NewValkeyStore(connection.ValkeyConfig{
			Address:   cfg.Store.ValkeyURL,
			Password:  cfg.Store.ValkeyPassword,
			DB:        cfg.Store.ValkeyDB,
			KeyPrefix: cfg.Store.KeyPrefix,
			TTL:       cfg.Store.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create valkey store: %w", err)
		}
		return s, s.Close, nil
	default:
		return connection.NewCookieStore(cfg.Store.TTL, cfg.SecureCookies()), func() {}, nil
	}
}

// newBrokerClient builds the broker client from cfg.
func newBrokerClient(cfg *config.Config, logger *slog.Logger, recorder broker.Recorder) *broker.Client {
	return broker.NewClient(broker.Config{
		BaseURL:  cfg.Broker.BaseURL,
		APIKey:   cfg.Broker.APIKey,
		Timeout:  cfg.Broker.Timeout,
		Logger:   logger,
		Recorder: recorder,
	})
}

// warnMissingSettings logs settings whose absence makes requests fail. They
// are not startup errors; each request reports them instead.
func warnMissingSettings(cfg *config.Config, logger *slog.Logger) {
	if cfg.Broker.APIKey == "" {
		logger.Warn("broker API key is not configured, calendar requests will fail", "setting", config.EnvBrokerAPIKey)
	}
	if cfg.Broker.AuthConfigID == "" {
		logger.Warn("calendar auth config is not configured, connecting will fail", "setting", config.EnvAuthConfigID)
	}
	if cfg.Identity.GoogleClientID == "" {
		logger.Warn("google sign-in is not configured, MCP clients can only use session tokens", "setting", config.EnvGoogleClient)
	}
	if cfg.MCPAuth.Enabled && !cfg.MCPAuth.PublicRegistration && cfg.MCPAuth.RegistrationToken == "" {
		logger.Warn("MCP client registration is closed and no registration token is set, no MCP client can register", "setting", "MCP_OAUTH_REGISTRATION_TOKEN")
	}
	if cfg.Identity.SessionSecret == "" {
		logger.Warn("SESSION_SECRET is not set, sessions will not survive a restart")
	}
}
