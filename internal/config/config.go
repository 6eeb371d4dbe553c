package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Environment variable names that are reported back to operators.
const (
	EnvBrokerAPIKey = "COMPOSIO_API_KEY"
	EnvAuthConfigID = "COMPOSIO_GOOGLECALENDAR_AUTH_CONFIG_ID"
	EnvGoogleClient = "GOOGLE_CLIENT_ID"
)

// Connection-identifier store backends.
const (
	StoreCookie = "cookie"
	StoreMemory = "memory"
	StoreValkey = "valkey"
)

// Config is the complete service configuration.
type Config struct {
	Broker   BrokerConfig
	Identity IdentityConfig
	MCPAuth  MCPAuthConfig
	Store    StoreConfig
	Limits   LimitsConfig

	// PublicBaseURL is where the browser reaches this service. The broker
	// callback URL is derived from it and the callback page redirects here
	// when no opener window exists.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

// BrokerConfig configures access to the connection broker.
type BrokerConfig struct {
	APIKey             string        `envconfig:"COMPOSIO_API_KEY"`
	AuthConfigID       string        `envconfig:"COMPOSIO_GOOGLECALENDAR_AUTH_CONFIG_ID"`
	ConnectedAccountID string        `envconfig:"COMPOSIO_CONNECTED_ACCOUNT_ID"`
	MCPServerID        string        `envconfig:"COMPOSIO_MCP_SERVER_ID"`
	BaseURL            string        `envconfig:"COMPOSIO_BASE_URL" default:"https://backend.composio.dev"`
	Timeout            time.Duration `envconfig:"COMPOSIO_TIMEOUT" default:"30s"`
}

// IdentityConfig configures sign-in and session tokens.
type IdentityConfig struct {
	SessionSecret      string        `envconfig:"SESSION_SECRET"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	GoogleClientID     string        `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `envconfig:"GOOGLE_CLIENT_SECRET"`
}

// MCPAuthConfig configures the OAuth authorization server that MCP clients
// discover through /.well-known/oauth-protected-resource. It signs users in
// with the same Google client as the browser sign-in.
type MCPAuthConfig struct {
	Enabled bool `envconfig:"MCP_OAUTH_ENABLED" default:"true"`

	// PublicRegistration lets any MCP client register itself (RFC 7591).
	// Without it clients need RegistrationToken.
	PublicRegistration bool   `envconfig:"MCP_OAUTH_PUBLIC_REGISTRATION" default:"true"`
	RegistrationToken  string `envconfig:"MCP_OAUTH_REGISTRATION_TOKEN"`
}

// StoreConfig selects where connection identifiers are persisted.
type StoreConfig struct {
	Backend        string        `envconfig:"CONNECTION_STORE" default:"cookie"`
	ValkeyURL      string        `envconfig:"VALKEY_URL" default:"localhost:6379"`
	ValkeyPassword string        `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int           `envconfig:"VALKEY_DB" default:"0"`
	KeyPrefix      string        `envconfig:"VALKEY_KEY_PREFIX" default:"meetview:"`
	TTL            time.Duration `envconfig:"CONNECTION_TTL" default:"720h"`
}

// LimitsConfig configures the per-client rate limiter. A zero RPS disables it.
type LimitsConfig struct {
	RPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	// TrustProxy keys the limiter on X-Forwarded-For / X-Real-IP. Enable
	// only behind a proxy that sets them.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`
}

// MissingSettingError reports a required setting that is not configured.
type MissingSettingError struct {
	Name string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Name)
}

// LoadEnvFile loads variables from a .env file without overriding values
// already present in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load decodes the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would make the service unusable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid PUBLIC_BASE_URL %q", c.PublicBaseURL)
	}
	if c.Broker.Timeout <= 0 {
		return fmt.Errorf("COMPOSIO_TIMEOUT must be positive, got %s", c.Broker.Timeout)
	}

	switch c.Store.Backend {
	case StoreCookie, StoreMemory, StoreValkey:
	default:
		return fmt.Errorf("invalid CONNECTION_STORE %q, must be one of: cookie, memory, valkey", c.Store.Backend)
	}

	if c.Limits.RPS < 0 || c.Limits.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}

// RequireBrokerKey returns the broker API key or a MissingSettingError.
func (c *Config) RequireBrokerKey() (string, error) {
	if c.Broker.APIKey == "" {
		return "", &MissingSettingError{Name: EnvBrokerAPIKey}
	}
	return c.Broker.APIKey, nil
}

// CallbackURL is the broker redirect target after the OAuth handshake.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/api/composio/callback"
}

// SignInRedirectURL is the Google OAuth redirect target for sign-in.
func (c *Config) SignInRedirectURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/api/auth/callback/google"
}

// MCPOAuthCallbackURL is the Google redirect target of the MCP authorization
// server. It has to be registered on the Google client next to
// SignInRedirectURL.
func (c *Config) MCPOAuthCallbackURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/oauth/callback"
}

// MCPOAuthEnabled reports whether MCP clients can authenticate through OAuth.
func (c *Config) MCPOAuthEnabled() bool {
	return c.MCPAuth.Enabled && c.Identity.GoogleClientID != "" && c.Identity.GoogleClientSecret != ""
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicBaseURL, "https://")
}
