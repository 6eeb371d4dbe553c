package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	mcpoauth "github.com/giantswarm/mcp-oauth"
	mcpgoogle "github.com/giantswarm/mcp-oauth/providers/google"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	"github.com/gorilla/mux"

	"github.com/teemow/meetview/internal/config"
	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/logging"
)

// mcpOAuthScopes are requested from Google for MCP clients. Only the verified
// email is needed; calendar access goes through the broker.
var mcpOAuthScopes = []string{"openid", "email", "profile"}

// OAuthEndpoints is the OAuth 2.1 authorization server MCP clients use to
// obtain a bearer token for /mcp. The mcp-oauth handler implements it.
type OAuthEndpoints interface {
	ServeProtectedResourceMetadata(w http.ResponseWriter, r *http.Request)
	ServeAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request)
	ServeClientRegistration(w http.ResponseWriter, r *http.Request)
	ServeAuthorization(w http.ResponseWriter, r *http.Request)
	ServeToken(w http.ResponseWriter, r *http.Request)
	ServeCallback(w http.ResponseWriter, r *http.Request)
	ServeTokenRevocation(w http.ResponseWriter, r *http.Request)
	ValidateToken(next http.Handler) http.Handler
}

// NewMCPOAuth builds the authorization server that proxies MCP client
// sign-in to Google. It returns nil endpoints when cfg.MCPOAuthEnabled is
// false. stop releases the token store and is never nil.
func NewMCPOAuth(cfg *config.Config, logger *slog.Logger) (ep OAuthEndpoints, stop func(), err error) {
	if !cfg.MCPOAuthEnabled() {
		return nil, func() {}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcp_oauth")

	provider, err := mcpgoogle.NewProvider(&mcpgoogle.Config{
		ClientID:     cfg.Identity.GoogleClientID,
		ClientSecret: cfg.Identity.GoogleClientSecret,
		RedirectURL:  cfg.MCPOAuthCallbackURL(),
		Scopes:       mcpOAuthScopes,
	})
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to create google provider: %w", err)
	}

	store := memory.New()
	srv, err := mcpoauth.NewServer(provider, store, store, store, &oauthserver.Config{
		Issuer:                        strings.TrimRight(cfg.PublicBaseURL, "/"),
		AllowPublicClientRegistration: cfg.MCPAuth.PublicRegistration,
		RegistrationAccessToken:       cfg.MCPAuth.RegistrationToken,
	}, logger)
	if err != nil {
		store.Stop()
		return nil, func() {}, fmt.Errorf("failed to create mcp oauth server: %w", err)
	}

	if cfg.MCPAuth.PublicRegistration {
		logger.Warn("any MCP client may register, set MCP_OAUTH_PUBLIC_REGISTRATION=false and MCP_OAUTH_REGISTRATION_TOKEN to restrict")
	}
	logger.Info("mcp oauth enabled", "issuer", cfg.PublicBaseURL, "callback", cfg.MCPOAuthCallbackURL())
	return mcpoauth.NewHandler(srv, logger), store.Stop, nil
}

// registerOAuthRoutes mounts discovery (RFC 9728, RFC 8414), registration
// (RFC 7591) and the authorization code flow at the root, where MCP clients
// look for them.
func registerOAuthRoutes(r *mux.Router, ep OAuthEndpoints, limit mux.MiddlewareFunc) {
	routes := map[string]http.HandlerFunc{
		"/.well-known/oauth-protected-resource":   ep.ServeProtectedResourceMetadata,
		"/.well-known/oauth-authorization-server": ep.ServeAuthorizationServerMetadata,
		"/oauth/register":                         ep.ServeClientRegistration,
		"/oauth/authorize":                        ep.ServeAuthorization,
		"/oauth/token":                            ep.ServeToken,
		"/oauth/callback":                         ep.ServeCallback,
		"/oauth/revoke":                           ep.ServeTokenRevocation,
	}
	for path, h := range routes {
		r.Handle(path, limit(h))
	}
}

// mcpAuth authenticates /mcp callers. A meetview session token is accepted
// directly. Any other request goes through the authorization server, which
// answers 401 with discovery hints or attaches the verified Google identity.
// Without an authorization server requests pass through anonymously and the
// tools report Unauthorized.
func mcpAuth(sessions *identity.Sessions, ep OAuthEndpoints, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		var viaOAuth http.Handler
		if ep != nil {
			viaOAuth = ep.ValidateToken(oauthCaller(next, logger))
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := identity.TokenFromRequest(r); token != "" {
				if email, err := sessions.Verify(token); err == nil {
					next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), email)))
					return
				}
			}
			if viaOAuth == nil {
				next.ServeHTTP(w, r)
				return
			}
			viaOAuth.ServeHTTP(w, r)
		})
	}
}

// oauthCaller maps the identity verified by the authorization server onto
// the meetview caller.
func oauthCaller(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := mcpoauth.UserInfoFromContext(r.Context()); ok && info != nil && info.Email != "" {
			r = r.WithContext(identity.WithUser(r.Context(), info.Email))
			logger.Debug("mcp caller authenticated through oauth", logging.UserHash(info.Email))
		}
		next.ServeHTTP(w, r)
	})
}
