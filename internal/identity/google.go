package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// SignInScopes are the scopes requested at sign-in. Only the email is needed.
var SignInScopes = []string{
	"openid",
	oauth2api.UserinfoEmailScope,
}

var (
	ErrSignInNotConfigured = errors.New("google sign-in is not configured")
	ErrEmailNotVerified    = errors.New("google account email is not verified")
)

// GoogleProvider signs users in with Google.
type GoogleProvider struct {
	config *oauth2.Config

	// userinfoEndpoint overrides the Google API base URL.
	userinfoEndpoint string
}

// NewGoogleProvider creates a provider. clientID may be empty, in which case
// every sign-in attempt fails with ErrSignInNotConfigured.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       SignInScopes,
		},
	}
}

// Configured reports whether a client id is set.
func (p *GoogleProvider) Configured() bool {
	return p.config.ClientID != ""
}

// NewState returns a random OAuth state value.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthCodeURL returns the Google consent URL for state.
func (p *GoogleProvider) AuthCodeURL(state string) (string, error) {
	if !p.Configured() {
		return "", ErrSignInNotConfigured
	}
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange trades an authorization code for the user's verified email.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	if !p.Configured() {
		return "", ErrSignInNotConfigured
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, token))}
	if p.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.userinfoEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.Email == "" || info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return "", ErrEmailNotVerified
	}
	return info.Email, nil
}
