package server

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/teemow/meetview/internal/apperror"
	"github.com/teemow/meetview/internal/config"
	"github.com/teemow/meetview/internal/connection"
	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/instrumentation"
	"github.com/teemow/meetview/internal/logging"
)

const (
	// stateCookie carries the sign-in CSRF state between redirect and callback.
	stateCookie = "oauth_state"

	stateCookiePath   = "/api/auth"
	stateCookieMaxAge = 600

	hintSignInSetup = "Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET to an OAuth client whose redirect URI is the sign-in callback"
)

// SessionResponse is the body of GET /api/auth/session.
type SessionResponse struct {
	User *SessionUser `json:"user,omitempty"`
}

// SessionUser is the signed-in user.
type SessionUser struct {
	Email string `json:"email"`
}

func (h *apiHandlers) setStateCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    value,
		Path:     stateCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.sc.Config().SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

// signIn handles GET /api/auth/signin by redirecting to Google.
func (h *apiHandlers) signIn(w http.ResponseWriter, r *http.Request) {
	provider := h.sc.SignIn()
	if !provider.Configured() {
		h.writeError(w, r, apperror.ErrMisconfigured(config.EnvGoogleClient, hintSignInSetup))
		return
	}

	state, err := identity.NewState()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	authURL, err := provider.AuthCodeURL(state)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setStateCookie(w, state, stateCookieMaxAge)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// signInCallback handles GET /api/auth/callback/google.
func (h *apiHandlers) signInCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op := instrumentation.NewOperation(instrumentation.AuditSignIn, viaHTTP)

	email, err := h.completeSignIn(r)
	h.setStateCookie(w, "", -1)
	if err != nil {
		h.logger.Warn("sign-in failed", logging.Err(err))
		h.sc.Metrics().RecordSignIn(ctx, instrumentation.StatusError)
		h.audit(ctx, op, err)
		h.writeError(w, r, err)
		return
	}

	token, err := h.sc.Sessions().Issue(email)
	if err != nil {
		h.sc.Metrics().RecordSignIn(ctx, instrumentation.StatusError)
		h.audit(ctx, op.WithUser(email), err)
		h.writeError(w, r, err)
		return
	}

	identity.SetSessionCookie(w, token, h.sc.Sessions().TTL(), h.sc.Config().SecureCookies())
	h.sc.Metrics().RecordSignIn(ctx, instrumentation.StatusSuccess)
	h.audit(ctx, op.WithUser(email), nil)
	h.logger.Info("signed in", logging.UserHash(email), logging.Domain(email))

	http.Redirect(w, r, h.sc.Config().PublicBaseURL, http.StatusFound)
}

// completeSignIn checks the callback parameters and returns the verified email.
func (h *apiHandlers) completeSignIn(r *http.Request) (string, error) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return "", apperror.New(apperror.Unauthorized, "Sign-in was not completed").
			WithCause(errors.New(e))
	}

	c, err := r.Cookie(stateCookie)
	state := q.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) != 1 {
		return "", apperror.New(apperror.Unauthorized, "Invalid sign-in state")
	}

	code := q.Get("code")
	if code == "" {
		return "", apperror.New(apperror.Unauthorized, "Missing authorization code")
	}

	email, err := h.sc.SignIn().Exchange(r.Context(), code)
	switch {
	case errors.Is(err, identity.ErrSignInNotConfigured):
		return "", apperror.ErrMisconfigured(config.EnvGoogleClient, hintSignInSetup)
	case err != nil:
		return "", apperror.New(apperror.Unauthorized, "Sign-in failed").WithCause(err)
	}
	return email, nil
}

// signOut handles POST /api/auth/signout. The connection identifier cookie
// goes with the session.
func (h *apiHandlers) signOut(w http.ResponseWriter, r *http.Request) {
	if user := identity.UserFromContext(r.Context()); user != "" {
		h.logger.Info("signed out", logging.UserHash(user))
	}
	secure := h.sc.Config().SecureCookies()
	identity.ClearSessionCookie(w, secure)
	connection.ClearCookie(w, secure)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// session handles GET /api/auth/session.
func (h *apiHandlers) session(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{}
	if user := identity.UserFromContext(r.Context()); user != "" {
		resp.User = &SessionUser{Email: user}
	}
	h.logger.Debug("session checked", slog.Bool("signed_in", resp.User != nil))
	writeJSON(w, http.StatusOK, resp)
}
