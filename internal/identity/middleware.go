package identity

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session"

// TokenFromRequest extracts a session token from the Authorization header or
// the session cookie, in that order.
func TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Attach resolves the session token, if any, and stores the user in the
// request context. Requests without a valid session pass through unchanged.
func Attach(sessions *Sessions, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token != "" {
				email, err := sessions.Verify(token)
				if err != nil {
					logger.Debug("ignoring invalid session", slog.String("error", err.Error()))
				} else {
					r = r.WithContext(WithUser(r.Context(), email))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie stores a session token in the browser.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
