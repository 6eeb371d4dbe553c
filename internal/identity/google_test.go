package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newGoogleStub(t *testing.T, userinfo string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userinfo))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider("client", "secret", "http://localhost:3000/api/auth/callback/google")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userinfoEndpoint = srv.URL + "/"
	return p
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := newGoogleStub(t, `{"email":"jane@example.com","verified_email":true}`)
	p := testProvider(srv)

	email, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", email)

	_, err = p.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestGoogleProvider_UnverifiedEmail(t *testing.T) {
	srv := newGoogleStub(t, `{"email":"jane@example.com","verified_email":false}`)
	_, err := testProvider(srv).Exchange(context.Background(), "good-code")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestGoogleProvider_NotConfigured(t *testing.T) {
	p := NewGoogleProvider("", "", "")
	assert.False(t, p.Configured())

	_, err := p.AuthCodeURL("s")
	assert.ErrorIs(t, err, ErrSignInNotConfigured)
	_, err = p.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrSignInNotConfigured)
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "http://localhost:3000/api/auth/callback/google")

	raw, err := p.AuthCodeURL("state-1")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "http://localhost:3000/api/auth/callback/google", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
}
