package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetview/internal/connection"
)

type downStore struct {
	*connection.CookieStore
}

func (downStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func readHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLiveness(t *testing.T) {
	env := newTestEnv(t, &fakeBroker{})
	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthStatusOK, readHealth(t, rec).Status)
}

func TestReadiness(t *testing.T) {
	env := newTestEnv(t, &fakeBroker{})

	rec := env.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := readHealth(t, rec)
	assert.Equal(t, healthStatusOK, resp.Checks["ready"])
	assert.Equal(t, healthStatusOK, resp.Checks["store"])

	env.srv.Health().SetReady(false)
	rec = env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusNotReady, readHealth(t, rec).Checks["ready"])
}

func TestReadiness_ShuttingDown(t *testing.T) {
	env := newTestEnv(t, &fakeBroker{})
	require.NoError(t, env.sc.Shutdown())

	rec := env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusShuttingDown, readHealth(t, rec).Checks["shutdown"])

	rec = env.do(t, http.MethodGet, "/healthz/detailed", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadiness_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t, &fakeBroker{}, withStore(downStore{connection.NewCookieStore(0, false)}))

	rec := env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusUnavailable, readHealth(t, rec).Checks["store"])

	// Liveness does not depend on the store.
	rec = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDetailedHealth(t *testing.T) {
	env := newTestEnv(t, &fakeBroker{})

	rec := env.do(t, http.MethodGet, "/healthz/detailed", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusOK, resp.Status)
	assert.NotEmpty(t, resp.Uptime)
}

func TestHealthChecker_NilServerContext(t *testing.T) {
	h := NewHealthChecker(nil)
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
