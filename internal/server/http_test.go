package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/meetview/internal/connection"
	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/instrumentation"
)

func TestNewHTTPServer_Defaults(t *testing.T) {
	env := newTestEnv(t, &fakeBroker{})
	assert.Equal(t, DefaultHTTPAddr, env.srv.Addr())
	assert.NotNil(t, env.srv.Health())
	assert.NoError(t, env.srv.Shutdown(context.Background()), "shutdown before start")
	assert.False(t, env.srv.Health().IsReady())
}

func TestHTTPServer_RateLimitsAPI(t *testing.T) {
	sessions, err := identity.NewSessions("test-secret", time.Hour)
	require.NoError(t, err)
	sc, err := NewServerContext(context.Background(), Dependencies{
		Config:   testConfig(),
		Broker:   &fakeBroker{},
		Store:    connection.NewCookieStore(0, false),
		Sessions: sessions,
	})
	require.NoError(t, err)

	srv := NewHTTPServer(sc, HTTPServerConfig{RateLimiter: NewRateLimiter(1, 1, false)})

	get := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/api/auth/session"))
	assert.Equal(t, http.StatusTooManyRequests, get("/api/auth/session"))
	assert.Equal(t, http.StatusOK, get("/healthz"), "health endpoints are not limited")
}

func TestHTTPServer_RecordsRouteMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	sessions, err := identity.NewSessions("test-secret", time.Hour)
	require.NoError(t, err)
	sc, err := NewServerContext(context.Background(), Dependencies{
		Config:   testConfig(),
		Broker:   &fakeBroker{},
		Store:    connection.NewCookieStore(0, false),
		Sessions: sessions,
		Metrics:  metrics,
	})
	require.NoError(t, err)
	srv := NewHTTPServer(sc, HTTPServerConfig{})

	for _, path := range []string{"/api/composio/callback?code=abc", "/api/meetings"} {
		srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				path, _ := dp.Attributes.Value(attribute.Key("path"))
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				counts[path.AsString()+" "+status.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), counts["/api/composio/callback 200"])
	assert.Equal(t, int64(1), counts["/api/meetings 401"], "unauthorized request recorded with its status")
}

func TestHTTPServer_RecoversPanics(t *testing.T) {
	env := newTestEnv(t, &fakeBroker{})
	h := recoverPanics(env.sc.Logger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/meetings", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestHTTPServer_MCPEndpoint(t *testing.T) {
	userSessions, err := identity.NewSessions("test-secret", time.Hour)
	require.NoError(t, err)
	sc, err := NewServerContext(context.Background(), Dependencies{
		Config:   testConfig(),
		Broker:   &fakeBroker{},
		Store:    connection.NewCookieStore(0, false),
		Sessions: userSessions,
	})
	require.NoError(t, err)

	mcpSrv := mcpserver.NewMCPServer("meetview-test", "test", mcpserver.WithToolCapabilities(true))
	sessions := NewMCPSessionManager(time.Hour, nil)
	t.Cleanup(sessions.Stop)
	srv := NewHTTPServer(sc, HTTPServerConfig{MCPServer: mcpSrv, MCPSessions: sessions})

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	req := httptest.NewRequest(http.MethodPost, MCPEndpoint, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "meetview-test")

	sessionID := rec.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID)
	terminated, err := sessions.Validate(sessionID)
	require.NoError(t, err)
	assert.False(t, terminated)
}
