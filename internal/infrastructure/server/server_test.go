package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "todo", Version: "test", Environment: "test"},
		JWT: config.JWTConfig{
			Secret:    "server-test-secret",
			ExpiresIn: time.Hour,
			Issuer:    "todo-test",
			Audience:  "authenticated",
		},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*"},
		Metrics:  config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	cfg := testConfig()
	srv, err := New(cfg, nil, nil, logger.NewNop())
	require.NoError(t, err)
	return srv, cfg
}

func serve(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(srv, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(srv, http.MethodGet, "/health/detailed", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"memory"`)
}

func TestServer_RequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestServer_TaskRoundTripWithToken(t *testing.T) {
	srv, cfg := newTestServer(t)
	auth := services.NewAuthService(cfg.JWT, logger.NewNop())

	alice, err := auth.IssueToken(uuid.New(), "alice@example.com")
	require.NoError(t, err)
	bob, err := auth.IssueToken(uuid.New(), "bob@example.com")
	require.NoError(t, err)

	rec := serve(srv, http.MethodPost, "/api/v1/tasks", `{"title":"Write report","priority":"high"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(srv, http.MethodGet, "/api/v1/tasks", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Write report")

	rec = serve(srv, http.MethodGet, "/api/v1/tasks", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Write report")
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)

	serve(srv, http.MethodGet, "/health", "", "")
	serve(srv, http.MethodGet, "/api/v1/tasks", "", "")

	rec := serve(srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/tasks",status="401"} 1`)
}
