package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo-app-backend/internal/api"
	"todo-app-backend/internal/api/middleware"
	internaljwt "todo-app-backend/internal/jwt"
	"todo-app-backend/internal/queue"
	authsvc "todo-app-backend/internal/service/auth"
	"todo-app-backend/internal/service/todolist"

	"github.com/prometheus/client_golang/prometheus"
)

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	issuer, err := internaljwt.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	rqm := queue.NewRequestQueueManagerWithLogger(4, 1, quiet)
	t.Cleanup(rqm.Shutdown)

	server := api.NewAPIServer(":0", rqm, api.Options{
		Auth:     authsvc.NewWithRepository(nil, issuer, nil),
		Lists:    todolist.NewWithRepository(nil, nil),
		CORS:     middleware.DefaultCORSConfig("http://localhost:3000"),
		Log:      quiet,
		Registry: prometheus.NewRegistry(),
	}, All("/api/v1")...)
	return server.Handler()
}

func TestHealth(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHandler(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/lists"},
		{http.MethodPost, "/api/v1/lists/delete"},
		{http.MethodGet, "/api/v1/lists/abc/todos"},
		{http.MethodPost, "/api/v1/todos/update"},
		{http.MethodPost, "/api/v1/todos/delete"},
		{http.MethodPost, "/api/v1/share-list"},
		{http.MethodPost, "/api/v1/update-permissions"},
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(p.method, p.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestPreflightAndMetrics(t *testing.T) {
	h := newHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/lists", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected preflight 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "todo_app_http_requests_total") {
		t.Fatalf("expected request metrics, got %d", rec.Code)
	}
}
