package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/services"
	"spendlog/internal/storage"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is down") }

func newTestServer(t *testing.T, opts Options) (*Server, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	srv := NewServer(opts, services.NewCategoryService(repo, nil, nil), services.NewExpenseService(repo, nil, nil), repo)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, repo
}

func serve(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.5:4000"
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	srv, repo := newTestServer(t, Options{Addr: ":0"})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := serve(srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	}

	down := NewServer(Options{}, services.NewCategoryService(repo, nil, nil), services.NewExpenseService(repo, nil, nil), failingPinger{})
	rec := serve(down, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is down")
}

func TestRPCThroughServer(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rec := serve(srv, http.MethodPost, "/rpc/createCategory", `{"name":"Food"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Food"`)

	rec = serve(srv, http.MethodGet, "/rpc/getCategories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result":{"data":[`)

	rec = serve(srv, http.MethodGet, "/rpc/healthcheck", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, Options{CORSAllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/rpc/createExpense", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec := serve(srv, http.MethodPost, "/rpc/createCategory", `{"name":"Food"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(srv, http.MethodPost, "/rpc/createCategory", `{"name":"Food"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	for i := 0; i < 5; i++ {
		rec := serve(srv, http.MethodGet, "/rpc/getCategories", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 1})
	assert.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestRateLimitKeysOnForwardedIPFromTrustedProxy(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 1, TrustedProxies: []string{"203.0.113.0/24", "not-a-cidr"}})

	post := func(forwardedFor string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rpc/createCategory", strings.NewReader(`{"name":"Food"}`))
		req.RemoteAddr = "203.0.113.5:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("198.51.100.1"))
	assert.Equal(t, http.StatusOK, post("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.1"))
}

func TestForwardedIPIgnoredFromUntrustedPeer(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 1})

	post := func(forwardedFor string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rpc/createCategory", strings.NewReader(`{"name":"Food"}`))
		req.RemoteAddr = "203.0.113.5:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.2"))
}
