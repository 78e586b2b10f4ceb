package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-analyst-bot/internal/features/access/repository/memory"
	accessservice "chart-analyst-bot/internal/features/access/service"
	"chart-analyst-bot/internal/metrics"
)

func newTestRouter(t *testing.T, checks ...Check) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	rec.IncUpdate("text")

	return NewRouter(Options{
		ServiceName: "chart-analyst-bot",
		BotToken:    "123:test",
		CORSOrigins: []string{"*"},
		Access:      accessservice.NewAccessService(memory.NewUserRepository(), []int64{1001}, zerolog.Nop()),
		Gatherer:    reg,
		Checks:      checks,
		Log:         zerolog.Nop(),
	})
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthAndLive(t *testing.T) {
	h := newTestRouter(t)

	w := serve(h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/live").Code)
}

func TestReady(t *testing.T) {
	ok := Check{Name: "redis", Run: func(context.Context) error { return nil }}
	down := Check{Name: "redis", Run: func(context.Context) error { return errors.New("connection refused") }}

	assert.Equal(t, http.StatusOK, serve(newTestRouter(t, ok), http.MethodGet, "/ready").Code)

	w := serve(newTestRouter(t, down), http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis unavailable")
}

func TestMetrics(t *testing.T) {
	w := serve(newTestRouter(t), http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `bot_webhook_updates_total{kind="text"} 1`))
}

func TestAPIRequiresInitData(t *testing.T) {
	h := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/v1/admin/users/active").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/v1/users/me").Code)
}

func TestSwagger(t *testing.T) {
	w := serve(newTestRouter(t), http.MethodGet, "/swagger/doc.json")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/admin/users/active")
}
