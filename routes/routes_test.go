package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/handlers"
	"github.com/Dosada05/club-challenges/leaderboard"
	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/middleware"
	"github.com/Dosada05/club-challenges/repositories"
	"github.com/Dosada05/club-challenges/services"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	hub := leaderboard.NewHub(logger)
	svc := services.New(services.Dependencies{
		Store:     repositories.NewMemoryStore().Store(),
		Tokens:    auth.NewTokenManager("routes-secret", time.Hour),
		Publisher: hub,
		Metrics:   m,
		Logger:    logger,
	})

	router := chi.NewRouter()
	SetupRoutes(router,
		handlers.NewGraphQLHandler(svc, nil, m, false, logger),
		handlers.NewUploadHandler(svc.Users, svc.Clubs, logger),
		handlers.NewWebSocketHandler(hub, svc.Challenges, []string{"http://localhost:3000"}, logger),
		Options{
			Identify:       middleware.Identify(svc.Auth, false, logger),
			AllowedOrigins: []string{"http://localhost:3000"},
			Metrics:        m,
		},
	)
	return router
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServiceEndpoints(t *testing.T) {
	router := newRouter(t)

	rec := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, router, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Club Challenges API")

	// Счетчики операций появляются после первого запроса.
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"operationName":"authStatus"}`))
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec = get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `club_challenges_operations_total{code="OK",operation="authStatus"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	router := newRouter(t)
	rec := get(t, router, "/ws/challenges/1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
