package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/suggestion-board/internal/app"
	"github.com/sakif/suggestion-board/internal/config"
	"github.com/sakif/suggestion-board/internal/model"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *app.App) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Store.Driver = config.DriverMemory
	cfg.Auth.JWTSecret = "server-test-secret-0123456789"
	if mutate != nil {
		mutate(cfg)
	}

	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	s, err := New(a)
	require.NoError(t, err)
	t.Cleanup(s.stop)
	return s, a
}

func bearer(t *testing.T, a *app.App, id string) string {
	t.Helper()
	tok, err := a.Tokens.Generate(model.Identity{ID: id, DisplayName: id})
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestNewRequiresSecret(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Driver = config.DriverMemory
	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()

	_, err = New(a)
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestRoutes(t *testing.T) {
	s, a := newTestServer(t, nil)
	h := s.Handler()

	t.Run("healthz is public", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("api requires a token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/boards", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("end to end", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/boards", bytes.NewBufferString(`{"name":"Team"}`))
		req.Header.Set("Authorization", bearer(t, a, "alice"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var b model.Board
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&b))
		assert.Equal(t, "alice", b.CreatedBy)

		req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", bearer(t, a, "alice"))
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"id":"alice"`)
	})
}

func TestWriteRateLimit(t *testing.T) {
	s, a := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	})
	h := s.Handler()
	token := bearer(t, a, "alice")

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/boards", bytes.NewBufferString(`{"name":"Team"}`))
		req.Header.Set("Authorization", token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	req := httptest.NewRequest(http.MethodGet, "/api/boards", nil)
	req.Header.Set("Authorization", token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
