package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/suggestion-board/internal/auth"
	"github.com/sakif/suggestion-board/internal/model"
)

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte("done"))
}

func withUser(id string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), model.Identity{ID: id})))
		})
	}
}

func TestLoggerRecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := chimw.RequestID(Logger(logger)(withUser("u1")(RecordIdentity(http.HandlerFunc(ok)))))

	req := httptest.NewRequest(http.MethodPost, "/api/boards", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	line := buf.String()
	assert.Contains(t, line, `"status":201`)
	assert.Contains(t, line, `"path":"/api/boards"`)
	assert.Contains(t, line, `"user":"u1"`)
	assert.Contains(t, line, `"bytes":4`)
	assert.Contains(t, line, `"request_id"`)
}

func TestRateLimiterPerCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 0.001, 2)

	call := func(user string) int {
		var h http.Handler = rl.Middleware(http.HandlerFunc(ok))
		if user != "" {
			h = withUser(user)(h)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/suggestions/x/votes", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, call("u1"))
	assert.Equal(t, http.StatusCreated, call("u1"))
	assert.Equal(t, http.StatusTooManyRequests, call("u1"))

	// Another user and an anonymous caller have their own buckets.
	assert.Equal(t, http.StatusCreated, call("u2"))
	assert.Equal(t, http.StatusCreated, call(""))
}

func TestRateLimiterWritesOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 0.001, 1)
	h := withUser("u1")(rl.Writes(http.HandlerFunc(ok)))

	call := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/boards", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, call(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, call(http.MethodPost))
	// Reads are never limited.
	assert.Equal(t, http.StatusCreated, call(http.MethodGet))
	assert.Equal(t, http.StatusCreated, call(http.MethodGet))
}
