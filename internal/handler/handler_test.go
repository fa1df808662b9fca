package handler_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
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

	"github.com/sakif/suggestion-board/internal/auth"
	"github.com/sakif/suggestion-board/internal/docstore/memory"
	"github.com/sakif/suggestion-board/internal/handler"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/repository/document"
	"github.com/sakif/suggestion-board/internal/service"
	"github.com/sakif/suggestion-board/internal/view"
)

// testUserHeader stands in for a verified token in these tests.
const testUserHeader = "X-Test-User"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	h, _ := newTestRouterWithViews(t)
	return h
}

func newTestRouterWithViews(t *testing.T) (http.Handler, *handler.ViewHandler) {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := document.New(store, logger)
	d := service.Deps{
		Suggestions: repos.Suggestions,
		Boards:      repos.Boards,
		Accounts:    repos.Accounts,
		Logger:      logger,
	}
	suggestions := service.NewSuggestionService(d)
	views := handler.NewViewHandler(suggestions, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(testUserHeader); id != "" {
				r = r.WithContext(auth.WithIdentity(r.Context(), model.Identity{ID: id, DisplayName: id}))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Route("/api", func(r chi.Router) {
		handler.NewBoardHandler(service.NewBoardService(d), logger).Routes(r)
		handler.NewSuggestionHandler(suggestions, logger).Routes(r)
		views.Routes(r)
	})
	return r, views
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeAs[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

// setupBoard creates a board owned by "alice" that "bob" has joined, with one
// suggestion by alice.
func setupBoard(t *testing.T, h http.Handler) (boardID, suggestionID string) {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/boards", "alice", `{"name":"Team"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	b := decodeAs[model.Board](t, rr)

	rr = do(t, h, http.MethodPost, "/api/boards/"+b.ID+"/join", "bob", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/boards/"+b.ID+"/suggestions", "alice", `{"text":"Pizza Friday"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sg := decodeAs[model.Suggestion](t, rr)
	return b.ID, sg.ID
}

func TestBoardHandler(t *testing.T) {
	h := newTestRouter(t)
	boardID, _ := setupBoard(t, h)

	t.Run("list shows the caller's boards", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/boards", "bob", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		boards := decodeAs[[]model.Board](t, rr)
		require.Len(t, boards, 1)
		assert.Equal(t, boardID, boards[0].ID)
	})

	t.Run("rename requires admin", func(t *testing.T) {
		rr := do(t, h, http.MethodPatch, "/api/boards/"+boardID, "bob", `{"name":"Mine"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "forbidden", decodeAs[handler.ErrorResponse](t, rr).Error)

		rr = do(t, h, http.MethodPatch, "/api/boards/"+boardID, "alice", `{"name":"Renamed"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Renamed", decodeAs[model.Board](t, rr).Name)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/boards", "alice", `{"name":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/boards", "alice", `{"title":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("outsider cannot read the board", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/boards/"+boardID, "mallory", "")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("missing board", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/boards/nope", "alice", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/boards", "", "")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("economy starts empty", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/boards/"+boardID+"/economy", "bob", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		acc := decodeAs[model.Account](t, rr)
		assert.Zero(t, acc.Fragments)
		assert.Zero(t, acc.Boosts)
	})

	t.Run("promote and kick", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/boards/"+boardID+"/members/bob/promote", "alice", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, decodeAs[model.Board](t, rr).AdminIDs, "bob")

		rr = do(t, h, http.MethodPost, "/api/boards/"+boardID+"/join", "carol", "")
		require.Equal(t, http.StatusOK, rr.Code)

		rr = do(t, h, http.MethodDelete, "/api/boards/"+boardID+"/members/carol", "bob", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, decodeAs[model.Board](t, rr).MemberIDs, "carol")
	})

	t.Run("archive then restore", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/boards/"+boardID+"/archive", "alice", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decodeAs[model.Board](t, rr).Archived)

		rr = do(t, h, http.MethodPost, "/api/boards/"+boardID+"/suggestions", "alice", `{"text":"late"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "board_archived", decodeAs[handler.ErrorResponse](t, rr).Error)

		rr = do(t, h, http.MethodPost, "/api/boards/"+boardID+"/archive", "alice", `{"archived":false}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.False(t, decodeAs[model.Board](t, rr).Archived)
	})
}

func TestSuggestionHandler_VoteAndBoost(t *testing.T) {
	h := newTestRouter(t)
	boardID, sgID := setupBoard(t, h)

	tests := []struct {
		name       string
		user       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"author cannot vote", "alice", `{"value":1}`, http.StatusForbidden, "self_vote"},
		{"value is required", "bob", `{}`, http.StatusBadRequest, "validation_error"},
		{"value out of range", "bob", `{"value":2}`, http.StatusBadRequest, "invalid_vote"},
		{"first vote", "bob", `{"value":1}`, http.StatusOK, ""},
		{"second vote", "bob", `{"value":-1}`, http.StatusConflict, "already_voted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/suggestions/"+sgID+"/votes", tt.user, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeAs[handler.ErrorResponse](t, rr).Error)
			}
		})
	}

	t.Run("boost without boosts", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/suggestions/"+sgID+"/boost", "bob", "")
		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
		assert.Equal(t, "insufficient_boosts", decodeAs[handler.ErrorResponse](t, rr).Error)
	})

	t.Run("vote credited a fragment", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/boards/"+boardID+"/economy", "bob", "")
		assert.Equal(t, 1, decodeAs[model.Account](t, rr).Fragments)
	})
}

func TestSuggestionHandler_List(t *testing.T) {
	h := newTestRouter(t)
	boardID, _ := setupBoard(t, h)

	do(t, h, http.MethodPost, "/api/boards/"+boardID+"/suggestions", "bob", `{"text":"Tacos"}`)

	rr := do(t, h, http.MethodGet, "/api/boards/"+boardID+"/suggestions?limit=1", "alice", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeAs[[]model.Suggestion](t, rr), 1)

	rr = do(t, h, http.MethodGet, "/api/boards/"+boardID+"/suggestions?limit=x", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSuggestionHandler_Delete(t *testing.T) {
	h := newTestRouter(t)
	_, sgID := setupBoard(t, h)

	rr := do(t, h, http.MethodDelete, "/api/suggestions/"+sgID, "bob", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/suggestions/"+sgID, "alice", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// Deleting again is still a success: the suggestion is gone either way.
	rr = do(t, h, http.MethodDelete, "/api/suggestions/"+sgID, "alice", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestSuggestionHandler_Reports(t *testing.T) {
	h := newTestRouter(t)
	_, sgID := setupBoard(t, h)

	rr := do(t, h, http.MethodPost, "/api/suggestions/"+sgID+"/reports", "bob", `{"reason":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "empty_reason", decodeAs[handler.ErrorResponse](t, rr).Error)

	rr = do(t, h, http.MethodPost, "/api/suggestions/"+sgID+"/reports", "bob", `{"reason":"spam"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Len(t, decodeAs[model.Suggestion](t, rr).Reports, 1)

	rr = do(t, h, http.MethodDelete, "/api/suggestions/"+sgID+"/reports", "bob", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/suggestions/"+sgID+"/reports", "alice", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeAs[model.Suggestion](t, rr).Reports)
}

func TestViewHandler(t *testing.T) {
	h := newTestRouter(t)
	boardID, sgID := setupBoard(t, h)

	rr := do(t, h, http.MethodGet, "/api/boards/"+boardID+"/views", "bob", "")
	require.Equal(t, http.StatusOK, rr.Code)
	v := decodeAs[view.Views](t, rr)
	require.Len(t, v.Pending, 1)
	assert.Equal(t, sgID, v.Pending[0].ID)
	assert.Empty(t, v.Ranked)

	do(t, h, http.MethodPost, "/api/suggestions/"+sgID+"/votes", "bob", `{"value":1}`)

	rr = do(t, h, http.MethodGet, "/api/boards/"+boardID+"/views", "bob", "")
	v = decodeAs[view.Views](t, rr)
	assert.Empty(t, v.Pending)
	require.Len(t, v.Ranked, 1)
	assert.Equal(t, 1, v.Ranked[0].Score)
}

func TestViewHandler_Stream(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t))
	defer srv.Close()

	rr := do(t, srv.Config.Handler, http.MethodPost, "/api/boards", "alice", `{"name":"Team"}`)
	b := decodeAs[model.Board](t, rr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/boards/"+b.ID+"/views/stream", nil)
	require.NoError(t, err)
	req.Header.Set(testUserHeader, "alice")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	var dataLine string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			break
		}
	}
	var v view.Views
	require.NoError(t, json.Unmarshal([]byte(dataLine), &v))
	assert.Equal(t, b.ID, v.BoardID)
}

func TestViewHandler_CloseStreams(t *testing.T) {
	h, views := newTestRouterWithViews(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	rr := do(t, h, http.MethodPost, "/api/boards", "alice", `{"name":"Team"}`)
	b := decodeAs[model.Board](t, rr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/boards/"+b.ID+"/views/stream", nil)
	require.NoError(t, err)
	req.Header.Set(testUserHeader, "alice")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			break
		}
	}

	views.CloseStreams()

	// The stream ends cleanly instead of hitting the client deadline.
	_, err = io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, ctx.Err())

	// Ordinary requests keep working.
	rr = do(t, h, http.MethodGet, "/api/boards/"+b.ID+"/views", "alice", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
