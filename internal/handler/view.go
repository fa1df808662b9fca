package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/suggestion-board/internal/service"
)

// ViewHandler serves the pending, review and ranked projections of a board.
type ViewHandler struct {
	suggestions *service.SuggestionService
	logger      *slog.Logger

	// streams is cancelled by CloseStreams. Every open stream ends with it;
	// ordinary requests are unaffected.
	streams     context.Context
	stopStreams context.CancelFunc
}

func NewViewHandler(suggestions *service.SuggestionService, logger *slog.Logger) *ViewHandler {
	streams, stop := context.WithCancel(context.Background())
	return &ViewHandler{
		suggestions: suggestions,
		logger:      logger,
		streams:     streams,
		stopStreams: stop,
	}
}

// CloseStreams ends every open and future view stream. The server calls it
// when shutting down, since streams never finish on their own.
func (h *ViewHandler) CloseStreams() {
	h.stopStreams()
}

func (h *ViewHandler) Routes(r chi.Router) {
	r.Get("/boards/{boardID}/views", h.HandleViews)
	r.Get("/boards/{boardID}/views/stream", h.HandleStream)
}

// HandleViews handles GET /api/boards/{boardID}/views.
func (h *ViewHandler) HandleViews(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	v, err := h.suggestions.Views(r.Context(), who, chi.URLParam(r, "boardID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleStream handles GET /api/boards/{boardID}/views/stream as Server-Sent
// Events. Each event carries the full Views document; the stream ends when
// the client disconnects or CloseStreams is called.
func (h *ViewHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.streams, cancel)
	defer stop()

	ch, err := h.suggestions.WatchViews(ctx, who, chi.URLParam(r, "boardID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// The server's write timeout is meant for ordinary requests; a stream
	// stays open until the client leaves.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear write deadline", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming unsupported", slog.String("error", err.Error()))
		return
	}

	for v := range ch {
		data, err := json.Marshal(v)
		if err != nil {
			h.logger.Error("failed to encode views", slog.String("error", err.Error()))
			return
		}
		if _, err := w.Write([]byte("event: views\ndata: ")); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
