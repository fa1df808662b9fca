// Package handler contains the HTTP handlers for the board API.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the request (URL params, query, JSON body)
// 2. Call the service with the caller's identity
// 3. Write the response through writeJSON or writeError
//
// Handlers hold no rules of their own. Every check lives in the service
// layer so boardctl and the API behave the same.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/suggestion-board/internal/service"
)

// BoardHandler serves the board registry under /api/boards.
type BoardHandler struct {
	boards *service.BoardService
	logger *slog.Logger
}

func NewBoardHandler(boards *service.BoardService, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{boards: boards, logger: logger}
}

// Routes mounts the board endpoints on r.
func (h *BoardHandler) Routes(r chi.Router) {
	r.Post("/boards", h.HandleCreate)
	r.Get("/boards", h.HandleList)
	r.Route("/boards/{boardID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Patch("/", h.HandleRename)
		r.Post("/join", h.HandleJoin)
		r.Post("/leave", h.HandleLeave)
		r.Post("/archive", h.HandleArchive)
		r.Get("/economy", h.HandleEconomy)
		r.Post("/members/{userID}/promote", h.HandlePromote)
		r.Delete("/members/{userID}", h.HandleKick)
		r.Get("/members/{userID}/profile", h.HandleProfile)
	})
}

type boardRequest struct {
	Name string `json:"name"`
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

// HandleCreate handles POST /api/boards.
func (h *BoardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req boardRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	b, err := h.boards.Create(r.Context(), who, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// HandleList handles GET /api/boards: the caller's boards.
func (h *BoardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	boards, err := h.boards.List(r.Context(), who)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (h *BoardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.boards.Get(r.Context(), who, chi.URLParam(r, "boardID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleRename handles PATCH /api/boards/{boardID} with {"name": "..."}.
func (h *BoardHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req boardRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.boards.Rename(r.Context(), who, chi.URLParam(r, "boardID"), req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BoardHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.boards.Join(r.Context(), who, chi.URLParam(r, "boardID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BoardHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.boards.Leave(r.Context(), who, chi.URLParam(r, "boardID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleArchive handles POST /api/boards/{boardID}/archive. The body is
// optional; {"archived": false} restores the board.
func (h *BoardHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req archiveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	archived := true
	if req.Archived != nil {
		archived = *req.Archived
	}

	b, err := h.boards.SetArchived(r.Context(), who, chi.URLParam(r, "boardID"), archived)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BoardHandler) HandleEconomy(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	acc, err := h.boards.Economy(r.Context(), who, chi.URLParam(r, "boardID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *BoardHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.boards.Promote(r.Context(), who, chi.URLParam(r, "boardID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BoardHandler) HandleKick(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.boards.Kick(r.Context(), who, chi.URLParam(r, "boardID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BoardHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.boards.Profile(r.Context(), who, chi.URLParam(r, "boardID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
