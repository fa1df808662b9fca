package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/model"
	"github.com/sakif/suggestion-board/internal/service"
)

// SuggestionHandler serves suggestions, votes, boosts and reports.
type SuggestionHandler struct {
	suggestions *service.SuggestionService
	logger      *slog.Logger
}

func NewSuggestionHandler(suggestions *service.SuggestionService, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions, logger: logger}
}

// Routes mounts the suggestion endpoints on r.
func (h *SuggestionHandler) Routes(r chi.Router) {
	r.Get("/boards/{boardID}/suggestions", h.HandleList)
	r.Post("/boards/{boardID}/suggestions", h.HandleCreate)
	r.Route("/suggestions/{id}", func(r chi.Router) {
		r.Delete("/", h.HandleDelete)
		r.Post("/votes", h.HandleVote)
		r.Post("/boost", h.HandleBoost)
		r.Post("/reports", h.HandleReport)
		r.Delete("/reports", h.HandleDismissReports)
	})
}

type createSuggestionRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type voteRequest struct {
	Value *int `json:"value"`
}

type reportRequest struct {
	Reason string `json:"reason"`
}

func (h *SuggestionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	list, err := h.suggestions.List(r.Context(), who, chi.URLParam(r, "boardID"), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SuggestionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req createSuggestionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sg, err := h.suggestions.Create(r.Context(), who, chi.URLParam(r, "boardID"),
		model.Content{Text: req.Text, Image: req.Image})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sg)
}

// HandleVote handles POST /api/suggestions/{id}/votes with {"value": -1|0|1}.
// A missing value is rejected rather than read as a neutral vote.
func (h *SuggestionHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req voteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Value == nil {
		writeError(w, h.logger, apperror.ValidationFailed("value", "vote value is required"))
		return
	}

	res, err := h.suggestions.Vote(r.Context(), who, chi.URLParam(r, "id"), *req.Value)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SuggestionHandler) HandleBoost(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.suggestions.Boost(r.Context(), who, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDelete answers 204 when the suggestion is gone afterwards, including
// when a concurrent delete got there first.
func (h *SuggestionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	err = h.suggestions.Delete(r.Context(), who, chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SuggestionHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req reportRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sg, err := h.suggestions.Report(r.Context(), who, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sg)
}

func (h *SuggestionHandler) HandleDismissReports(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	sg, err := h.suggestions.DismissReports(r.Context(), who, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}
