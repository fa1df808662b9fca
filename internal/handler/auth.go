package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/auth"
)

// AuthHandler manages the browser session around an identity token.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSession → trade a token from the identity provider for an HttpOnly cookie
//   - HandleLogout  → clear the cookie
//   - HandleMe      → return the identity the request carries
//
// Signing users in is the identity provider's job. This server only checks
// the signature on what it is handed.
type AuthHandler struct {
	tokens *auth.TokenService
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secure marks the cookie Secure and
// should be true whenever the server sits behind HTTPS.
func NewAuthHandler(tokens *auth.TokenService, ttl time.Duration, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, ttl: ttl, secure: secure, logger: logger}
}

type sessionRequest struct {
	Token string `json:"token"`
}

// HandleSession validates the posted token and stores it in the cookie.
//
// HTTP: POST /auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	who, err := h.tokens.Validate(req.Token)
	if err != nil {
		h.logger.Warn("rejected session token", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "token is invalid or expired",
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    req.Token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("session started", slog.String("user", who.ID))
	writeJSON(w, http.StatusOK, who)
}

// HandleLogout deletes the cookie. The token itself stays valid until it
// expires; without the cookie the browser simply stops sending it.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the caller's identity.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	who, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Forbidden("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, who)
}
