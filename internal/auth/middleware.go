package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/suggestion-board/internal/model"
)

// contextKey is unexported so no other package can read or shadow the identity.
type contextKey string

const identityKey contextKey = "identity"

// CookieName is the cookie a browser client keeps its token in.
const CookieName = "token"

// RequireAuth rejects requests without a valid token with 401 and stores the
// identity in the request context otherwise.
//
// The token is read from "Authorization: Bearer <jwt>" first (CLI and
// service clients), then from the HttpOnly "token" cookie (browsers).
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), who)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying who.
func WithIdentity(ctx context.Context, who model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, who)
}

// IdentityFromContext returns the authenticated identity, or false for an
// anonymous request.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	who, ok := ctx.Value(identityKey).(model.Identity)
	return who, ok && who.ID != ""
}

var errNoToken = errors.New("auth: no token")

func extractIdentity(r *http.Request, tokens *TokenService) (model.Identity, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return model.Identity{}, errNoToken
		}
		return tokens.Validate(strings.TrimSpace(raw))
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return model.Identity{}, errNoToken
	}
	return tokens.Validate(cookie.Value)
}
