package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "auth_user_id"

// RequireAccessToken authenticates the Authorization header and puts the
// subject user id into the request context. The check is stateless: the
// token stays valid until its signature expiry regardless of store state.
func (h *Handle) RequireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.tokenService.AuthenticateAccess(r.Header.Get("Authorization"))
		if err != nil {
			h.renderError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthenticatedUserID returns the user id placed into the context by
// RequireAccessToken
func AuthenticatedUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
