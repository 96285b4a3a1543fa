package middleware

import (
	"context"
	"net/http"
)

type ModeratorStore interface {
	IsModerator(ctx context.Context, userID string) (bool, bool, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// RequireModerator gates a route on moderator status, optionally on a
// specific role. Super moderators pass every role check.
func RequireModerator(moderators ModeratorStore, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			isModerator, isSuper, err := moderators.IsModerator(r.Context(), userID)
			if err != nil {
				http.Error(w, "unable to verify moderator", http.StatusInternalServerError)
				return
			}
			if !isModerator {
				http.Error(w, "moderator privileges required", http.StatusForbidden)
				return
			}
			if isSuper || role == "" {
				next.ServeHTTP(w, r)
				return
			}
			hasRole, err := moderators.HasRole(r.Context(), userID, role)
			if err != nil {
				http.Error(w, "unable to verify role", http.StatusInternalServerError)
				return
			}
			if !hasRole {
				http.Error(w, "missing required role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
