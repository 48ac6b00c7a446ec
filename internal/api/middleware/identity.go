package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/api/shared"
)

// UserIDHeader carries the authenticated user's ID, set by the upstream
// gateway after it has verified the session. The pipeline trusts the header;
// authentication itself happens outside this service.
const UserIDHeader = "X-User-ID"

// IdentityMiddleware extracts the requesting user's ID from the X-User-ID
// header and stores it in the request context. Requests without a valid
// header are rejected with 401 before reaching any handler.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserIDHeader)
		if raw == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user identity")
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid user identity")
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
