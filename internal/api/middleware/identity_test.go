package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityMiddleware(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	var captured uuid.UUID
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		captured, _ = shared.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid header reaches the handler with the identity in context", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		req.Header.Set(UserIDHeader, userID.String())
		recorder := httptest.NewRecorder()

		IdentityMiddleware(next).ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.True(t, reached)
		assert.Equal(t, userID, captured)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		recorder := httptest.NewRecorder()

		IdentityMiddleware(next).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.False(t, reached)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		req.Header.Set(UserIDHeader, "not-a-uuid")
		recorder := httptest.NewRecorder()

		IdentityMiddleware(next).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.False(t, reached)
	})
}
