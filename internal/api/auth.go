package api

import (
	"net/http"
	"strings"

	"github.com/openlms/edflex-connector/internal/storage"
)

// TokenAuthMiddleware verifies the Authorization bearer token against the
// configured bcrypt hash. With no hash configured, protected endpoints are
// disabled entirely.
func (h *Handler) TokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminTokenHash == "" {
			WriteError(w, http.StatusServiceUnavailable, ErrCodeInvalidCredentials,
				"admin token not configured")
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials,
				"missing bearer token")
			return
		}

		if err := storage.VerifyKey(strings.TrimSpace(token), h.adminTokenHash); err != nil {
			h.logger.Warn("invalid admin token attempt", "remote_addr", r.RemoteAddr)
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials,
				"invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
