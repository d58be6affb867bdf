package auth

import (
	"crypto/subtle"
	"net/http"
)

// RequireAdminToken guards the platform admin surface. Tenant lifecycle
// changes never go through tenant routing, so a static operator token is
// checked instead of a tenant-scoped principal.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Token")
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
