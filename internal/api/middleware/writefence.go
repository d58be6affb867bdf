package middleware

import (
	"net/http"

	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/tenant"
)

// WriteFence blocks mutating requests to degraded tenants. A degraded
// tenant's schema is behind the latest migration version, so new writes are
// refused until an operator remediates; reads keep working.
func WriteFence(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if t := tenant.FromContext(r.Context()); t != nil && t.Status == models.StatusDegraded {
			writeJSONError(w, http.StatusServiceUnavailable, "tenant is read-only pending migration remediation")
			return
		}
		next.ServeHTTP(w, r)
	})
}
