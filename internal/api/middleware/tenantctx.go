package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/syntroph/crm/internal/auth"
	"github.com/syntroph/crm/internal/metrics"
	"github.com/syntroph/crm/internal/tenant"
)

// TenantContext resolves the tenant for every request on the tenant-scoped
// surface and attaches the record to the context. Resolution failures are
// request-local: they reject this one request with its cause and nothing
// else.
type TenantContext struct {
	resolver *tenant.Resolver
	header   string
	debug    bool
}

func NewTenantContext(resolver *tenant.Resolver, header string, debug bool) *TenantContext {
	return &TenantContext{resolver: resolver, header: header, debug: debug}
}

func (tc *TenantContext) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := tenant.RequestMeta{
			Explicit: r.Header.Get(tc.header),
			Host:     r.Host,
		}
		if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
			meta.HomeRoutingKey = claims.Tenant
		}

		rec, err := tc.resolver.Resolve(r.Context(), meta)
		if err != nil {
			status, outcome := resolutionFailure(err)
			metrics.Resolutions.WithLabelValues(outcome).Inc()
			writeJSONError(w, status, err.Error())
			return
		}
		metrics.Resolutions.WithLabelValues("ok").Inc()
		annotateTenant(r.Context(), rec.RoutingKey)

		if tc.debug {
			w.Header().Set("X-Current-Tenant", rec.RoutingKey)
		}
		next.ServeHTTP(w, r.WithContext(tenant.WithTenant(r.Context(), rec)))
	})
}

func resolutionFailure(err error) (int, string) {
	switch {
	case errors.Is(err, tenant.ErrAmbiguousTenant):
		return http.StatusConflict, "ambiguous"
	case errors.Is(err, tenant.ErrTenantNotActive):
		return http.StatusForbidden, "not_active"
	case errors.Is(err, tenant.ErrTenantNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "error"
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
