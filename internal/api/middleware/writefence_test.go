package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/tenant"
)

func fencedRequest(t *testing.T, method string, status models.Status) *httptest.ResponseRecorder {
	t.Helper()

	handler := WriteFence(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/v1/contacts", nil)
	req = req.WithContext(tenant.WithTenant(req.Context(), &models.TenantRecord{
		RoutingKey: "acme",
		SchemaName: "tenant_acme",
		Status:     status,
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWriteFenceBlocksMutationsOnDegraded(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec := fencedRequest(t, method, models.StatusDegraded)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, method)
	}
}

func TestWriteFenceAllowsReadsOnDegraded(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		rec := fencedRequest(t, method, models.StatusDegraded)
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}
}

func TestWriteFencePassesActiveTenant(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		rec := fencedRequest(t, method, models.StatusActive)
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}
}
