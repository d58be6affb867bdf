package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/syntroph/crm/internal/auth"
	"github.com/syntroph/crm/internal/crm"
	"github.com/syntroph/crm/internal/schema"
	"github.com/syntroph/crm/internal/tenant"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound), errors.Is(err, crm.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tenant.ErrDuplicateRoutingKey),
		errors.Is(err, tenant.ErrInvalidTransition),
		errors.Is(err, schema.ErrAlreadyProvisioned):
		return http.StatusConflict
	case errors.Is(err, tenant.ErrInvalidRoutingKey),
		errors.Is(err, schema.ErrConfirmationMismatch):
		return http.StatusBadRequest
	case errors.Is(err, tenant.ErrTenantNotActive), errors.Is(err, auth.ErrDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
