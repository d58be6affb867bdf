package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/syntroph/crm/internal/crm"
	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/tenant"
)

type UserHandler struct {
	svc *crm.Service
}

func NewUserHandler(svc *crm.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

type createUserRequest struct {
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

// Create adds a user to the current tenant. Routed behind an ADMIN gate;
// the new account cannot outrank its creator.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Email == "" || !req.Role.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and a valid role are required"})
		return
	}

	creator := tenant.UserFromContext(r.Context())
	if creator == nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "no authenticated user"})
		return
	}
	if !creator.Role.AtLeast(req.Role) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot grant a role above your own"})
		return
	}

	u, err := h.svc.CreateUser(r.Context(), req.Email, req.FullName, req.Role, creator.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
