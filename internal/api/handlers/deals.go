package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/syntroph/crm/internal/crm"
	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/tenant"
)

type DealHandler struct {
	svc *crm.Service
}

func NewDealHandler(svc *crm.Service) *DealHandler {
	return &DealHandler{svc: svc}
}

func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	deals, err := h.svc.ListDeals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deals": deals, "count": len(deals)})
}

func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var d models.Deal
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if d.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if u := tenant.UserFromContext(r.Context()); u != nil && d.OwnerID == nil {
		d.OwnerID = &u.ID
	}

	if err := h.svc.CreateDeal(r.Context(), &d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	d, err := h.svc.GetDeal(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := h.svc.DeleteDeal(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
