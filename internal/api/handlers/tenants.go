package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/syntroph/crm/internal/audit"
	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/queue"
	"github.com/syntroph/crm/internal/schema"
	"github.com/syntroph/crm/internal/tenant"
)

// TenantAdminHandler is the only sanctioned entry point for tenant
// lifecycle changes.
type TenantAdminHandler struct {
	reg      *tenant.Registry
	prov     *schema.Provisioner
	seq      *schema.Sequencer
	queue    *queue.Client
	auditSvc *audit.Service
}

func NewTenantAdminHandler(reg *tenant.Registry, prov *schema.Provisioner, seq *schema.Sequencer, qc *queue.Client, auditSvc *audit.Service) *TenantAdminHandler {
	return &TenantAdminHandler{reg: reg, prov: prov, seq: seq, queue: qc, auditSvc: auditSvc}
}

type createTenantRequest struct {
	Name       string `json:"name"`
	RoutingKey string `json:"routing_key"`
	OwnerEmail string `json:"owner_email"`
}

// Create registers the tenant in provisioning status and hands the actual
// namespace build to the worker. The record is immediately visible in the
// registry; it becomes routable only once provisioning succeeds.
func (h *TenantAdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || req.RoutingKey == "" || req.OwnerEmail == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, routing_key and owner_email are required"})
		return
	}

	rec, err := h.reg.Register(r.Context(), req.Name, req.RoutingKey, req.OwnerEmail)
	if err != nil {
		writeError(w, err)
		return
	}

	h.recordAudit(r, "tenant.create", &rec.ID, map[string]interface{}{"routing_key": rec.RoutingKey})

	if err := h.queue.EnqueueTenantProvision(queue.TenantProvisionPayload{TenantID: rec.ID.String()}); err != nil {
		// The record exists but nothing will build its namespace; surface
		// the enqueue failure on the row for operators.
		slog.Error("enqueue provisioning failed", "tenant", rec.RoutingKey, "error", err)
		if serr := h.reg.SetLastError(r.Context(), rec.ID, "enqueue provisioning: "+err.Error()); serr != nil {
			slog.Error("recording enqueue failure failed", "tenant", rec.RoutingKey, "error", serr)
		}
	}

	writeJSON(w, http.StatusAccepted, rec)
}

func (h *TenantAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.reg.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": tenants, "count": len(tenants)})
}

type setStatusRequest struct {
	Status models.Status `json:"status"`
}

func (h *TenantAdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant id"})
		return
	}
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == models.StatusDeleted {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "deletion goes through DELETE /tenants/{id} with confirmation"})
		return
	}

	// Archival is a provisioner responsibility: it owns the fencing order
	// for availability-reducing transitions.
	if req.Status == models.StatusArchived {
		err = h.prov.Archive(r.Context(), id)
	} else {
		err = h.reg.UpdateStatus(r.Context(), id, req.Status)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, "tenant.status", &id, map[string]interface{}{"status": req.Status})

	rec, err := h.reg.LookupID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RunMigrations applies every pending migration across active and
// provisioning tenants and returns the per-tenant report.
func (h *TenantAdminHandler) RunMigrations(w http.ResponseWriter, r *http.Request) {
	report, err := h.seq.ApplyPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, "migrations.run", nil, map[string]interface{}{"tenants": len(report)})
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

// Drop irreversibly destroys an archived tenant's namespace. The caller
// must repeat the routing key in ?confirm= to go through with it.
func (h *TenantAdminHandler) Drop(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant id"})
		return
	}
	confirm := r.URL.Query().Get("confirm")
	if confirm == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "confirm parameter is required"})
		return
	}

	if err := h.prov.Destroy(r.Context(), id, confirm); err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, "tenant.drop", &id, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *TenantAdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.auditSvc.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_log": entries, "count": len(entries)})
}

func (h *TenantAdminHandler) recordAudit(r *http.Request, action string, tenantID *uuid.UUID, details map[string]interface{}) {
	entry := audit.Entry{
		Actor:    fmt.Sprintf("admin@%s", r.RemoteAddr),
		Action:   action,
		TenantID: tenantID,
		Details:  details,
	}
	if err := h.auditSvc.Record(r.Context(), entry); err != nil {
		slog.Warn("audit record failed", "action", action, "error", err)
	}
}
