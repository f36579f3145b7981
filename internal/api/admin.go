package api

import (
	"net/http"

	"civicconnect/internal/service"
	"civicconnect/internal/util"
)

func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.AdminStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"stats": st})
}

func (h *Handlers) AdminUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, pg, err := h.svc.ListUsers(r.Context(), q.Get("search"), q.Get("role"), pageFrom(r, 20, 100))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"users": users, "pagination": pg})
}

func (h *Handlers) AdminUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateUserRole(r.Context(), h.caller(r), id, req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "User role updated successfully", "user": u})
}

func (h *Handlers) AdminAuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, pg, err := h.svc.AuditLogs(r.Context(), pageFrom(r, 50, 100))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"logs": logs, "pagination": pg})
}

func (h *Handlers) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, pg, err := h.svc.ListStaff(r.Context(), r.URL.Query().Get("search"), pageFrom(r, 20, 100))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"staff": staff, "pagination": pg})
}

func (h *Handlers) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req service.StaffInput
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.CreateStaff(r.Context(), h.caller(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusCreated, map[string]any{"message": "Staff member created successfully", "staff_id": u.ID, "staff": u})
}

func (h *Handlers) GetStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.GetStaff(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"staff": u})
}

func (h *Handlers) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req service.StaffPatch
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateStaff(r.Context(), h.caller(r), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Staff member updated successfully", "staff": u})
}

func (h *Handlers) ToggleStaffStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	active, err := h.svc.ToggleStaffStatus(r.Context(), h.caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "Staff member deactivated successfully"
	if active {
		msg = "Staff member activated successfully"
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": msg, "is_active": active})
}
