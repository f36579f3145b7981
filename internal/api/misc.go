package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"civicconnect/internal/service"
	"civicconnect/internal/util"
)

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	items, pg, err := h.svc.ListNotifications(r.Context(), h.caller(r), queryBool(r, "unread_only"), pageFrom(r, 20, 50))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"notifications": items, "pagination": pg})
}

func (h *Handlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), h.caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"count": n})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkNotificationRead(r.Context(), h.caller(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Notification marked as read"})
}

func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllNotificationsRead(r.Context(), h.caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "All notifications marked as read", "marked": n})
}

func (h *Handlers) FileInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetFileInfo(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"file": info})
}

func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	var req service.DeleteFileInput
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.DeleteFile(r.Context(), h.caller(r), req); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "File deleted successfully"})
}

func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	h.fail(w, r, h.svc.UploadFile(r.Context(), h.caller(r), kind))
}

func (h *Handlers) PublicStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.PublicStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{
		"totalIssues":    st.TotalIssues,
		"totalUsers":     st.TotalUsers,
		"resolutionRate": st.ResolutionRate,
	})
}
