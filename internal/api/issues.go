package api

import (
	"net/http"

	"civicconnect/internal/service"
	"civicconnect/internal/util"
)

func (h *Handlers) CreateIssue(w http.ResponseWriter, r *http.Request) {
	var req service.IssueInput
	if !h.decode(w, r, &req) {
		return
	}
	it, err := h.svc.CreateIssue(r.Context(), h.caller(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusCreated, map[string]any{"message": "Issue created successfully", "issue_id": it.ID, "issue": it})
}

func (h *Handlers) GetIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	it, err := h.svc.GetIssue(r.Context(), h.caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"issue": it})
}

func (h *Handlers) ListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, pg, err := h.svc.ListIssues(r.Context(), h.caller(r), service.IssueFilter{
		Category:  q.Get("category"),
		Status:    q.Get("status"),
		Priority:  q.Get("priority"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}, pageFrom(r, 10, 100))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"issues": items, "pagination": pg})
}

func (h *Handlers) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req service.IssuePatch
	if !h.decode(w, r, &req) {
		return
	}
	it, err := h.svc.UpdateIssue(r.Context(), h.caller(r), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Issue updated successfully", "issue": it})
}

func (h *Handlers) DeleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteIssue(r.Context(), h.caller(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Issue deleted successfully"})
}

func (h *Handlers) UploadIssueImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.fail(w, r, h.svc.UploadIssueImage(r.Context(), h.caller(r), id))
}

func (h *Handlers) Upvote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Upvote(r.Context(), h.caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusCreated, map[string]any{"message": "Issue upvoted successfully", "upvote_count": n})
}

func (h *Handlers) RemoveUpvote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	n, err := h.svc.RemoveUpvote(r.Context(), h.caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Upvote removed successfully", "upvote_count": n})
}

func (h *Handlers) ListUpvotes(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	items, pg, err := h.svc.ListUpvotes(r.Context(), id, pageFrom(r, 20, 50))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"upvotes": items, "pagination": pg})
}

func (h *Handlers) CheckUpvote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	up, err := h.svc.HasUpvoted(r.Context(), h.caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"upvoted": up})
}

func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req service.CommentInput
	if !h.decode(w, r, &req) {
		return
	}
	cm, err := h.svc.AddComment(r.Context(), h.caller(r), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusCreated, map[string]any{"message": "Comment added successfully", "comment_id": cm.ID, "comment": cm})
}

func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	asc := r.URL.Query().Get("order") == "asc"
	items, pg, err := h.svc.ListComments(r.Context(), h.caller(r), id, asc, pageFrom(r, 10, 50))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"comments": items, "pagination": pg})
}

func (h *Handlers) GetComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	cm, err := h.svc.GetComment(r.Context(), h.caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"comment": cm})
}

func (h *Handlers) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req service.CommentInput
	if !h.decode(w, r, &req) {
		return
	}
	cm, err := h.svc.UpdateComment(r.Context(), h.caller(r), id, req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Comment updated successfully", "comment": cm})
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(r.Context(), h.caller(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Comment deleted successfully"})
}
