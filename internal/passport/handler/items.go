package handler

import (
	"context"
	"net/http"

	"passport/internal/passport/models"
	"passport/internal/passport/service"
	id "passport/pkg/domain"
	"passport/pkg/platform/httputil"
)

type addItemRequest struct {
	Section    models.Section          `json:"section,omitempty"`
	Timeline   *models.TimelineDetails `json:"timeline,omitempty"`
	Content    models.Content          `json:"content"`
	Visibility models.Visibility       `json:"visibility"`
}

type proposeRequest struct {
	Content models.Content `json:"content"`
}

type publishRequest struct {
	Published bool `json:"published"`
}

type resolveRequest struct {
	Approve bool `json:"approve"`
}

// itemResponse is the body for every item mutation. Revision is omitted
// when the call was a no-op.
type itemResponse struct {
	Item             service.ItemView `json:"item"`
	Revision         *models.Revision `json:"revision,omitempty"`
	OverSuggestedMax bool             `json:"over_suggested_max,omitempty"`
}

func newItemResponse(caller models.Actor, res *service.ItemResult) itemResponse {
	return itemResponse{
		Item:             res.View(caller),
		Revision:         res.Revision,
		OverSuggestedMax: res.OverSuggestedMax,
	}
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		h.fail(w, r, "add_item", err)
		return
	}
	var req addItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "add_item", err)
		return
	}
	res, err := h.svc.AddItem(r.Context(), caller, pid, service.AddItemRequest{
		Section:    req.Section,
		Timeline:   req.Timeline,
		Content:    req.Content,
		Visibility: req.Visibility,
	})
	if err != nil {
		h.fail(w, r, "add_item", err)
		return
	}
	w.Header().Set("Location", "/passports/"+pid.String()+"/items/"+res.Item.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, newItemResponse(caller, res))
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	caller, pid, iid, err := h.itemCall(r)
	if err != nil {
		h.fail(w, r, "get_item", err)
		return
	}
	view, err := h.svc.GetItem(r.Context(), caller, pid, iid)
	if err != nil {
		h.fail(w, r, "get_item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCanView(w http.ResponseWriter, r *http.Request) {
	caller, pid, iid, err := h.itemCall(r)
	if err != nil {
		h.fail(w, r, "can_view", err)
		return
	}
	ok, err := h.svc.CanView(r.Context(), caller, pid, iid)
	if err != nil {
		h.fail(w, r, "can_view", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"visible": ok})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	caller, pid, iid, err := h.itemCall(r)
	if err != nil {
		h.fail(w, r, "history", err)
		return
	}
	revs, err := h.svc.History(r.Context(), caller, pid, iid)
	if err != nil {
		h.fail(w, r, "history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"revisions": revs})
}

func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	caller, pid, iid, err := h.itemCall(r)
	if err != nil {
		h.fail(w, r, "propose", err)
		return
	}
	var req proposeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "propose", err)
		return
	}
	res, err := h.svc.Propose(r.Context(), caller, pid, iid, req.Content)
	if err != nil {
		h.fail(w, r, "propose", err)
		return
	}
	status := http.StatusOK
	if res.Revision != nil && res.Revision.Status == models.StatusPending {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, newItemResponse(caller, res))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.revisionAction(w, r, "approve", h.svc.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.revisionAction(w, r, "reject", h.svc.Reject)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	h.revisionAction(w, r, "restore", h.svc.Restore)
}

type revisionFunc func(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID) (*service.ItemResult, error)

func (h *Handler) revisionAction(w http.ResponseWriter, r *http.Request, op string, fn revisionFunc) {
	caller, err := actorFrom(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	pid, iid, rid, err := revisionParams(r)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	res, err := fn(r.Context(), caller, pid, iid, rid)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newItemResponse(caller, res))
}

func (h *Handler) handleSetPublished(w http.ResponseWriter, r *http.Request) {
	caller, pid, iid, err := h.itemCall(r)
	if err != nil {
		h.fail(w, r, "set_published", err)
		return
	}
	var req publishRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "set_published", err)
		return
	}
	res, err := h.svc.SetPublished(r.Context(), caller, pid, iid, req.Published)
	if err != nil {
		h.fail(w, r, "set_published", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newItemResponse(caller, res))
}

func (h *Handler) handleSetItemVisibility(w http.ResponseWriter, r *http.Request) {
	caller, pid, iid, err := h.itemCall(r)
	if err != nil {
		h.fail(w, r, "set_item_visibility", err)
		return
	}
	var v models.Visibility
	if err := httputil.DecodeJSON(r, &v); err != nil {
		h.fail(w, r, "set_item_visibility", err)
		return
	}
	res, err := h.svc.SetItemVisibility(r.Context(), caller, pid, iid, v)
	if err != nil {
		h.fail(w, r, "set_item_visibility", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newItemResponse(caller, res))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		h.fail(w, r, "list_pending", err)
		return
	}
	entries, err := h.svc.ListPending(r.Context(), caller, pid)
	if err != nil {
		h.fail(w, r, "list_pending", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"pending": entries})
}

// handleResolve approves or rejects a pending revision. A revision that was
// already resolved is reported with 200 and already_applied set.
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	caller, err := actorFrom(r.Context())
	if err != nil {
		h.fail(w, r, "resolve", err)
		return
	}
	pid, iid, rid, err := revisionParams(r)
	if err != nil {
		h.fail(w, r, "resolve", err)
		return
	}
	var req resolveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "resolve", err)
		return
	}
	res, err := h.svc.Resolve(r.Context(), caller, pid, iid, rid, req.Approve)
	if err != nil {
		h.fail(w, r, "resolve", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) itemCall(r *http.Request) (models.Actor, id.PassportID, id.ItemID, error) {
	caller, err := actorFrom(r.Context())
	if err != nil {
		return models.Actor{}, id.PassportID{}, id.ItemID{}, err
	}
	pid, iid, err := itemParams(r)
	return caller, pid, iid, err
}
