package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"passport/internal/passport/models"
	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
	"passport/pkg/platform/httputil"
)

type createPassportRequest struct {
	Child             models.ChildProfile `json:"child"`
	DefaultVisibility models.Visibility   `json:"default_visibility"`
}

type grantAccessRequest struct {
	Role models.Role `json:"role"`
}

type childViewRequest struct {
	ShowHates bool `json:"show_hates"`
}

func (h *Handler) handleCreatePassport(w http.ResponseWriter, r *http.Request) {
	caller, err := actorFrom(r.Context())
	if err != nil {
		h.fail(w, r, "create_passport", err)
		return
	}
	var req createPassportRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "create_passport", err)
		return
	}
	p, err := h.svc.CreatePassport(r.Context(), caller, req.Child, req.DefaultVisibility)
	if err != nil {
		h.fail(w, r, "create_passport", err)
		return
	}
	w.Header().Set("Location", "/passports/"+p.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleViewPassport(w http.ResponseWriter, r *http.Request) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		h.fail(w, r, "view_passport", err)
		return
	}
	view, err := h.svc.ViewPassport(r.Context(), caller, pid)
	if err != nil {
		h.fail(w, r, "view_passport", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handlePassportHistory(w http.ResponseWriter, r *http.Request) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		h.fail(w, r, "passport_history", err)
		return
	}
	revs, err := h.svc.PassportHistory(r.Context(), caller, pid)
	if err != nil {
		h.fail(w, r, "passport_history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"revisions": revs})
}

func (h *Handler) handleCompleteWizard(w http.ResponseWriter, r *http.Request) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		h.fail(w, r, "complete_wizard", err)
		return
	}
	p, err := h.svc.CompleteWizard(r.Context(), caller, pid)
	if err != nil {
		h.fail(w, r, "complete_wizard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleSetDefaultVisibility(w http.ResponseWriter, r *http.Request) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		h.fail(w, r, "set_default_visibility", err)
		return
	}
	var v models.Visibility
	if err := httputil.DecodeJSON(r, &v); err != nil {
		h.fail(w, r, "set_default_visibility", err)
		return
	}
	p, err := h.svc.SetDefaultVisibility(r.Context(), caller, pid, v)
	if err != nil {
		h.fail(w, r, "set_default_visibility", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleChildView(w http.ResponseWriter, r *http.Request) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		h.fail(w, r, "child_view", err)
		return
	}
	view, err := h.svc.ChildView(r.Context(), caller, pid)
	if err != nil {
		h.fail(w, r, "child_view", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSetChildView(w http.ResponseWriter, r *http.Request) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		h.fail(w, r, "set_child_view", err)
		return
	}
	var req childViewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "set_child_view", err)
		return
	}
	p, err := h.svc.SetChildViewSettings(r.Context(), caller, pid, req.ShowHates)
	if err != nil {
		h.fail(w, r, "set_child_view", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	caller, pid, userID, err := h.memberCall(r)
	if err != nil {
		h.fail(w, r, "grant_access", err)
		return
	}
	var req grantAccessRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "grant_access", err)
		return
	}
	p, err := h.svc.GrantAccess(r.Context(), caller, pid, userID, req.Role)
	if err != nil {
		h.fail(w, r, "grant_access", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	caller, pid, userID, err := h.memberCall(r)
	if err != nil {
		h.fail(w, r, "revoke_access", err)
		return
	}
	if _, err := h.svc.RevokeAccess(r.Context(), caller, pid, userID); err != nil {
		h.fail(w, r, "revoke_access", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) passportCall(r *http.Request) (models.Actor, id.PassportID, error) {
	caller, err := actorFrom(r.Context())
	if err != nil {
		return models.Actor{}, id.PassportID{}, err
	}
	pid, err := passportIDParam(r)
	return caller, pid, err
}

func (h *Handler) memberCall(r *http.Request) (models.Actor, id.PassportID, id.UserID, error) {
	caller, pid, err := h.passportCall(r)
	if err != nil {
		return caller, pid, id.UserID{}, err
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		return caller, pid, id.UserID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid member id")
	}
	return caller, pid, userID, nil
}
