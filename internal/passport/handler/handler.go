// Package handler exposes the passport workflow over HTTP.
//
// Authentication happens upstream: the auth middleware puts the caller's
// identity and claimed role on the context, and every route here builds a
// models.Actor from it.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"passport/internal/passport/models"
	"passport/internal/passport/service"
	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
	"passport/pkg/platform/httputil"
	"passport/pkg/requestcontext"
)

// Service is the workflow surface the handler drives.
type Service interface {
	CreatePassport(ctx context.Context, caller models.Actor, child models.ChildProfile, defaultVisibility models.Visibility) (*models.Passport, error)
	ViewPassport(ctx context.Context, caller models.Actor, passportID id.PassportID) (*service.PassportView, error)
	PassportHistory(ctx context.Context, caller models.Actor, passportID id.PassportID) ([]models.PassportRevision, error)
	CompleteWizard(ctx context.Context, caller models.Actor, passportID id.PassportID) (*models.Passport, error)
	SetDefaultVisibility(ctx context.Context, caller models.Actor, passportID id.PassportID, v models.Visibility) (*models.Passport, error)
	GrantAccess(ctx context.Context, caller models.Actor, passportID id.PassportID, userID id.UserID, role models.Role) (*models.Passport, error)
	RevokeAccess(ctx context.Context, caller models.Actor, passportID id.PassportID, userID id.UserID) (*models.Passport, error)
	ChildView(ctx context.Context, caller models.Actor, passportID id.PassportID) (*service.PassportView, error)
	SetChildViewSettings(ctx context.Context, caller models.Actor, passportID id.PassportID, showHates bool) (*models.Passport, error)

	AddItem(ctx context.Context, caller models.Actor, passportID id.PassportID, req service.AddItemRequest) (*service.ItemResult, error)
	GetItem(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID) (*service.ItemView, error)
	History(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID) ([]models.Revision, error)
	CanView(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID) (bool, error)
	Propose(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, content models.Content) (*service.ItemResult, error)
	Approve(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID) (*service.ItemResult, error)
	Reject(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID) (*service.ItemResult, error)
	Restore(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID) (*service.ItemResult, error)
	SetPublished(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, published bool) (*service.ItemResult, error)
	SetItemVisibility(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, v models.Visibility) (*service.ItemResult, error)

	ListPending(ctx context.Context, caller models.Actor, passportID id.PassportID) ([]service.PendingEntry, error)
	Resolve(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID, approve bool) (*service.Resolution, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the passport routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/passports", func(r chi.Router) {
		r.Post("/", h.handleCreatePassport)
		r.Route("/{passportID}", func(r chi.Router) {
			r.Get("/", h.handleViewPassport)
			r.Get("/history", h.handlePassportHistory)
			r.Post("/wizard/complete", h.handleCompleteWizard)
			r.Put("/default-visibility", h.handleSetDefaultVisibility)
			r.Get("/child-view", h.handleChildView)
			r.Put("/child-view", h.handleSetChildView)
			r.Put("/members/{userID}", h.handleGrantAccess)
			r.Delete("/members/{userID}", h.handleRevokeAccess)

			r.Get("/pending", h.handleListPending)

			r.Post("/items", h.handleAddItem)
			r.Route("/items/{itemID}", func(r chi.Router) {
				r.Get("/", h.handleGetItem)
				r.Get("/access", h.handleCanView)
				r.Put("/published", h.handleSetPublished)
				r.Put("/visibility", h.handleSetItemVisibility)
				r.Get("/revisions", h.handleHistory)
				r.Post("/revisions", h.handlePropose)
				r.Post("/revisions/{revisionID}/approve", h.handleApprove)
				r.Post("/revisions/{revisionID}/reject", h.handleReject)
				r.Post("/revisions/{revisionID}/restore", h.handleRestore)
				r.Post("/revisions/{revisionID}/resolve", h.handleResolve)
			})
		})
	})
}

// actorFrom builds the caller from the authenticated context.
func actorFrom(ctx context.Context) (models.Actor, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	role := models.Role(requestcontext.Role(ctx))
	if !role.IsValid() {
		return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token carries no recognised role")
	}
	return models.NewActor(userID, role), nil
}

func passportIDParam(r *http.Request) (id.PassportID, error) {
	return id.ParsePassportID(chi.URLParam(r, "passportID"))
}

func itemParams(r *http.Request) (id.PassportID, id.ItemID, error) {
	pid, err := passportIDParam(r)
	if err != nil {
		return id.PassportID{}, id.ItemID{}, err
	}
	iid, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	return pid, iid, err
}

func revisionParams(r *http.Request) (id.PassportID, id.ItemID, id.RevisionID, error) {
	pid, iid, err := itemParams(r)
	if err != nil {
		return pid, iid, id.RevisionID{}, err
	}
	rid, err := id.ParseRevisionID(chi.URLParam(r, "revisionID"))
	return pid, iid, rid, err
}

// fail logs server-side failures and writes the coded error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			"operation", op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
