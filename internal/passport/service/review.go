package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"passport/internal/passport/models"
	"passport/internal/passport/visibility"
	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
)

// PendingEntry is one item awaiting review.
type PendingEntry struct {
	Item      ItemView        `json:"item"`
	Placement string          `json:"placement"`
	Revision  models.Revision `json:"revision"`
}

// ListPending returns the items of a passport with a pending revision, in
// section order then timeline order. It is a snapshot computed from the
// stored items at call time. Owners see every pending item; other
// members see only their own submissions.
func (s *Service) ListPending(ctx context.Context, caller models.Actor, passportID id.PassportID) (entries []PendingEntry, err error) {
	ctx, end := s.begin(ctx, "list_pending", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	p, err := s.loadPassport(ctx, passportID)
	if err != nil {
		return nil, err
	}
	actor := p.EffectiveActor(caller)
	if err := requireMember(actor); err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, p.ItemIDs())
	if err != nil {
		return nil, err
	}

	entries = []PendingEntry{}
	for _, item := range items {
		if !item.IsPending() || !visibility.CanSeePending(actor, item, p) {
			continue
		}
		entries = append(entries, PendingEntry{
			Item:      newItemView(actor, item, p),
			Placement: item.Placement(),
			Revision:  *item.Pending,
		})
	}
	return entries, nil
}

// Resolution reports the outcome of a review decision.
type Resolution struct {
	Item     ItemView         `json:"item"`
	Revision *models.Revision `json:"revision,omitempty"`
	// AlreadyApplied is set when the revision was no longer pending, usually
	// because a duplicate or concurrent request resolved it first.
	AlreadyApplied bool `json:"already_applied"`
	// PriorStatus is how the revision was resolved, when it is in history.
	PriorStatus models.RevisionStatus `json:"prior_status,omitempty"`
}

// Resolve approves or rejects a pending revision. Unlike Approve and Reject it
// is idempotent: a revision that is no longer pending yields AlreadyApplied
// instead of an error. Every other failure, including loss of permission, is
// returned as is.
func (s *Service) Resolve(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID, approve bool) (*Resolution, error) {
	var (
		result *ItemResult
		err    error
	)
	if approve {
		result, err = s.Approve(ctx, caller, passportID, itemID, revisionID)
	} else {
		result, err = s.Reject(ctx, caller, passportID, itemID, revisionID)
	}
	if err == nil {
		return &Resolution{
			Item:     result.View(caller),
			Revision: result.Revision,
		}, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotPending) {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementAlreadyResolved()
	}
	item, p, err := s.loadItemWithPassport(ctx, passportID, itemID)
	if err != nil {
		return nil, err
	}
	res := &Resolution{
		Item:           newItemView(p.EffectiveActor(caller), item, p),
		AlreadyApplied: true,
	}
	if rev, ok := item.Ledger.Find(revisionID); ok {
		res.PriorStatus = rev.Status
		res.Revision = &rev
	}
	s.logger.InfoContext(ctx, "review already resolved",
		"passport_id", passportID,
		"item_id", itemID,
		"revision_id", revisionID,
		"prior_status", res.PriorStatus,
	)
	return res, nil
}
