package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"passport/internal/passport/models"
	"passport/internal/passport/visibility"
	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
	"passport/pkg/platform/sentinel"
	"passport/pkg/requestcontext"
)

// ItemResult is the outcome of a successful item operation. Revision is nil
// when the call changed nothing.
type ItemResult struct {
	Item             *models.ContentItem
	Revision         *models.Revision
	OverSuggestedMax bool

	passport *models.Passport
}

// AddItemRequest describes a new item. Set Section for a section bullet or
// Timeline for a timeline entry.
type AddItemRequest struct {
	Section    models.Section
	Timeline   *models.TimelineDetails
	Content    models.Content
	Visibility models.Visibility
}

// itemMutation applies one state machine operation. It returns the empty
// kind when the item is unchanged.
type itemMutation func(item *models.ContentItem, actor models.Actor, now time.Time) (*models.Revision, models.TransitionKind, error)

func (s *Service) withStoreTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Service) loadPassport(ctx context.Context, passportID id.PassportID) (*models.Passport, error) {
	var p *models.Passport
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.store.LoadPassport(ctx, passportID)
		return err
	})
	if err != nil {
		return nil, translateStoreErr(err, "passport")
	}
	return p, nil
}

// loadItemWithPassport fetches an item and its passport concurrently. An item
// that belongs to another passport is reported as not found.
func (s *Service) loadItemWithPassport(ctx context.Context, passportID id.PassportID, itemID id.ItemID) (*models.ContentItem, *models.Passport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var (
		item *models.ContentItem
		p    *models.Passport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		item, err = s.store.LoadItem(gctx, itemID)
		return translateStoreErr(err, "item")
	})
	g.Go(func() error {
		var err error
		p, err = s.store.LoadPassport(gctx, passportID)
		return translateStoreErr(err, "passport")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if item.PassportID != p.ID {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "item not found")
	}
	return item, p, nil
}

// loadItems fetches ids with bounded parallelism, preserving order.
func (s *Service) loadItems(ctx context.Context, ids []id.ItemID) ([]*models.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	items := make([]*models.ContentItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.LoadConcurrency)
	for i, itemID := range ids {
		g.Go(func() error {
			item, err := s.store.LoadItem(gctx, itemID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "passport references a missing item")
			}
			if err != nil {
				return translateStoreErr(err, "item")
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func requireMember(actor models.Actor) error {
	if actor.Role == models.RoleNone {
		return dErrors.New(dErrors.CodeForbidden, "actor has no access to this passport")
	}
	return nil
}

// mutateItem runs a read-modify-write cycle on one item under its record lock.
// A lost compare-and-swap reloads and reapplies the mutation, up to CASAttempts.
func (s *Service) mutateItem(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, mutate itemMutation) (*ItemResult, error) {
	release, err := s.locks.acquire(ctx, itemLockKey(itemID.String()), s.cfg.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	now := requestcontext.Now(ctx)
	for attempt := 1; ; attempt++ {
		item, p, err := s.loadItemWithPassport(ctx, passportID, itemID)
		if err != nil {
			return nil, err
		}
		actor := p.EffectiveActor(caller)
		if err := requireMember(actor); err != nil {
			return nil, err
		}

		expected := item.Version
		rev, kind, err := mutate(item, actor, now)
		if err != nil {
			return nil, err
		}
		if kind == "" {
			return &ItemResult{Item: item, passport: p}, nil
		}

		err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
			return s.store.SaveItem(ctx, item, expected)
		})
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			if attempt >= s.cfg.CASAttempts {
				return nil, dErrors.Wrap(err, dErrors.CodeConflict, "item was modified concurrently; reload and retry")
			}
			if s.metrics != nil {
				s.metrics.IncrementCASRetry("item")
			}
			continue
		}
		if err != nil {
			return nil, translateStoreErr(err, "item")
		}

		s.notify(ctx, models.NewTransition(kind, item, rev, actor.ID, now))
		s.logger.InfoContext(ctx, "item transition committed",
			"transition", kind,
			"passport_id", passportID,
			"item_id", itemID,
			"state", item.State,
			"actor_id", actor.ID,
		)
		return &ItemResult{Item: item, Revision: rev, passport: p}, nil
	}
}

// AddItem creates an item in a section or on the timeline. Owners publish
// directly; contributors create the item pending review. Exceeding a
// section's suggested maximum succeeds and sets OverSuggestedMax.
func (s *Service) AddItem(ctx context.Context, caller models.Actor, passportID id.PassportID, req AddItemRequest) (result *ItemResult, err error) {
	ctx, end := s.begin(ctx, "add_item", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	release, err := s.locks.acquire(ctx, passportLockKey(passportID.String()), s.cfg.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	now := requestcontext.Now(ctx)
	for attempt := 1; ; attempt++ {
		p, err := s.loadPassport(ctx, passportID)
		if err != nil {
			return nil, err
		}
		actor := p.EffectiveActor(caller)
		if err := requireMember(actor); err != nil {
			return nil, err
		}

		item, rev, err := models.NewItem(models.NewItemParams{
			ItemID:     id.NewItemID(),
			RevisionID: id.NewRevisionID(),
			PassportID: p.ID,
			Section:    req.Section,
			Timeline:   req.Timeline,
			Content:    req.Content,
			Visibility: req.Visibility,
			Author:     actor,
			Now:        now,
		})
		if err != nil {
			return nil, err
		}
		expected := p.Version
		over, err := p.AttachItem(item, actor.ID, s.cfg.SuggestedMax[req.Section], now)
		if err != nil {
			return nil, err
		}

		err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
			return s.store.AddItem(ctx, p, expected, item)
		})
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			if attempt >= s.cfg.CASAttempts {
				return nil, dErrors.Wrap(err, dErrors.CodeConflict, "passport was modified concurrently; reload and retry")
			}
			if s.metrics != nil {
				s.metrics.IncrementCASRetry("passport")
			}
			continue
		}
		if err != nil {
			return nil, translateStoreErr(err, "item")
		}

		kind := models.TransitionCreated
		if item.State == models.StatePendingReview {
			kind = models.TransitionProposed
		}
		if over {
			if s.metrics != nil {
				s.metrics.IncrementSoftLimitExceeded(string(req.Section))
			}
			s.logger.InfoContext(ctx, "section above suggested maximum",
				"passport_id", passportID,
				"section", req.Section,
				"suggested_max", s.cfg.SuggestedMax[req.Section],
			)
		}
		s.notify(ctx, models.NewTransition(kind, item, rev, actor.ID, now))
		return &ItemResult{Item: item, Revision: rev, OverSuggestedMax: over, passport: p}, nil
	}
}

// Propose submits new content for an item. Contributors stage a pending
// revision; the owner's content is applied immediately.
func (s *Service) Propose(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, content models.Content) (result *ItemResult, err error) {
	ctx, end := s.begin(ctx, "propose", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	return s.mutateItem(ctx, caller, passportID, itemID, func(item *models.ContentItem, actor models.Actor, now time.Time) (*models.Revision, models.TransitionKind, error) {
		rev, err := item.Propose(id.NewRevisionID(), actor, content, now)
		if err != nil {
			return nil, "", err
		}
		if rev.Status == models.StatusPending {
			return rev, models.TransitionProposed, nil
		}
		return rev, models.TransitionEdited, nil
	})
}

// Approve commits the pending revision. A revision that is no longer pending
// fails with CodeNotPending; see Resolve for the idempotent form.
func (s *Service) Approve(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID) (result *ItemResult, err error) {
	ctx, end := s.begin(ctx, "approve", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	return s.mutateItem(ctx, caller, passportID, itemID, func(item *models.ContentItem, actor models.Actor, now time.Time) (*models.Revision, models.TransitionKind, error) {
		rev, err := item.Approve(actor, revisionID, now)
		return rev, models.TransitionApproved, err
	})
}

// Reject records the pending revision as rejected without touching published content.
func (s *Service) Reject(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID) (result *ItemResult, err error) {
	ctx, end := s.begin(ctx, "reject", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	return s.mutateItem(ctx, caller, passportID, itemID, func(item *models.ContentItem, actor models.Actor, now time.Time) (*models.Revision, models.TransitionKind, error) {
		rev, err := item.Reject(actor, revisionID, now)
		return rev, models.TransitionRejected, err
	})
}

// Restore makes a historical edit revision current again as a new revision.
func (s *Service) Restore(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, revisionID id.RevisionID) (result *ItemResult, err error) {
	ctx, end := s.begin(ctx, "restore", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	return s.mutateItem(ctx, caller, passportID, itemID, func(item *models.ContentItem, actor models.Actor, now time.Time) (*models.Revision, models.TransitionKind, error) {
		rev, err := item.Restore(id.NewRevisionID(), actor, revisionID, now)
		return rev, models.TransitionRestored, err
	})
}

// SetPublished publishes or unpublishes an item. Repeating the current value
// succeeds without recording anything.
func (s *Service) SetPublished(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, published bool) (result *ItemResult, err error) {
	ctx, end := s.begin(ctx, "set_published", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	return s.mutateItem(ctx, caller, passportID, itemID, func(item *models.ContentItem, actor models.Actor, now time.Time) (*models.Revision, models.TransitionKind, error) {
		rev, err := item.SetPublished(id.NewRevisionID(), actor, published, now)
		if err != nil || rev == nil {
			return nil, "", err
		}
		if published {
			return rev, models.TransitionPublished, nil
		}
		return rev, models.TransitionUnpublished, nil
	})
}

// SetItemVisibility changes who may observe an item.
func (s *Service) SetItemVisibility(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID, v models.Visibility) (result *ItemResult, err error) {
	ctx, end := s.begin(ctx, "set_item_visibility", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	return s.mutateItem(ctx, caller, passportID, itemID, func(item *models.ContentItem, actor models.Actor, now time.Time) (*models.Revision, models.TransitionKind, error) {
		if err := item.SetVisibility(actor, v, now); err != nil {
			return nil, "", err
		}
		return nil, models.TransitionVisibility, nil
	})
}

// visibleItem loads an item and checks the caller may observe it. Items the
// caller cannot see are reported as not found.
func (s *Service) visibleItem(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID) (*models.ContentItem, *models.Passport, models.Actor, error) {
	item, p, err := s.loadItemWithPassport(ctx, passportID, itemID)
	if err != nil {
		return nil, nil, models.Actor{}, err
	}
	actor := p.EffectiveActor(caller)
	if !visibility.CanView(actor, item, p) {
		return nil, nil, models.Actor{}, dErrors.New(dErrors.CodeNotFound, "item not found")
	}
	return item, p, actor, nil
}

// GetItem returns the caller's view of an item.
func (s *Service) GetItem(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID) (view *ItemView, err error) {
	ctx, end := s.begin(ctx, "get_item", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	item, p, actor, err := s.visibleItem(ctx, caller, passportID, itemID)
	if err != nil {
		return nil, err
	}
	v := newItemView(actor, item, p)
	return &v, nil
}

// History returns an item's revisions oldest first. Owners see every
// revision; other viewers see published content revisions and their own.
func (s *Service) History(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID) (revs []models.Revision, err error) {
	ctx, end := s.begin(ctx, "history", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	item, p, actor, err := s.visibleItem(ctx, caller, passportID, itemID)
	if err != nil {
		return nil, err
	}
	revs = []models.Revision{}
	for rev := range item.Ledger.History() {
		if actor.Role.CanReview() || rev.AuthorID == actor.ID || rev.Status == models.StatusCurrent || rev.Status == models.StatusApproved {
			revs = append(revs, rev)
		}
	}
	return revs, nil
}

// CanView reports whether caller may observe the item.
func (s *Service) CanView(ctx context.Context, caller models.Actor, passportID id.PassportID, itemID id.ItemID) (ok bool, err error) {
	ctx, end := s.begin(ctx, "can_view", itemAttrs(passportID.String(), itemID.String())...)
	defer func() { end(err) }()

	item, p, err := s.loadItemWithPassport(ctx, passportID, itemID)
	if err != nil {
		return false, err
	}
	return visibility.CanView(p.EffectiveActor(caller), item, p), nil
}

// View returns the item as caller may observe it.
func (r *ItemResult) View(caller models.Actor) ItemView {
	return newItemView(r.passport.EffectiveActor(caller), r.Item, r.passport)
}
