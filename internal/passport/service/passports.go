package service

import (
	"context"
	"errors"
	"maps"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"passport/internal/passport/models"
	"passport/internal/passport/visibility"
	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
	"passport/pkg/platform/sentinel"
	"passport/pkg/requestcontext"
)

// passportMutation applies a passport-level change and reports whether
// anything changed.
type passportMutation func(p *models.Passport, actor models.Actor, now time.Time) (bool, error)

func (s *Service) mutatePassport(ctx context.Context, caller models.Actor, passportID id.PassportID, mutate passportMutation) (*models.Passport, error) {
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
		expected := p.Version
		changed, err := mutate(p, actor, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			return p, nil
		}

		err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
			return s.store.SavePassport(ctx, p, expected)
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
			return nil, translateStoreErr(err, "passport")
		}
		last := p.Revisions[len(p.Revisions)-1]
		s.logger.InfoContext(ctx, "passport updated",
			"passport_id", passportID,
			"revision", last.Number,
			"change", last.Description,
			"actor_id", actor.ID,
		)
		return p, nil
	}
}

// CreatePassport starts a passport owned by the caller.
func (s *Service) CreatePassport(ctx context.Context, caller models.Actor, child models.ChildProfile, defaultVisibility models.Visibility) (p *models.Passport, err error) {
	ctx, end := s.begin(ctx, "create_passport")
	defer func() { end(err) }()

	if caller.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	if caller.Role != models.RoleOwner {
		return nil, dErrors.New(dErrors.CodeForbidden, "only owners can create passports")
	}
	p, err = models.NewPassport(id.NewPassportID(), caller.ID, child, defaultVisibility, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
		return s.store.CreatePassport(ctx, p)
	})
	if err != nil {
		return nil, translateStoreErr(err, "passport")
	}
	s.logger.InfoContext(ctx, "passport created",
		"passport_id", p.ID,
		"owner_id", p.OwnerID,
	)
	return p, nil
}

// GrantAccess makes userID a co-owner, contributor or viewer of the passport.
func (s *Service) GrantAccess(ctx context.Context, caller models.Actor, passportID id.PassportID, userID id.UserID, role models.Role) (p *models.Passport, err error) {
	ctx, end := s.begin(ctx, "grant_access", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	return s.mutatePassport(ctx, caller, passportID, func(p *models.Passport, actor models.Actor, now time.Time) (bool, error) {
		before := p.RoleOf(userID)
		if err := p.GrantAccess(actor, userID, role, now); err != nil {
			return false, err
		}
		return before != role, nil
	})
}

// RevokeAccess removes userID from the passport's members.
func (s *Service) RevokeAccess(ctx context.Context, caller models.Actor, passportID id.PassportID, userID id.UserID) (p *models.Passport, err error) {
	ctx, end := s.begin(ctx, "revoke_access", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	return s.mutatePassport(ctx, caller, passportID, func(p *models.Passport, actor models.Actor, now time.Time) (bool, error) {
		_, member := p.Members[userID]
		if err := p.RevokeAccess(actor, userID, now); err != nil {
			return false, err
		}
		return member, nil
	})
}

// CompleteWizard records that the owner finished initial setup.
func (s *Service) CompleteWizard(ctx context.Context, caller models.Actor, passportID id.PassportID) (p *models.Passport, err error) {
	ctx, end := s.begin(ctx, "complete_wizard", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	return s.mutatePassport(ctx, caller, passportID, func(p *models.Passport, actor models.Actor, now time.Time) (bool, error) {
		return p.CompleteWizard(actor, now)
	})
}

// SetDefaultVisibility changes the visibility inherited by items without their own setting.
func (s *Service) SetDefaultVisibility(ctx context.Context, caller models.Actor, passportID id.PassportID, v models.Visibility) (p *models.Passport, err error) {
	ctx, end := s.begin(ctx, "set_default_visibility", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	return s.mutatePassport(ctx, caller, passportID, func(p *models.Passport, actor models.Actor, now time.Time) (bool, error) {
		if err := p.SetDefaultVisibility(actor, v, now); err != nil {
			return false, err
		}
		return true, nil
	})
}

// PassportHistory returns the passport-level revisions, oldest first.
func (s *Service) PassportHistory(ctx context.Context, caller models.Actor, passportID id.PassportID) (revs []models.PassportRevision, err error) {
	ctx, end := s.begin(ctx, "passport_history", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	p, err := s.loadPassport(ctx, passportID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(p.EffectiveActor(caller)); err != nil {
		return nil, err
	}
	return p.Revisions, nil
}

// ViewPassport returns the passport filtered for the caller. Items the caller
// may not observe are left out. Callers without membership still see items
// shared by public link.
func (s *Service) ViewPassport(ctx context.Context, caller models.Actor, passportID id.PassportID) (view *PassportView, err error) {
	ctx, end := s.begin(ctx, "view_passport", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	p, err := s.loadPassport(ctx, passportID)
	if err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, p.ItemIDs())
	if err != nil {
		return nil, err
	}
	actor := p.EffectiveActor(caller)

	view = &PassportView{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Child:             p.Child,
		WizardComplete:    p.WizardComplete,
		DefaultVisibility: p.DefaultVisibility,
		ChildViewHates:    p.ChildViewHates,
		Role:              actor.Role,
		Sections:          make(map[models.Section][]ItemView, len(models.Sections)),
		Timeline:          []ItemView{},
		SuggestedMax:      maps.Clone(s.cfg.SuggestedMax),
		Version:           p.Version,
	}
	for _, section := range models.Sections {
		view.Sections[section] = []ItemView{}
	}
	var stats PublishStats
	for _, item := range visibility.Filter(actor, items, p) {
		stats.add(item)
		v := newItemView(actor, item, p)
		if item.Kind == models.KindTimeline {
			view.Timeline = append(view.Timeline, v)
			continue
		}
		view.Sections[item.Section] = append(view.Sections[item.Section], v)
	}
	if actor.Role.CanReview() {
		view.Members = maps.Clone(p.Members)
		view.Stats = &stats
	}
	return view, nil
}

// SetChildViewSettings toggles whether the child view includes HATES.
func (s *Service) SetChildViewSettings(ctx context.Context, caller models.Actor, passportID id.PassportID, showHates bool) (p *models.Passport, err error) {
	ctx, end := s.begin(ctx, "set_child_view", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	return s.mutatePassport(ctx, caller, passportID, func(p *models.Passport, actor models.Actor, now time.Time) (bool, error) {
		return p.SetChildView(actor, showHates, now)
	})
}

// ChildView is the passport as shown to the child: published items of LOVES
// and STRENGTHS, plus HATES when the owners enabled it. There is no timeline,
// membership or review state in it. Only members may read it.
func (s *Service) ChildView(ctx context.Context, caller models.Actor, passportID id.PassportID) (view *PassportView, err error) {
	ctx, end := s.begin(ctx, "child_view", attribute.String("passport_id", passportID.String()))
	defer func() { end(err) }()

	p, err := s.loadPassport(ctx, passportID)
	if err != nil {
		return nil, err
	}
	actor := p.EffectiveActor(caller)
	if err := requireMember(actor); err != nil {
		return nil, err
	}
	sections := p.ChildViewSections()
	var ids []id.ItemID
	for _, section := range sections {
		ids = append(ids, p.Sections[section]...)
	}
	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	view = &PassportView{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Child:             p.Child,
		WizardComplete:    p.WizardComplete,
		DefaultVisibility: p.DefaultVisibility,
		ChildViewHates:    p.ChildViewHates,
		Role:              actor.Role,
		Sections:          make(map[models.Section][]ItemView, len(sections)),
		Timeline:          []ItemView{},
		Version:           p.Version,
	}
	for _, section := range sections {
		view.Sections[section] = []ItemView{}
	}
	for _, item := range visibility.Filter(actor, items, p) {
		if !item.Published || !item.HasContent() {
			continue
		}
		v := newItemView(actor, item, p)
		v.Pending = nil
		view.Sections[item.Section] = append(view.Sections[item.Section], v)
	}
	return view, nil
}
