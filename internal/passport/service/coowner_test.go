package service_test

import (
	"sync"

	"github.com/google/uuid"

	"passport/internal/passport/models"
	"passport/internal/passport/service"
	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
)

func (s *ServiceSuite) grantCoOwner() models.Actor {
	coOwner := models.NewActor(id.UserID(uuid.New()), models.RoleCoOwner)
	_, err := s.svc.GrantAccess(s.ctx, s.owner, s.passportID, coOwner.ID, models.RoleCoOwner)
	s.Require().NoError(err)
	return coOwner
}

func (s *ServiceSuite) TestCoOwnerReviews() {
	coOwner := s.grantCoOwner()

	s.Run("co-owner content is applied directly", func() {
		res := s.addLove(coOwner, "Loves puzzles")
		s.Equal(models.StatePublished, res.Item.State)
		s.Nil(res.Item.Pending)
	})

	s.Run("co-owner sees the review queue and passport stats", func() {
		itemID := s.addLove(s.owner, "Loves cars").Item.ID
		_, err := s.svc.Propose(s.ctx, s.contributor, s.passportID, itemID, models.Content{Text: "Loves trains"})
		s.Require().NoError(err)

		entries, err := s.svc.ListPending(s.ctx, coOwner, s.passportID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Require().NotNil(entries[0].Item.Pending)
		s.Equal("Loves trains", entries[0].Item.Pending.Content.Text)

		view, err := s.svc.ViewPassport(s.ctx, coOwner, s.passportID)
		s.Require().NoError(err)
		s.Equal(models.RoleCoOwner, view.Role)
		s.Require().NotNil(view.Stats)
		s.Equal(1, view.Stats.Pending)
		s.Len(view.Members, 4)
	})

	s.Run("owner and co-owner resolving together apply the revision once", func() {
		itemID := s.addLove(s.owner, "Loves cars").Item.ID
		proposed, err := s.svc.Propose(s.ctx, s.second, s.passportID, itemID, models.Content{Text: "Loves boats"})
		s.Require().NoError(err)

		reviewers := []models.Actor{s.owner, coOwner}
		results := make([]*service.Resolution, len(reviewers))
		errs := make([]error, len(reviewers))
		var wg sync.WaitGroup
		for i, reviewer := range reviewers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = s.svc.Resolve(s.ctx, reviewer, s.passportID, itemID, proposed.Revision.ID, true)
			}()
		}
		wg.Wait()

		applied, already := 0, 0
		for i := range reviewers {
			s.Require().NoError(errs[i])
			if results[i].AlreadyApplied {
				already++
				s.Equal(models.StatusApproved, results[i].PriorStatus)
				continue
			}
			applied++
		}
		s.Equal(1, applied)
		s.Equal(1, already)

		history, err := s.svc.History(s.ctx, coOwner, s.passportID, itemID)
		s.Require().NoError(err)
		s.Len(history, 2)
	})

	s.Run("membership stays with the owner of record", func() {
		_, err := s.svc.GrantAccess(s.ctx, coOwner, s.passportID, s.stranger.ID, models.RoleViewer)
		s.requireCode(err, dErrors.CodeForbidden)
		_, err = s.svc.RevokeAccess(s.ctx, coOwner, s.passportID, s.viewer.ID)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("a co-owner claiming ownership is capped", func() {
		view, err := s.svc.ViewPassport(s.ctx, models.NewActor(coOwner.ID, models.RoleOwner), s.passportID)
		s.Require().NoError(err)
		s.Equal(models.RoleCoOwner, view.Role)
	})

	s.Run("a revoked co-owner loses review rights", func() {
		itemID := s.addLove(s.owner, "Loves kites").Item.ID
		proposed, err := s.svc.Propose(s.ctx, s.contributor, s.passportID, itemID, models.Content{Text: "Loves big kites"})
		s.Require().NoError(err)
		_, err = s.svc.RevokeAccess(s.ctx, s.owner, s.passportID, coOwner.ID)
		s.Require().NoError(err)

		_, err = s.svc.Resolve(s.ctx, coOwner, s.passportID, itemID, proposed.Revision.ID, true)
		s.requireCode(err, dErrors.CodeForbidden)
	})
}

func (s *ServiceSuite) TestChildView() {
	s.addLove(s.owner, "Loves cars")
	hidden := s.addLove(s.owner, "Loves secrets").Item.ID
	_, err := s.svc.SetItemVisibility(s.ctx, s.owner, s.passportID, hidden, models.Visibility{Level: models.LevelPrivate})
	s.Require().NoError(err)
	unpublished := s.addLove(s.owner, "Loves drafts").Item.ID
	_, err = s.svc.SetPublished(s.ctx, s.owner, s.passportID, unpublished, false)
	s.Require().NoError(err)
	for section, text := range map[models.Section]string{
		models.SectionHates:     "Hates loud noises",
		models.SectionStrengths: "Great at drawing",
		models.SectionNeeds:     "Needs quiet time",
	} {
		_, err := s.svc.AddItem(s.ctx, s.owner, s.passportID, service.AddItemRequest{
			Section: section,
			Content: models.Content{Text: text},
		})
		s.Require().NoError(err)
	}
	_, err = s.svc.AddItem(s.ctx, s.contributor, s.passportID, service.AddItemRequest{
		Section: models.SectionStrengths,
		Content: models.Content{Text: "Kind to friends"},
	})
	s.Require().NoError(err)

	s.Run("only published loves and strengths by default", func() {
		view, err := s.svc.ChildView(s.ctx, s.viewer, s.passportID)
		s.Require().NoError(err)
		s.False(view.ChildViewHates)
		s.Len(view.Sections, 2)
		s.Require().Len(view.Sections[models.SectionLoves], 1)
		s.Equal("Loves cars", view.Sections[models.SectionLoves][0].Content.Text)
		s.Require().Len(view.Sections[models.SectionStrengths], 1)
		s.Equal("Great at drawing", view.Sections[models.SectionStrengths][0].Content.Text)
		s.Empty(view.Timeline)
		s.Nil(view.Stats)
		s.Nil(view.Members)
	})

	s.Run("the author's pending submission is left out", func() {
		view, err := s.svc.ChildView(s.ctx, s.contributor, s.passportID)
		s.Require().NoError(err)
		s.Len(view.Sections[models.SectionStrengths], 1)
		for _, item := range view.Sections[models.SectionStrengths] {
			s.Nil(item.Pending)
		}
	})

	s.Run("only owners change the settings", func() {
		_, err := s.svc.SetChildViewSettings(s.ctx, s.contributor, s.passportID, true)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("hates appear once enabled", func() {
		coOwner := s.grantCoOwner()
		p, err := s.svc.SetChildViewSettings(s.ctx, coOwner, s.passportID, true)
		s.Require().NoError(err)
		s.True(p.ChildViewHates)
		before := len(p.Revisions)
		p, err = s.svc.SetChildViewSettings(s.ctx, coOwner, s.passportID, true)
		s.Require().NoError(err)
		s.Len(p.Revisions, before, "unchanged settings are not recorded")

		view, err := s.svc.ChildView(s.ctx, s.viewer, s.passportID)
		s.Require().NoError(err)
		s.True(view.ChildViewHates)
		s.Require().Len(view.Sections[models.SectionHates], 1)
		s.Equal("Hates loud noises", view.Sections[models.SectionHates][0].Content.Text)
		_, ok := view.Sections[models.SectionNeeds]
		s.False(ok)
	})

	s.Run("outsiders are refused", func() {
		outsider := models.NewActor(id.UserID(uuid.New()), models.RoleViewer)
		_, err := s.svc.ChildView(s.ctx, outsider, s.passportID)
		s.requireCode(err, dErrors.CodeForbidden)
	})
}
