package visibility_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"passport/internal/passport/models"
	"passport/internal/passport/visibility"
	id "passport/pkg/domain"
)

type ResolverSuite struct {
	suite.Suite
	now         time.Time
	owner       models.Actor
	contributor models.Actor
	stranger    models.Actor
	viewer      models.Actor
	passport    *models.Passport
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.owner = models.NewActor(id.UserID(uuid.New()), models.RoleOwner)
	s.contributor = models.NewActor(id.UserID(uuid.New()), models.RoleContributor)
	s.stranger = models.NewActor(id.UserID(uuid.New()), models.RoleNone)
	s.viewer = models.NewActor(id.UserID(uuid.New()), models.RoleViewer)

	p, err := models.NewPassport(id.NewPassportID(), s.owner.ID, models.ChildProfile{Name: "Sam"}, models.DefaultPassportVisibility, s.now)
	s.Require().NoError(err)
	s.passport = p
}

func (s *ResolverSuite) item(author models.Actor, v models.Visibility) *models.ContentItem {
	item, _, err := models.NewItem(models.NewItemParams{
		ItemID:     id.NewItemID(),
		RevisionID: id.NewRevisionID(),
		PassportID: s.passport.ID,
		Section:    models.SectionStrengths,
		Content:    models.Content{Text: "Great at puzzles"},
		Visibility: v,
		Author:     author,
		Now:        s.now,
	})
	s.Require().NoError(err)
	return item
}

// published returns an owner-approved item originally authored by author.
func (s *ResolverSuite) published(author models.Actor, v models.Visibility) *models.ContentItem {
	item := s.item(author, v)
	if item.Pending != nil {
		_, err := item.Approve(s.owner, item.Pending.ID, s.now)
		s.Require().NoError(err)
	}
	return item
}

func (s *ResolverSuite) TestOwnerAlwaysSees() {
	for _, level := range []models.VisibilityLevel{models.LevelPrivate, models.LevelCustom, models.LevelRoles, models.LevelPublicLink} {
		item := s.published(s.contributor, models.Visibility{Level: level})
		s.True(visibility.CanView(s.owner, item, s.passport), string(level))

		_, err := item.SetPublished(id.NewRevisionID(), s.owner, false, s.now)
		s.Require().NoError(err)
		s.True(visibility.CanView(s.owner, item, s.passport), string(level))
	}
}

func (s *ResolverSuite) TestCoOwnerSeesLikeOwner() {
	coOwner := models.NewActor(id.UserID(uuid.New()), models.RoleCoOwner)
	s.Require().NoError(s.passport.GrantAccess(s.owner, coOwner.ID, models.RoleCoOwner, s.now))

	item := s.published(s.contributor, models.Visibility{Level: models.LevelPrivate})
	_, err := item.Propose(id.NewRevisionID(), s.contributor, models.Content{Text: "Great at chess"}, s.now)
	s.Require().NoError(err)
	s.True(visibility.CanView(coOwner, item, s.passport))
	s.True(visibility.CanSeePending(coOwner, item, s.passport))

	// The role alone is not enough without membership.
	impostor := models.NewActor(id.UserID(uuid.New()), models.RoleCoOwner)
	s.False(visibility.CanView(impostor, item, s.passport))
	s.False(visibility.CanSeePending(impostor, item, s.passport))
}

func (s *ResolverSuite) TestUnpublishedTakesPrecedence() {
	item := s.published(s.contributor, models.Visibility{Level: models.LevelPublicLink})
	s.True(visibility.CanView(s.stranger, item, s.passport))

	_, err := item.SetPublished(id.NewRevisionID(), s.owner, false, s.now)
	s.Require().NoError(err)

	s.False(visibility.CanView(s.stranger, item, s.passport))
	s.False(visibility.CanView(s.viewer, item, s.passport))
	s.True(visibility.CanView(s.contributor, item, s.passport), "author keeps access")
}

func (s *ResolverSuite) TestPendingFirstSubmission() {
	item := s.item(s.contributor, models.Visibility{Level: models.LevelPublicLink})

	s.True(visibility.CanView(s.contributor, item, s.passport))
	s.True(visibility.CanSeePending(s.contributor, item, s.passport))
	s.False(visibility.CanView(s.viewer, item, s.passport))
	s.False(visibility.CanSeePending(s.viewer, item, s.passport))
	s.True(visibility.CanSeePending(s.owner, item, s.passport))
}

func (s *ResolverSuite) TestLevels() {
	other := models.NewActor(id.UserID(uuid.New()), models.RoleContributor)

	s.Run("private", func() {
		item := s.published(s.contributor, models.Visibility{Level: models.LevelPrivate})
		s.False(visibility.CanView(s.contributor, item, s.passport), "creating the item grants no access once published")
		s.False(visibility.CanView(other, item, s.passport))

		_, err := item.Propose(id.NewRevisionID(), other, models.Content{Text: "Great at jigsaws"}, s.now)
		s.Require().NoError(err)
		s.True(visibility.CanView(other, item, s.passport), "pending author follows their submission")
		s.False(visibility.CanView(s.contributor, item, s.passport))
	})

	s.Run("roles", func() {
		item := s.published(s.owner, models.Visibility{
			Level:      models.LevelRoles,
			Roles:      []models.Role{models.RoleViewer},
			Identities: []id.UserID{other.ID},
		})
		s.True(visibility.CanView(s.viewer, item, s.passport))
		s.True(visibility.CanView(other, item, s.passport))
		s.False(visibility.CanView(s.contributor, item, s.passport))
		s.False(visibility.CanView(s.stranger, item, s.passport))
	})

	s.Run("custom", func() {
		item := s.published(s.owner, models.Visibility{
			Level:      models.LevelCustom,
			Identities: []id.UserID{s.viewer.ID},
		})
		s.True(visibility.CanView(s.viewer, item, s.passport))
		s.False(visibility.CanView(other, item, s.passport))
	})

	s.Run("public link", func() {
		item := s.published(s.owner, models.Visibility{Level: models.LevelPublicLink})
		s.True(visibility.CanView(s.stranger, item, s.passport))
	})

	s.Run("inherit follows the passport default", func() {
		item := s.published(s.owner, models.Visibility{})
		s.False(visibility.CanView(s.viewer, item, s.passport))

		s.Require().NoError(s.passport.SetDefaultVisibility(s.owner, models.Visibility{
			Level: models.LevelRoles,
			Roles: []models.Role{models.RoleViewer},
		}, s.now))
		s.True(visibility.CanView(s.viewer, item, s.passport))
	})
}

func (s *ResolverSuite) TestForeignItemIsInvisible() {
	item := s.published(s.owner, models.Visibility{Level: models.LevelPublicLink})
	item.PassportID = id.NewPassportID()
	s.False(visibility.CanView(s.owner, item, s.passport))
}

func (s *ResolverSuite) TestFilterPreservesOrder() {
	a := s.published(s.owner, models.Visibility{Level: models.LevelPublicLink})
	b := s.published(s.owner, models.Visibility{Level: models.LevelPrivate})
	c := s.published(s.owner, models.Visibility{Level: models.LevelPublicLink})

	got := visibility.Filter(s.stranger, []*models.ContentItem{a, b, c}, s.passport)
	s.Equal([]*models.ContentItem{a, c}, got)
}
