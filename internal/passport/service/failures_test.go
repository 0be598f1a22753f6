package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"passport/internal/passport/models"
	"passport/internal/passport/service"
	"passport/internal/passport/service/mocks"
	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
	"passport/pkg/platform/sentinel"
)

// StoreFailureSuite drives the service against a mocked store to cover
// timeouts, cancellation, and lost compare-and-swap races.
type StoreFailureSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	notifier *mocks.MockNotifier
	svc      *service.Service

	owner       models.Actor
	contributor models.Actor
	passport    *models.Passport
	item        *models.ContentItem
}

func TestStoreFailureSuite(t *testing.T) {
	suite.Run(t, new(StoreFailureSuite))
}

func (s *StoreFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.svc = service.New(s.store,
		service.WithLogger(discardLogger()),
		service.WithNotifier(s.notifier),
		service.WithConfig(service.Config{
			StoreTimeout: 50 * time.Millisecond,
			LockTimeout:  100 * time.Millisecond,
		}),
	)

	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	s.owner = models.NewActor(id.UserID(uuid.New()), models.RoleOwner)
	s.contributor = models.NewActor(id.UserID(uuid.New()), models.RoleContributor)

	p, err := models.NewPassport(id.NewPassportID(), s.owner.ID, models.ChildProfile{Name: "Jo"}, models.Visibility{}, now)
	s.Require().NoError(err)
	s.Require().NoError(p.GrantAccess(s.owner, s.contributor.ID, models.RoleContributor, now))
	p.Version = 3
	s.passport = p

	item, _, err := models.NewItem(models.NewItemParams{
		ItemID:     id.NewItemID(),
		RevisionID: id.NewRevisionID(),
		PassportID: p.ID,
		Section:    models.SectionStrengths,
		Content:    models.Content{Text: "Kind to animals"},
		Author:     s.owner,
		Now:        now,
	})
	s.Require().NoError(err)
	item.Version = 7
	s.item = item
}

func (s *StoreFailureSuite) expectLoads(times int) {
	s.store.EXPECT().LoadPassport(gomock.Any(), s.passport.ID).
		DoAndReturn(func(context.Context, id.PassportID) (*models.Passport, error) {
			return s.passport.Clone(), nil
		}).Times(times)
	s.store.EXPECT().LoadItem(gomock.Any(), s.item.ID).
		DoAndReturn(func(context.Context, id.ItemID) (*models.ContentItem, error) {
			return s.item.Clone(), nil
		}).Times(times)
}

func (s *StoreFailureSuite) propose(ctx context.Context) error {
	_, err := s.svc.Propose(ctx, s.contributor, s.passport.ID, s.item.ID, models.Content{Text: "Patient with younger kids"})
	return err
}

func (s *StoreFailureSuite) TestSlowStoreIsTransient() {
	s.store.EXPECT().LoadPassport(gomock.Any(), s.passport.ID).
		DoAndReturn(func(context.Context, id.PassportID) (*models.Passport, error) {
			return s.passport.Clone(), nil
		}).AnyTimes()
	s.store.EXPECT().LoadItem(gomock.Any(), s.item.ID).
		DoAndReturn(func(ctx context.Context, _ id.ItemID) (*models.ContentItem, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	err := s.propose(context.Background())
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	s.True(dErrors.IsRetryable(err))
}

func (s *StoreFailureSuite) TestCallerCancellationIsTimeout() {
	ctx, cancel := context.WithCancel(context.Background())
	s.store.EXPECT().LoadPassport(gomock.Any(), s.passport.ID).
		DoAndReturn(func(context.Context, id.PassportID) (*models.Passport, error) {
			return s.passport.Clone(), nil
		}).AnyTimes()
	s.store.EXPECT().LoadItem(gomock.Any(), s.item.ID).
		DoAndReturn(func(ctx context.Context, _ id.ItemID) (*models.ContentItem, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		})

	err := s.propose(ctx)
	s.Equal(dErrors.CodeTimeout, dErrors.CodeOf(err))
	s.False(dErrors.IsRetryable(err))
}

func (s *StoreFailureSuite) TestUnavailableBackend() {
	s.expectLoads(1)
	s.store.EXPECT().SaveItem(gomock.Any(), gomock.Any(), int64(7)).
		Return(fmt.Errorf("redis: %w", sentinel.ErrUnavailable))

	err := s.propose(context.Background())
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

func (s *StoreFailureSuite) TestLostRaceIsRetried() {
	s.expectLoads(2)
	gomock.InOrder(
		s.store.EXPECT().SaveItem(gomock.Any(), gomock.Any(), int64(7)).Return(sentinel.ErrVersionMismatch),
		s.store.EXPECT().SaveItem(gomock.Any(), gomock.Any(), int64(7)).
			DoAndReturn(func(_ context.Context, item *models.ContentItem, expected int64) error {
				item.Version = expected + 1
				return nil
			}),
	)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, t models.Transition) {
			s.Equal(models.TransitionProposed, t.Kind)
			s.Equal(s.item.ID, t.ItemID)
			s.Equal(models.StatePendingReview, t.State)
		})

	s.Require().NoError(s.propose(context.Background()))
}

func (s *StoreFailureSuite) TestPersistentRaceIsConflict() {
	s.expectLoads(3)
	s.store.EXPECT().SaveItem(gomock.Any(), gomock.Any(), int64(7)).
		Return(sentinel.ErrVersionMismatch).Times(3)

	err := s.propose(context.Background())
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
}

func (s *StoreFailureSuite) TestDomainErrorsSkipTheStore() {
	s.expectLoads(1)
	// no SaveItem and no Notify expected
	_, err := s.svc.Approve(context.Background(), s.owner, s.passport.ID, s.item.ID, id.NewRevisionID())
	s.Equal(dErrors.CodeNotPending, dErrors.CodeOf(err))
}

func (s *StoreFailureSuite) TestItemFromAnotherPassportIsNotFound() {
	other := s.item.Clone()
	other.PassportID = id.NewPassportID()
	s.store.EXPECT().LoadPassport(gomock.Any(), s.passport.ID).Return(s.passport.Clone(), nil)
	s.store.EXPECT().LoadItem(gomock.Any(), s.item.ID).Return(other, nil)

	err := s.propose(context.Background())
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *StoreFailureSuite) TestMissingPassport() {
	s.store.EXPECT().LoadPassport(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

	_, err := s.svc.ListPending(context.Background(), s.owner, id.NewPassportID())
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}
