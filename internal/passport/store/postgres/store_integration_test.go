//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"passport/internal/passport/models"
	"passport/internal/passport/store/postgres"
	id "passport/pkg/domain"
	"passport/pkg/platform/sentinel"
	"passport/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	owner    models.Actor
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "passport_items", "passports"))
	s.owner = models.NewActor(id.UserID(uuid.New()), models.RoleOwner)
	s.now = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) newPassport(ctx context.Context) *models.Passport {
	p, err := models.NewPassport(id.NewPassportID(), s.owner.ID, models.ChildProfile{Name: "Sam"}, models.Visibility{}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreatePassport(ctx, p))
	return p
}

func (s *PostgresStoreSuite) newItem(p *models.Passport, text string) *models.ContentItem {
	item, _, err := models.NewItem(models.NewItemParams{
		ItemID:     id.NewItemID(),
		RevisionID: id.NewRevisionID(),
		PassportID: p.ID,
		Section:    models.SectionNeeds,
		Content:    models.Content{Text: text},
		Author:     s.owner,
		Now:        s.now,
	})
	s.Require().NoError(err)
	return item
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	p := s.newPassport(ctx)
	s.Equal(int64(1), p.Version)
	s.ErrorIs(s.store.CreatePassport(ctx, p), sentinel.ErrAlreadyExists)

	item := s.newItem(p, "Needs a quiet corner after lunch")
	expected := p.Version
	_, err := p.AttachItem(item, s.owner.ID, 0, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddItem(ctx, p, expected, item))
	s.Equal(int64(2), p.Version)
	s.Equal(int64(1), item.Version)

	loaded, err := s.store.LoadPassport(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), loaded.Version)
	s.Equal([]id.ItemID{item.ID}, loaded.Sections[models.SectionNeeds])
	s.Equal(models.RoleOwner, loaded.RoleOf(s.owner.ID))

	loadedItem, err := s.store.LoadItem(ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(item.Content, loadedItem.Content)
	s.Equal(item.Ledger.Len(), loadedItem.Ledger.Len())
	s.Equal(models.StatePublished, loadedItem.State)
}

func (s *PostgresStoreSuite) TestMissingRecords() {
	ctx := context.Background()
	_, err := s.store.LoadPassport(ctx, id.NewPassportID())
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.LoadItem(ctx, id.NewItemID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	p, err := models.NewPassport(id.NewPassportID(), s.owner.ID, models.ChildProfile{Name: "Ghost"}, models.Visibility{}, s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.SavePassport(ctx, p, 1), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestStaleAddItemWritesNothing() {
	ctx := context.Background()
	p := s.newPassport(ctx)
	stale := p.Clone()

	first := s.newItem(p, "First")
	_, err := p.AttachItem(first, s.owner.ID, 0, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddItem(ctx, p, 1, first))

	second := s.newItem(stale, "Second")
	_, err = stale.AttachItem(second, s.owner.ID, 0, s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.AddItem(ctx, stale, 1, second), sentinel.ErrVersionMismatch)
	s.Equal(int64(1), stale.Version)

	_, err = s.store.LoadItem(ctx, second.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentItemSavesOnlyOneWins() {
	ctx := context.Background()
	p := s.newPassport(ctx)
	item := s.newItem(p, "Likes trains")
	_, err := p.AttachItem(item, s.owner.ID, 0, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddItem(ctx, p, 1, item))

	const writers = 20
	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		mismatch atomic.Int32
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loaded, err := s.store.LoadItem(ctx, item.ID)
			if err != nil {
				return
			}
			if err := s.store.SaveItem(ctx, loaded, 1); err == nil {
				wins.Add(1)
			} else {
				mismatch.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(writers-1), mismatch.Load())

	stored, err := s.store.LoadItem(ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), stored.Version)
}
