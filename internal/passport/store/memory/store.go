// Package memory is an in-process passport store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"passport/internal/passport/models"
	id "passport/pkg/domain"
	"passport/pkg/platform/sentinel"
)

// Store keeps passports and items in maps guarded by one RWMutex. Records are
// cloned on the way in and out so callers never share state with the store.
type Store struct {
	mu        sync.RWMutex
	passports map[id.PassportID]*models.Passport
	items     map[id.ItemID]*models.ContentItem
}

func New() *Store {
	return &Store{
		passports: make(map[id.PassportID]*models.Passport),
		items:     make(map[id.ItemID]*models.ContentItem),
	}
}

func (s *Store) CreatePassport(ctx context.Context, p *models.Passport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.passports[p.ID]; ok {
		return fmt.Errorf("create passport %s: %w", p.ID, sentinel.ErrAlreadyExists)
	}
	p.Version = 1
	s.passports[p.ID] = p.Clone()
	return nil
}

func (s *Store) LoadPassport(ctx context.Context, passportID id.PassportID) (*models.Passport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passports[passportID]
	if !ok {
		return nil, fmt.Errorf("passport %s: %w", passportID, sentinel.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *Store) SavePassport(ctx context.Context, p *models.Passport, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPassport(p.ID, expectedVersion); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	s.passports[p.ID] = p.Clone()
	return nil
}

func (s *Store) LoadItem(ctx context.Context, itemID id.ItemID) (*models.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, sentinel.ErrNotFound)
	}
	return item.Clone(), nil
}

func (s *Store) SaveItem(ctx context.Context, item *models.ContentItem, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[item.ID]
	if !ok {
		return fmt.Errorf("item %s: %w", item.ID, sentinel.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("item %s at version %d, expected %d: %w", item.ID, current.Version, expectedVersion, sentinel.ErrVersionMismatch)
	}
	item.Version = expectedVersion + 1
	s.items[item.ID] = item.Clone()
	return nil
}

// AddItem inserts item and saves p under a single lock acquisition.
func (s *Store) AddItem(ctx context.Context, p *models.Passport, expectedVersion int64, item *models.ContentItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPassport(p.ID, expectedVersion); err != nil {
		return err
	}
	if _, ok := s.items[item.ID]; ok {
		return fmt.Errorf("item %s: %w", item.ID, sentinel.ErrAlreadyExists)
	}
	item.Version = 1
	p.Version = expectedVersion + 1
	s.items[item.ID] = item.Clone()
	s.passports[p.ID] = p.Clone()
	return nil
}

func (s *Store) checkPassport(passportID id.PassportID, expectedVersion int64) error {
	current, ok := s.passports[passportID]
	if !ok {
		return fmt.Errorf("passport %s: %w", passportID, sentinel.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("passport %s at version %d, expected %d: %w", passportID, current.Version, expectedVersion, sentinel.ErrVersionMismatch)
	}
	return nil
}
