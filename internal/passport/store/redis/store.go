// Package redis persists passports and content items in Redis hashes.
//
// Every record lives under its own key with two fields: "version" and "data"
// (the JSON document). Writes run inside WATCH/MULTI so a concurrent writer
// aborts the transaction and the store reports sentinel.ErrVersionMismatch.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"passport/internal/passport/models"
	id "passport/pkg/domain"
	"passport/pkg/platform/sentinel"
)

const (
	defaultPrefix = "passport"

	fieldVersion = "version"
	fieldData    = "data"
)

type Store struct {
	client redis.UniversalClient
	prefix string
}

type Option func(*Store)

// WithKeyPrefix namespaces every key, e.g. "staging:passport".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) passportKey(passportID id.PassportID) string {
	return s.prefix + ":p:" + passportID.String()
}

func (s *Store) itemKey(itemID id.ItemID) string {
	return s.prefix + ":i:" + itemID.String()
}

func (s *Store) CreatePassport(ctx context.Context, p *models.Passport) error {
	key := s.passportKey(p.ID)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return sentinel.ErrAlreadyExists
		}
		data, err := encode(p, 1)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldVersion, 1, fieldData, data)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("create passport %s: %w", p.ID, err)
	}
	p.Version = 1
	return nil
}

func (s *Store) LoadPassport(ctx context.Context, passportID id.PassportID) (*models.Passport, error) {
	var p models.Passport
	if err := s.load(ctx, s.client, s.passportKey(passportID), &p, &p.Version); err != nil {
		return nil, fmt.Errorf("passport %s: %w", passportID, err)
	}
	return &p, nil
}

func (s *Store) SavePassport(ctx context.Context, p *models.Passport, expectedVersion int64) error {
	key := s.passportKey(p.ID)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, key, expectedVersion); err != nil {
			return err
		}
		data, err := encode(p, expectedVersion+1)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldVersion, expectedVersion+1, fieldData, data)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("save passport %s: %w", p.ID, err)
	}
	p.Version = expectedVersion + 1
	return nil
}

func (s *Store) LoadItem(ctx context.Context, itemID id.ItemID) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.load(ctx, s.client, s.itemKey(itemID), &item, &item.Version); err != nil {
		return nil, fmt.Errorf("item %s: %w", itemID, err)
	}
	return &item, nil
}

func (s *Store) SaveItem(ctx context.Context, item *models.ContentItem, expectedVersion int64) error {
	key := s.itemKey(item.ID)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, key, expectedVersion); err != nil {
			return err
		}
		data, err := encode(item, expectedVersion+1)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldVersion, expectedVersion+1, fieldData, data)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("save item %s: %w", item.ID, err)
	}
	item.Version = expectedVersion + 1
	return nil
}

// AddItem writes the new item and the passport in one MULTI block while
// watching both keys.
func (s *Store) AddItem(ctx context.Context, p *models.Passport, expectedVersion int64, item *models.ContentItem) error {
	pKey, iKey := s.passportKey(p.ID), s.itemKey(item.ID)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, pKey, expectedVersion); err != nil {
			return err
		}
		exists, err := tx.Exists(ctx, iKey).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return sentinel.ErrAlreadyExists
		}
		pData, err := encode(p, expectedVersion+1)
		if err != nil {
			return err
		}
		iData, err := encode(item, 1)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, pKey, fieldVersion, expectedVersion+1, fieldData, pData)
			pipe.HSet(ctx, iKey, fieldVersion, 1, fieldData, iData)
			return nil
		})
		return err
	}, pKey, iKey)
	if err != nil {
		return fmt.Errorf("add item %s to passport %s: %w", item.ID, p.ID, err)
	}
	p.Version = expectedVersion + 1
	item.Version = 1
	return nil
}

func (s *Store) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	err := s.client.Watch(ctx, fn, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrVersionMismatch
	}
	return classify(err)
}

func (s *Store) load(ctx context.Context, c redis.Cmdable, key string, into any, version *int64) error {
	fields, err := c.HMGet(ctx, key, fieldVersion, fieldData).Result()
	if err != nil {
		return classify(err)
	}
	rawVersion, ok := fields[0].(string)
	rawData, okData := fields[1].(string)
	if !ok || !okData {
		return sentinel.ErrNotFound
	}
	if err := json.Unmarshal([]byte(rawData), into); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	v, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("decode version: %w", err)
	}
	*version = v
	return nil
}

func checkVersion(ctx context.Context, tx *redis.Tx, key string, expected int64) error {
	current, err := tx.HGet(ctx, key, fieldVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return err
	}
	if current != expected {
		return fmt.Errorf("at version %d, expected %d: %w", current, expected, sentinel.ErrVersionMismatch)
	}
	return nil
}

// encode marshals a record with its version field set to next.
func encode(record any, next int64) (string, error) {
	var (
		b   []byte
		err error
	)
	switch r := record.(type) {
	case *models.Passport:
		c := *r
		c.Version = next
		b, err = json.Marshal(&c)
	case *models.ContentItem:
		c := *r
		c.Version = next
		b, err = json.Marshal(&c)
	default:
		return "", fmt.Errorf("unsupported record %T", record)
	}
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return string(b), nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, s := range []error{sentinel.ErrNotFound, sentinel.ErrAlreadyExists, sentinel.ErrVersionMismatch} {
		if errors.Is(err, s) {
			return err
		}
	}
	var netErr net.Error
	if errors.Is(err, redis.ErrClosed) || errors.As(err, &netErr) || strings.HasPrefix(err.Error(), "LOADING") {
		return fmt.Errorf("%v: %w", err, sentinel.ErrUnavailable)
	}
	return err
}
