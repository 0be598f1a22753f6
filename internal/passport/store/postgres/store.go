// Package postgres persists passports and content items in PostgreSQL.
//
// Each record is one row holding its JSON document and a version column.
// Saves are conditional UPDATEs on that version, so a writer that loaded a
// stale copy gets sentinel.ErrVersionMismatch and the service retries.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"passport/internal/passport/models"
	id "passport/pkg/domain"
	"passport/pkg/platform/sentinel"
	txcontext "passport/pkg/platform/tx"
)

// Schema creates the tables the store expects. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS passports (
	id         UUID PRIMARY KEY,
	owner_id   UUID NOT NULL,
	version    BIGINT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS passport_items (
	id          UUID PRIMARY KEY,
	passport_id UUID NOT NULL REFERENCES passports (id) ON DELETE CASCADE,
	state       TEXT NOT NULL,
	version     BIGINT NOT NULL,
	data        JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS passport_items_passport_state_idx ON passport_items (passport_id, state);
`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate passport schema: %w", classify(err))
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) CreatePassport(ctx context.Context, p *models.Passport) error {
	p.Version = 1
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode passport: %w", err)
	}
	query := `
		INSERT INTO passports (id, owner_id, version, data, updated_at)
		VALUES ($1, $2, 1, $3, $4)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query, uuid.UUID(p.ID), uuid.UUID(p.OwnerID), data, p.UpdatedAt)
	if err != nil {
		p.Version = 0
		return fmt.Errorf("create passport %s: %w", p.ID, classify(err))
	}
	return nil
}

func (s *Store) LoadPassport(ctx context.Context, passportID id.PassportID) (*models.Passport, error) {
	var (
		version int64
		data    []byte
	)
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT version, data FROM passports WHERE id = $1`,
		uuid.UUID(passportID),
	).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("passport %s: %w", passportID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load passport %s: %w", passportID, classify(err))
	}
	var p models.Passport
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode passport %s: %w", passportID, err)
	}
	p.Version = version
	return &p, nil
}

func (s *Store) SavePassport(ctx context.Context, p *models.Passport, expectedVersion int64) error {
	return s.savePassport(ctx, s.execer(ctx), p, expectedVersion)
}

func (s *Store) savePassport(ctx context.Context, exec dbExecutor, p *models.Passport, expectedVersion int64) error {
	next := *p
	next.Version = expectedVersion + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode passport: %w", err)
	}
	query := `
		UPDATE passports
		SET data = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $2
	`
	res, err := exec.ExecContext(ctx, query, uuid.UUID(p.ID), expectedVersion, data, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save passport %s: %w", p.ID, classify(err))
	}
	if err := s.checkUpdated(ctx, exec, res, "passports", uuid.UUID(p.ID), expectedVersion); err != nil {
		return fmt.Errorf("save passport %s: %w", p.ID, err)
	}
	p.Version = next.Version
	return nil
}

func (s *Store) LoadItem(ctx context.Context, itemID id.ItemID) (*models.ContentItem, error) {
	var (
		version int64
		data    []byte
	)
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT version, data FROM passport_items WHERE id = $1`,
		uuid.UUID(itemID),
	).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", itemID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load item %s: %w", itemID, classify(err))
	}
	var item models.ContentItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", itemID, err)
	}
	item.Version = version
	return &item, nil
}

func (s *Store) SaveItem(ctx context.Context, item *models.ContentItem, expectedVersion int64) error {
	exec := s.execer(ctx)
	next := *item
	next.Version = expectedVersion + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	query := `
		UPDATE passport_items
		SET data = $3, state = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $2
	`
	res, err := exec.ExecContext(ctx, query, uuid.UUID(item.ID), expectedVersion, data, string(item.State), item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save item %s: %w", item.ID, classify(err))
	}
	if err := s.checkUpdated(ctx, exec, res, "passport_items", uuid.UUID(item.ID), expectedVersion); err != nil {
		return fmt.Errorf("save item %s: %w", item.ID, err)
	}
	item.Version = next.Version
	return nil
}

// AddItem inserts item and bumps the passport in one transaction. When the
// passport version moved, neither row is written.
func (s *Store) AddItem(ctx context.Context, p *models.Passport, expectedVersion int64, item *models.ContentItem) error {
	return s.runInTx(ctx, func(ctx context.Context) error {
		exec := s.execer(ctx)
		if err := s.savePassport(ctx, exec, p, expectedVersion); err != nil {
			p.Version = expectedVersion
			return err
		}
		stored := *item
		stored.Version = 1
		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("encode item: %w", err)
		}
		query := `
			INSERT INTO passport_items (id, passport_id, state, version, data, updated_at)
			VALUES ($1, $2, $3, 1, $4, $5)
		`
		_, err = exec.ExecContext(ctx, query, uuid.UUID(item.ID), uuid.UUID(item.PassportID), string(item.State), data, item.UpdatedAt)
		if err != nil {
			p.Version = expectedVersion
			return fmt.Errorf("insert item %s: %w", item.ID, classify(err))
		}
		item.Version = 1
		return nil
	})
}

func (s *Store) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn, txcontext.WithErrorMapper(classify))
}

// checkUpdated tells a lost race apart from a missing row when a
// conditional UPDATE touched nothing.
func (s *Store) checkUpdated(ctx context.Context, exec dbExecutor, res sql.Result, table string, rowID uuid.UUID, expected int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 1 {
		return nil
	}
	var current int64
	err = exec.QueryRowContext(ctx, `SELECT version FROM `+table+` WHERE id = $1`, rowID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return classify(err)
	}
	return fmt.Errorf("at version %d, expected %d: %w", current, expected, sentinel.ErrVersionMismatch)
}
