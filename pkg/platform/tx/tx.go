// Package tx carries a SQL transaction on the context so stores called inside
// Run share it.
package tx

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const DefaultTimeout = 5 * time.Second

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Beginner starts transactions. *sql.DB satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type runConfig struct {
	timeout  time.Duration
	mapError func(error) error
}

type Option func(*runConfig)

// WithTimeout bounds the transaction when ctx carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithErrorMapper translates driver errors from begin and commit.
func WithErrorMapper(fn func(error) error) Option {
	return func(c *runConfig) {
		if fn != nil {
			c.mapError = fn
		}
	}
}

// Run executes fn inside a transaction and commits when fn succeeds. If ctx
// already carries a transaction, fn joins it and Run neither begins nor
// commits.
func Run(ctx context.Context, db Beginner, fn func(ctx context.Context) error, opts ...Option) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	cfg := runConfig{timeout: DefaultTimeout, mapError: func(err error) error { return err }}
	for _, opt := range opts {
		opt(&cfg)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", cfg.mapError(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", cfg.mapError(err))
	}
	return nil
}
