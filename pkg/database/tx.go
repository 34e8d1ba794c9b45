package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx shared by the pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txKey struct{}

// WithTx stores tx in ctx so repositories called with ctx join it.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// Conn returns the transaction in ctx, or the pool when there is none.
func (db *DB) Conn(ctx context.Context) Querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db.Pool
}

// InTx runs fn inside a transaction. It commits when fn returns nil and rolls
// back otherwise. A ctx that already carries a transaction is reused as is.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EntityLockKey is the advisory lock key for one scored entity.
func EntityLockKey(model, foreignKey string) string {
	return model + "/" + foreignKey
}

// InEntityTx runs fn in a transaction holding a transaction-scoped advisory
// lock for (model, foreignKey). Writers for the same entity run one at a time;
// different entities do not block each other.
func (db *DB) InEntityTx(ctx context.Context, model, foreignKey string, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, func(ctx context.Context) error {
		if _, err := db.Conn(ctx).Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			EntityLockKey(model, foreignKey),
		); err != nil {
			return fmt.Errorf("failed to lock %s/%s: %w", model, foreignKey, err)
		}
		return fn(ctx)
	})
}
