package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX - общее подмножество pgxpool.Pool и pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// conn возвращает транзакцию из контекста, если она есть
func conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

type PgTransactor struct {
	db *pgxpool.Pool
}

func NewPgTransactor(db *pgxpool.Pool) *PgTransactor {
	return &PgTransactor{
		db: db,
	}
}

func (t *PgTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// вложенный вызов переиспользует внешнюю транзакцию
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx, hooks := WithCommitHooks(context.WithValue(ctx, txKey{}, tx))
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	hooks.Run(ctx)
	return nil
}
