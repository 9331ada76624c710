// Package postgres implements repository.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yieldland/production-core/internal/repository"
)

// dbtx is the query surface shared by the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ops implements every entity operation against a dbtx, so the same code
// serves both the base store and transactions.
type ops struct {
	q dbtx
}

// Store implements repository.Store
type Store struct {
	ops
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL-backed store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{ops: ops{q: pool}, pool: pool}
}

// Tx implements repository.Tx
type Tx struct {
	ops
	tx pgx.Tx
}

// BeginTx starts a new transaction
func (s *Store) BeginTx(ctx context.Context) (repository.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{ops: ops{q: tx}, tx: tx}, nil
}

// Commit commits the transaction
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
