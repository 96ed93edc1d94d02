package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TxManager hands out transactions for ledger writes and a pooled
// connection for reads outside a transaction.
type TxManager interface {
	RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error
	Conn() Querier
	Ping(ctx context.Context) error
	Close()
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
