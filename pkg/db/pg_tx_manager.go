package db

import (
	"context"
	"time"

	"intraday_trader/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type PoolConfig struct {
	DSN      string
	MaxConns int32
	// HealthCheck is how often idle connections are verified; zero keeps the pgx default.
	HealthCheck time.Duration
}

type PgTxManager struct {
	poolMaster *pgxpool.Pool
}

var _ TxManager = (*PgTxManager)(nil)

func NewPgTxManager(poolMaster *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{
		poolMaster: poolMaster,
	}
}

// Open creates the pool and checks the database is reachable.
func Open(ctx context.Context, conf PoolConfig) (*PgTxManager, error) {
	pool, err := NewPool(ctx, conf)
	if err != nil {
		return nil, err
	}
	tm := NewPgTxManager(pool)
	if err := tm.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return tm, nil
}

func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(conf.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	if conf.MaxConns > 0 {
		pc.MaxConns = conf.MaxConns
	}
	if conf.HealthCheck > 0 {
		pc.HealthCheckPeriod = conf.HealthCheck
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	return pool, nil
}

func (m *PgTxManager) Ping(ctx context.Context) error {
	return errors.Wrap(m.poolMaster.Ping(ctx), "ping")
}

func (m *PgTxManager) Close() {
	m.poolMaster.Close()
}

func (m *PgTxManager) Conn() Querier {
	return m.poolMaster
}

// RunMaster runs fn in a read-committed transaction on the primary.
func (m *PgTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	return m.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// inTx commits when fn succeeds and rolls back on error or panic. A panic is re-raised after the rollback.
func (m *PgTxManager) inTx(ctx context.Context, options pgx.TxOptions, fn func(ctxTx context.Context, tx pgx.Tx) error) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "db.tx")
	defer func() {
		if err != nil {
			ext.Error.Set(span, true)
			span.LogKV("error", err.Error())
		}
		span.Finish()
	}()

	tx, err := m.poolMaster.BeginTx(ctx, options)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	defer func() {
		if p := recover(); p != nil {
			logger.L().Error("panic in tx", zap.Any("panic", p))
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.L().Warn("rollback failed", zap.Error(rbErr))
			}
			return
		}
		err = errors.Wrap(tx.Commit(ctx), "commit tx")
	}()

	return fn(ctx, tx)
}
