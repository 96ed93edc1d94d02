package postgres

import (
	"context"
	"fmt"
	"time"

	"intraday_trader/internal/modules/config"
	"intraday_trader/internal/store"
	"intraday_trader/internal/store/memory"
	"intraday_trader/internal/store/pg"
	"intraday_trader/pkg/db"
	"intraday_trader/pkg/logger"

	"go.uber.org/fx"
)

// NewStore opens the ledger selected by db_driver. The postgres pool is
// closed when the app stops.
func NewStore(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (store.Store, error) {
	if cfg.DBDriver == "memory" {
		logger.Warn("[DB] using in-memory ledger, positions do not survive a restart")
		return memory.New(), nil
	}

	tm, err := db.Open(ctx, db.PoolConfig{
		DSN:         cfg.DB,
		MaxConns:    4,
		HealthCheck: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	lc.Append(fx.StopHook(tm.Close))

	repo := pg.New(tm)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	logger.Info("[DB] postgres ledger ready")
	return repo, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewStore,
		),
	)
}
