package strategy

import (
	"intraday_trader/internal/modules/config"
	"intraday_trader/internal/strategy"
	"intraday_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			func(cfg *config.Config) (strategy.Evaluator, error) {
				ev, err := strategy.NewEvaluator(cfg.StrategyConfig())
				if err != nil {
					return nil, err
				}
				logger.Info("[STRAT] evaluator %s, lookback %d", ev.Name(), ev.Lookback())
				return ev, nil
			},
		),
	)
}
