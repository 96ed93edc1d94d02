package main

import (
	"context"

	"intraday_trader/internal/engine"
	"intraday_trader/internal/modules/broker"
	"intraday_trader/internal/modules/config"
	"intraday_trader/internal/modules/health"
	"intraday_trader/internal/modules/notify"
	"intraday_trader/internal/modules/postgres"
	"intraday_trader/internal/modules/strategy"
	"intraday_trader/pkg/logger"
	"intraday_trader/pkg/tracing"

	"go.uber.org/fx"
)

// initObservability is invoked from the first module so later constructors log through zap.
func initObservability(lc fx.Lifecycle, cfg *config.Config, tc config.Tracing) error {
	logger.SetServiceName(cfg.Service.Name)
	tracing.SetServiceName(cfg.Service.Name)
	if err := logger.Init(cfg.Service.LogLevel); err != nil {
		return err
	}

	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled:    tc.Enabled,
		Host:       tc.Host,
		Port:       tc.Port,
		SampleRate: tc.SampleRate,
		Tags: map[string]string{
			"symbol":   cfg.Trading.Symbol,
			"exchange": cfg.Trading.Exchange,
			"broker":   cfg.Broker.Mode,
		},
	})
	if err != nil {
		return err
	}

	logger.Info("[MAIN] %s:%s entry=%dm exit=%dm qty=%d broker=%s db=%s",
		cfg.Trading.Exchange, cfg.Trading.Symbol,
		cfg.Trading.EntryTimeFrame, cfg.Trading.ExitTimeFrame, cfg.Trading.Quantity,
		cfg.Broker.Mode, cfg.DBDriver)

	lc.Append(fx.StopHook(func() {
		closeTracer()
		logger.Sync()
	}))
	return nil
}

func main() {
	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Module("observability", fx.Invoke(initObservability)),
		health.Module(),
		postgres.Module(),
		broker.Module(),
		strategy.Module(),
		notify.Module(),
		engine.Module(),
	)
	app.Run()
}
