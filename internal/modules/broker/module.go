package broker

import (
	"context"
	"fmt"
	"time"

	"intraday_trader/internal/broker"
	"intraday_trader/internal/broker/kite"
	"intraday_trader/internal/broker/paper"
	"intraday_trader/internal/modules/config"
	healthsvc "intraday_trader/internal/modules/health/service"
	"intraday_trader/pkg/logger"

	"go.uber.org/fx"
)

// NewBroker builds the Kite client, streams quotes when use_ticker is set and
// wraps the client in the paper broker in paper mode.
func NewBroker(lc fx.Lifecycle, cfg *config.Config, health *healthsvc.State) (broker.Broker, error) {
	loc, err := time.LoadLocation(cfg.Session.Timezone)
	if err != nil {
		return nil, fmt.Errorf("broker timezone %q: %w", cfg.Session.Timezone, err)
	}
	client := kite.NewClient(cfg.Broker).WithLocation(loc)

	if cfg.Broker.UseTicker {
		t, err := kite.NewTicker(cfg.Broker.TickerURL, cfg.Broker.APIKey, cfg.Broker.AccessToken, cfg.Trading.InstrumentTok)
		if err != nil {
			return nil, err
		}
		t.OnConnState = health.SetWSConnected
		client.WithTicker(t)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					defer close(done)
					t.Run(ctx)
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
				case <-stopCtx.Done():
				}
				return nil
			},
		})
	}

	if cfg.Broker.Mode == "paper" {
		logger.Warn("[BROKER] paper mode: orders are simulated")
		return paper.New(client), nil
	}
	return client, nil
}

func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			NewBroker,
		),
	)
}
