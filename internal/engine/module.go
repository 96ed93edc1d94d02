package engine

import (
	"context"
	"time"

	"intraday_trader/internal/broker"
	"intraday_trader/internal/modules/config"
	healthsvc "intraday_trader/internal/modules/health/service"
	"intraday_trader/internal/notify"
	"intraday_trader/internal/session"
	"intraday_trader/internal/store"
	"intraday_trader/internal/strategy"
	"intraday_trader/pkg/logger"

	"go.uber.org/fx"
)

type params struct {
	fx.In

	Config   *config.Config
	Broker   broker.Broker
	Store    store.Store
	Eval     strategy.Evaluator
	Notifier notify.Notifier
	Clock    session.Clock
	Gate     *session.Gate
	Health   *healthsvc.State
}

func newEngine(p params) *Engine {
	return New(SettingsFromConfig(p.Config), Deps{
		Broker:   p.Broker,
		Store:    p.Store,
		Eval:     p.Eval,
		Notifier: p.Notifier,
		Clock:    p.Clock,
		Gate:     p.Gate,
		Observer: p.Health,
	})
}

func newSupervisor(cfg *config.Config, e *Engine, n notify.Notifier, clock session.Clock, health *healthsvc.State) *Supervisor {
	s := NewSupervisor(e, n, clock, cfg.Supervisor.MaxRestarts, cfg.Supervisor.MinBackoff, cfg.Supervisor.MaxBackoff)
	s.OnRestart = health.AddRestart
	s.ResetAfter = time.Duration(cfg.Trading.EntryTimeFrame) * time.Minute
	return s
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			session.NewGate,
			func(g *session.Gate) session.Clock { return session.NewSystemClock(g.Location()) },
			newEngine,
			newSupervisor,
		),
		fx.Invoke(func(lc fx.Lifecycle, sup *Supervisor, health *healthsvc.State, shutdowner fx.Shutdowner) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					health.SetReady(true)
					go func() {
						defer close(done)
						exitCode := 0
						if err := sup.Run(ctx); err != nil {
							logger.Error("[LOOP] %v", err)
							exitCode = 1
						}
						if ctx.Err() == nil {
							logger.Info("[LOOP] session over, shutting down")
							_ = shutdowner.Shutdown(fx.ExitCode(exitCode))
						}
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					health.SetReady(false)
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
						return stopCtx.Err()
					}
					return nil
				},
			})
		}),
	)
}
