package notify

import (
	"context"

	"intraday_trader/internal/modules/config"
	"intraday_trader/internal/notify"
	"intraday_trader/internal/store"
	"intraday_trader/pkg/logger"

	"go.uber.org/fx"
)

type channels struct {
	fx.Out

	Telegram *notify.Telegram
	Notifier notify.Notifier
}

// newChannels always logs to stdout and adds Telegram and mail when configured.
func newChannels(cfg *config.Config) (channels, error) {
	multi := notify.Multi{notify.NewStdout()}

	var tg *notify.Telegram
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		var err error
		tg, err = notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return channels{}, err
		}
		multi = append(multi, tg)
	} else {
		logger.Warn("[NOTIFY] telegram not configured")
	}

	if cfg.Mail.Enabled {
		multi = append(multi, notify.NewMail(cfg.Mail))
	}
	return channels{Telegram: tg, Notifier: multi}, nil
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			newChannels,
		),
		fx.Invoke(
			func(lc fx.Lifecycle, tg *notify.Telegram, st store.Store, cfg *config.Config) {
				if tg == nil {
					return
				}
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						tg.Start(ctx, st, cfg.Trading.Symbol)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						return nil
					},
				})
			},
		),
	)
}
