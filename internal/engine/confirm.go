package engine

import (
	"context"
	"fmt"
	"time"

	"intraday_trader/internal/helper"
	"intraday_trader/internal/models"
	"intraday_trader/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// Confirmation is a confirmed breakout: the price to place the limit order at
// and what is left of the window, in whole minutes, as the order TTL.
type Confirmation struct {
	Price     float64
	TTL       int
	Remaining time.Duration
}

// MaxWait is the confirmation window for the entry timeframe.
func (e *Engine) MaxWait() time.Duration {
	return helper.ScaleMinutes(e.cfg.EntryTimeFrame, e.cfg.ConfirmWindowFactor)
}

// confirmEntry samples the live price until it trades through candidate in
// the direction of side or the window runs out. A long confirms on high > candidate,
// a short on low < candidate. The price is snapped to the tick size away from the candidate.
func (e *Engine) confirmEntry(ctx context.Context, side models.Side, candidate float64) (Confirmation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.confirm")
	defer span.Finish()

	e.setState(StateConfirming)
	start := e.clock.Now()
	deadline := start.Add(e.MaxWait())
	logger.Info("[CONFIRM] %s %s: waiting for break of %s until %s",
		e.cfg.Instrument.Symbol, side, helper.FormatPrice(candidate), deadline.Format("15:04:05"))

	for {
		s, err := e.broker.GetRecentPrice(ctx, e.cfg.Instrument)
		if err != nil {
			return Confirmation{}, fmt.Errorf("confirm: %w", err)
		}
		now := e.clock.Now()
		if !now.Before(deadline) {
			break
		}

		var (
			price float64
			hit   bool
		)
		switch side {
		case models.SideBuy:
			if s.High > candidate {
				price, hit = helper.RoundUpToTick(s.High, e.cfg.TickSize), true
			}
		case models.SideSell:
			if s.Low < candidate {
				price, hit = helper.RoundDownToTick(s.Low, e.cfg.TickSize), true
			}
		}
		if hit {
			remaining := deadline.Sub(now)
			confirmations.WithLabelValues("confirmed").Inc()
			logger.Info("[CONFIRM] %s %s: break at %s after %s",
				e.cfg.Instrument.Symbol, side, helper.FormatPrice(price), now.Sub(start).Round(time.Second))
			return Confirmation{Price: price, TTL: helper.WholeMinutes(remaining), Remaining: remaining}, nil
		}

		if err := e.clock.Sleep(ctx, e.cfg.ConfirmPollInterval); err != nil {
			return Confirmation{}, err
		}
	}

	confirmations.WithLabelValues("timeout").Inc()
	span.SetTag("confirmed", false)
	return Confirmation{}, ErrEntryNotConfirmed
}
