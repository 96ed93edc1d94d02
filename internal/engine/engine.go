package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"intraday_trader/internal/broker"
	"intraday_trader/internal/models"
	"intraday_trader/internal/modules/config"
	"intraday_trader/internal/notify"
	"intraday_trader/internal/session"
	"intraday_trader/internal/store"
	"intraday_trader/internal/strategy"
	"intraday_trader/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

var (
	ErrEntryNotConfirmed        = errors.New("entry not confirmed")
	ErrOrderRejectedOrCancelled = errors.New("order rejected or cancelled")
)

// Settings is the part of the configuration the engine reads.
type Settings struct {
	Instrument models.Instrument
	Product    string
	Quantity   int
	TickSize   float64

	EntryTimeFrame int // minutes
	ExitTimeFrame  int // minutes
	HistoryDays    int

	ConfirmWindowFactor float64
	ConfirmPollInterval time.Duration
	StatusPollInterval  time.Duration
	IdleRecheck         time.Duration
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Instrument: models.Instrument{
			Symbol:   cfg.Trading.Symbol,
			Exchange: cfg.Trading.Exchange,
			Token:    cfg.Trading.InstrumentTok,
		},
		Product:             cfg.Trading.Product,
		Quantity:            cfg.Trading.Quantity,
		TickSize:            cfg.Trading.TickSize,
		EntryTimeFrame:      cfg.Trading.EntryTimeFrame,
		ExitTimeFrame:       cfg.Trading.ExitTimeFrame,
		HistoryDays:         cfg.Trading.HistoryDays,
		ConfirmWindowFactor: cfg.Trading.ConfirmWindowFactor,
		ConfirmPollInterval: cfg.Trading.ConfirmPollInterval,
		StatusPollInterval:  cfg.Trading.StatusPollInterval,
		IdleRecheck:         cfg.Session.IdleRecheck,
	}
}

// Gate is the market calendar as seen by the loop.
type Gate interface {
	Status(now time.Time) session.MarketStatus
	IsTradingTime(now time.Time) bool
	// NextBoundary is the next candle close after now for the interval.
	NextBoundary(now time.Time, interval time.Duration) time.Time
}

// Observer receives loop progress, e.g. for health probes.
type Observer interface {
	SetEngineState(state string)
	TouchTick(t time.Time, outcome string)
}

// Engine drives one instrument through entry and exit decisions.
// Every decision runs to a terminal order state before the next one starts.
type Engine struct {
	cfg      Settings
	broker   broker.Broker
	store    store.Store
	eval     strategy.Evaluator
	notifier notify.Notifier
	clock    session.Clock
	gate     Gate
	observer Observer

	state   atomic.Int32
	started atomic.Bool

	// pending is the candle analyzed during the current tick. Only Tick touches it.
	pending *models.CandleSnapshot
}

type Deps struct {
	Broker   broker.Broker
	Store    store.Store
	Eval     strategy.Evaluator
	Notifier notify.Notifier
	Clock    session.Clock
	Gate     Gate
	Observer Observer
}

func New(cfg Settings, d Deps) *Engine {
	if d.Clock == nil {
		d.Clock = session.SystemClock{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewStdout()
	}
	if cfg.ConfirmWindowFactor <= 0 {
		cfg.ConfirmWindowFactor = 2.8
	}
	if cfg.ConfirmPollInterval <= 0 {
		cfg.ConfirmPollInterval = time.Second
	}
	if cfg.StatusPollInterval <= 0 {
		cfg.StatusPollInterval = 10 * time.Second
	}
	if cfg.IdleRecheck <= 0 {
		cfg.IdleRecheck = 30 * time.Second
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 5
	}
	e := &Engine{
		cfg:      cfg,
		broker:   d.Broker,
		store:    d.Store,
		eval:     d.Eval,
		notifier: d.Notifier,
		clock:    d.Clock,
		gate:     d.Gate,
		observer: d.Observer,
	}
	e.setState(StateIdle)
	return e
}

func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	engineState.Set(float64(s))
	if e.observer != nil {
		e.observer.SetEngineState(s.String())
	}
}

// Tick makes one decision: exit search when a position is open, entry search otherwise.
// The ledger is read on every call.
func (e *Engine) Tick(ctx context.Context) (out Outcome, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.tick")
	span.SetTag("symbol", e.cfg.Instrument.Symbol)
	defer func() {
		span.SetTag("outcome", out.String())
		if err != nil {
			ext.Error.Set(span, true)
			span.LogKV("error", err.Error())
		}
		span.Finish()

		e.dumpCandle(ctx, out)
		tickOutcomes.WithLabelValues(out.String()).Inc()
		now := e.clock.Now()
		lastTick.Set(float64(now.Unix()))
		if e.observer != nil {
			e.observer.TouchTick(now, out.String())
		}
		e.setState(StateResolved)
	}()

	e.pending = nil
	e.setState(StateEvaluating)
	pos, ok, err := e.store.GetPosition(ctx, e.cfg.Instrument.Symbol)
	if err != nil {
		return OutcomeNone, fmt.Errorf("read position: %w", err)
	}
	if ok {
		positionQuantity.Set(float64(pos.Quantity))
		return e.SearchExit(ctx, pos)
	}
	positionQuantity.Set(0)
	return e.SearchEntry(ctx)
}

// Run loops while the market is open. It returns nil once the gate reports
// the market closed and an error when a decision surfaces one.
func (e *Engine) Run(ctx context.Context) error {
	sym := e.cfg.Instrument.Symbol
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := e.clock.Now()
		status := e.gate.Status(now)
		if !status.Open {
			e.setState(StateIdle)
			logger.Info("[LOOP] %s: market is closed due to: %s", sym, status.Reason)
			e.notifier.Notify(ctx, notify.Event{
				Kind:    notify.KindInfo,
				Subject: "Market Closed",
				Details: []notify.Field{{Key: "symbol", Value: sym}, {Key: "reason", Value: status.Reason}},
				At:      now,
			})
			return nil
		}

		if !e.gate.IsTradingTime(now) {
			e.setState(StateIdle)
			if err := e.clock.Sleep(ctx, e.cfg.IdleRecheck); err != nil {
				return err
			}
			continue
		}

		if e.started.CompareAndSwap(false, true) {
			logger.Info("[LOOP] %s: trading started", sym)
			e.notifier.Notify(ctx, notify.Event{
				Kind:    notify.KindInfo,
				Subject: "Trading Started",
				Details: []notify.Field{
					{Key: "symbol", Value: sym},
					{Key: "exchange", Value: e.cfg.Instrument.Exchange},
					{Key: "product", Value: e.cfg.Product},
					{Key: "quantity", Value: e.cfg.Quantity},
					{Key: "entry_time_frame", Value: e.cfg.EntryTimeFrame},
					{Key: "exit_time_frame", Value: e.cfg.ExitTimeFrame},
					{Key: "strategy", Value: e.eval.Name()},
				},
				At: now,
			})
		}

		interval, err := e.interval(ctx)
		if err != nil {
			return err
		}
		e.setState(StateAwaitingCandleBoundary)
		next := e.gate.NextBoundary(now, interval)
		if err := e.clock.Sleep(ctx, next.Sub(now)); err != nil {
			return err
		}
		if !e.gate.IsTradingTime(e.clock.Now()) {
			continue
		}

		out, err := e.Tick(ctx)
		if err != nil {
			return err
		}
		logger.Debug("[LOOP] %s: tick resolved: %s", sym, out)
	}
}

// interval is the candle size the next decision runs on.
func (e *Engine) interval(ctx context.Context) (time.Duration, error) {
	_, ok, err := e.store.GetPosition(ctx, e.cfg.Instrument.Symbol)
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	if ok {
		return time.Duration(e.cfg.ExitTimeFrame) * time.Minute, nil
	}
	return time.Duration(e.cfg.EntryTimeFrame) * time.Minute, nil
}

// closedCandles fetches history for the timeframe and drops the candle still forming.
func (e *Engine) closedCandles(ctx context.Context, minutes int) ([]models.Candle, error) {
	interval, err := broker.Interval(minutes)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	candles, err := e.broker.GetHistoricalCandles(ctx, e.cfg.Instrument, interval, now.AddDate(0, 0, -e.cfg.HistoryDays), now)
	if err != nil {
		return nil, err
	}

	tf := time.Duration(minutes) * time.Minute
	closed := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if !c.Timestamp.Add(tf).After(now) {
			closed = append(closed, c)
		}
	}
	return closed, nil
}
