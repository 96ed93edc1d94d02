package engine

import (
	"context"
	"slices"
	"time"

	"intraday_trader/internal/models"
	"intraday_trader/internal/notify"
	"intraday_trader/internal/strategy"
	"intraday_trader/pkg/logger"
)

// record writes a journal entry. Journal failures are logged and do not stop the decision.
func (e *Engine) record(ctx context.Context, kind models.LogKind, msg string, fields []notify.Field) {
	details := make(map[string]any, len(fields))
	for _, f := range fields {
		details[f.Key] = f.Value
	}
	err := e.store.InsertLog(ctx, models.LogEntry{
		Kind:      kind,
		Message:   msg,
		Details:   details,
		CreatedAt: e.clock.Now(),
	})
	if err != nil {
		logger.Error("[JOURNAL] %s %q: %v", e.cfg.Instrument.Symbol, msg, err)
	}
}

// announce records the entry and sends the same details as a notification.
func (e *Engine) announce(ctx context.Context, kind models.LogKind, msg string, fields []notify.Field) {
	fields = slices.Clone(fields)
	e.record(ctx, kind, msg, fields)

	nk := notify.KindInfo
	switch kind {
	case models.LogSuccess:
		nk = notify.KindSuccess
	case models.LogFail:
		nk = notify.KindFail
	}
	e.notifier.Notify(ctx, notify.Event{Kind: nk, Subject: msg, Details: fields, At: e.clock.Now()})
}

// analyzed holds the last closed candle of this tick's evaluation until the outcome is known.
func (e *Engine) analyzed(tf int, candles []models.Candle, sig models.Signal) {
	if len(candles) == 0 {
		return
	}
	snap := &models.CandleSnapshot{
		Symbol:    e.cfg.Instrument.Symbol,
		TimeFrame: tf,
		Candle:    candles[len(candles)-1],
		Signal:    sig.Kind,
	}
	if a, ok := e.eval.(strategy.Analyzer); ok {
		snap.Indicators = a.Indicators(candles)
	}
	e.pending = snap
}

// dumpCandle journals the candle held by analyzed, if any, with the tick outcome.
func (e *Engine) dumpCandle(ctx context.Context, out Outcome) {
	snap := e.pending
	e.pending = nil
	if snap == nil {
		return
	}
	snap.Outcome = out.String()
	snap.CreatedAt = e.clock.Now()
	if err := e.store.InsertCandleSnapshot(ctx, *snap); err != nil {
		logger.Error("[JOURNAL] %s candle %s: %v", snap.Symbol, snap.Candle.Timestamp.Format(time.RFC3339), err)
	}
}
