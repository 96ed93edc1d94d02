package engine

import (
	"context"
	"testing"
	"time"

	"intraday_trader/internal/models"
	"intraday_trader/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPosition(t *testing.T, h *harness, qty int) {
	t.Helper()
	kind := models.EnterLong
	if qty < 0 {
		kind = models.EnterShort
	}
	require.NoError(t, h.store.CreatePosition(context.Background(), models.Position{
		Symbol:          "INFY",
		Exchange:        "NSE",
		InstrumentToken: 408065,
		Product:         "MIS",
		Quantity:        qty,
		EntryPrice:      100,
		EntryTimestamp:  t0.Add(-time.Hour),
		LastTradedPrice: 100,
		Signal:          kind,
		OrderID:         "entry-1",
	}))
}

func exitSignal(kind models.SignalKind) models.Signal {
	return models.Signal{Kind: kind, ReferencePrice: 101, CandleTime: t0.Add(-5 * time.Minute), Reason: "ema cross"}
}

func TestSuppressed(t *testing.T) {
	tests := []struct {
		name string
		qty  int
		kind models.SignalKind
		want bool
	}{
		{"sell exit closes long", 10, models.ExitShort, false},
		{"sell exit on short", -10, models.ExitShort, true},
		{"buy exit closes short", -10, models.ExitLong, false},
		{"buy exit on long", 10, models.ExitLong, true},
		{"flat", 0, models.ExitShort, true},
		{"entry signal", 10, models.EnterLong, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suppressed(models.Position{Quantity: tt.qty}, models.Signal{Kind: tt.kind})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchExit_ClosesLong(t *testing.T) {
	h := newHarness(t0)
	openPosition(t, h, 10)
	h.broker.candles = closedCandles(t0, 5, 3, 101)
	h.eval.exit = exitSignal(models.ExitShort)
	h.broker.avgPrice = 101.5

	out, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFilled, out)

	orders := h.broker.Submitted()
	require.Len(t, orders, 1)
	assert.Equal(t, models.SideSell, orders[0].Side)
	assert.Equal(t, models.OrderTypeMarket, orders[0].Type)
	assert.Equal(t, models.ValidityDay, orders[0].Validity)
	assert.Equal(t, 10, orders[0].Quantity)

	assert.Zero(t, h.store.PositionCount())
	trades, err := h.store.ListTrades(context.Background(), "INFY")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 101.5, trades[0].ExitPrice)
	assert.Equal(t, 15.0, trades[0].PnL)
	assert.Equal(t, "order-1", trades[0].ExitOrderID)
	assert.Equal(t, "entry-1", trades[0].OrderID)
	assert.Equal(t, []string{"Searching for exit", "Order executed successfully"}, h.logMessages())
}

func TestSearchExit_FallsBackToLastClose(t *testing.T) {
	h := newHarness(t0)
	openPosition(t, h, -10)
	h.broker.candles = closedCandles(t0, 5, 3, 98)
	h.eval.exit = exitSignal(models.ExitLong)

	out, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFilled, out)

	orders := h.broker.Submitted()
	require.Len(t, orders, 1)
	assert.Equal(t, models.SideBuy, orders[0].Side)
	assert.Equal(t, 10, orders[0].Quantity)

	trades, err := h.store.ListTrades(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 98.0, trades[0].ExitPrice)
	assert.Equal(t, 20.0, trades[0].PnL)
}

func TestSearchExit_SellExitOnShortIsIgnored(t *testing.T) {
	h := newHarness(t0)
	openPosition(t, h, -10)
	h.broker.candles = closedCandles(t0, 5, 3, 99)
	h.eval.exit = exitSignal(models.ExitShort)

	out, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, out)
	assert.Empty(t, h.broker.Submitted())

	pos, ok, err := h.store.GetPosition(context.Background(), "INFY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -10, pos.Quantity)
	assert.Equal(t, 99.0, pos.LastTradedPrice)
}

func TestSearchExit_NoSignalMarksPosition(t *testing.T) {
	h := newHarness(t0)
	openPosition(t, h, 10)
	h.broker.candles = closedCandles(t0, 5, 3, 102.25)

	out, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoExit, out)
	assert.Empty(t, h.broker.Submitted())

	pos, _, err := h.store.GetPosition(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, 102.25, pos.LastTradedPrice)
	assert.Equal(t, 22.5, pos.UnrealizedPnL())
	assert.Equal(t, []string{"Searching for exit"}, h.logMessages())
}

func TestSearchExit_NoClosedCandles(t *testing.T) {
	h := newHarness(t0)
	openPosition(t, h, 10)
	h.broker.candles = nil

	out, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
	assert.Equal(t, 1, h.store.PositionCount())
}

func TestSearchExit_RejectedKeepsPosition(t *testing.T) {
	h := newHarness(t0)
	openPosition(t, h, 10)
	h.eval.exit = exitSignal(models.ExitShort)
	h.broker.statuses = []models.OrderStatus{models.OrderRejected}

	out, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, out)
	assert.Equal(t, 1, h.store.PositionCount())

	trades, err := h.store.ListTrades(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, "Order failed", h.notifier.Last().Subject)
}

func TestSearchExit_TradeWriteFailureKeepsPosition(t *testing.T) {
	h := newHarness(t0)
	openPosition(t, h, 10)
	h.eval.exit = exitSignal(models.ExitShort)
	h.store.failTradeInsert = true

	out, err := h.engine.Tick(context.Background())
	require.ErrorIs(t, err, store.ErrWriteFailed)
	assert.Equal(t, OutcomeFilled, out)
	assert.Equal(t, 1, h.store.PositionCount())
	assert.Equal(t, "Trade not stored", h.notifier.Last().Subject)
	assert.Equal(t, "StoreWriteFailed", ErrorType(err))
}

func TestSearchExit_FinishesRecordedExitWithoutReordering(t *testing.T) {
	h := newHarness(t0)
	openPosition(t, h, 10)
	h.eval.exit = exitSignal(models.ExitShort)
	h.broker.avgPrice = 101
	h.store.failDeletes = 1

	out, err := h.engine.Tick(context.Background())
	require.ErrorIs(t, err, store.ErrWriteFailed)
	assert.Equal(t, OutcomeFilled, out)
	assert.Equal(t, 1, h.store.PositionCount())

	out, err = h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFilled, out)

	assert.Len(t, h.broker.Submitted(), 1)
	trades, err := h.store.ListTrades(context.Background(), "INFY")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "order-1", trades[0].ExitOrderID)
	assert.Zero(t, h.store.PositionCount())
	assert.Equal(t, "Order executed successfully", h.notifier.Last().Subject)
	assert.Equal(t, []string{"Searching for exit", "Order executed successfully"}, h.logMessages())
}

func TestSearchExit_RecordedTradeOfOtherEntryIsIgnored(t *testing.T) {
	h := newHarness(t0)
	require.NoError(t, h.store.InsertTrade(context.Background(), models.Trade{
		Position:    models.Position{Symbol: "INFY", OrderID: "entry-0"},
		ExitOrderID: "exit-0",
	}))
	openPosition(t, h, 10)
	h.eval.exit = exitSignal(models.ExitShort)

	out, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFilled, out)
	assert.Len(t, h.broker.Submitted(), 1)
	assert.Zero(t, h.store.PositionCount())
}

func TestRoundTrip(t *testing.T) {
	h := newHarness(t0)
	h.eval.entry = enterLong(100)
	h.broker.price = func(time.Duration) models.PriceSample {
		return models.PriceSample{High: 100.5, Low: 99.5, Close: 100.4}
	}

	out, err := h.engine.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeFilled, out)
	pos, ok, err := h.store.GetPosition(context.Background(), "INFY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, t0.Add(-5*time.Minute), pos.From)

	// a second entry signal while holding is routed to the exit search
	exitCandle := t0
	h.eval.exit = exitSignal(models.ExitShort)
	h.eval.exit.CandleTime = exitCandle
	h.broker.candles = closedCandles(h.clock.Now(), 5, 3, 101)
	out, err = h.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFilled, out)
	assert.Equal(t, 1, h.eval.entries)

	assert.Zero(t, h.store.PositionCount())
	trades, err := h.store.ListTrades(context.Background(), "INFY")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.5, trades[0].EntryPrice)
	assert.Equal(t, 101.0, trades[0].ExitPrice)
	assert.Equal(t, 5.0, trades[0].PnL)
	assert.Equal(t, t0.Add(-5*time.Minute), trades[0].From)
	assert.Equal(t, exitCandle, trades[0].To)
	assert.True(t, trades[0].To.After(trades[0].From))
	require.Len(t, h.broker.Submitted(), 2)
}
