package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"intraday_trader/internal/models"
	"intraday_trader/internal/notify"
	"intraday_trader/internal/session"
	"intraday_trader/internal/store"
	"intraday_trader/internal/store/memory"
	"intraday_trader/internal/strategy"
)

// monday 10:00 UTC, on a candle boundary
var t0 = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

var testInstrument = models.Instrument{Symbol: "INFY", Exchange: "NSE", Token: 408065}

// fakeClock advances only when slept on.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock(at time.Time) *fakeClock { return &fakeClock{now: at} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

// Advance moves time forward without recording a sleep.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeBroker replays scripted market data and order statuses.
type fakeBroker struct {
	mu sync.Mutex

	clock   *fakeClock
	start   time.Time
	candles []models.Candle
	// price returns the live sample at elapsed time since start.
	price    func(elapsed time.Duration) models.PriceSample
	priceErr error

	// statuses are returned in order; the last one repeats.
	statuses  []models.OrderStatus
	avgPrice  float64
	submitErr error

	submitted []models.Order
	polls     int
	samples   int
}

func newFakeBroker(clock *fakeClock) *fakeBroker {
	return &fakeBroker{
		clock:    clock,
		start:    clock.Now(),
		statuses: []models.OrderStatus{models.OrderComplete},
		price: func(time.Duration) models.PriceSample {
			return models.PriceSample{High: 100, Low: 100, Close: 100}
		},
	}
}

func (b *fakeBroker) SubmitOrder(_ context.Context, o models.Order) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return "", b.submitErr
	}
	b.submitted = append(b.submitted, o)
	return fmt.Sprintf("order-%d", len(b.submitted)), nil
}

func (b *fakeBroker) GetOrderStatus(_ context.Context, orderID string) (models.OrderReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.polls
	if i >= len(b.statuses) {
		i = len(b.statuses) - 1
	}
	b.polls++
	st := b.statuses[i]
	rep := models.OrderReport{OrderID: orderID, Status: st, RawStatus: string(st)}
	if st == models.OrderComplete {
		rep.AveragePrice = b.avgPrice
	}
	if st == models.OrderRejected {
		rep.Message = "margin exceeds"
	}
	return rep, nil
}

func (b *fakeBroker) GetRecentPrice(context.Context, models.Instrument) (models.PriceSample, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples++
	if b.priceErr != nil {
		return models.PriceSample{}, b.priceErr
	}
	s := b.price(b.clock.Now().Sub(b.start))
	s.At = b.clock.Now()
	return s, nil
}

func (b *fakeBroker) GetHistoricalCandles(context.Context, models.Instrument, string, time.Time, time.Time) ([]models.Candle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Candle(nil), b.candles...), nil
}

func (b *fakeBroker) Submitted() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Order(nil), b.submitted...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Subject)
	}
	return out
}

func (r *recordingNotifier) Last() notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

// stubEvaluator returns fixed signals and records what it was given.
type stubEvaluator struct {
	mu      sync.Mutex
	entry   models.Signal
	exit    models.Signal
	err     error
	seen    [][]models.Candle
	entries int
}

func (s *stubEvaluator) Name() string  { return "stub" }
func (s *stubEvaluator) Lookback() int { return 1 }

func (s *stubEvaluator) Entry(cs []models.Candle) (models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries++
	s.seen = append(s.seen, cs)
	return s.entry, s.err
}

func (s *stubEvaluator) Exit(cs []models.Candle) (models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, cs)
	return s.exit, s.err
}

var _ strategy.Evaluator = (*stubEvaluator)(nil)

type alwaysOpen struct{}

func (alwaysOpen) Status(time.Time) session.MarketStatus { return session.MarketStatus{Open: true} }
func (alwaysOpen) IsTradingTime(time.Time) bool         { return true }

func (alwaysOpen) NextBoundary(now time.Time, interval time.Duration) time.Time {
	return session.NextBoundary(now, now.Truncate(24*time.Hour), interval)
}

type recordingObserver struct {
	mu       sync.Mutex
	states   []string
	outcomes []string
}

func (o *recordingObserver) SetEngineState(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) TouchTick(_ time.Time, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

// flakyStore fails selected ledger writes on top of the memory store.
type flakyStore struct {
	*memory.Store

	failTradeInsert bool
	failDeletes     int // number of DeletePosition calls to fail
	failSnapshots   bool
}

func (s *flakyStore) InsertTrade(ctx context.Context, t models.Trade) error {
	if s.failTradeInsert {
		return fmt.Errorf("insert trade %s: %w", t.Symbol, store.ErrWriteFailed)
	}
	return s.Store.InsertTrade(ctx, t)
}

func (s *flakyStore) DeletePosition(ctx context.Context, symbol string) error {
	if s.failDeletes > 0 {
		s.failDeletes--
		return fmt.Errorf("delete position %s: %w", symbol, store.ErrWriteFailed)
	}
	return s.Store.DeletePosition(ctx, symbol)
}

func (s *flakyStore) InsertCandleSnapshot(ctx context.Context, snap models.CandleSnapshot) error {
	if s.failSnapshots {
		return fmt.Errorf("insert candle %s: %w", snap.Symbol, store.ErrWriteFailed)
	}
	return s.Store.InsertCandleSnapshot(ctx, snap)
}

type harness struct {
	clock    *fakeClock
	broker   *fakeBroker
	store    *flakyStore
	eval     *stubEvaluator
	notifier *recordingNotifier
	observer *recordingObserver
	engine   *Engine
}

func testSettings() Settings {
	return Settings{
		Instrument:          testInstrument,
		Product:             "MIS",
		Quantity:            10,
		TickSize:            0.05,
		EntryTimeFrame:      5,
		ExitTimeFrame:       5,
		HistoryDays:         5,
		ConfirmWindowFactor: 2.8,
		ConfirmPollInterval: time.Second,
		StatusPollInterval:  10 * time.Second,
		IdleRecheck:         30 * time.Second,
	}
}

func newHarness(at time.Time) *harness {
	h := &harness{
		clock:    newFakeClock(at),
		store:    &flakyStore{Store: memory.New()},
		eval:     &stubEvaluator{},
		notifier: &recordingNotifier{},
		observer: &recordingObserver{},
	}
	h.broker = newFakeBroker(h.clock)
	h.broker.candles = closedCandles(at, 5, 3, 100)
	h.engine = New(testSettings(), Deps{
		Broker:   h.broker,
		Store:    h.store,
		Eval:     h.eval,
		Notifier: h.notifier,
		Clock:    h.clock,
		Gate:     alwaysOpen{},
		Observer: h.observer,
	})
	return h
}

// closedCandles builds n candles of tf minutes ending exactly at end.
func closedCandles(end time.Time, tf, n int, closePx float64) []models.Candle {
	out := make([]models.Candle, n)
	d := time.Duration(tf) * time.Minute
	for i := range out {
		out[i] = models.Candle{
			Open: closePx, High: closePx, Low: closePx, Close: closePx,
			Timestamp: end.Add(-time.Duration(n-i) * d),
		}
	}
	return out
}

func (h *harness) logMessages() []string {
	var out []string
	for _, l := range h.store.Logs() {
		out = append(out, l.Message)
	}
	return out
}

func enterLong(ref float64) models.Signal {
	return models.Signal{Kind: models.EnterLong, ReferencePrice: ref, CandleTime: t0.Add(-5 * time.Minute), Reason: "breakout up"}
}

func enterShort(ref float64) models.Signal {
	return models.Signal{Kind: models.EnterShort, ReferencePrice: ref, CandleTime: t0.Add(-5 * time.Minute), Reason: "breakout down"}
}

var errBoom = errors.New("boom")
