package session

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"intraday_trader/internal/modules/config"
)

const (
	ReasonWeekend = "Weekend"
	ReasonClosed  = "Market closed for the day"
)

type MarketStatus struct {
	Open   bool
	Reason string
}

// Gate answers whether the exchange is open and whether the engine may trade.
type Gate struct {
	loc          *time.Location
	marketOpen   time.Duration
	marketClose  time.Duration
	tradingStart time.Duration
	tradingEnd   time.Duration
	holidays     map[string]string // 2006-01-02 -> name
}

func NewGate(cfg config.Session) (*Gate, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	g := &Gate{loc: loc, holidays: make(map[string]string, len(cfg.Holidays))}
	for _, f := range []struct {
		raw string
		dst *time.Duration
	}{
		{cfg.MarketOpen, &g.marketOpen},
		{cfg.MarketClose, &g.marketClose},
		{cfg.TradingStart, &g.tradingStart},
		{cfg.TradingEnd, &g.tradingEnd},
	} {
		if *f.dst, err = parseClock(f.raw); err != nil {
			return nil, err
		}
	}
	if g.marketClose <= g.marketOpen {
		return nil, fmt.Errorf("market_close %s must be after market_open %s", cfg.MarketClose, cfg.MarketOpen)
	}
	if g.tradingEnd <= g.tradingStart {
		return nil, fmt.Errorf("trading_end %s must be after trading_start %s", cfg.TradingEnd, cfg.TradingStart)
	}

	for _, h := range cfg.Holidays {
		if _, err := time.Parse(time.DateOnly, h.Date); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h.Date, err)
		}
		g.holidays[h.Date] = h.Name
	}
	return g, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (g *Gate) Location() *time.Location { return g.loc }

func (g *Gate) sinceMidnight(local time.Time) time.Duration {
	y, m, d := local.Date()
	return local.Sub(time.Date(y, m, d, 0, 0, 0, 0, g.loc))
}

// Status reports the market open for the whole trading day until the close.
func (g *Gate) Status(now time.Time) MarketStatus {
	local := now.In(g.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return MarketStatus{Reason: ReasonWeekend}
	}
	if name, ok := g.holidays[local.Format(time.DateOnly)]; ok {
		return MarketStatus{Reason: "Holiday: " + name}
	}
	if g.sinceMidnight(local) >= g.marketClose {
		return MarketStatus{Reason: ReasonClosed}
	}
	return MarketStatus{Open: true}
}

// IsTradingTime reports whether orders may be placed now.
func (g *Gate) IsTradingTime(now time.Time) bool {
	if !g.Status(now).Open {
		return false
	}
	t := g.sinceMidnight(now.In(g.loc))
	return t >= g.tradingStart && t < g.tradingEnd && t >= g.marketOpen
}

// NextBoundary is the next candle close after now. Exchange candles are
// counted from the market open of the day, so an hourly candle closes at 10:15.
func (g *Gate) NextBoundary(now time.Time, interval time.Duration) time.Time {
	y, m, d := now.In(g.loc).Date()
	open := time.Date(y, m, d, 0, 0, 0, 0, g.loc).Add(g.marketOpen)
	return NextBoundary(now, open, interval)
}
