package strategy

import (
	"fmt"
	"intraday_trader/internal/models"
)

// Donchian enters on a channel breakout in the direction of the trend EMA and
// exits on a fast/slow EMA cross.
type Donchian struct {
	cfg Config
}

var _ Analyzer = (*Donchian)(nil)

func NewDonchian(cfg Config) *Donchian {
	if cfg.DonchianPeriod <= 0 {
		cfg.DonchianPeriod = 20
	}
	if cfg.TrendEMA <= 0 {
		cfg.TrendEMA = 50
	}
	if cfg.ExitFastEMA <= 0 {
		cfg.ExitFastEMA = 9
	}
	if cfg.ExitSlowEMA <= cfg.ExitFastEMA {
		cfg.ExitSlowEMA = cfg.ExitFastEMA * 2
	}
	return &Donchian{cfg: cfg}
}

func (s *Donchian) Name() string { return "donchian" }

func (s *Donchian) Lookback() int {
	n := s.cfg.DonchianPeriod + 1
	for _, v := range []int{s.cfg.TrendEMA, s.cfg.ExitSlowEMA} {
		if v > n {
			n = v
		}
	}
	return n
}

func (s *Donchian) Entry(candles []models.Candle) (models.Signal, error) {
	if len(candles) < s.Lookback() {
		return models.Signal{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(candles), s.Lookback())
	}

	last := candles[len(candles)-1]
	dh, dl := s.channel(candles)
	trend, _ := ema(models.Closes(candles), s.cfg.TrendEMA)

	sig := models.Signal{Kind: models.NoSignal, CandleTime: last.Timestamp}
	switch {
	case last.Close > dh && last.Close > trend:
		sig.Kind = models.EnterLong
		sig.ReferencePrice = last.High
		sig.Reason = fmt.Sprintf("breakout up: close=%.2f > dh=%.2f & ema%d=%.2f", last.Close, dh, s.cfg.TrendEMA, trend)
	case last.Close < dl && last.Close < trend:
		sig.Kind = models.EnterShort
		sig.ReferencePrice = last.Low
		sig.Reason = fmt.Sprintf("breakout down: close=%.2f < dl=%.2f & ema%d=%.2f", last.Close, dl, s.cfg.TrendEMA, trend)
	}
	return sig, nil
}

// channel is the high and low of the period candles before the last one.
func (s *Donchian) channel(candles []models.Candle) (high, low float64) {
	window := candles[len(candles)-1-s.cfg.DonchianPeriod : len(candles)-1]
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, c := range window {
		highs[i] = c.High
		lows[i] = c.Low
	}
	return maxSlice(highs), minSlice(lows)
}

// Indicators reports the channel and EMA values for the last candle. Values
// that need more candles than given are left out.
func (s *Donchian) Indicators(candles []models.Candle) map[string]float64 {
	out := make(map[string]float64, 5)
	if len(candles) > s.cfg.DonchianPeriod {
		out["donchian_high"], out["donchian_low"] = s.channel(candles)
	}
	closes := models.Closes(candles)
	for name, period := range map[string]int{
		"ema_trend": s.cfg.TrendEMA,
		"ema_fast":  s.cfg.ExitFastEMA,
		"ema_slow":  s.cfg.ExitSlowEMA,
	} {
		if v, ok := ema(closes, period); ok {
			out[name] = v
		}
	}
	return out
}

func (s *Donchian) Exit(candles []models.Candle) (models.Signal, error) {
	if len(candles) < s.Lookback() {
		return models.Signal{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(candles), s.Lookback())
	}

	last := candles[len(candles)-1]
	closes := models.Closes(candles)
	fast, _ := ema(closes, s.cfg.ExitFastEMA)
	slow, _ := ema(closes, s.cfg.ExitSlowEMA)

	sig := models.Signal{Kind: models.NoSignal, CandleTime: last.Timestamp, ReferencePrice: last.Close}
	switch {
	case fast < slow:
		sig.Kind = models.ExitShort
		sig.Reason = fmt.Sprintf("ema%d=%.2f below ema%d=%.2f", s.cfg.ExitFastEMA, fast, s.cfg.ExitSlowEMA, slow)
	case fast > slow:
		sig.Kind = models.ExitLong
		sig.Reason = fmt.Sprintf("ema%d=%.2f above ema%d=%.2f", s.cfg.ExitFastEMA, fast, s.cfg.ExitSlowEMA, slow)
	}
	return sig, nil
}
