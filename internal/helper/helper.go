package helper

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundDownToTick snaps px down to a multiple of tick.
func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	t := decimal.NewFromFloat(tick)
	v, _ := decimal.NewFromFloat(px).Div(t).Floor().Mul(t).Float64()
	return v
}

// RoundUpToTick snaps px up to a multiple of tick.
func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	t := decimal.NewFromFloat(tick)
	v, _ := decimal.NewFromFloat(px).Div(t).Ceil().Mul(t).Float64()
	return v
}

// WholeMinutes rounds d to the nearest minute, never below one.
func WholeMinutes(d time.Duration) int {
	m := int(d.Round(time.Minute) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

// ScaleMinutes returns minutes*factor as a duration, without float drift.
func ScaleMinutes(minutes int, factor float64) time.Duration {
	ns := decimal.NewFromInt(int64(minutes)).
		Mul(decimal.NewFromFloat(factor)).
		Mul(decimal.NewFromInt(int64(time.Minute)))
	return time.Duration(ns.Round(0).IntPart())
}

// FormatPrice renders a price with two decimals, the way the exchange quotes it.
func FormatPrice(px float64) string {
	return decimal.NewFromFloat(px).StringFixed(2)
}
