package strategy

import (
	"testing"
	"time"

	"intraday_trader/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC)

// flat builds n candles around px with a 1.0 range.
func flat(n int, px float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Open: px, High: px + 0.5, Low: px - 0.5, Close: px,
			Timestamp: t0.Add(time.Duration(i) * 5 * time.Minute),
		}
	}
	return out
}

func small() *Donchian {
	return NewDonchian(Config{DonchianPeriod: 5, TrendEMA: 5, ExitFastEMA: 2, ExitSlowEMA: 4})
}

func TestDonchian_Lookback(t *testing.T) {
	assert.Equal(t, 6, small().Lookback())
	assert.Equal(t, 50, NewDonchian(Config{}).Lookback())
}

func TestDonchian_InsufficientData(t *testing.T) {
	s := small()
	cs := flat(s.Lookback()-1, 100)

	_, err := s.Entry(cs)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = s.Exit(cs)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = s.Entry(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestDonchian_Entry(t *testing.T) {
	s := small()

	t.Run("breakout up", func(t *testing.T) {
		cs := flat(10, 100)
		cs[9] = models.Candle{Open: 100, High: 103, Low: 100, Close: 102.5, Timestamp: cs[9].Timestamp}

		sig, err := s.Entry(cs)
		require.NoError(t, err)
		assert.Equal(t, models.EnterLong, sig.Kind)
		assert.Equal(t, 103.0, sig.ReferencePrice)
		assert.Equal(t, cs[9].Timestamp, sig.CandleTime)
		assert.Equal(t, models.SideBuy, sig.Side())
	})

	t.Run("breakout down", func(t *testing.T) {
		cs := flat(10, 100)
		cs[9] = models.Candle{Open: 100, High: 100, Low: 97, Close: 97.5, Timestamp: cs[9].Timestamp}

		sig, err := s.Entry(cs)
		require.NoError(t, err)
		assert.Equal(t, models.EnterShort, sig.Kind)
		assert.Equal(t, 97.0, sig.ReferencePrice)
	})

	t.Run("inside channel", func(t *testing.T) {
		sig, err := s.Entry(flat(10, 100))
		require.NoError(t, err)
		assert.True(t, sig.None())
	})
}

func TestDonchian_Exit(t *testing.T) {
	s := small()

	falling := flat(10, 100)
	for i := 6; i < 10; i++ {
		falling[i].Close = 100 - float64(i-5)
	}
	sig, err := s.Exit(falling)
	require.NoError(t, err)
	assert.Equal(t, models.ExitShort, sig.Kind)
	assert.Equal(t, models.SideSell, sig.Side())
	assert.Equal(t, falling[9].Close, sig.ReferencePrice)

	rising := flat(10, 100)
	for i := 6; i < 10; i++ {
		rising[i].Close = 100 + float64(i-5)
	}
	sig, err = s.Exit(rising)
	require.NoError(t, err)
	assert.Equal(t, models.ExitLong, sig.Kind)

	sig, err = s.Exit(flat(10, 100))
	require.NoError(t, err)
	assert.True(t, sig.None())
}

func TestEMA(t *testing.T) {
	v, ok := ema([]float64{1, 2, 3}, 3)
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)

	v, ok = ema([]float64{1, 2, 3, 4}, 3)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-9)

	_, ok = ema([]float64{1}, 3)
	assert.False(t, ok)
}

func TestNewEvaluator(t *testing.T) {
	ev, err := NewEvaluator(Config{Name: "donchian"})
	require.NoError(t, err)
	assert.Equal(t, "donchian", ev.Name())

	_, err = NewEvaluator(Config{Name: "rsi"})
	assert.Error(t, err)
}

func TestDonchian_Indicators(t *testing.T) {
	s := small()
	cs := flat(10, 100)
	cs[9] = models.Candle{Open: 100, High: 103, Low: 100, Close: 102.5, Timestamp: cs[9].Timestamp}

	got := s.Indicators(cs)
	assert.Equal(t, 100.5, got["donchian_high"])
	assert.Equal(t, 99.5, got["donchian_low"])
	assert.Greater(t, got["ema_fast"], got["ema_slow"])
	assert.Contains(t, got, "ema_trend")

	short := s.Indicators(flat(3, 100))
	assert.NotContains(t, short, "donchian_high")
	assert.NotContains(t, short, "ema_trend")
	assert.Equal(t, 100.0, short["ema_fast"])
}
