package strategy

import (
	"errors"
	"intraday_trader/internal/models"
)

// ErrInsufficientData is returned when the candle window is shorter than the lookback.
var ErrInsufficientData = errors.New("insufficient candle data")

// Evaluator turns a window of closed candles into a signal.
// Implementations must be pure: no I/O, no state carried between calls.
type Evaluator interface {
	Name() string
	// Lookback is the minimum number of candles Entry and Exit accept.
	Lookback() int
	Entry(candles []models.Candle) (models.Signal, error)
	Exit(candles []models.Candle) (models.Signal, error)
}

// Analyzer is implemented by evaluators that can report the indicator values
// behind a decision on the same candles.
type Analyzer interface {
	Indicators(candles []models.Candle) map[string]float64
}

// Config selects and parameterises the evaluator.
type Config struct {
	Name           string
	DonchianPeriod int
	TrendEMA       int
	ExitFastEMA    int
	ExitSlowEMA    int
}
