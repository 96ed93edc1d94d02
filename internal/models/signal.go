package models

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type SignalKind string

const (
	NoSignal   SignalKind = ""
	EnterLong  SignalKind = "ENTER_LONG"
	EnterShort SignalKind = "ENTER_SHORT"
	// ExitLong exits with a buy order, i.e. it closes short exposure.
	ExitLong SignalKind = "EXIT_LONG"
	// ExitShort exits with a sell order, i.e. it closes long exposure.
	ExitShort SignalKind = "EXIT_SHORT"
)

// Signal is what the evaluator hands to the engine.
type Signal struct {
	Kind           SignalKind `json:"signal"`
	ReferencePrice float64    `json:"reference_price"`
	CandleTime     time.Time  `json:"candle_time"`
	Reason         string     `json:"reason,omitempty"`
}

func (s Signal) None() bool { return s.Kind == NoSignal }

func (s Signal) IsEntry() bool { return s.Kind == EnterLong || s.Kind == EnterShort }

func (s Signal) IsExit() bool { return s.Kind == ExitLong || s.Kind == ExitShort }

// Side is the order direction the signal asks for.
func (s Signal) Side() Side {
	switch s.Kind {
	case EnterLong, ExitLong:
		return SideBuy
	case EnterShort, ExitShort:
		return SideSell
	}
	return ""
}
