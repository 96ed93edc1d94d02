package engine

// State is where the loop currently is.
type State int32

const (
	StateIdle State = iota
	StateAwaitingCandleBoundary
	StateEvaluating
	StateConfirming
	StateSubmitting
	StatePolling
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCandleBoundary:
		return "awaiting_candle_boundary"
	case StateEvaluating:
		return "evaluating"
	case StateConfirming:
		return "confirming"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateResolved:
		return "resolved"
	}
	return "unknown"
}

// Outcome is how a single decision ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSkipped
	OutcomeNotConfirmed
	OutcomeFilled
	OutcomeRejected
	OutcomeSuppressed
	OutcomeNoExit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotConfirmed:
		return "not_confirmed"
	case OutcomeFilled:
		return "filled"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeNoExit:
		return "no_exit"
	}
	return "unknown"
}
