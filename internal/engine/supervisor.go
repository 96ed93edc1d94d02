package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intraday_trader/internal/broker"
	"intraday_trader/internal/notify"
	"intraday_trader/internal/session"
	"intraday_trader/internal/store"
	"intraday_trader/pkg/logger"

	"github.com/jpillora/backoff"
)

type Runner interface {
	Run(ctx context.Context) error
}

// Supervisor restarts the loop after a surfaced error, with backoff, until
// the session ends or the restart budget is spent.
type Supervisor struct {
	runner      Runner
	notifier    notify.Notifier
	clock       session.Clock
	maxRestarts int
	backoff     *backoff.Backoff

	// OnRestart, when set, is called before each restart.
	OnRestart func()
	// ResetAfter, when set, gives a run that lasted at least this long a
	// fresh restart budget and backoff.
	ResetAfter time.Duration
}

func NewSupervisor(r Runner, n notify.Notifier, clock session.Clock, maxRestarts int, minWait, maxWait time.Duration) *Supervisor {
	if clock == nil {
		clock = session.SystemClock{}
	}
	return &Supervisor{
		runner:      r,
		notifier:    n,
		clock:       clock,
		maxRestarts: maxRestarts,
		backoff:     &backoff.Backoff{Min: minWait, Max: maxWait, Factor: 2},
	}
}

// Run returns nil when the loop ends normally or ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	restarts := 0
	for {
		started := s.clock.Now()
		err := s.runner.Run(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if ran := s.clock.Now().Sub(started); restarts > 0 && s.ResetAfter > 0 && ran >= s.ResetAfter {
			logger.Info("[LOOP] healthy for %s, restart budget reset", ran)
			restarts = 0
			s.backoff.Reset()
		}

		logger.Error("[LOOP] stopped with %s: %v", ErrorType(err), err)
		s.notifier.Notify(ctx, notify.Event{
			Kind:    notify.KindError,
			Subject: fmt.Sprintf("Error Report: %s", ErrorType(err)),
			Details: []notify.Field{
				{Key: "type", Value: ErrorType(err)},
				{Key: "message", Value: err.Error()},
				{Key: "restart", Value: restarts + 1},
			},
			At: s.clock.Now(),
		})

		if restarts >= s.maxRestarts {
			return fmt.Errorf("giving up after %d restarts: %w", restarts, err)
		}
		restarts++
		loopRestarts.Inc()
		if s.OnRestart != nil {
			s.OnRestart()
		}

		wait := s.backoff.Duration()
		logger.Info("[LOOP] restart %d/%d in %s", restarts, s.maxRestarts, wait)
		if err := s.clock.Sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// ErrorType names the error kind for reports.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, broker.ErrUnavailable):
		return "BrokerUnavailable"
	case errors.Is(err, store.ErrWriteFailed):
		return "StoreWriteFailed"
	case errors.Is(err, store.ErrPositionExists):
		return "PositionExists"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	}
	return fmt.Sprintf("%T", err)
}
